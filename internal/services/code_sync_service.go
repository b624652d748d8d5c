package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codecraft-dev/codecraft/internal/models"
	"github.com/codecraft-dev/codecraft/pkg/metrics"
)

// lastActiveThrottle bounds how often an editing burst rewrites the
// participant's lastActive stamp. Edits inside the window still replicate;
// only the coarse activity timestamp is skipped.
const lastActiveThrottle = 5 * time.Second

var (
	// ErrReadOnlyParticipant indicates the caller holds read permission only.
	ErrReadOnlyParticipant = errors.New("code sync service: participant has read-only access")
)

// OperationDescriptor is the client's description of the edit that produced
// the new buffer. It is recorded verbatim for diagnostics and never replayed.
type OperationDescriptor struct {
	Kind     string
	Position int
	Content  string
	Length   int
}

// UpdateCodeParams carries one full-buffer code replication request.
type UpdateCodeParams struct {
	SessionKey string
	UserID     string
	Code       string
	Operation  *OperationDescriptor
}

// UpdateCodeResult reports what the replication request did.
type UpdateCodeResult struct {
	Applied bool
	Session *models.CollabSession
}

// CodeSyncService replicates the shared text buffer with last-write-wins
// semantics: each accepted update overwrites the entire buffer, and concurrent
// writers converge on whichever write committed last.
type CodeSyncService struct {
	db          *gorm.DB
	broadcaster SessionBroadcaster
	timeNow     func() time.Time
}

// CodeSyncOption customises service dependencies.
type CodeSyncOption func(*CodeSyncService)

// WithCodeSyncBroadcaster wires the realtime hub for code events.
func WithCodeSyncBroadcaster(b SessionBroadcaster) CodeSyncOption {
	return func(s *CodeSyncService) {
		s.broadcaster = b
	}
}

// WithCodeSyncClock overrides the clock used for timestamps (test helper).
func WithCodeSyncClock(clock func() time.Time) CodeSyncOption {
	return func(s *CodeSyncService) {
		if clock != nil {
			s.timeNow = clock
		}
	}
}

// NewCodeSyncService constructs the code replication service.
func NewCodeSyncService(db *gorm.DB, opts ...CodeSyncOption) (*CodeSyncService, error) {
	if db == nil {
		return nil, errors.New("code sync service: db is required")
	}

	svc := &CodeSyncService{
		db:      db,
		timeNow: time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// UpdateCode applies a full-buffer replacement. Unchanged buffers are a pure
// no-op: no write, no operation log entry and no activity bump, so idle clients
// that resend identical content cannot keep an abandoned session alive.
func (s *CodeSyncService) UpdateCode(ctx context.Context, params UpdateCodeParams) (*UpdateCodeResult, error) {
	if s == nil {
		return nil, errors.New("code sync service: service not initialised")
	}
	ctx = ensureContext(ctx)

	sessionKey := strings.TrimSpace(params.SessionKey)
	userID := strings.TrimSpace(params.UserID)
	if sessionKey == "" {
		return nil, ErrSessionNotFound
	}
	if userID == "" {
		return nil, errors.New("code sync service: user id is required")
	}

	now := s.timeNow()
	var session models.CollabSession
	applied := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&session, "session_key = ?", sessionKey).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		session.Normalise()

		var participant models.SessionParticipant
		if err := tx.
			First(&participant, "session_id = ? AND user_id = ?", session.ID, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotParticipant
			}
			return err
		}
		if participant.Permission != models.PermissionWrite {
			return ErrReadOnlyParticipant
		}

		if session.Code == params.Code {
			return nil
		}

		session.Code = params.Code
		session.LastActivity = now
		if err := tx.Save(&session).Error; err != nil {
			return err
		}

		if params.Operation != nil {
			op := models.SessionOperation{
				SessionID: session.ID,
				UserID:    userID,
				Kind:      normaliseOperationKind(params.Operation.Kind),
				Position:  params.Operation.Position,
				Content:   params.Operation.Content,
				Length:    params.Operation.Length,
			}
			if err := tx.Create(&op).Error; err != nil {
				return err
			}
		}

		if now.Sub(participant.LastActive) >= lastActiveThrottle {
			if err := tx.Model(&models.SessionParticipant{}).
				Where("session_id = ? AND user_id = ?", session.ID, userID).
				Update("last_active", now).Error; err != nil {
				return err
			}
		}

		applied = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotParticipant) || errors.Is(err, ErrReadOnlyParticipant) {
			metrics.CodeUpdates.WithLabelValues("denied").Inc()
		}
		return nil, err
	}

	if !applied {
		metrics.CodeUpdates.WithLabelValues("noop").Inc()
		return &UpdateCodeResult{Applied: false, Session: &session}, nil
	}

	metrics.CodeUpdates.WithLabelValues("applied").Inc()
	broadcast(s.broadcaster, sessionKey, EventCodeUpdated, map[string]any{
		"code":    session.Code,
		"user_id": userID,
	})

	return &UpdateCodeResult{Applied: true, Session: &session}, nil
}

// ListOperations returns the most recent operation log entries for a session,
// newest first. The log is diagnostic; callers must not replay it.
func (s *CodeSyncService) ListOperations(ctx context.Context, sessionKey string, limit int) ([]models.SessionOperation, error) {
	if s == nil {
		return nil, errors.New("code sync service: service not initialised")
	}
	ctx = ensureContext(ctx)

	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return nil, ErrSessionNotFound
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var session models.CollabSession
	if err := s.db.WithContext(ctx).
		Select("id").
		First(&session, "session_key = ?", sessionKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var ops []models.SessionOperation
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", session.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ops).Error; err != nil {
		return nil, err
	}

	return ops, nil
}

func normaliseOperationKind(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case models.OperationInsert:
		return models.OperationInsert
	case models.OperationDelete:
		return models.OperationDelete
	default:
		return models.OperationReplace
	}
}
