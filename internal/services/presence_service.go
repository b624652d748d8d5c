package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codecraft-dev/codecraft/internal/models"
	"github.com/codecraft-dev/codecraft/pkg/logger"
)

// InactiveThreshold is the silence window after which a participant stops
// counting as live. Clients heartbeat every 30 seconds, so the window absorbs
// several missed beats before a participant drops out of the live set.
const InactiveThreshold = 5 * time.Minute

var (
	// ErrPresenceSessionNotFound indicates the heartbeat referenced an unknown session.
	ErrPresenceSessionNotFound = errors.New("presence service: session not found")
)

// PresenceService tracks participant liveness. Heartbeats refresh the lastSeen
// clock and revive sessions that were scheduled for deletion; liveness
// computation derives the live set from participant rows and is the only
// authority the session's activeUsers cache is rebuilt from.
type PresenceService struct {
	db          *gorm.DB
	broadcaster SessionBroadcaster
	timeNow     func() time.Time
}

// PresenceOption customises service dependencies.
type PresenceOption func(*PresenceService)

// WithPresenceBroadcaster wires the realtime hub for presence events.
func WithPresenceBroadcaster(b SessionBroadcaster) PresenceOption {
	return func(s *PresenceService) {
		s.broadcaster = b
	}
}

// WithPresenceClock overrides the clock used for timestamps (test helper).
func WithPresenceClock(clock func() time.Time) PresenceOption {
	return func(s *PresenceService) {
		if clock != nil {
			s.timeNow = clock
		}
	}
}

// NewPresenceService constructs the presence tracker.
func NewPresenceService(db *gorm.DB, opts ...PresenceOption) (*PresenceService, error) {
	if db == nil {
		return nil, errors.New("presence service: db is required")
	}

	svc := &PresenceService{
		db:      db,
		timeNow: time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Heartbeat records a liveness signal for the user in the session identified by
// its key. The call is idempotent: repeated beats only advance timestamps. A
// beat against a session scheduled for deletion cancels the pending expiry and
// flips the session back to active.
func (s *PresenceService) Heartbeat(ctx context.Context, sessionKey, userID string) error {
	if s == nil {
		return errors.New("presence service: service not initialised")
	}
	ctx = ensureContext(ctx)

	sessionKey = strings.TrimSpace(sessionKey)
	userID = strings.TrimSpace(userID)
	if sessionKey == "" {
		return errors.New("presence service: session key is required")
	}
	if userID == "" {
		return errors.New("presence service: user id is required")
	}

	now := s.timeNow()
	var revived bool
	var liveUsers []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.CollabSession
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&session, "session_key = ?", sessionKey).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPresenceSessionNotFound
			}
			return err
		}
		session.Normalise()

		var participant models.SessionParticipant
		if err := tx.
			First(&participant, "session_id = ? AND user_id = ?", session.ID, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// A beat can race the join that creates the row; drop it and
				// let the next one land.
				logger.Debug("heartbeat for unknown participant",
					zap.String("session_key", sessionKey),
					zap.String("user_id", userID))
				return nil
			}
			return err
		}

		participant.LastSeen = &now
		participant.IsActive = true
		if err := tx.Save(&participant).Error; err != nil {
			return err
		}

		session.LastActivity = now
		if session.Status == models.SessionStatusScheduledForDeletion {
			session.Status = models.SessionStatusActive
			session.ExpiresAt = nil
			revived = true
		}
		if !containsUser(session.ActiveUsers, userID) {
			session.ActiveUsers = append(session.ActiveUsers, userID)
			sort.Strings(session.ActiveUsers)
			revived = true
		}
		liveUsers = append([]string(nil), session.ActiveUsers...)

		return tx.Save(&session).Error
	})
	if err != nil {
		return err
	}

	if revived {
		broadcast(s.broadcaster, sessionKey, EventPresenceChanged, map[string]any{
			"active_users": liveUsers,
		})
	}

	return nil
}

// ComputeLiveness recomputes the live set for a session at the supplied instant
// and returns the live user ids in sorted order. Participants whose last signal
// is older than the threshold are flagged inactive; rows already flagged
// inactive (explicit leaves) never re-enter the live set here.
func (s *PresenceService) ComputeLiveness(ctx context.Context, sessionID string, now time.Time) ([]string, error) {
	if s == nil {
		return nil, errors.New("presence service: service not initialised")
	}
	ctx = ensureContext(ctx)

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("presence service: session id is required")
	}

	var live []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var innerErr error
		live, innerErr = s.computeLiveness(tx, sessionID, now)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return live, nil
}

// computeLiveness is the transactional core of ComputeLiveness, shared with the
// session service so join/leave/sweep can recompute inside their own locks.
// Flags are written only when the verdict changed, keeping repeat sweeps cheap.
func (s *PresenceService) computeLiveness(tx *gorm.DB, sessionID string, now time.Time) ([]string, error) {
	var participants []models.SessionParticipant
	if err := tx.
		Where("session_id = ?", sessionID).
		Find(&participants).Error; err != nil {
		return nil, err
	}

	live := make([]string, 0, len(participants))
	for i := range participants {
		p := &participants[i]
		fresh := now.Sub(p.EffectiveLastSeen()) <= InactiveThreshold

		if p.IsActive && !fresh {
			p.IsActive = false
			if err := tx.Model(&models.SessionParticipant{}).
				Where("session_id = ? AND user_id = ?", p.SessionID, p.UserID).
				Update("is_active", false).Error; err != nil {
				return nil, err
			}
		}

		if p.IsActive && fresh {
			live = append(live, p.UserID)
		}
	}

	sort.Strings(live)
	return live, nil
}

func containsUser(users []string, userID string) bool {
	for _, id := range users {
		if id == userID {
			return true
		}
	}
	return false
}
