package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codecraft-dev/codecraft/internal/models"
)

// DefaultSavedSessionQuota caps how many snapshots a single user may keep.
const DefaultSavedSessionQuota = 10

var (
	// ErrSavedSessionNotFound indicates no snapshot exists for the supplied id.
	ErrSavedSessionNotFound = errors.New("saved session service: saved session not found")
	// ErrSavedSessionAccessDenied indicates a private snapshot was requested by a non-owner.
	ErrSavedSessionAccessDenied = errors.New("saved session service: access denied")
	// ErrAlreadySaved indicates the caller already snapshotted this live session.
	ErrAlreadySaved = errors.New("saved session service: session already saved")
)

// SaveSessionParams describes a snapshot request for a live session.
type SaveSessionParams struct {
	OwnerID    string
	SessionKey string
	Name       string
	Tags       []string
	IsPrivate  *bool
}

// UpdateSavedSessionInput lists the owner-mutable snapshot fields.
type UpdateSavedSessionInput struct {
	Name      *string
	Code      *string
	Language  *string
	Tags      []string
	IsPrivate *bool
}

// SavedSessionService manages permanent snapshots of live sessions: saving,
// listing, editing and loading them back into new live sessions.
type SavedSessionService struct {
	db      *gorm.DB
	collab  *CollabService
	quota   int
	timeNow func() time.Time
}

// SavedSessionOption customises service dependencies.
type SavedSessionOption func(*SavedSessionService)

// WithSavedSessionQuota overrides the per-user snapshot cap.
func WithSavedSessionQuota(quota int) SavedSessionOption {
	return func(s *SavedSessionService) {
		if quota > 0 {
			s.quota = quota
		}
	}
}

// WithSavedSessionClock overrides the clock used for timestamps (test helper).
func WithSavedSessionClock(clock func() time.Time) SavedSessionOption {
	return func(s *SavedSessionService) {
		if clock != nil {
			s.timeNow = clock
		}
	}
}

// NewSavedSessionService constructs the snapshot service.
func NewSavedSessionService(db *gorm.DB, collab *CollabService, opts ...SavedSessionOption) (*SavedSessionService, error) {
	if db == nil {
		return nil, errors.New("saved session service: db is required")
	}
	if collab == nil {
		return nil, errors.New("saved session service: collab service is required")
	}

	svc := &SavedSessionService{
		db:      db,
		collab:  collab,
		quota:   DefaultSavedSessionQuota,
		timeNow: time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Save snapshots the current state of a live session for the caller. When the
// live session itself was loaded from one of the caller's snapshots, the
// original snapshot is updated in place instead of a duplicate being created.
// Saving the same live session twice is rejected.
func (s *SavedSessionService) Save(ctx context.Context, params SaveSessionParams) (*models.SavedSession, error) {
	if s == nil {
		return nil, errors.New("saved session service: service not initialised")
	}
	ctx = ensureContext(ctx)

	ownerID := strings.TrimSpace(params.OwnerID)
	sessionKey := strings.TrimSpace(params.SessionKey)
	if ownerID == "" {
		return nil, errors.New("saved session service: owner id is required")
	}
	if sessionKey == "" {
		return nil, ErrSessionNotFound
	}

	var saved models.SavedSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.CollabSession
		if err := tx.First(&session, "session_key = ?", sessionKey).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		session.Normalise()

		var memberCount int64
		if err := tx.Model(&models.SessionParticipant{}).
			Where("session_id = ? AND user_id = ?", session.ID, ownerID).
			Count(&memberCount).Error; err != nil {
			return err
		}
		if memberCount == 0 && session.OwnerUserID != ownerID {
			return ErrNotParticipant
		}

		name := strings.TrimSpace(params.Name)
		if name == "" {
			name = session.Name
		}
		isPrivate := true
		if params.IsPrivate != nil {
			isPrivate = *params.IsPrivate
		}

		// Re-save path: the live session carries a back-reference to the
		// snapshot it was loaded from.
		if session.SavedSessionID != nil {
			err := tx.First(&saved, "id = ? AND owner_user_id = ?", *session.SavedSessionID, ownerID).Error
			switch {
			case err == nil:
				saved.Name = name
				saved.Language = session.Language
				saved.Code = session.Code
				if params.Tags != nil {
					saved.Tags = datatypes.JSONSlice[string](params.Tags)
				}
				if params.IsPrivate != nil {
					saved.IsPrivate = isPrivate
				}
				return tx.Save(&saved).Error
			case errors.Is(err, gorm.ErrRecordNotFound):
				// Snapshot belongs to someone else or was deleted; fall
				// through to a fresh save.
			default:
				return err
			}
		}

		var existing int64
		if err := tx.Model(&models.SavedSession{}).
			Where("owner_user_id = ? AND origin_session_key = ?", ownerID, sessionKey).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadySaved
		}

		var total int64
		if err := tx.Model(&models.SavedSession{}).
			Where("owner_user_id = ?", ownerID).
			Count(&total).Error; err != nil {
			return err
		}
		if total >= int64(s.quota) {
			return &CapacityError{Resource: "saved_sessions", Current: int(total), Limit: s.quota}
		}

		saved = models.SavedSession{
			OwnerUserID:      ownerID,
			Name:             name,
			Language:         session.Language,
			Code:             session.Code,
			Tags:             datatypes.JSONSlice[string](params.Tags),
			IsPrivate:        isPrivate,
			OriginSessionKey: &sessionKey,
		}
		return tx.Create(&saved).Error
	})
	if err != nil {
		return nil, err
	}

	return &saved, nil
}

// List returns the caller's snapshots, newest first.
func (s *SavedSessionService) List(ctx context.Context, ownerID string) ([]models.SavedSession, error) {
	if s == nil {
		return nil, errors.New("saved session service: service not initialised")
	}
	ctx = ensureContext(ctx)

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, errors.New("saved session service: owner id is required")
	}

	var sessions []models.SavedSession
	if err := s.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// Get fetches a snapshot. Private snapshots are only visible to their owner.
func (s *SavedSessionService) Get(ctx context.Context, id, callerID string) (*models.SavedSession, error) {
	if s == nil {
		return nil, errors.New("saved session service: service not initialised")
	}
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrSavedSessionNotFound
	}

	var saved models.SavedSession
	if err := s.db.WithContext(ctx).First(&saved, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSavedSessionNotFound
		}
		return nil, err
	}

	if saved.IsPrivate && saved.OwnerUserID != strings.TrimSpace(callerID) {
		return nil, ErrSavedSessionAccessDenied
	}
	return &saved, nil
}

// Update applies owner-only edits to a snapshot.
func (s *SavedSessionService) Update(ctx context.Context, id, callerID string, input UpdateSavedSessionInput) (*models.SavedSession, error) {
	if s == nil {
		return nil, errors.New("saved session service: service not initialised")
	}
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	callerID = strings.TrimSpace(callerID)

	var saved models.SavedSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&saved, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSavedSessionNotFound
			}
			return err
		}
		if saved.OwnerUserID != callerID {
			return ErrSavedSessionAccessDenied
		}

		if input.Name != nil {
			if name := strings.TrimSpace(*input.Name); name != "" {
				saved.Name = name
			}
		}
		if input.Code != nil {
			saved.Code = *input.Code
		}
		if input.Language != nil {
			if lang := strings.ToLower(strings.TrimSpace(*input.Language)); lang != "" {
				saved.Language = lang
			}
		}
		if input.Tags != nil {
			saved.Tags = datatypes.JSONSlice[string](input.Tags)
		}
		if input.IsPrivate != nil {
			saved.IsPrivate = *input.IsPrivate
		}

		return tx.Save(&saved).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// Delete removes a snapshot. Owner only.
func (s *SavedSessionService) Delete(ctx context.Context, id, callerID string) error {
	if s == nil {
		return errors.New("saved session service: service not initialised")
	}
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	callerID = strings.TrimSpace(callerID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var saved models.SavedSession
		if err := tx.First(&saved, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSavedSessionNotFound
			}
			return err
		}
		if saved.OwnerUserID != callerID {
			return ErrSavedSessionAccessDenied
		}
		return tx.Delete(&saved).Error
	})
}

// LoadAsLive opens a fresh live session seeded from the snapshot. The new
// session carries a back-reference so a later save updates the snapshot
// instead of duplicating it. The caller's owned-session quota applies.
func (s *SavedSessionService) LoadAsLive(ctx context.Context, id, callerID string, isPublic bool) (*models.CollabSession, error) {
	if s == nil {
		return nil, errors.New("saved session service: service not initialised")
	}
	ctx = ensureContext(ctx)

	saved, err := s.Get(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	var caller models.User
	ownerName := ""
	if err := s.db.WithContext(ctx).First(&caller, "id = ?", strings.TrimSpace(callerID)).Error; err == nil {
		ownerName = caller.Name
	}

	savedID := saved.ID
	return s.collab.CreateSession(ctx, CreateSessionParams{
		OwnerID:        callerID,
		OwnerName:      ownerName,
		Name:           saved.Name,
		Language:       saved.Language,
		Code:           saved.Code,
		IsPublic:       isPublic,
		SavedSessionID: &savedID,
	})
}
