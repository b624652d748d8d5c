package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codecraft-dev/codecraft/internal/models"
	"github.com/codecraft-dev/codecraft/pkg/logger"
	"github.com/codecraft-dev/codecraft/pkg/metrics"
	"github.com/codecraft-dev/codecraft/pkg/sessionkey"
)

const (
	// ExpiryDelay is the grace period between a session being scheduled for
	// deletion and becoming eligible for the purge sweep. Any join or heartbeat
	// inside the window cancels the schedule.
	ExpiryDelay = time.Hour

	// DefaultOwnedSessionQuota caps how many live sessions a single user may own.
	DefaultOwnedSessionQuota = 2
)

var (
	// ErrSessionNotFound indicates no session exists for the supplied key.
	ErrSessionNotFound = errors.New("collab service: session not found")
	// ErrNotSessionOwner indicates a mutation reserved for the owner.
	ErrNotSessionOwner = errors.New("collab service: caller is not the session owner")
	// ErrNotParticipant indicates the caller never joined the session.
	ErrNotParticipant = errors.New("collab service: caller is not a session participant")
	// ErrSessionPrivate indicates a non-participant tried to read a private session.
	ErrSessionPrivate = errors.New("collab service: session is private")
)

// CreateSessionParams carries the attributes for opening a new live session.
type CreateSessionParams struct {
	OwnerID   string
	OwnerName string
	Name      string
	Language  string
	Code      string
	IsPublic  bool
	MaxUsers  int
	Settings  *models.SessionSettings

	// SavedSessionID back-references the snapshot this session was loaded from.
	SavedSessionID *string
}

// UpdateSessionInput lists the owner-mutable session fields. Nil members are
// left untouched.
type UpdateSessionInput struct {
	Name     *string
	Language *string
	IsPublic *bool
	MaxUsers *int
	Settings *models.SessionSettings
}

// SweepStats summarises one liveness sweep pass.
type SweepStats struct {
	Scanned   int
	Scheduled int
	Healed    int
}

// CollabService owns the session lifecycle: creation, membership, state
// transitions and garbage collection. The session row is the single source of
// truth; the activeUsers cache on it is rebuilt from participant liveness on
// every membership change and sweep.
type CollabService struct {
	db          *gorm.DB
	presence    *PresenceService
	broadcaster SessionBroadcaster
	ownedQuota  int
	timeNow     func() time.Time
}

// CollabOption customises service dependencies.
type CollabOption func(*CollabService)

// WithCollabBroadcaster wires the realtime hub for lifecycle events.
func WithCollabBroadcaster(b SessionBroadcaster) CollabOption {
	return func(s *CollabService) {
		s.broadcaster = b
	}
}

// WithOwnedSessionQuota overrides the per-user live session cap.
func WithOwnedSessionQuota(quota int) CollabOption {
	return func(s *CollabService) {
		if quota > 0 {
			s.ownedQuota = quota
		}
	}
}

// WithCollabClock overrides the clock used for timestamps (test helper).
func WithCollabClock(clock func() time.Time) CollabOption {
	return func(s *CollabService) {
		if clock != nil {
			s.timeNow = clock
		}
	}
}

// NewCollabService constructs the session lifecycle service.
func NewCollabService(db *gorm.DB, presence *PresenceService, opts ...CollabOption) (*CollabService, error) {
	if db == nil {
		return nil, errors.New("collab service: db is required")
	}
	if presence == nil {
		return nil, errors.New("collab service: presence service is required")
	}

	svc := &CollabService{
		db:         db,
		presence:   presence,
		ownedQuota: DefaultOwnedSessionQuota,
		timeNow:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// CreateSession opens a live session owned by the caller. The owner joins
// immediately with write permission and counts towards the participant cap.
func (s *CollabService) CreateSession(ctx context.Context, params CreateSessionParams) (*models.CollabSession, error) {
	if s == nil {
		return nil, errors.New("collab service: service not initialised")
	}
	ctx = ensureContext(ctx)

	ownerID := strings.TrimSpace(params.OwnerID)
	if ownerID == "" {
		return nil, errors.New("collab service: owner id is required")
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		name = "Untitled Session"
	}
	language := strings.ToLower(strings.TrimSpace(params.Language))
	if language == "" {
		language = "javascript"
	}

	maxUsers := params.MaxUsers
	switch {
	case maxUsers == 0:
		maxUsers = models.DefaultSessionUsers
	case maxUsers < models.MinSessionUsers:
		maxUsers = models.MinSessionUsers
	case maxUsers > models.MaxSessionUsers:
		maxUsers = models.MaxSessionUsers
	}

	settings := models.SessionSettings{ChatEnabled: true, ExecutionEnabled: true}
	if params.Settings != nil {
		settings = *params.Settings
	}

	key, err := sessionkey.New()
	if err != nil {
		return nil, err
	}

	now := s.timeNow()
	session := models.CollabSession{
		SessionKey:     key,
		OwnerUserID:    ownerID,
		Name:           name,
		Language:       language,
		Code:           params.Code,
		IsPublic:       params.IsPublic,
		MaxUsers:       maxUsers,
		Status:         models.SessionStatusActive,
		ActiveUsers:    datatypes.JSONSlice[string]{ownerID},
		LastActivity:   now,
		SavedSessionID: params.SavedSessionID,
		Settings:       settings,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&models.CollabSession{}).
			Where("owner_user_id = ?", ownerID).
			Count(&owned).Error; err != nil {
			return err
		}
		if owned >= int64(s.ownedQuota) {
			return &CapacityError{Resource: "sessions", Current: int(owned), Limit: s.ownedQuota}
		}

		if err := tx.Create(&session).Error; err != nil {
			return err
		}

		participant := models.SessionParticipant{
			SessionID:  session.ID,
			UserID:     ownerID,
			Name:       strings.TrimSpace(params.OwnerName),
			Permission: models.PermissionWrite,
			JoinedAt:   now,
			LastActive: now,
			LastSeen:   &now,
			IsActive:   true,
		}
		return tx.Create(&participant).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.ActiveSessions.Inc()
	metrics.SessionTransitions.WithLabelValues("created").Inc()

	return &session, nil
}

// JoinSession adds (or reactivates) the user as a participant. Joining a
// session that was scheduled for deletion revives it. The participant cap is
// enforced against the live set, so seats vacated by stale participants are
// reusable without waiting for a sweep.
func (s *CollabService) JoinSession(ctx context.Context, sessionKey, userID, userName string) (*models.CollabSession, error) {
	if s == nil {
		return nil, errors.New("collab service: service not initialised")
	}
	ctx = ensureContext(ctx)

	sessionKey = strings.TrimSpace(sessionKey)
	userID = strings.TrimSpace(userID)
	if sessionKey == "" {
		return nil, ErrSessionNotFound
	}
	if userID == "" {
		return nil, errors.New("collab service: user id is required")
	}

	now := s.timeNow()
	var session models.CollabSession
	var revived bool

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

		live, err := s.presence.computeLiveness(tx, session.ID, now)
		if err != nil {
			return err
		}

		if !containsUser(live, userID) && len(live) >= session.MaxUsers {
			return &CapacityError{Resource: "participants", Current: len(live), Limit: session.MaxUsers}
		}

		permission := models.PermissionWrite
		var existing models.SessionParticipant
		err = tx.First(&existing, "session_id = ? AND user_id = ?", session.ID, userID).Error
		switch {
		case err == nil:
			permission = existing.Permission
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		participant := models.SessionParticipant{
			SessionID:  session.ID,
			UserID:     userID,
			Name:       strings.TrimSpace(userName),
			Permission: permission,
			JoinedAt:   now,
			LastActive: now,
			LastSeen:   &now,
			IsActive:   true,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"name":        participant.Name,
				"is_active":   true,
				"last_active": now,
				"last_seen":   now,
			}),
		}).Create(&participant).Error; err != nil {
			return err
		}

		if !containsUser(live, userID) {
			live = append(live, userID)
			sort.Strings(live)
		}

		if session.Status == models.SessionStatusScheduledForDeletion {
			revived = true
		}
		session.Status = models.SessionStatusActive
		session.ExpiresAt = nil
		session.ActiveUsers = datatypes.JSONSlice[string](live)
		session.LastActivity = now

		return tx.Save(&session).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionTransitions.WithLabelValues("joined").Inc()
	if revived {
		metrics.ActiveSessions.Inc()
		metrics.SessionTransitions.WithLabelValues("reactivated").Inc()
	}

	broadcast(s.broadcaster, sessionKey, EventPresenceChanged, map[string]any{
		"active_users": []string(session.ActiveUsers),
		"joined":       userID,
	})

	return &session, nil
}

// LeaveSession marks the participant inactive and recomputes the live set for
// everyone, not just the departing user. When the session empties it is
// scheduled for deletion one expiry delay in the future rather than removed.
func (s *CollabService) LeaveSession(ctx context.Context, sessionKey, userID string) error {
	if s == nil {
		return errors.New("collab service: service not initialised")
	}
	ctx = ensureContext(ctx)

	sessionKey = strings.TrimSpace(sessionKey)
	userID = strings.TrimSpace(userID)
	if sessionKey == "" {
		return ErrSessionNotFound
	}
	if userID == "" {
		return errors.New("collab service: user id is required")
	}

	now := s.timeNow()
	var session models.CollabSession
	var scheduled bool

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

		res := tx.Model(&models.SessionParticipant{}).
			Where("session_id = ? AND user_id = ?", session.ID, userID).
			Updates(map[string]any{
				"is_active":   false,
				"last_active": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotParticipant
		}

		live, err := s.presence.computeLiveness(tx, session.ID, now)
		if err != nil {
			return err
		}

		session.ActiveUsers = datatypes.JSONSlice[string](live)
		session.LastActivity = now
		if len(live) == 0 && session.Status != models.SessionStatusScheduledForDeletion {
			expiresAt := now.Add(ExpiryDelay)
			session.Status = models.SessionStatusScheduledForDeletion
			session.ExpiresAt = &expiresAt
			scheduled = true
		}

		return tx.Save(&session).Error
	})
	if err != nil {
		return err
	}

	metrics.SessionTransitions.WithLabelValues("left").Inc()
	if scheduled {
		metrics.ActiveSessions.Dec()
		metrics.SessionTransitions.WithLabelValues("scheduled").Inc()
	}

	broadcast(s.broadcaster, sessionKey, EventPresenceChanged, map[string]any{
		"active_users": []string(session.ActiveUsers),
		"left":         userID,
	})

	return nil
}

// GetSession fetches a session by key. Private sessions are only visible to
// their owner and participants; pass an empty callerID for unauthenticated
// public reads.
func (s *CollabService) GetSession(ctx context.Context, sessionKey, callerID string) (*models.CollabSession, error) {
	if s == nil {
		return nil, errors.New("collab service: service not initialised")
	}
	ctx = ensureContext(ctx)

	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return nil, ErrSessionNotFound
	}

	var session models.CollabSession
	if err := s.db.WithContext(ctx).
		Preload("Participants").
		First(&session, "session_key = ?", sessionKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	session.Normalise()

	if !session.IsPublic {
		callerID = strings.TrimSpace(callerID)
		if callerID == "" {
			return nil, ErrSessionPrivate
		}
		if session.OwnerUserID != callerID && !isParticipant(session.Participants, callerID) {
			return nil, ErrSessionPrivate
		}
	}

	return &session, nil
}

// ListPublicSessions returns joinable public sessions, most recently active first.
func (s *CollabService) ListPublicSessions(ctx context.Context, limit int) ([]models.CollabSession, error) {
	if s == nil {
		return nil, errors.New("collab service: service not initialised")
	}
	ctx = ensureContext(ctx)

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var sessions []models.CollabSession
	if err := s.db.WithContext(ctx).
		Where("is_public = ? AND status = ?", true, models.SessionStatusActive).
		Order("last_activity DESC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, err
	}

	for i := range sessions {
		sessions[i].Normalise()
	}
	return sessions, nil
}

// ListOwnedSessions returns every live session the user owns.
func (s *CollabService) ListOwnedSessions(ctx context.Context, ownerID string) ([]models.CollabSession, error) {
	if s == nil {
		return nil, errors.New("collab service: service not initialised")
	}
	ctx = ensureContext(ctx)

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, errors.New("collab service: owner id is required")
	}

	var sessions []models.CollabSession
	if err := s.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerID).
		Order("last_activity DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}

	for i := range sessions {
		sessions[i].Normalise()
	}
	return sessions, nil
}

// UpdateSession applies owner-only edits to session metadata and settings.
// Capacity changes are clamped, never rejected, and shrinking below the current
// live count only prevents new joins.
func (s *CollabService) UpdateSession(ctx context.Context, sessionKey, callerID string, input UpdateSessionInput) (*models.CollabSession, error) {
	if s == nil {
		return nil, errors.New("collab service: service not initialised")
	}
	ctx = ensureContext(ctx)

	sessionKey = strings.TrimSpace(sessionKey)
	callerID = strings.TrimSpace(callerID)
	if sessionKey == "" {
		return nil, ErrSessionNotFound
	}
	if callerID == "" {
		return nil, ErrNotSessionOwner
	}

	now := s.timeNow()
	var session models.CollabSession

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

		if session.OwnerUserID != callerID {
			return ErrNotSessionOwner
		}

		if input.Name != nil {
			if name := strings.TrimSpace(*input.Name); name != "" {
				session.Name = name
			}
		}
		if input.Language != nil {
			if lang := strings.ToLower(strings.TrimSpace(*input.Language)); lang != "" {
				session.Language = lang
			}
		}
		if input.IsPublic != nil {
			session.IsPublic = *input.IsPublic
		}
		if input.MaxUsers != nil {
			maxUsers := *input.MaxUsers
			switch {
			case maxUsers < models.MinSessionUsers:
				maxUsers = models.MinSessionUsers
			case maxUsers > models.MaxSessionUsers:
				maxUsers = models.MaxSessionUsers
			}
			session.MaxUsers = maxUsers
		}
		if input.Settings != nil {
			session.Settings = *input.Settings
		}

		session.LastActivity = now
		return tx.Save(&session).Error
	})
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// SetPermission changes a participant's permission level. Owner only; the
// owner's own write permission cannot be revoked.
func (s *CollabService) SetPermission(ctx context.Context, sessionKey, callerID, targetUserID, permission string) error {
	if s == nil {
		return errors.New("collab service: service not initialised")
	}
	ctx = ensureContext(ctx)

	sessionKey = strings.TrimSpace(sessionKey)
	callerID = strings.TrimSpace(callerID)
	targetUserID = strings.TrimSpace(targetUserID)
	permission = strings.ToLower(strings.TrimSpace(permission))

	if permission != models.PermissionRead && permission != models.PermissionWrite {
		return errors.New("collab service: permission must be read or write")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.CollabSession
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&session, "session_key = ?", sessionKey).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}

		if session.OwnerUserID != callerID {
			return ErrNotSessionOwner
		}
		if targetUserID == session.OwnerUserID {
			return errors.New("collab service: owner permission is fixed")
		}

		res := tx.Model(&models.SessionParticipant{}).
			Where("session_id = ? AND user_id = ?", session.ID, targetUserID).
			Update("permission", permission)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotParticipant
		}
		return nil
	})
}

// DeleteSession removes the session and all dependent rows immediately. Owner only.
func (s *CollabService) DeleteSession(ctx context.Context, sessionKey, callerID string) error {
	if s == nil {
		return errors.New("collab service: service not initialised")
	}
	ctx = ensureContext(ctx)

	sessionKey = strings.TrimSpace(sessionKey)
	callerID = strings.TrimSpace(callerID)
	if sessionKey == "" {
		return ErrSessionNotFound
	}

	var wasActive bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.CollabSession
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&session, "session_key = ?", sessionKey).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		session.Normalise()

		if session.OwnerUserID != callerID {
			return ErrNotSessionOwner
		}

		wasActive = session.Status == models.SessionStatusActive
		return deleteSessionCascade(tx, &session)
	})
	if err != nil {
		return err
	}

	if wasActive {
		metrics.ActiveSessions.Dec()
	}
	metrics.SessionTransitions.WithLabelValues("deleted").Inc()

	broadcast(s.broadcaster, sessionKey, EventSessionEnded, map[string]any{
		"reason": "deleted",
	})

	return nil
}

// SweepInactive walks active sessions, drops participants that went silent and
// schedules emptied sessions for deletion. It also heals drifted activeUsers
// caches and clears stale expiry stamps on sessions that are demonstrably live.
// Per-session failures are logged and skipped so one bad row cannot stall the
// sweep.
func (s *CollabService) SweepInactive(ctx context.Context) (SweepStats, error) {
	stats := SweepStats{}
	if s == nil {
		return stats, errors.New("collab service: service not initialised")
	}
	ctx = ensureContext(ctx)

	now := s.timeNow()
	metrics.SweepRuns.WithLabelValues("liveness").Inc()

	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&models.CollabSession{}).
		Where("status NOT IN ?", []string{models.SessionStatusScheduledForDeletion}).
		Pluck("id", &ids).Error; err != nil {
		return stats, err
	}

	var firstErr error
	for _, id := range ids {
		stats.Scanned++
		outcome, err := s.sweepSession(ctx, id, now)
		if err != nil {
			logger.Warn("liveness sweep failed for session",
				zap.String("session_id", id),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		switch outcome {
		case sweepScheduled:
			stats.Scheduled++
			metrics.ActiveSessions.Dec()
			metrics.SessionTransitions.WithLabelValues("scheduled").Inc()
			metrics.SweptSessions.WithLabelValues("scheduled").Inc()
		case sweepHealed:
			stats.Healed++
			metrics.SweptSessions.WithLabelValues("healed").Inc()
		}
	}

	return stats, firstErr
}

type sweepOutcome int

const (
	sweepUnchanged sweepOutcome = iota
	sweepScheduled
	sweepHealed
)

func (s *CollabService) sweepSession(ctx context.Context, sessionID string, now time.Time) (sweepOutcome, error) {
	outcome := sweepUnchanged

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.CollabSession
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&session, "id = ?", sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Deleted between listing and locking.
				return nil
			}
			return err
		}
		session.Normalise()

		if session.Status == models.SessionStatusScheduledForDeletion {
			return nil
		}

		live, err := s.presence.computeLiveness(tx, session.ID, now)
		if err != nil {
			return err
		}

		if len(live) == 0 {
			expiresAt := now.Add(ExpiryDelay)
			session.Status = models.SessionStatusScheduledForDeletion
			session.ExpiresAt = &expiresAt
			session.ActiveUsers = datatypes.JSONSlice[string]{}
			outcome = sweepScheduled
			return tx.Save(&session).Error
		}

		healed := false
		if !equalUserSets(session.ActiveUsers, live) {
			session.ActiveUsers = datatypes.JSONSlice[string](live)
			healed = true
		}
		if session.Status != models.SessionStatusActive {
			session.Status = models.SessionStatusActive
			healed = true
		}
		if session.ExpiresAt != nil {
			session.ExpiresAt = nil
			healed = true
		}

		if !healed {
			return nil
		}
		outcome = sweepHealed
		return tx.Save(&session).Error
	})
	if err != nil {
		return sweepUnchanged, err
	}

	if outcome == sweepScheduled {
		var key string
		if err := s.db.WithContext(ctx).
			Model(&models.CollabSession{}).
			Where("id = ?", sessionID).
			Pluck("session_key", &key).Error; err == nil && key != "" {
			broadcast(s.broadcaster, key, EventPresenceChanged, map[string]any{
				"active_users": []string{},
			})
		}
	}

	return outcome, nil
}

// PurgeExpired hard-deletes sessions whose expiry stamp has passed, cascading
// through participants, operations, messages, files and folders. Returns the
// number of sessions removed.
func (s *CollabService) PurgeExpired(ctx context.Context) (int, error) {
	if s == nil {
		return 0, errors.New("collab service: service not initialised")
	}
	ctx = ensureContext(ctx)

	now := s.timeNow()
	metrics.SweepRuns.WithLabelValues("expiry").Inc()

	var candidates []models.CollabSession
	if err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?",
			models.SessionStatusScheduledForDeletion, now).
		Find(&candidates).Error; err != nil {
		return 0, err
	}

	purged := 0
	var firstErr error
	for i := range candidates {
		candidate := candidates[i]
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var session models.CollabSession
			if err := tx.
				Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&session, "id = ?", candidate.ID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil
				}
				return err
			}

			// A heartbeat may have revived the session after listing.
			if session.Status != models.SessionStatusScheduledForDeletion ||
				session.ExpiresAt == nil || session.ExpiresAt.After(now) {
				return nil
			}

			return deleteSessionCascade(tx, &session)
		})
		if err != nil {
			logger.Warn("expiry sweep failed for session",
				zap.String("session_id", candidate.ID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		purged++
		metrics.SweptSessions.WithLabelValues("purged").Inc()
		broadcast(s.broadcaster, candidate.SessionKey, EventSessionEnded, map[string]any{
			"reason": "expired",
		})
	}

	return purged, firstErr
}

func deleteSessionCascade(tx *gorm.DB, session *models.CollabSession) error {
	for _, model := range []any{
		&models.SessionParticipant{},
		&models.SessionOperation{},
		&models.SessionMessage{},
		&models.SessionFile{},
		&models.SessionFolder{},
	} {
		if err := tx.Where("session_id = ?", session.ID).Delete(model).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&models.CollabSession{}, "id = ?", session.ID).Error
}

func isParticipant(participants []models.SessionParticipant, userID string) bool {
	for i := range participants {
		if participants[i].UserID == userID {
			return true
		}
	}
	return false
}

func equalUserSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA := append([]string(nil), a...)
	sortedB := append([]string(nil), b...)
	sort.Strings(sortedA)
	sort.Strings(sortedB)
	for i := range sortedA {
		if sortedA[i] != sortedB[i] {
			return false
		}
	}
	return true
}
