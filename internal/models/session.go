package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Session status values. The legacy "inactive" status survives on old rows and is
// normalised at the read boundary; new code only writes active/scheduled_for_deletion.
const (
	SessionStatusActive               = "active"
	SessionStatusInactive             = "inactive"
	SessionStatusScheduledForDeletion = "scheduled_for_deletion"
)

// Participant permission levels.
const (
	PermissionRead  = "read"
	PermissionWrite = "write"
)

// Participant-count bounds for a single session.
const (
	MinSessionUsers     = 2
	MaxSessionUsers     = 20
	DefaultSessionUsers = 5
)

// CollabSession is a live collaborative editing context with one shared text buffer.
// ActiveUsers is a cache derived from live participant rows; it is only rewritten by
// join/leave and the liveness sweep, never treated as an independent source of truth.
type CollabSession struct {
	BaseModel

	SessionKey   string                      `gorm:"type:varchar(32);uniqueIndex;not null" json:"session_key"`
	OwnerUserID  string                      `gorm:"not null;index" json:"owner_user_id"`
	Name         string                      `gorm:"type:varchar(120);not null" json:"name"`
	Language     string                      `gorm:"type:varchar(32);not null" json:"language"`
	Code         string                      `gorm:"type:text" json:"code"`
	IsPublic     bool                        `gorm:"not null;default:false;index" json:"is_public"`
	MaxUsers     int                         `gorm:"not null;default:5" json:"max_users"`
	Status       string                      `gorm:"type:varchar(32);not null;index" json:"status"`
	ActiveUsers  datatypes.JSONSlice[string] `gorm:"type:json" json:"active_users"`
	LastActivity time.Time                   `gorm:"not null;index" json:"last_activity"`
	ExpiresAt    *time.Time                  `gorm:"index" json:"expires_at,omitempty"`

	// SavedSessionID points at the persisted snapshot this session was loaded from,
	// so a re-save updates the original instead of duplicating it.
	SavedSessionID *string `gorm:"type:uuid;index" json:"saved_session_id,omitempty"`

	Settings SessionSettings `gorm:"embedded;embeddedPrefix:setting_" json:"settings"`

	Owner        *User                `gorm:"foreignKey:OwnerUserID" json:"owner,omitempty"`
	Participants []SessionParticipant `gorm:"foreignKey:SessionID" json:"participants,omitempty"`
	Messages     []SessionMessage     `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
	Operations   []SessionOperation   `gorm:"foreignKey:SessionID" json:"operations,omitempty"`
}

// SessionSettings enumerates the per-session feature toggles. Defaults: chat and
// execution enabled, auto-save disabled.
type SessionSettings struct {
	AutoSave         bool `gorm:"not null;default:false" json:"auto_save"`
	ChatEnabled      bool `gorm:"not null;default:true" json:"chat_enabled"`
	ExecutionEnabled bool `gorm:"not null;default:true" json:"execution_enabled"`
}

// Normalise applies the read-boundary defaults for legacy rows: absent status is
// derived from the cached live set, and capacity is clamped into the legal range.
func (s *CollabSession) Normalise() {
	s.Status = strings.ToLower(strings.TrimSpace(s.Status))
	if s.Status == "" {
		if len(s.ActiveUsers) > 0 {
			s.Status = SessionStatusActive
		} else {
			s.Status = SessionStatusInactive
		}
	}

	switch {
	case s.MaxUsers == 0:
		s.MaxUsers = DefaultSessionUsers
	case s.MaxUsers < MinSessionUsers:
		s.MaxUsers = MinSessionUsers
	case s.MaxUsers > MaxSessionUsers:
		s.MaxUsers = MaxSessionUsers
	}
}

// SessionParticipant stores per-user membership state for a session. Rows are
// created on first join, reactivated on rejoin, and only deleted when the owning
// session is torn down.
type SessionParticipant struct {
	SessionID  string     `gorm:"type:uuid;primaryKey" json:"session_id"`
	UserID     string     `gorm:"primaryKey" json:"user_id"`
	Name       string     `gorm:"type:varchar(120);not null" json:"name"`
	Permission string     `gorm:"type:varchar(10);not null" json:"permission"`
	JoinedAt   time.Time  `gorm:"not null" json:"joined_at"`
	LastActive time.Time  `gorm:"not null;index" json:"last_active"`
	LastSeen   *time.Time `gorm:"index" json:"last_seen,omitempty"`
	IsActive   bool       `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// EffectiveLastSeen returns the liveness clock, falling back to the coarser
// lastActive timestamp for legacy rows that predate heartbeat tracking.
func (p *SessionParticipant) EffectiveLastSeen() time.Time {
	if p.LastSeen != nil {
		return *p.LastSeen
	}
	return p.LastActive
}

// Operation kinds recorded in the session operation log.
const (
	OperationInsert  = "insert"
	OperationDelete  = "delete"
	OperationReplace = "replace"
)

// SessionOperation is an append-only diagnostic record of an edit. The
// authoritative text lives on the session row; this log is never replayed.
type SessionOperation struct {
	BaseModel

	SessionID string `gorm:"type:uuid;not null;index" json:"session_id"`
	UserID    string `gorm:"not null;index" json:"user_id"`
	Kind      string `gorm:"type:varchar(16);not null" json:"kind"`
	Position  int    `gorm:"not null;default:0" json:"position"`
	Content   string `gorm:"type:text" json:"content,omitempty"`
	Length    int    `gorm:"not null;default:0" json:"length"`

	Session *CollabSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
}

// SessionMessage captures chat entries exchanged during a session.
type SessionMessage struct {
	BaseModel

	SessionID string `gorm:"type:uuid;not null;index" json:"session_id"`
	UserID    string `gorm:"not null;index" json:"user_id"`
	UserName  string `gorm:"type:varchar(120)" json:"user_name"`
	Content   string `gorm:"type:text;not null" json:"content"`

	Session *CollabSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
}
