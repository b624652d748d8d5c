package models

// SessionFolder is a directory node in a session's virtual filesystem.
type SessionFolder struct {
	BaseModel

	SessionID string  `gorm:"type:uuid;not null;index" json:"session_id"`
	ParentID  *string `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Name      string  `gorm:"type:varchar(255);not null" json:"name"`

	Session *CollabSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
	Parent  *SessionFolder `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
}

// SessionFile is a file node in a session's virtual filesystem. Content is held
// inline; these are editor buffers, not blobs.
type SessionFile struct {
	BaseModel

	SessionID string  `gorm:"type:uuid;not null;index" json:"session_id"`
	FolderID  *string `gorm:"type:uuid;index" json:"folder_id,omitempty"`
	Name      string  `gorm:"type:varchar(255);not null" json:"name"`
	Language  string  `gorm:"type:varchar(32)" json:"language,omitempty"`
	Content   string  `gorm:"type:text" json:"content"`

	Session *CollabSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
	Folder  *SessionFolder `gorm:"foreignKey:FolderID" json:"folder,omitempty"`
}
