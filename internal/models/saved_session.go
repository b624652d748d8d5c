package models

import "gorm.io/datatypes"

// SavedSession is a user-owned permanent snapshot of a live session.
type SavedSession struct {
	BaseModel

	OwnerUserID string                      `gorm:"not null;index" json:"owner_user_id"`
	Name        string                      `gorm:"type:varchar(120);not null" json:"name"`
	Language    string                      `gorm:"type:varchar(32);not null" json:"language"`
	Code        string                      `gorm:"type:text" json:"code"`
	Tags        datatypes.JSONSlice[string] `gorm:"type:json" json:"tags,omitempty"`
	IsPrivate   bool                        `gorm:"not null;default:true" json:"is_private"`

	// OriginSessionKey records the live session this snapshot was saved from and
	// backs duplicate-save detection.
	OriginSessionKey *string `gorm:"type:varchar(32);index" json:"origin_session_key,omitempty"`

	Owner *User `gorm:"foreignKey:OwnerUserID" json:"owner,omitempty"`
}
