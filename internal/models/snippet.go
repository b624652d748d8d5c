package models

import "time"

// Snippet is a publicly shared piece of code published from the editor.
type Snippet struct {
	BaseModel

	UserID   string `gorm:"not null;index" json:"user_id"`
	UserName string `gorm:"type:varchar(120);not null" json:"user_name"`
	Title    string `gorm:"type:varchar(160);not null" json:"title"`
	Language string `gorm:"type:varchar(32);not null;index" json:"language"`
	Code     string `gorm:"type:text;not null" json:"code"`

	Comments []SnippetComment `gorm:"foreignKey:SnippetID" json:"comments,omitempty"`
}

// SnippetComment is a discussion entry attached to a shared snippet.
type SnippetComment struct {
	BaseModel

	SnippetID string `gorm:"type:uuid;not null;index" json:"snippet_id"`
	UserID    string `gorm:"not null;index" json:"user_id"`
	UserName  string `gorm:"type:varchar(120)" json:"user_name"`
	Content   string `gorm:"type:text;not null" json:"content"`

	Snippet *Snippet `gorm:"foreignKey:SnippetID" json:"snippet,omitempty"`
}

// SnippetStar marks a user's star on a snippet; the pair is unique.
type SnippetStar struct {
	SnippetID string    `gorm:"type:uuid;primaryKey" json:"snippet_id"`
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
