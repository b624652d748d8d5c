package models

// CodeExecution records one sandbox run for a user's execution history.
type CodeExecution struct {
	BaseModel

	UserID   string `gorm:"not null;index" json:"user_id"`
	Language string `gorm:"type:varchar(32);not null" json:"language"`
	Code     string `gorm:"type:text;not null" json:"code"`
	Output   string `gorm:"type:text" json:"output,omitempty"`
	Error    string `gorm:"type:text" json:"error,omitempty"`
	ExitCode int    `gorm:"not null;default:0" json:"exit_code"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
