package models

import "time"

// User mirrors an identity-provider account. The primary key is the stable
// opaque subject supplied by the identity provider, not a locally generated id.
type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name  string `gorm:"type:varchar(120);not null" json:"name"`
	Email string `gorm:"type:varchar(255);index" json:"email,omitempty"`

	// Pro plan state managed by the billing webhook.
	IsPro                  bool       `gorm:"not null;default:false;index" json:"is_pro"`
	ProSince               *time.Time `json:"pro_since,omitempty"`
	LemonSqueezyCustomerID *string    `gorm:"type:varchar(64);index" json:"-"`
	LemonSqueezyOrderID    *string    `gorm:"type:varchar(64)" json:"-"`
}
