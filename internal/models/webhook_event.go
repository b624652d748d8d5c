package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent stores processed billing events for idempotent webhook handling.
type WebhookEvent struct {
	BaseModel

	EventID     string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"event_id"`
	EventName   string         `gorm:"type:varchar(64);not null;index" json:"event_name"`
	Payload     datatypes.JSON `gorm:"type:json" json:"payload,omitempty"`
	ProcessedAt time.Time      `gorm:"not null" json:"processed_at"`
}
