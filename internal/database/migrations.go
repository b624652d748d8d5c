package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/codecraft-dev/codecraft/internal/models"
)

// AutoMigrate applies the schema for all persistent models. Ordering matters:
// referenced tables must exist before the tables that point at them.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	return db.AutoMigrate(
		&models.User{},
		&models.SavedSession{},
		&models.CollabSession{},
		&models.SessionParticipant{},
		&models.SessionOperation{},
		&models.SessionMessage{},
		&models.SessionFolder{},
		&models.SessionFile{},
		&models.Snippet{},
		&models.SnippetComment{},
		&models.SnippetStar{},
		&models.CodeExecution{},
		&models.WebhookEvent{},
	)
}
