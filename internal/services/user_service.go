package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codecraft-dev/codecraft/internal/models"
)

var (
	// ErrUserNotFound indicates no account exists for the supplied id.
	ErrUserNotFound = errors.New("user service: user not found")
)

// UserService mirrors identity-provider accounts into the local users table.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs the user service.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// Sync upserts the account row from verified token claims. Called on every
// authenticated request path that needs the profile, so it must stay cheap.
func (s *UserService) Sync(ctx context.Context, id, name, email string) (*models.User, error) {
	if s == nil {
		return nil, errors.New("user service: service not initialised")
	}
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("user service: user id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Anonymous"
	}

	user := models.User{
		ID:    id,
		Name:  name,
		Email: strings.TrimSpace(email),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":  user.Name,
			"email": user.Email,
		}),
	}).Create(&user).Error; err != nil {
		return nil, err
	}

	// Re-read so billing fields survive the upsert round trip.
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Get fetches an account by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if s == nil {
		return nil, errors.New("user service: service not initialised")
	}
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
