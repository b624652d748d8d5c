package services

import (
	"context"
	"errors"
	"html"
	"strings"

	"gorm.io/gorm"

	"github.com/codecraft-dev/codecraft/internal/models"
)

var (
	// ErrSnippetNotFound indicates no snippet exists for the supplied id.
	ErrSnippetNotFound = errors.New("snippet service: snippet not found")
	// ErrNotSnippetOwner indicates a mutation reserved for the snippet author.
	ErrNotSnippetOwner = errors.New("snippet service: caller is not the snippet owner")
)

// ShareSnippetParams describes a snippet publication request.
type ShareSnippetParams struct {
	UserID   string
	UserName string
	Title    string
	Language string
	Code     string
}

// SnippetListFilter narrows snippet listings.
type SnippetListFilter struct {
	Language string
	UserID   string
	Limit    int
}

// SnippetService manages the public snippet gallery: publishing, browsing,
// comments and stars.
type SnippetService struct {
	db *gorm.DB
}

// NewSnippetService constructs the snippet service.
func NewSnippetService(db *gorm.DB) (*SnippetService, error) {
	if db == nil {
		return nil, errors.New("snippet service: db is required")
	}
	return &SnippetService{db: db}, nil
}

// Share publishes a snippet to the gallery.
func (s *SnippetService) Share(ctx context.Context, params ShareSnippetParams) (*models.Snippet, error) {
	if s == nil {
		return nil, errors.New("snippet service: service not initialised")
	}
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(params.UserID)
	if userID == "" {
		return nil, errors.New("snippet service: user id is required")
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, errors.New("snippet service: title is required")
	}
	code := params.Code
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("snippet service: code is required")
	}
	language := strings.ToLower(strings.TrimSpace(params.Language))
	if language == "" {
		language = "plaintext"
	}

	snippet := models.Snippet{
		UserID:   userID,
		UserName: strings.TrimSpace(params.UserName),
		Title:    title,
		Language: language,
		Code:     code,
	}
	if err := s.db.WithContext(ctx).Create(&snippet).Error; err != nil {
		return nil, err
	}
	return &snippet, nil
}

// List returns gallery snippets, newest first, optionally filtered by
// language or author.
func (s *SnippetService) List(ctx context.Context, filter SnippetListFilter) ([]models.Snippet, error) {
	if s == nil {
		return nil, errors.New("snippet service: service not initialised")
	}
	ctx = ensureContext(ctx)

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Model(&models.Snippet{})
	if lang := strings.ToLower(strings.TrimSpace(filter.Language)); lang != "" {
		query = query.Where("language = ?", lang)
	}
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var snippets []models.Snippet
	if err := query.Order("created_at DESC").Limit(limit).Find(&snippets).Error; err != nil {
		return nil, err
	}
	return snippets, nil
}

// Get fetches a snippet with its comments.
func (s *SnippetService) Get(ctx context.Context, id string) (*models.Snippet, error) {
	if s == nil {
		return nil, errors.New("snippet service: service not initialised")
	}
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrSnippetNotFound
	}

	var snippet models.Snippet
	if err := s.db.WithContext(ctx).
		Preload("Comments").
		First(&snippet, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnippetNotFound
		}
		return nil, err
	}
	return &snippet, nil
}

// Delete removes a snippet and its comments and stars. Author only.
func (s *SnippetService) Delete(ctx context.Context, id, callerID string) error {
	if s == nil {
		return errors.New("snippet service: service not initialised")
	}
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	callerID = strings.TrimSpace(callerID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var snippet models.Snippet
		if err := tx.First(&snippet, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSnippetNotFound
			}
			return err
		}
		if snippet.UserID != callerID {
			return ErrNotSnippetOwner
		}

		if err := tx.Where("snippet_id = ?", id).Delete(&models.SnippetComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("snippet_id = ?", id).Delete(&models.SnippetStar{}).Error; err != nil {
			return err
		}
		return tx.Delete(&snippet).Error
	})
}

// AddComment attaches a comment to a snippet. Content is HTML-escaped.
func (s *SnippetService) AddComment(ctx context.Context, snippetID, userID, userName, content string) (*models.SnippetComment, error) {
	if s == nil {
		return nil, errors.New("snippet service: service not initialised")
	}
	ctx = ensureContext(ctx)

	snippetID = strings.TrimSpace(snippetID)
	userID = strings.TrimSpace(userID)
	content = strings.TrimSpace(content)
	if userID == "" {
		return nil, errors.New("snippet service: user id is required")
	}
	if content == "" {
		return nil, errors.New("snippet service: comment content is required")
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Snippet{}).
		Where("id = ?", snippetID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrSnippetNotFound
	}

	comment := models.SnippetComment{
		SnippetID: snippetID,
		UserID:    userID,
		UserName:  strings.TrimSpace(userName),
		Content:   html.EscapeString(content),
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// Star records the caller's star. Starring twice is a no-op.
func (s *SnippetService) Star(ctx context.Context, snippetID, userID string) error {
	if s == nil {
		return errors.New("snippet service: service not initialised")
	}
	ctx = ensureContext(ctx)

	snippetID = strings.TrimSpace(snippetID)
	userID = strings.TrimSpace(userID)
	if snippetID == "" || userID == "" {
		return errors.New("snippet service: snippet id and user id are required")
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Snippet{}).
		Where("id = ?", snippetID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrSnippetNotFound
	}

	star := models.SnippetStar{SnippetID: snippetID, UserID: userID}
	if err := s.db.WithContext(ctx).Create(&star).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil
		}
		return err
	}
	return nil
}

// Unstar removes the caller's star if present.
func (s *SnippetService) Unstar(ctx context.Context, snippetID, userID string) error {
	if s == nil {
		return errors.New("snippet service: service not initialised")
	}
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).
		Where("snippet_id = ? AND user_id = ?", strings.TrimSpace(snippetID), strings.TrimSpace(userID)).
		Delete(&models.SnippetStar{}).Error
}

// StarCount returns the number of stars on a snippet.
func (s *SnippetService) StarCount(ctx context.Context, snippetID string) (int64, error) {
	if s == nil {
		return 0, errors.New("snippet service: service not initialised")
	}
	ctx = ensureContext(ctx)

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.SnippetStar{}).
		Where("snippet_id = ?", strings.TrimSpace(snippetID)).
		Count(&count).Error
	return count, err
}
