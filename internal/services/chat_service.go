package services

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/codecraft-dev/codecraft/internal/models"
)

// MaxChatMessageLength bounds a single chat message.
const MaxChatMessageLength = 2000

var (
	// ErrChatDisabled indicates chat is switched off for the session.
	ErrChatDisabled = errors.New("chat service: chat is disabled for this session")
	// ErrEmptyChatMessage indicates the message had no content after trimming.
	ErrEmptyChatMessage = errors.New("chat service: message content is required")
	// ErrChatMessageTooLong indicates the message exceeds the length cap.
	ErrChatMessageTooLong = errors.New("chat service: message content is too long")
)

// ChatService persists and fans out in-session chat messages.
type ChatService struct {
	db          *gorm.DB
	broadcaster SessionBroadcaster
	timeNow     func() time.Time
}

// ChatOption customises service dependencies.
type ChatOption func(*ChatService)

// WithChatBroadcaster wires the realtime hub for chat events.
func WithChatBroadcaster(b SessionBroadcaster) ChatOption {
	return func(s *ChatService) {
		s.broadcaster = b
	}
}

// WithChatClock overrides the clock used for timestamps (test helper).
func WithChatClock(clock func() time.Time) ChatOption {
	return func(s *ChatService) {
		if clock != nil {
			s.timeNow = clock
		}
	}
}

// NewChatService constructs the chat service.
func NewChatService(db *gorm.DB, opts ...ChatOption) (*ChatService, error) {
	if db == nil {
		return nil, errors.New("chat service: db is required")
	}

	svc := &ChatService{
		db:      db,
		timeNow: time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// PostMessage stores a chat message from a session participant and broadcasts
// it to subscribers. Content is HTML-escaped at write time.
func (s *ChatService) PostMessage(ctx context.Context, sessionKey, userID, userName, content string) (*models.SessionMessage, error) {
	if s == nil {
		return nil, errors.New("chat service: service not initialised")
	}
	ctx = ensureContext(ctx)

	sessionKey = strings.TrimSpace(sessionKey)
	userID = strings.TrimSpace(userID)
	if sessionKey == "" {
		return nil, ErrSessionNotFound
	}
	if userID == "" {
		return nil, errors.New("chat service: user id is required")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyChatMessage
	}
	if len(content) > MaxChatMessageLength {
		return nil, ErrChatMessageTooLong
	}
	content = html.EscapeString(content)

	var session models.CollabSession
	if err := s.db.WithContext(ctx).
		First(&session, "session_key = ?", sessionKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	session.Normalise()

	if !session.Settings.ChatEnabled {
		return nil, ErrChatDisabled
	}

	var memberCount int64
	if err := s.db.WithContext(ctx).
		Model(&models.SessionParticipant{}).
		Where("session_id = ? AND user_id = ?", session.ID, userID).
		Count(&memberCount).Error; err != nil {
		return nil, err
	}
	if memberCount == 0 {
		return nil, ErrNotParticipant
	}

	message := models.SessionMessage{
		SessionID: session.ID,
		UserID:    userID,
		UserName:  strings.TrimSpace(userName),
		Content:   content,
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, err
	}

	broadcast(s.broadcaster, sessionKey, EventChatMessage, map[string]any{
		"id":        message.ID,
		"user_id":   message.UserID,
		"user_name": message.UserName,
		"content":   message.Content,
		"sent_at":   message.CreatedAt,
	})

	return &message, nil
}

// ListMessages returns the chat history for a session in send order.
func (s *ChatService) ListMessages(ctx context.Context, sessionKey string, limit int) ([]models.SessionMessage, error) {
	if s == nil {
		return nil, errors.New("chat service: service not initialised")
	}
	ctx = ensureContext(ctx)

	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return nil, ErrSessionNotFound
	}
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var session models.CollabSession
	if err := s.db.WithContext(ctx).
		Select("id").
		First(&session, "session_key = ?", sessionKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var messages []models.SessionMessage
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", session.ID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	return messages, nil
}
