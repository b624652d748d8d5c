package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codecraft-dev/codecraft/internal/models"
	"github.com/codecraft-dev/codecraft/pkg/logger"
)

var (
	// ErrWebhookSignatureInvalid indicates the payload signature check failed.
	ErrWebhookSignatureInvalid = errors.New("billing service: invalid webhook signature")
	// ErrWebhookMalformed indicates the payload could not be interpreted.
	ErrWebhookMalformed = errors.New("billing service: malformed webhook payload")
)

// Webhook event names the billing provider delivers.
const (
	webhookOrderCreated        = "order_created"
	webhookSubscriptionExpired = "subscription_expired"
)

type webhookPayload struct {
	Meta struct {
		EventName  string `json:"event_name"`
		CustomData struct {
			UserID string `json:"user_id"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			CustomerID json.Number `json:"customer_id"`
			Status     string      `json:"status"`
		} `json:"attributes"`
	} `json:"data"`
}

// BillingService processes payment provider webhooks and maintains each
// user's pro plan state. Events are verified with an HMAC signature and
// deduplicated by event id, so redelivery is safe.
type BillingService struct {
	db            *gorm.DB
	signingSecret string
	timeNow       func() time.Time
}

// BillingOption customises service dependencies.
type BillingOption func(*BillingService)

// WithBillingClock overrides the clock used for timestamps (test helper).
func WithBillingClock(clock func() time.Time) BillingOption {
	return func(s *BillingService) {
		if clock != nil {
			s.timeNow = clock
		}
	}
}

// NewBillingService constructs the billing webhook processor.
func NewBillingService(db *gorm.DB, signingSecret string, opts ...BillingOption) (*BillingService, error) {
	if db == nil {
		return nil, errors.New("billing service: db is required")
	}
	if strings.TrimSpace(signingSecret) == "" {
		return nil, errors.New("billing service: signing secret is required")
	}

	svc := &BillingService{
		db:            db,
		signingSecret: signingSecret,
		timeNow:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// VerifySignature checks the hex-encoded HMAC-SHA256 signature the provider
// sends with each delivery.
func (s *BillingService) VerifySignature(payload []byte, signature string) error {
	if s == nil {
		return errors.New("billing service: service not initialised")
	}

	mac := hmac.New(sha256.New, []byte(s.signingSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return ErrWebhookSignatureInvalid
	}
	return nil
}

// HandleWebhook verifies, deduplicates and applies one webhook delivery.
// Unknown event names are acknowledged without side effects so the provider
// stops retrying them.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s == nil {
		return errors.New("billing service: service not initialised")
	}
	ctx = ensureContext(ctx)

	if err := s.VerifySignature(payload, signature); err != nil {
		return err
	}

	var event webhookPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrWebhookMalformed, err)
	}

	eventName := strings.TrimSpace(event.Meta.EventName)
	eventID := strings.TrimSpace(event.Data.ID)
	if eventName == "" || eventID == "" {
		return ErrWebhookMalformed
	}

	now := s.timeNow()
	record := models.WebhookEvent{
		EventID:     eventName + ":" + eventID,
		EventName:   eventName,
		Payload:     datatypes.JSON(payload),
		ProcessedAt: now,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			if isUniqueConstraintError(err) {
				logger.Debug("duplicate billing webhook ignored",
					zap.String("event_id", record.EventID))
				return nil
			}
			return err
		}

		switch eventName {
		case webhookOrderCreated:
			return s.applyOrderCreated(tx, event, now)
		case webhookSubscriptionExpired:
			return s.applySubscriptionExpired(tx, event)
		default:
			logger.Info("unhandled billing webhook event",
				zap.String("event_name", eventName))
			return nil
		}
	})
}

func (s *BillingService) applyOrderCreated(tx *gorm.DB, event webhookPayload, now time.Time) error {
	userID := strings.TrimSpace(event.Meta.CustomData.UserID)
	if userID == "" {
		return fmt.Errorf("%w: order event missing user id", ErrWebhookMalformed)
	}

	customerID := event.Data.Attributes.CustomerID.String()
	orderID := event.Data.ID

	updates := map[string]any{
		"is_pro":    true,
		"pro_since": now,
	}
	if customerID != "" {
		updates["lemon_squeezy_customer_id"] = customerID
	}
	if orderID != "" {
		updates["lemon_squeezy_order_id"] = orderID
	}

	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// The user may not have signed in on this deployment yet. The event is
		// already recorded, so redelivery will not double-apply.
		logger.Warn("billing webhook for unknown user",
			zap.String("user_id", userID))
	}
	return nil
}

func (s *BillingService) applySubscriptionExpired(tx *gorm.DB, event webhookPayload) error {
	userID := strings.TrimSpace(event.Meta.CustomData.UserID)

	query := tx.Model(&models.User{})
	switch {
	case userID != "":
		query = query.Where("id = ?", userID)
	case event.Data.Attributes.CustomerID.String() != "":
		query = query.Where("lemon_squeezy_customer_id = ?", event.Data.Attributes.CustomerID.String())
	default:
		return fmt.Errorf("%w: expiry event missing user reference", ErrWebhookMalformed)
	}

	return query.Updates(map[string]any{
		"is_pro":    false,
		"pro_since": gorm.Expr("NULL"),
	}).Error
}
