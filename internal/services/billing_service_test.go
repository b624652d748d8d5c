package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codecraft-dev/codecraft/internal/database/testutil"
	"github.com/codecraft-dev/codecraft/internal/models"
)

const billingTestSecret = "whsec-test"

func signPayload(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(billingTestSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func orderCreatedPayload(userID, orderID string) []byte {
	return []byte(fmt.Sprintf(`{
		"meta": {"event_name": "order_created", "custom_data": {"user_id": %q}},
		"data": {"id": %q, "attributes": {"customer_id": 12345, "status": "paid"}}
	}`, userID, orderID))
}

func newBillingFixture(t *testing.T, clock *testClock) (*gorm.DB, *BillingService) {
	t.Helper()
	db := testutil.MustOpenTestDB(t)
	svc, err := NewBillingService(db, billingTestSecret, WithBillingClock(clock.Now))
	require.NoError(t, err)
	return db, svc
}

func TestBilling_OrderCreatedUpgradesUser(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, svc := newBillingFixture(t, clock)
	seedUser(t, db, "user-1", "alice")

	payload := orderCreatedPayload("user-1", "order-77")
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(payload)))

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", "user-1").Error)
	require.True(t, user.IsPro)
	require.NotNil(t, user.ProSince)
	require.NotNil(t, user.LemonSqueezyCustomerID)
	require.Equal(t, "12345", *user.LemonSqueezyCustomerID)
	require.NotNil(t, user.LemonSqueezyOrderID)
	require.Equal(t, "order-77", *user.LemonSqueezyOrderID)
}

func TestBilling_InvalidSignatureRejected(t *testing.T) {
	clock := newTestClock(time.Now())
	_, svc := newBillingFixture(t, clock)

	payload := orderCreatedPayload("user-1", "order-77")
	err := svc.HandleWebhook(context.Background(), payload, "deadbeef")
	require.ErrorIs(t, err, ErrWebhookSignatureInvalid)
}

func TestBilling_DuplicateDeliveryIgnored(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, svc := newBillingFixture(t, clock)
	seedUser(t, db, "user-1", "alice")

	payload := orderCreatedPayload("user-1", "order-77")
	sig := signPayload(payload)
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, sig))
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, sig))

	var events int64
	require.NoError(t, db.Model(&models.WebhookEvent{}).Count(&events).Error)
	require.Equal(t, int64(1), events)
}

func TestBilling_SubscriptionExpiredDowngradesUser(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, svc := newBillingFixture(t, clock)
	seedProUser(t, db, "user-1", "alice")

	payload := []byte(`{
		"meta": {"event_name": "subscription_expired", "custom_data": {"user_id": "user-1"}},
		"data": {"id": "sub-9", "attributes": {"customer_id": 12345, "status": "expired"}}
	}`)
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(payload)))

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", "user-1").Error)
	require.False(t, user.IsPro)
	require.Nil(t, user.ProSince)
}

func TestBilling_UnknownEventAcknowledged(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, svc := newBillingFixture(t, clock)

	payload := []byte(`{
		"meta": {"event_name": "order_refunded", "custom_data": {}},
		"data": {"id": "order-77", "attributes": {}}
	}`)
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(payload)))

	var events int64
	require.NoError(t, db.Model(&models.WebhookEvent{}).Count(&events).Error)
	require.Equal(t, int64(1), events)
}

func TestBilling_MalformedPayload(t *testing.T) {
	clock := newTestClock(time.Now())
	_, svc := newBillingFixture(t, clock)

	payload := []byte(`{"meta": {}}`)
	err := svc.HandleWebhook(context.Background(), payload, signPayload(payload))
	require.ErrorIs(t, err, ErrWebhookMalformed)
}
