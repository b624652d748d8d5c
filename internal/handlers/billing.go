package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/services"
	apperrors "github.com/codecraft-dev/codecraft/pkg/errors"
	"github.com/codecraft-dev/codecraft/pkg/response"
)

const maxWebhookBody = 1 << 20

// BillingHandler receives payment provider webhooks. The route is public; the
// HMAC signature is the only authentication.
type BillingHandler struct {
	billing *services.BillingService
}

// NewBillingHandler constructs a billing webhook handler.
func NewBillingHandler(billing *services.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// Webhook verifies and applies one webhook delivery. Replayed deliveries are
// acknowledged without being reapplied.
func (h *BillingHandler) Webhook(c *gin.Context) {
	if h == nil || h.billing == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	signature := strings.TrimSpace(c.GetHeader("X-Signature"))
	if signature == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("unable to read webhook body"))
		return
	}

	if err := h.billing.HandleWebhook(requestContext(c), payload, signature); err != nil {
		switch {
		case errors.Is(err, services.ErrWebhookSignatureInvalid):
			response.Error(c, apperrors.ErrUnauthorized)
		case errors.Is(err, services.ErrWebhookMalformed):
			response.Error(c, apperrors.NewBadRequest("malformed webhook payload"))
		default:
			response.Error(c, apperrors.Wrap(err, "unable to process webhook"))
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"received": true})
}
