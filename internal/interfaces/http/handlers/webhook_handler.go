package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nexart.backend/internal/domain/entities"
	domainerrors "nexart.backend/internal/domain/errors"
	"nexart.backend/pkg/logger"
)

const (
	signatureHeader    = "Billing-Signature"
	signatureTolerance = 5 * time.Minute
)

// BillingEventProcessor folds one verified billing event into account state.
type BillingEventProcessor interface {
	Process(ctx context.Context, event *entities.BillingEvent) error
}

// WebhookHandler receives billing provider deliveries
type WebhookHandler struct {
	reconciler    BillingEventProcessor
	signingSecret string
}

func NewWebhookHandler(reconciler BillingEventProcessor, signingSecret string) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, signingSecret: signingSecret}
}

// HandleBillingWebhook handles incoming webhooks from the billing provider
// POST /api/v1/webhooks/billing
func (h *WebhookHandler) HandleBillingWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	// Nothing is parsed, let alone applied, before the signature checks out.
	if !h.verifySignature(c.GetHeader(signatureHeader), body) {
		logger.Warn(c.Request.Context(), "webhook signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	var event entities.BillingEvent
	if err := json.Unmarshal(body, &event); err != nil || event.ID == "" || event.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event envelope"})
		return
	}

	if err := h.reconciler.Process(c.Request.Context(), &event); err != nil {
		if errors.Is(err, domainerrors.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
			return
		}
		logger.Error(c.Request.Context(), "webhook processing failed",
			zap.String("event_id", event.ID),
			zap.Error(err))
		// Non-2xx makes the provider redeliver; the idempotency claim was
		// rolled back with the failed transaction.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// verifySignature checks a "t=<unix>,v1=<hex>" header: an HMAC-SHA256 of
// "<timestamp>.<body>" under the shared signing secret, with a bounded
// timestamp skew to stop replays.
func (h *WebhookHandler) verifySignature(header string, body []byte) bool {
	if header == "" || h.signingSecret == "" {
		return false
	}

	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signature = v
		}
	}
	if timestamp == "" || signature == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	skew := time.Since(time.Unix(ts, 0))
	if skew > signatureTolerance || skew < -signatureTolerance {
		return false
	}

	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.signingSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}
