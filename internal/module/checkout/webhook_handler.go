package checkout

import (
	"errors"
	"io"
	"net/http"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/checkout/provider"
	"github.com/GuiSantosdev/clivus-dev-sub000/internal/utils/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives provider confirmations. One route per
// provider name; the adapter owns signature verification and payload
// normalization, the state machine owns the transition.
type WebhookHandler struct {
	registry *provider.Registry
	store    GatewayStore
	repo     Repository
	machine  *StateMachine
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(
	registry *provider.Registry,
	store GatewayStore,
	repo Repository,
	machine *StateMachine,
	m *metrics.Metrics,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		registry: registry,
		store:    store,
		repo:     repo,
		machine:  machine,
		metrics:  m,
		logger:   logger,
	}
}

// RegisterRoutes registers the webhook routes. Providers are configured
// with the /api prefix; the bare path is kept for compatibility.
func (h *WebhookHandler) RegisterRoutes(r *gin.Engine) {
	r.POST("/webhook/:provider", h.Receive)
	r.POST("/api/webhook/:provider", h.Receive)
}

// Receive processes one provider notification. Contract: 401 on a bad
// signature, 200 for everything that was processed or intentionally
// ignored. Providers retry on non-2xx, so an event for an unknown or
// already-terminal payment must still answer 200.
func (h *WebhookHandler) Receive(c *gin.Context) {
	providerName := c.Param("provider")
	adapter, err := h.registry.Get(providerName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	cfg, err := h.store.Get(c.Request.Context(), providerName)
	if err != nil {
		h.logger.Error("webhook config lookup failed",
			zap.String("provider", providerName), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	// Some providers sign the query string rather than a header; the
	// adapter only sees headers, so forward the raw query.
	headers := c.Request.Header.Clone()
	headers.Set("X-Webhook-Query", c.Request.URL.RawQuery)

	if !adapter.VerifyWebhookSignature(rawBody, headers, cfg.ActiveWebhookSecret()) {
		h.metrics.RecordWebhook(providerName, "signature_invalid")
		h.logger.Warn("webhook signature rejected",
			zap.String("provider", providerName),
			zap.String("remote_addr", c.ClientIP()),
		)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	event, err := adapter.ParseWebhookPayload(rawBody)
	if err != nil {
		h.metrics.RecordWebhook(providerName, "malformed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if event == nil {
		// Status this adapter does not map; acknowledged, never guessed.
		h.metrics.RecordWebhook(providerName, "ignored")
		c.JSON(http.StatusOK, gin.H{"received": true, "processed": false})
		return
	}

	h.apply(c, event)
}

func (h *WebhookHandler) apply(c *gin.Context, event *provider.PaymentEvent) {
	ctx := c.Request.Context()

	payment, err := h.repo.GetByProviderTx(ctx, event.Provider, event.ProviderTransactionID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			// Test webhooks and charges created outside this system land
			// here; nothing to transition.
			h.metrics.RecordWebhook(event.Provider, "unknown_tx")
			c.JSON(http.StatusOK, gin.H{"received": true, "processed": false})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	target := StatusFailed
	if event.Status == provider.EventCompleted {
		target = StatusCompleted
	}

	if err := h.machine.Transition(ctx, payment, target, "webhook"); err != nil {
		if errors.Is(err, ErrAlreadyTransitioned) {
			h.metrics.RecordWebhook(event.Provider, "duplicate")
			c.JSON(http.StatusOK, gin.H{"received": true, "processed": false})
			return
		}
		h.logger.Error("webhook transition failed",
			zap.String("provider", event.Provider),
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.metrics.RecordWebhook(event.Provider, "processed")
	c.JSON(http.StatusOK, gin.H{"received": true, "processed": true})
}
