package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/galleryworks/atelier/internal/billing"
	"github.com/galleryworks/atelier/internal/domain"
	"github.com/galleryworks/atelier/internal/handler"
	"github.com/galleryworks/atelier/internal/telemetry"
)

// StripeHandler receives payment processor webhooks. The signature is
// checked over the raw request bytes before the payload is parsed in any
// way; an unverified payload is never decoded.
type StripeHandler struct {
	provider    billing.Provider
	fulfillment domain.FulfillmentService
	logger      *slog.Logger
}

// NewStripeHandler creates the webhook handler.
func NewStripeHandler(provider billing.Provider, fulfillment domain.FulfillmentService, logger *slog.Logger) *StripeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeHandler{
		provider:    provider,
		fulfillment: fulfillment,
		logger:      logger.With("handler", "stripe_webhook"),
	}
}

// HandleWebhook processes POST /webhooks/stripe.
//
// Response policy: verification or parse failures are 400 and persist
// nothing. Once an event is verified, business outcomes (processed,
// duplicate, flagged, unhandled type) are 200 so the processor stops
// redelivering; only transient store failures are 5xx, which asks the
// processor to retry.
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		handler.ErrorResponse(w, r, domain.Invalid("webhook.receive", "method not allowed"))
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("webhook.receive", "failed to read request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		h.logger.Warn("webhook rejected: missing signature header")
		handler.ErrorResponse(w, r, domain.Invalid("webhook.verify", "missing Stripe-Signature header"))
		return
	}

	if err := h.provider.VerifyWebhookSignature(payload, signature); err != nil {
		h.logger.Warn("webhook rejected: signature verification failed", "error", err)
		if telemetry.Business != nil {
			telemetry.Business.WebhookFailed.WithLabelValues("unknown", "signature").Inc()
		}
		handler.ErrorResponse(w, r, domain.Invalid("webhook.verify", "invalid webhook signature"))
		return
	}

	// Only now is the payload trusted enough to parse.
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Warn("webhook rejected: malformed event payload", "error", err)
		handler.ErrorResponse(w, r, domain.Invalid("webhook.parse", "malformed event payload"))
		return
	}

	start := time.Now()
	if telemetry.Business != nil {
		telemetry.Business.WebhookReceived.WithLabelValues(string(event.Type)).Inc()
		defer func() {
			telemetry.Business.WebhookLatency.Observe(time.Since(start).Seconds())
		}()
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutSessionCompleted(w, r, event)
	default:
		// Verified but not ours to handle. Acknowledge so the processor
		// does not redeliver.
		h.logger.Info("ignoring webhook event", "event_type", event.Type, "event_id", event.ID)
		handler.JSON(w, http.StatusOK, map[string]any{"received": true})
	}
}

func (h *StripeHandler) handleCheckoutSessionCompleted(w http.ResponseWriter, r *http.Request, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.logger.Warn("malformed checkout session payload", "error", err, "event_id", event.ID)
		handler.ErrorResponse(w, r, domain.Invalid("webhook.parse", "malformed checkout session payload"))
		return
	}

	completed := domain.CheckoutCompleted{
		EventID:          event.ID,
		SessionID:        session.ID,
		AmountTotalCents: session.AmountTotal,
		Currency:         string(session.Currency),
		RawCatalogType:   session.Metadata[domain.MetadataCatalogType],
		RawCatalogID:     session.Metadata[domain.MetadataCatalogID],
	}
	if session.CustomerDetails != nil {
		completed.CustomerEmail = session.CustomerDetails.Email
		completed.CustomerName = session.CustomerDetails.Name
	}

	if err := completed.Validate(); err != nil {
		h.logger.Warn("checkout session payload failed validation",
			"error", err,
			"event_id", event.ID,
			"session_id", session.ID,
		)
		if telemetry.Business != nil {
			telemetry.Business.WebhookFailed.WithLabelValues(string(event.Type), "validation").Inc()
		}
		handler.ErrorResponse(w, r, err)
		return
	}

	result, err := h.fulfillment.FulfillCheckout(r.Context(), completed)
	if err != nil {
		// Transient failure before commit. 5xx makes the processor
		// redeliver, and the idempotency key makes the retry safe.
		h.logger.Error("fulfillment failed",
			"error", err,
			"session_id", completed.SessionID,
			"event_id", event.ID,
		)
		if telemetry.Business != nil {
			telemetry.Business.WebhookFailed.WithLabelValues(string(event.Type), "store").Inc()
		}
		handler.ErrorResponse(w, r, domain.Internal(err, "webhook.fulfill", "failed to process checkout session"))
		return
	}

	if telemetry.Business != nil {
		telemetry.Business.WebhookProcessed.WithLabelValues(string(event.Type)).Inc()
	}

	handler.JSON(w, http.StatusOK, map[string]any{
		"received":          true,
		"order_id":          domain.UUIDString(result.Order.ID),
		"already_processed": result.AlreadyProcessed,
	})
}
