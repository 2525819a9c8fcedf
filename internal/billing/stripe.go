package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct {
	config *StripeConfig
	logger *slog.Logger
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider validates the config and configures the Stripe client.
func NewStripeProvider(config *StripeConfig, logger *slog.Logger) (*StripeProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stripe config: %w", err)
	}

	stripe.Key = config.APIKey

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("stripe provider initialized", "test_mode", config.IsTestMode())

	return &StripeProvider{
		config: config,
		logger: logger,
	}, nil
}

// CreateCheckoutSession creates a single-item hosted checkout session.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	if params.AmountCents < 50 {
		return nil, ErrAmountTooSmall
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(params.Currency),
					UnitAmount: stripe.Int64(params.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(params.ItemName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	sessionParams.Context = ctx

	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	for key, value := range params.Metadata {
		sessionParams.AddMetadata(key, value)
	}

	start := time.Now()
	sess, err := checkoutsession.New(sessionParams)
	if err != nil {
		p.logger.Error("stripe: checkout session creation failed",
			"error", err,
			"item", params.ItemName,
			"amount_cents", params.AmountCents,
		)
		return nil, fmt.Errorf("%w: %v", ErrSessionCreation, err)
	}

	p.logger.Info("stripe: checkout session created",
		"session_id", sess.ID,
		"amount_cents", params.AmountCents,
		"duration", time.Since(start),
	)

	return &CheckoutSession{
		ID:          sess.ID,
		URL:         sess.URL,
		AmountCents: params.AmountCents,
		Currency:    params.Currency,
		CreatedAt:   time.Unix(sess.Created, 0),
	}, nil
}

// VerifyWebhookSignature verifies the Stripe-Signature header against the
// raw payload. The payload is not parsed; webhook.ValidatePayload does a
// constant-time HMAC comparison with timestamp tolerance.
func (p *StripeProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	if signature == "" {
		return ErrInvalidSignature
	}
	if err := webhook.ValidatePayload(payload, signature, p.config.WebhookSecret); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}
