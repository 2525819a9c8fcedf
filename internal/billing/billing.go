package billing

import (
	"context"
	"time"
)

// Provider abstracts the payment processor behind hosted checkout.
// The gallery backend never sees card data; the processor hosts the payment
// page and reports the outcome through signed webhooks.
type Provider interface {
	// CreateCheckoutSession creates a hosted payment page for a single
	// catalog item and returns the URL to redirect the customer to.
	// Metadata round-trips to the completion webhook unchanged.
	CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)

	// VerifyWebhookSignature checks the processor's signature over the exact
	// raw request bytes using a constant-time comparison. It must be called
	// before the payload is parsed in any way.
	VerifyWebhookSignature(payload []byte, signature string) error
}

// CreateCheckoutSessionParams describes the single line item and redirect
// targets for a hosted checkout session.
type CreateCheckoutSessionParams struct {
	// ItemName is shown on the hosted payment page.
	ItemName string

	// AmountCents is the unit price in the smallest currency unit.
	AmountCents int64

	// Currency is the ISO 4217 code (e.g., "usd").
	Currency string

	// CustomerEmail pre-fills the payment page when known. Optional.
	CustomerEmail string

	// SuccessURL is where the processor sends the customer after payment.
	// May contain the processor's session-id template placeholder.
	SuccessURL string

	// CancelURL is where the customer lands if they abandon payment.
	CancelURL string

	// Metadata is attached to the session and echoed back in the
	// completion event. Used to carry the catalog reference.
	Metadata map[string]string
}

// CheckoutSession is the created hosted session.
type CheckoutSession struct {
	ID          string
	URL         string
	AmountCents int64
	Currency    string
	CreatedAt   time.Time
}
