package billing

import "errors"

// Sentinel errors returned by providers.
var (
	// ErrInvalidSignature means the webhook payload failed signature
	// verification. The payload must be discarded unparsed.
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")

	// ErrSessionCreation means the processor rejected the checkout session.
	ErrSessionCreation = errors.New("billing: failed to create checkout session")

	// ErrAmountTooSmall means the amount is below the processor minimum.
	ErrAmountTooSmall = errors.New("billing: amount below processor minimum")
)
