package billing

import (
	"fmt"
	"strings"
)

// StripeConfig holds Stripe credentials and behavior settings.
type StripeConfig struct {
	// APIKey is the secret key (sk_test_... or sk_live_...).
	APIKey string

	// WebhookSecret is the endpoint signing secret (whsec_...).
	WebhookSecret string

	// TimeoutSeconds bounds outbound Stripe API calls.
	TimeoutSeconds int
}

// Validate checks that required credentials are present and well-formed.
func (c *StripeConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("stripe api key is required")
	}
	if !strings.HasPrefix(c.APIKey, "sk_") {
		return fmt.Errorf("stripe api key must start with sk_")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is required")
	}
	if !strings.HasPrefix(c.WebhookSecret, "whsec_") {
		return fmt.Errorf("stripe webhook secret must start with whsec_")
	}
	return nil
}

// IsTestMode reports whether the configured key is a test-mode key.
func (c *StripeConfig) IsTestMode() bool {
	return strings.HasPrefix(c.APIKey, "sk_test_")
}
