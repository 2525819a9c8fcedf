package billing

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockProvider implements Provider for testing. Behavior is overridden per
// test via the function fields; unset fields fall back to sane defaults.
type MockProvider struct {
	CreateCheckoutSessionFunc  func(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)
	VerifyWebhookSignatureFunc func(payload []byte, signature string) error

	mu          sync.Mutex
	createCalls []CreateCheckoutSessionParams
}

var _ Provider = (*MockProvider)(nil)

func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	m.mu.Lock()
	m.createCalls = append(m.createCalls, params)
	m.mu.Unlock()

	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, params)
	}
	return &CheckoutSession{
		ID:          fmt.Sprintf("cs_test_%d", len(m.createCalls)),
		URL:         "https://checkout.example.com/pay/cs_test",
		AmountCents: params.AmountCents,
		Currency:    params.Currency,
		CreatedAt:   time.Now(),
	}, nil
}

func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature)
	}
	if signature == "" {
		return ErrInvalidSignature
	}
	return nil
}

// CreateCalls returns a copy of the recorded session-create params.
func (m *MockProvider) CreateCalls() []CreateCheckoutSessionParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CreateCheckoutSessionParams, len(m.createCalls))
	copy(out, m.createCalls)
	return out
}
