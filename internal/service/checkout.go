package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/galleryworks/atelier/internal/billing"
	"github.com/galleryworks/atelier/internal/domain"
	"github.com/galleryworks/atelier/internal/telemetry"
)

// All listings are priced in the gallery's settlement currency.
const defaultCurrency = "usd"

// CheckoutConfig holds the redirect targets for hosted checkout.
type CheckoutConfig struct {
	// SuccessURL receives the customer after payment. The processor's
	// session-id placeholder is appended so the confirmation page can poll
	// for the order.
	SuccessURL string

	// CancelURL receives the customer if they abandon the payment page.
	CancelURL string
}

type checkoutService struct {
	catalog  domain.CatalogStore
	provider billing.Provider
	config   CheckoutConfig
	logger   *slog.Logger
}

var _ domain.CheckoutService = (*checkoutService)(nil)

// NewCheckoutService creates the session initiator.
func NewCheckoutService(catalog domain.CatalogStore, provider billing.Provider, config CheckoutConfig, logger *slog.Logger) domain.CheckoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &checkoutService{
		catalog:  catalog,
		provider: provider,
		config:   config,
		logger:   logger.With("service", "checkout"),
	}
}

// BeginCheckout validates that the referenced piece is purchasable and
// creates a hosted checkout session carrying the catalog reference in its
// metadata. No order is written here; orders exist only once payment is
// confirmed by webhook.
func (s *checkoutService) BeginCheckout(ctx context.Context, params domain.BeginCheckoutParams) (*domain.CheckoutRedirect, error) {
	const op = "checkout.begin"

	var (
		itemName    string
		amountCents int64
	)

	switch params.Ref.Type {
	case domain.CatalogTypeArtwork:
		artwork, err := s.catalog.GetArtwork(ctx, params.Ref.ID)
		if err != nil {
			return nil, err
		}
		if !artwork.Purchasable() {
			return nil, domain.ErrNotForSale
		}
		itemName = artwork.Title
		if artwork.Artist != "" {
			itemName = fmt.Sprintf("%s — %s", artwork.Title, artwork.Artist)
		}
		amountCents = int64(artwork.PriceCents.Int32)

	case domain.CatalogTypeEdition:
		edition, err := s.catalog.GetEdition(ctx, params.Ref.ID)
		if err != nil {
			return nil, err
		}
		if !edition.Purchasable() {
			return nil, domain.ErrSoldOut
		}
		itemName = edition.Title
		amountCents = int64(edition.PriceCents)

	default:
		return nil, domain.Errorf(domain.EINVALID, op, "unknown catalog type: %q", params.Ref.Type)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, billing.CreateCheckoutSessionParams{
		ItemName:      itemName,
		AmountCents:   amountCents,
		Currency:      defaultCurrency,
		CustomerEmail: params.CustomerEmail,
		SuccessURL:    s.config.SuccessURL + "?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.config.CancelURL,
		Metadata: map[string]string{
			domain.MetadataCatalogType: string(params.Ref.Type),
			domain.MetadataCatalogID:   domain.UUIDString(params.Ref.ID),
		},
	})
	if err != nil {
		s.logger.Error("checkout session creation failed",
			"error", err,
			"catalog_type", params.Ref.Type,
			"catalog_id", domain.UUIDString(params.Ref.ID),
		)
		return nil, domain.WrapError(err, domain.EPAYMENT, op, "failed to create checkout session")
	}

	if telemetry.Business != nil {
		telemetry.Business.CheckoutSessionsStarted.Inc()
	}

	s.logger.Info("checkout session created",
		"session_id", session.ID,
		"catalog_type", params.Ref.Type,
		"catalog_id", domain.UUIDString(params.Ref.ID),
		"amount_cents", amountCents,
	)

	return &domain.CheckoutRedirect{
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}
