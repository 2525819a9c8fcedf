package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/galleryworks/atelier/internal/domain"
	"github.com/galleryworks/atelier/internal/notify"
	"github.com/galleryworks/atelier/internal/telemetry"
)

// Title snapshot recorded when the catalog reference resolves to nothing.
// The order still persists; the raw reference goes to the log and the row
// is flagged for review.
const unresolvedTitleSnapshot = "(unavailable)"

type fulfillmentService struct {
	store    domain.FulfillmentStore
	notifier notify.Queue
	logger   *slog.Logger
}

var _ domain.FulfillmentService = (*fulfillmentService)(nil)

// NewFulfillmentService creates the fulfillment pipeline. notifier may be
// nil, in which case no receipts are enqueued.
func NewFulfillmentService(store domain.FulfillmentStore, notifier notify.Queue, logger *slog.Logger) domain.FulfillmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &fulfillmentService{
		store:    store,
		notifier: notifier,
		logger:   logger.With("service", "fulfillment"),
	}
}

// FulfillCheckout turns a verified completed-checkout event into a paid
// order, exactly once per session ID. Everything up to the receipt enqueue
// runs in one transaction: idempotency probe, catalog resolution,
// conditional stock decrement, order and item insert. Business-rule
// failures (unresolvable reference, exhausted stock) flag the order and
// proceed; only infrastructure failures return an error, and those roll the
// whole transaction back.
func (s *fulfillmentService) FulfillCheckout(ctx context.Context, event domain.CheckoutCompleted) (*domain.FulfillmentResult, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.store.BeginFulfillment(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Idempotency probe. A replayed delivery returns the existing order
	// with no side effects.
	existing, err := tx.GetOrderBySessionID(ctx, event.SessionID)
	if err == nil {
		s.logger.Info("session already fulfilled",
			"session_id", event.SessionID,
			"order_id", domain.UUIDString(existing.ID),
		)
		if telemetry.Business != nil {
			telemetry.Business.OrdersDuplicate.Inc()
		}
		return &domain.FulfillmentResult{Order: existing, AlreadyProcessed: true}, nil
	}
	if !errors.Is(err, domain.ErrOrderNotFound) {
		return nil, err
	}

	orderParams := domain.CreateOrderParams{
		SessionID:        event.SessionID,
		Status:           domain.OrderStatusPaid,
		AmountTotalCents: event.AmountTotalCents,
		Currency:         event.Currency,
		CustomerEmail:    event.CustomerEmail,
		CustomerName:     event.CustomerName,
	}
	itemParams := domain.CreateOrderItemParams{
		Quantity:       1,
		UnitPriceCents: event.AmountTotalCents,
		TitleSnapshot:  unresolvedTitleSnapshot,
	}

	// Catalog resolution. The customer has already paid, so an unresolvable
	// reference can only flag the order, never reject it.
	ref, refErr := event.Ref()
	switch {
	case refErr != nil:
		s.flagUnresolved(&orderParams, event)

	case ref.Type == domain.CatalogTypeArtwork:
		artwork, err := tx.GetArtwork(ctx, ref.ID)
		if errors.Is(err, domain.ErrArtworkNotFound) {
			s.flagUnresolved(&orderParams, event)
			break
		}
		if err != nil {
			return nil, err
		}
		itemParams.ArtworkID = ref.ID
		itemParams.TitleSnapshot = artwork.Title

	case ref.Type == domain.CatalogTypeEdition:
		edition, err := tx.GetEdition(ctx, ref.ID)
		if errors.Is(err, domain.ErrEditionNotFound) {
			s.flagUnresolved(&orderParams, event)
			break
		}
		if err != nil {
			return nil, err
		}
		itemParams.EditionID = ref.ID
		itemParams.TitleSnapshot = edition.Title

		decremented, err := tx.DecrementEditionStock(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		if !decremented {
			// Lost the race for the last copy. The money was captured, so
			// the order persists flagged and staff sort it out.
			orderParams.Flagged = true
			orderParams.FlagReason = domain.FlagInventoryExhausted
			s.logger.Warn("edition stock exhausted at fulfillment",
				"session_id", event.SessionID,
				"edition_id", domain.UUIDString(ref.ID),
			)
		}
	}

	order, err := tx.InsertOrder(ctx, orderParams)
	if errors.Is(err, domain.ErrSessionAlreadyProcessed) {
		// A concurrent delivery committed first. Drop our work (including
		// any stock decrement) and hand back the winner's order.
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return nil, rbErr
		}
		winner, err := s.store.GetOrderBySessionID(ctx, event.SessionID)
		if err != nil {
			return nil, err
		}
		if telemetry.Business != nil {
			telemetry.Business.OrdersDuplicate.Inc()
		}
		return &domain.FulfillmentResult{Order: winner, AlreadyProcessed: true}, nil
	}
	if err != nil {
		return nil, err
	}

	itemParams.OrderID = order.ID
	item, err := tx.InsertOrderItem(ctx, itemParams)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if telemetry.Business != nil {
		telemetry.Business.OrdersCreated.Inc()
		telemetry.Business.OrderValueCents.Observe(float64(order.AmountTotalCents))
		if order.Flagged {
			telemetry.Business.OrdersFlagged.WithLabelValues(order.FlagReason.String).Inc()
		}
	}

	s.logger.Info("order created",
		"order_id", domain.UUIDString(order.ID),
		"session_id", event.SessionID,
		"amount_cents", order.AmountTotalCents,
		"title", item.TitleSnapshot,
		"flagged", order.Flagged,
	)

	s.enqueueReceipt(ctx, order)

	return &domain.FulfillmentResult{Order: order}, nil
}

func (s *fulfillmentService) flagUnresolved(params *domain.CreateOrderParams, event domain.CheckoutCompleted) {
	params.Flagged = true
	params.FlagReason = domain.FlagCatalogUnresolved
	s.logger.Warn("catalog reference did not resolve",
		"session_id", event.SessionID,
		"catalog_type", event.RawCatalogType,
		"catalog_id", event.RawCatalogID,
	)
}

// enqueueReceipt is fire-and-forget: the order is committed, and a receipt
// that never arrives is a support issue, not a reason to disturb it.
func (s *fulfillmentService) enqueueReceipt(ctx context.Context, order *domain.Order) {
	if s.notifier == nil {
		return
	}

	err := s.notifier.EnqueueReceipt(context.WithoutCancel(ctx), order.ID)
	if err != nil {
		s.logger.Error("receipt enqueue failed",
			"error", err,
			"order_id", domain.UUIDString(order.ID),
		)
		if telemetry.Business != nil {
			telemetry.Business.ReceiptEnqueueFailed.Inc()
		}
		return
	}

	if telemetry.Business != nil {
		telemetry.Business.ReceiptsEnqueued.Inc()
	}
}
