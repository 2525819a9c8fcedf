package domain

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Order-related domain errors.
var (
	ErrOrderNotFound = &Error{Code: ENOTFOUND, Message: "Order not found"}

	// ErrSessionAlreadyProcessed indicates the checkout session has already
	// produced an order. Callers treat this as success: the webhook is
	// acknowledged and the existing order is returned.
	ErrSessionAlreadyProcessed = &Error{Code: ECONFLICT, Message: "Checkout session already processed"}
)

// OrderStatus is the payment lifecycle state of an order.
// This service only ever writes StatusPaid; refunds and cancellations are
// recorded by back-office tooling.
type OrderStatus string

const (
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusRefunded  OrderStatus = "refunded"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Flag reasons for orders that completed payment but need staff review.
// A flagged order is still a paid order; the money was captured.
const (
	FlagCatalogUnresolved  = "catalog_unresolved"
	FlagInventoryExhausted = "inventory_exhausted"
)

// Order is a completed purchase, created exactly once per checkout session.
// StripeSessionID carries a unique constraint; it is the idempotency key for
// webhook delivery.
type Order struct {
	ID               pgtype.UUID
	StripeSessionID  string
	Status           OrderStatus
	AmountTotalCents int64
	Currency         string
	CustomerEmail    string
	CustomerName     string
	Flagged          bool
	FlagReason       pgtype.Text
	CreatedAt        pgtype.Timestamptz
}

// OrderItem records what was bought. At most one of ArtworkID/EditionID is
// set; neither is set on catalog-unresolved orders. TitleSnapshot preserves
// the listing title at purchase time so the order history survives catalog
// edits.
type OrderItem struct {
	ID             pgtype.UUID
	OrderID        pgtype.UUID
	ArtworkID      pgtype.UUID
	EditionID      pgtype.UUID
	Quantity       int32
	UnitPriceCents int64
	TitleSnapshot  string
}

// OrderDetail aggregates an order with its items.
type OrderDetail struct {
	Order Order
	Items []OrderItem
}

// FulfillmentResult is the outcome of processing a completed checkout
// session. AlreadyProcessed is true when the session had been fulfilled by
// an earlier delivery and no new side effects occurred.
type FulfillmentResult struct {
	Order            *Order
	AlreadyProcessed bool
}

// BeginCheckoutParams identifies what the customer wants to buy.
type BeginCheckoutParams struct {
	Ref CatalogRef

	// CustomerEmail pre-fills the hosted payment page when known.
	CustomerEmail string
}

// CheckoutRedirect is where to send the customer to pay.
type CheckoutRedirect struct {
	SessionID string
	URL       string
}

// CheckoutService starts hosted checkout sessions for purchasable pieces.
type CheckoutService interface {
	BeginCheckout(ctx context.Context, params BeginCheckoutParams) (*CheckoutRedirect, error)
}

// FulfillmentService turns verified completed-checkout events into orders.
// Implementations must be idempotent per session ID and safe under
// concurrent delivery of the same event.
type FulfillmentService interface {
	FulfillCheckout(ctx context.Context, event CheckoutCompleted) (*FulfillmentResult, error)
}

// OrderStore provides read access to persisted orders.
type OrderStore interface {
	GetOrder(ctx context.Context, id pgtype.UUID) (*Order, error)
	GetOrderBySessionID(ctx context.Context, sessionID string) (*Order, error)
	GetOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error)
}
