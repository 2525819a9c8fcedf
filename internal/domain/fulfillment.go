package domain

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// CreateOrderParams is the order row written by fulfillment.
type CreateOrderParams struct {
	SessionID        string
	Status           OrderStatus
	AmountTotalCents int64
	Currency         string
	CustomerEmail    string
	CustomerName     string
	Flagged          bool
	FlagReason       string
}

// CreateOrderItemParams is the line item written alongside the order.
// At most one of ArtworkID/EditionID may be valid; both stay unset when the
// catalog reference could not be resolved.
type CreateOrderItemParams struct {
	OrderID        pgtype.UUID
	ArtworkID      pgtype.UUID
	EditionID      pgtype.UUID
	Quantity       int32
	UnitPriceCents int64
	TitleSnapshot  string
}

// FulfillmentStore opens fulfillment transactions and serves the
// out-of-transaction order reads the pipeline and handlers need.
type FulfillmentStore interface {
	OrderStore

	BeginFulfillment(ctx context.Context) (FulfillmentTx, error)
}

// FulfillmentTx is one fulfillment transaction. All reads and writes see a
// single consistent snapshot; nothing is visible to other sessions until
// Commit. Rollback after Commit is a no-op, so it is safe to defer.
type FulfillmentTx interface {
	GetOrderBySessionID(ctx context.Context, sessionID string) (*Order, error)
	GetArtwork(ctx context.Context, id pgtype.UUID) (*Artwork, error)
	GetEdition(ctx context.Context, id pgtype.UUID) (*Edition, error)

	// DecrementEditionStock atomically decrements stock when it is still
	// positive. Returns false when stock was already zero or the edition
	// does not exist. Implementations must decide from rows affected,
	// never from a prior read.
	DecrementEditionStock(ctx context.Context, id pgtype.UUID) (bool, error)

	// InsertOrder inserts the order row, relying on the unique session-id
	// constraint for idempotency. A concurrent duplicate that already
	// claimed the session surfaces as ErrSessionAlreadyProcessed.
	InsertOrder(ctx context.Context, params CreateOrderParams) (*Order, error)

	InsertOrderItem(ctx context.Context, params CreateOrderItemParams) (*OrderItem, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
