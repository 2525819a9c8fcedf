package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/galleryworks/atelier/internal/domain"
)

const getOrderBySessionIDQuery = `
SELECT id, stripe_session_id, status, amount_total_cents, currency,
       customer_email, customer_name, flagged, flag_reason, created_at
FROM orders
WHERE stripe_session_id = $1`

func getOrderBySessionID(ctx context.Context, db dbtx, sessionID string) (*domain.Order, error) {
	var o domain.Order
	err := db.QueryRow(ctx, getOrderBySessionIDQuery, sessionID).Scan(
		&o.ID,
		&o.StripeSessionID,
		&o.Status,
		&o.AmountTotalCents,
		&o.Currency,
		&o.CustomerEmail,
		&o.CustomerName,
		&o.Flagged,
		&o.FlagReason,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, "order.get_by_session", "failed to load order")
	}
	return &o, nil
}

// The unique index on stripe_session_id is what makes fulfillment
// idempotent under concurrent delivery. DO NOTHING + RETURNING yields no
// row for the loser, which surfaces as ErrSessionAlreadyProcessed.
const insertOrderQuery = `
INSERT INTO orders (stripe_session_id, status, amount_total_cents, currency,
                    customer_email, customer_name, flagged, flag_reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
ON CONFLICT (stripe_session_id) DO NOTHING
RETURNING id, created_at`

func insertOrder(ctx context.Context, db dbtx, params domain.CreateOrderParams) (*domain.Order, error) {
	o := domain.Order{
		StripeSessionID:  params.SessionID,
		Status:           params.Status,
		AmountTotalCents: params.AmountTotalCents,
		Currency:         params.Currency,
		CustomerEmail:    params.CustomerEmail,
		CustomerName:     params.CustomerName,
		Flagged:          params.Flagged,
	}
	if params.FlagReason != "" {
		o.FlagReason = pgtype.Text{String: params.FlagReason, Valid: true}
	}

	err := db.QueryRow(ctx, insertOrderQuery,
		params.SessionID,
		params.Status,
		params.AmountTotalCents,
		params.Currency,
		params.CustomerEmail,
		params.CustomerName,
		params.Flagged,
		params.FlagReason,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionAlreadyProcessed
		}
		return nil, domain.Internal(err, "order.insert", "failed to insert order")
	}
	return &o, nil
}

const insertOrderItemQuery = `
INSERT INTO order_items (order_id, artwork_id, edition_id, quantity,
                         unit_price_cents, title_snapshot)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`

func insertOrderItem(ctx context.Context, db dbtx, params domain.CreateOrderItemParams) (*domain.OrderItem, error) {
	item := domain.OrderItem{
		OrderID:        params.OrderID,
		ArtworkID:      params.ArtworkID,
		EditionID:      params.EditionID,
		Quantity:       params.Quantity,
		UnitPriceCents: params.UnitPriceCents,
		TitleSnapshot:  params.TitleSnapshot,
	}

	err := db.QueryRow(ctx, insertOrderItemQuery,
		params.OrderID,
		params.ArtworkID,
		params.EditionID,
		params.Quantity,
		params.UnitPriceCents,
		params.TitleSnapshot,
	).Scan(&item.ID)
	if err != nil {
		return nil, domain.Internal(err, "order.insert_item", "failed to insert order item")
	}
	return &item, nil
}

const getOrderItemsQuery = `
SELECT id, order_id, artwork_id, edition_id, quantity, unit_price_cents, title_snapshot
FROM order_items
WHERE order_id = $1
ORDER BY id`

func getOrderItems(ctx context.Context, db dbtx, orderID pgtype.UUID) ([]domain.OrderItem, error) {
	rows, err := db.Query(ctx, getOrderItemsQuery, orderID)
	if err != nil {
		return nil, domain.Internal(err, "order.get_items", "failed to load order items")
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ArtworkID,
			&item.EditionID,
			&item.Quantity,
			&item.UnitPriceCents,
			&item.TitleSnapshot,
		); err != nil {
			return nil, domain.Internal(err, "order.get_items", "failed to scan order item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "order.get_items", "failed to read order items")
	}
	return items, nil
}

const getOrderQuery = `
SELECT id, stripe_session_id, status, amount_total_cents, currency,
       customer_email, customer_name, flagged, flag_reason, created_at
FROM orders
WHERE id = $1`

// GetOrder loads an order by primary key.
func (s *Store) GetOrder(ctx context.Context, id pgtype.UUID) (*domain.Order, error) {
	var o domain.Order
	err := s.pool.QueryRow(ctx, getOrderQuery, id).Scan(
		&o.ID,
		&o.StripeSessionID,
		&o.Status,
		&o.AmountTotalCents,
		&o.Currency,
		&o.CustomerEmail,
		&o.CustomerName,
		&o.Flagged,
		&o.FlagReason,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, "order.get", "failed to load order")
	}
	return &o, nil
}

// GetOrderBySessionID loads an order outside any transaction. Used by the
// confirmation endpoint and by fulfillment to fetch the winning row after
// losing an insert race.
func (s *Store) GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	return getOrderBySessionID(ctx, s.pool, sessionID)
}

// GetOrderItems loads the items for an order.
func (s *Store) GetOrderItems(ctx context.Context, orderID pgtype.UUID) ([]domain.OrderItem, error) {
	return getOrderItems(ctx, s.pool, orderID)
}

func (f *fulfillmentTx) GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	return getOrderBySessionID(ctx, f.tx, sessionID)
}

func (f *fulfillmentTx) InsertOrder(ctx context.Context, params domain.CreateOrderParams) (*domain.Order, error) {
	return insertOrder(ctx, f.tx, params)
}

func (f *fulfillmentTx) InsertOrderItem(ctx context.Context, params domain.CreateOrderItemParams) (*domain.OrderItem, error) {
	return insertOrderItem(ctx, f.tx, params)
}
