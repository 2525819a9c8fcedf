package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galleryworks/atelier/internal/domain"
)

// Store provides pgx-backed persistence for the catalog and orders.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var (
	_ domain.CatalogStore     = (*Store)(nil)
	_ domain.OrderStore       = (*Store)(nil)
	_ domain.FulfillmentStore = (*Store)(nil)
)

// NewStore creates a store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// dbtx is the query surface shared by *pgxpool.Pool and pgx.Tx, so the same
// query functions serve pooled reads and in-transaction reads.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BeginFulfillment opens a fulfillment transaction.
func (s *Store) BeginFulfillment(ctx context.Context) (domain.FulfillmentTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.Internal(err, "store.begin", "failed to begin transaction")
	}
	return &fulfillmentTx{tx: tx}, nil
}

// fulfillmentTx adapts a pgx.Tx to domain.FulfillmentTx.
type fulfillmentTx struct {
	tx pgx.Tx
}

var _ domain.FulfillmentTx = (*fulfillmentTx)(nil)

func (f *fulfillmentTx) Commit(ctx context.Context) error {
	if err := f.tx.Commit(ctx); err != nil {
		return domain.Internal(err, "store.commit", "failed to commit transaction")
	}
	return nil
}

func (f *fulfillmentTx) Rollback(ctx context.Context) error {
	err := f.tx.Rollback(ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return err
	}
	return nil
}
