package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/galleryworks/atelier/internal/domain"
)

const getArtworkQuery = `
SELECT id, title, artist, price_cents, status, created_at
FROM artworks
WHERE id = $1`

func getArtwork(ctx context.Context, db dbtx, id pgtype.UUID) (*domain.Artwork, error) {
	var a domain.Artwork
	err := db.QueryRow(ctx, getArtworkQuery, id).Scan(
		&a.ID,
		&a.Title,
		&a.Artist,
		&a.PriceCents,
		&a.Status,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrArtworkNotFound
		}
		return nil, domain.Internal(err, "catalog.get_artwork", "failed to load artwork")
	}
	return &a, nil
}

const getEditionQuery = `
SELECT id, artwork_id, title, price_cents, stock, created_at
FROM editions
WHERE id = $1`

func getEdition(ctx context.Context, db dbtx, id pgtype.UUID) (*domain.Edition, error) {
	var e domain.Edition
	err := db.QueryRow(ctx, getEditionQuery, id).Scan(
		&e.ID,
		&e.ArtworkID,
		&e.Title,
		&e.PriceCents,
		&e.Stock,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEditionNotFound
		}
		return nil, domain.Internal(err, "catalog.get_edition", "failed to load edition")
	}
	return &e, nil
}

// Stock only moves through this statement. The WHERE clause is the whole
// point: the decrement and the stock check are one atomic operation, and
// rows-affected is the verdict.
const decrementEditionStockQuery = `
UPDATE editions
SET stock = stock - 1
WHERE id = $1 AND stock > 0`

func decrementEditionStock(ctx context.Context, db dbtx, id pgtype.UUID) (bool, error) {
	tag, err := db.Exec(ctx, decrementEditionStockQuery, id)
	if err != nil {
		return false, domain.Internal(err, "catalog.decrement_stock", "failed to decrement edition stock")
	}
	return tag.RowsAffected() == 1, nil
}

// GetArtwork loads an artwork outside any transaction.
func (s *Store) GetArtwork(ctx context.Context, id pgtype.UUID) (*domain.Artwork, error) {
	return getArtwork(ctx, s.pool, id)
}

// GetEdition loads an edition outside any transaction.
func (s *Store) GetEdition(ctx context.Context, id pgtype.UUID) (*domain.Edition, error) {
	return getEdition(ctx, s.pool, id)
}

func (f *fulfillmentTx) GetArtwork(ctx context.Context, id pgtype.UUID) (*domain.Artwork, error) {
	return getArtwork(ctx, f.tx, id)
}

func (f *fulfillmentTx) GetEdition(ctx context.Context, id pgtype.UUID) (*domain.Edition, error) {
	return getEdition(ctx, f.tx, id)
}

func (f *fulfillmentTx) DecrementEditionStock(ctx context.Context, id pgtype.UUID) (bool, error) {
	return decrementEditionStock(ctx, f.tx, id)
}
