package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Catalog-related domain errors.
var (
	ErrArtworkNotFound = &Error{Code: ENOTFOUND, Message: "Artwork not found"}
	ErrEditionNotFound = &Error{Code: ENOTFOUND, Message: "Edition not found"}
	ErrNotForSale      = &Error{Code: ECONFLICT, Message: "This piece is not available for purchase"}
	ErrSoldOut         = &Error{Code: ECONFLICT, Message: "This edition is sold out"}
)

// Metadata keys attached to hosted checkout sessions. The webhook reads
// these back to resolve what was bought.
const (
	MetadataCatalogType = "catalog_type"
	MetadataCatalogID   = "catalog_id"
)

// CatalogType discriminates the two purchasable shapes in the catalog.
type CatalogType string

const (
	CatalogTypeArtwork CatalogType = "artwork"
	CatalogTypeEdition CatalogType = "edition"
)

// Valid reports whether t is a known catalog type.
func (t CatalogType) Valid() bool {
	return t == CatalogTypeArtwork || t == CatalogTypeEdition
}

// CatalogRef points at exactly one catalog row: a one-of-a-kind artwork
// or an edition run.
type CatalogRef struct {
	Type CatalogType
	ID   pgtype.UUID
}

// ParseCatalogRef validates the shape of a raw reference (type string plus
// id string). It does NOT check that the row exists; an absent row is a
// resolution failure, not a malformed reference.
func ParseCatalogRef(rawType, rawID string) (CatalogRef, error) {
	t := CatalogType(rawType)
	if !t.Valid() {
		return CatalogRef{}, Errorf(EINVALID, "catalog.ref", "unknown catalog type: %q", rawType)
	}

	id, err := UUIDFromString(rawID)
	if err != nil {
		return CatalogRef{}, Errorf(EINVALID, "catalog.ref", "invalid catalog id: %q", rawID)
	}

	return CatalogRef{Type: t, ID: id}, nil
}

// ArtworkStatus is the lifecycle state of an artwork listing.
type ArtworkStatus string

const (
	ArtworkStatusDraft     ArtworkStatus = "draft"
	ArtworkStatusPublished ArtworkStatus = "published"
	ArtworkStatusArchived  ArtworkStatus = "archived"
)

// Artwork is a one-of-a-kind original piece. PriceCents is null while the
// piece is display-only. Completing a purchase does not change the row;
// availability is curated by gallery staff.
type Artwork struct {
	ID         pgtype.UUID
	Title      string
	Artist     string
	PriceCents pgtype.Int4
	Status     ArtworkStatus
	CreatedAt  pgtype.Timestamptz
}

// Purchasable reports whether the artwork can start a checkout session.
func (a *Artwork) Purchasable() bool {
	return a.Status == ArtworkStatusPublished && a.PriceCents.Valid && a.PriceCents.Int32 > 0
}

// Edition is a numbered print run of an artwork with finite stock.
// Stock is only ever changed by a conditional decrement; it cannot go
// negative.
type Edition struct {
	ID         pgtype.UUID
	ArtworkID  pgtype.UUID
	Title      string
	PriceCents int32
	Stock      int32
	CreatedAt  pgtype.Timestamptz
}

// Purchasable reports whether the edition can start a checkout session.
func (e *Edition) Purchasable() bool {
	return e.Stock > 0
}

// CatalogStore provides read access to the catalog.
type CatalogStore interface {
	GetArtwork(ctx context.Context, id pgtype.UUID) (*Artwork, error)
	GetEdition(ctx context.Context, id pgtype.UUID) (*Edition, error)
}

// UUIDFromString parses a string into a pgtype.UUID.
func UUIDFromString(s string) (pgtype.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, err
	}

	var id pgtype.UUID
	copy(id.Bytes[:], u[:])
	id.Valid = true
	return id, nil
}

// UUIDString renders a pgtype.UUID in canonical form, or "" when unset.
func UUIDString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
