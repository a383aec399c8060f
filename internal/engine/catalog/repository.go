package catalog

import (
	"context"
	"database/sql"
	"errors"

	"storefront/internal/platform/models"
)

var ErrVariantNotFound = errors.New("variant not found")

// Repository is the narrow slice of the catalog the fulfillment core depends
// on: snapshot lookup and the guarded decrement. Catalog management (pricing,
// activation, restocks) lives with a separate collaborator that edits the
// same tables directly.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetBySlugAndSize loads a variant joined with its item, as the checkout
// path needs both activity flags.
func (r *Repository) GetBySlugAndSize(ctx context.Context, slug, size string) (*models.Variant, error) {
	query := `
		SELECT v.id, v.item_id, v.size, v.active, v.stock, v.price_cents, COALESCE(v.price_id, ''),
		       i.id, i.slug, i.title, i.active
		FROM items i
		JOIN variants v ON v.item_id = i.id
		WHERE i.slug = ? AND v.size = ?
	`

	var v models.Variant
	var item models.Item
	err := r.db.QueryRowContext(ctx, query, slug, size).Scan(
		&v.ID, &v.ItemID, &v.Size, &v.Active, &v.Stock, &v.PriceCents, &v.PriceID,
		&item.ID, &item.Slug, &item.Title, &item.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}

	v.Item = &item
	return &v, nil
}

// SnapshotByPriceID returns the purchase-time snapshot for a price id, or
// (nil, nil) when the catalog row no longer exists. Absence is a data-quality
// signal, not a fulfillment blocker.
func (r *Repository) SnapshotByPriceID(ctx context.Context, priceID string) (*models.VariantSnapshot, error) {
	query := `
		SELECT item_id, size, price_cents
		FROM variants
		WHERE price_id = ?
		LIMIT 1
	`

	var snap models.VariantSnapshot
	err := r.db.QueryRowContext(ctx, query, priceID).Scan(&snap.ItemID, &snap.Size, &snap.PriceCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &snap, nil
}

// ConditionalDecrement applies a single guarded update: the stock only moves
// when the variant is active and holds at least qty units. The returned
// rows-affected count is the sole success signal; zero means out of stock,
// deactivated, or an unknown price id. There is deliberately no
// read-then-write variant of this.
func (r *Repository) ConditionalDecrement(ctx context.Context, tx *sql.Tx, priceID string, qty int) (int64, error) {
	query := `
		UPDATE variants
		SET stock = stock - ?, updated_at = strftime('%s', 'now')
		WHERE price_id = ?
		  AND active = 1
		  AND stock >= ?
	`

	res, err := tx.ExecContext(ctx, query, qty, priceID, qty)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
