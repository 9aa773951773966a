package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, price, category, offer_id, is_active, created_at, updated_at`

func scanMenuItem(row interface{ Scan(dest ...any) error }) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Price, &m.Category, &m.OfferID, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE id = $1`, id)
	return scanMenuItem(row)
}

// MenuItemWithOfferRow carries a menu item together with its linked offer, if
// any. Offer fields are null when the item has no offer. Callers resolve the
// effective price through the pricing package so the displayed price and the
// charged price can never drift.
type MenuItemWithOfferRow struct {
	MenuItem
	OfferDescription pgtype.Text
	DiscountPercent  pgtype.Numeric
	OfferValidUntil  pgtype.Timestamptz
	OfferActive      pgtype.Bool
}

const menuItemWithOfferSelect = `
	SELECT mi.id, mi.name, mi.price, mi.category, mi.offer_id, mi.is_active,
	       mi.created_at, mi.updated_at,
	       o.description, o.discount_percent, o.valid_until, o.is_active
	FROM menu_items mi
	LEFT JOIN offers o ON o.id = mi.offer_id`

func (q *Queries) queryMenuItemsWithOffer(ctx context.Context, sql string, args ...any) ([]MenuItemWithOfferRow, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MenuItemWithOfferRow
	for rows.Next() {
		var r MenuItemWithOfferRow
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Price, &r.Category, &r.OfferID, &r.IsActive,
			&r.CreatedAt, &r.UpdatedAt,
			&r.OfferDescription, &r.DiscountPercent, &r.OfferValidUntil, &r.OfferActive,
		); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ListMenuItems returns the full menu including soft-deleted items, for admin views.
func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItemWithOfferRow, error) {
	return q.queryMenuItemsWithOffer(ctx, menuItemWithOfferSelect+`
	ORDER BY mi.category, mi.name`)
}

type ListActiveMenuItemsParams struct {
	Category pgtype.Text
}

// ListActiveMenuItems returns the customer-facing catalog.
func (q *Queries) ListActiveMenuItems(ctx context.Context, arg ListActiveMenuItemsParams) ([]MenuItemWithOfferRow, error) {
	return q.queryMenuItemsWithOffer(ctx, menuItemWithOfferSelect+`
	WHERE mi.is_active AND ($1::text IS NULL OR mi.category = $1)
	ORDER BY mi.category, mi.name`, arg.Category)
}

// GetMenuItemForOrderRow is the pricing snapshot read during order placement.
type GetMenuItemForOrderRow struct {
	ID              uuid.UUID
	Name            string
	Price           pgtype.Numeric
	DiscountPercent pgtype.Numeric
	OfferValidUntil pgtype.Timestamptz
	OfferActive     pgtype.Bool
}

// GetMenuItemForOrder resolves an active item with its offer fields.
// Inactive (soft-deleted) items are not orderable and return no rows.
func (q *Queries) GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (GetMenuItemForOrderRow, error) {
	var r GetMenuItemForOrderRow
	err := q.db.QueryRow(ctx, `
		SELECT mi.id, mi.name, mi.price,
		       o.discount_percent, o.valid_until, o.is_active
		FROM menu_items mi
		LEFT JOIN offers o ON o.id = mi.offer_id
		WHERE mi.id = $1 AND mi.is_active`, id,
	).Scan(&r.ID, &r.Name, &r.Price, &r.DiscountPercent, &r.OfferValidUntil, &r.OfferActive)
	return r, err
}

type CreateMenuItemParams struct {
	Name     string
	Price    pgtype.Numeric
	Category string
	OfferID  pgtype.UUID
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO menu_items (name, price, category, offer_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+menuItemColumns,
		arg.Name, arg.Price, arg.Category, arg.OfferID)
	return scanMenuItem(row)
}

type UpdateMenuItemParams struct {
	ID       uuid.UUID
	Name     string
	Price    pgtype.Numeric
	Category string
	OfferID  pgtype.UUID
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE menu_items
		SET name = $2, price = $3, category = $4, offer_id = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+menuItemColumns,
		arg.ID, arg.Name, arg.Price, arg.Category, arg.OfferID)
	return scanMenuItem(row)
}

func (q *Queries) SoftDeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, `
		UPDATE menu_items SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active
		RETURNING id`, id).Scan(&out)
	return out, err
}
