package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const offerColumns = `id, description, discount_percent, valid_until, is_active, created_at, updated_at`

func scanOffer(row interface{ Scan(dest ...any) error }) (Offer, error) {
	var o Offer
	err := row.Scan(&o.ID, &o.Description, &o.DiscountPercent, &o.ValidUntil, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (q *Queries) GetOffer(ctx context.Context, id uuid.UUID) (Offer, error) {
	row := q.db.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id)
	return scanOffer(row)
}

func (q *Queries) ListOffers(ctx context.Context) ([]Offer, error) {
	return q.queryOffers(ctx, `SELECT `+offerColumns+` FROM offers ORDER BY valid_until DESC`)
}

// ListActiveOffers returns offers usable for new menu links: active and not expired.
func (q *Queries) ListActiveOffers(ctx context.Context, now time.Time) ([]Offer, error) {
	return q.queryOffers(ctx, `
		SELECT `+offerColumns+` FROM offers
		WHERE is_active AND valid_until > $1
		ORDER BY valid_until DESC`, now)
}

func (q *Queries) queryOffers(ctx context.Context, sql string, args ...any) ([]Offer, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

type CreateOfferParams struct {
	Description     string
	DiscountPercent pgtype.Numeric
	ValidUntil      time.Time
}

func (q *Queries) CreateOffer(ctx context.Context, arg CreateOfferParams) (Offer, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO offers (description, discount_percent, valid_until)
		VALUES ($1, $2, $3)
		RETURNING `+offerColumns,
		arg.Description, arg.DiscountPercent, arg.ValidUntil)
	return scanOffer(row)
}

type UpdateOfferParams struct {
	ID              uuid.UUID
	Description     string
	DiscountPercent pgtype.Numeric
	ValidUntil      time.Time
}

func (q *Queries) UpdateOffer(ctx context.Context, arg UpdateOfferParams) (Offer, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE offers
		SET description = $2, discount_percent = $3, valid_until = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+offerColumns,
		arg.ID, arg.Description, arg.DiscountPercent, arg.ValidUntil)
	return scanOffer(row)
}

func (q *Queries) SoftDeleteOffer(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, `
		UPDATE offers SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active
		RETURNING id`, id).Scan(&out)
	return out, err
}
