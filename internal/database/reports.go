package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type TopCustomerRow struct {
	CustomerID pgtype.UUID
	Name       string
	Email      string
	OrderCount int64
	TotalSpent pgtype.Numeric
}

// GetTopCustomers returns customers whose delivered-order count exceeds the
// average delivered-order count across all customers with at least one
// delivered order. Empty when there are no delivered orders.
func (q *Queries) GetTopCustomers(ctx context.Context) ([]TopCustomerRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT c.id, c.name, c.email, COUNT(o.id), SUM(o.total_amount)
		FROM customers c
		JOIN orders o ON o.customer_id = c.id
		WHERE o.status = 'Delivered'
		GROUP BY c.id
		HAVING COUNT(o.id) > (
			SELECT AVG(cnt) FROM (
				SELECT COUNT(*) AS cnt
				FROM orders
				WHERE status = 'Delivered'
				GROUP BY customer_id
			) per_customer
		)
		ORDER BY COUNT(o.id) DESC, SUM(o.total_amount) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TopCustomerRow
	for rows.Next() {
		var r TopCustomerRow
		if err := rows.Scan(&r.CustomerID, &r.Name, &r.Email, &r.OrderCount, &r.TotalSpent); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type RecentOrderSummaryRow struct {
	OrderNumber  string
	CustomerName string
	Status       string
	TotalAmount  pgtype.Numeric
	Items        pgtype.Text
	CreatedAt    time.Time
}

func (q *Queries) GetRecentOrderSummaries(ctx context.Context, limit int32) ([]RecentOrderSummaryRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT o.order_number, c.name, o.status, o.total_amount,
		       string_agg(mi.name || ' x' || oi.quantity, ', ' ORDER BY mi.name),
		       o.created_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		LEFT JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN menu_items mi ON mi.id = oi.item_id
		GROUP BY o.id, c.name
		ORDER BY o.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RecentOrderSummaryRow
	for rows.Next() {
		var r RecentOrderSummaryRow
		if err := rows.Scan(&r.OrderNumber, &r.CustomerName, &r.Status, &r.TotalAmount, &r.Items, &r.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type CategorySalesRow struct {
	Category     string
	OrderCount   int64
	UnitsSold    int64
	Revenue      pgtype.Numeric
	AvgLineValue pgtype.Numeric
	MaxLineValue pgtype.Numeric
}

// GetCategorySales aggregates delivered-order lines per menu category.
// AVG/MAX over a non-empty group never divide by zero; categories with no
// delivered lines simply produce no row.
func (q *Queries) GetCategorySales(ctx context.Context) ([]CategorySalesRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT mi.category, COUNT(DISTINCT o.id), SUM(oi.quantity), SUM(oi.subtotal),
		       AVG(oi.subtotal), MAX(oi.subtotal)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN menu_items mi ON mi.id = oi.item_id
		WHERE o.status = 'Delivered'
		GROUP BY mi.category
		ORDER BY SUM(oi.subtotal) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CategorySalesRow
	for rows.Next() {
		var r CategorySalesRow
		if err := rows.Scan(&r.Category, &r.OrderCount, &r.UnitsSold, &r.Revenue, &r.AvgLineValue, &r.MaxLineValue); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type PeakHourRow struct {
	Hour       int32
	OrderCount int64
	Revenue    pgtype.Numeric
}

// GetPeakHours returns the five busiest hours of day by delivered orders.
func (q *Queries) GetPeakHours(ctx context.Context) ([]PeakHourRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT EXTRACT(HOUR FROM created_at)::int, COUNT(*), SUM(total_amount)
		FROM orders
		WHERE status = 'Delivered'
		GROUP BY 1
		ORDER BY COUNT(*) DESC
		LIMIT 5`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PeakHourRow
	for rows.Next() {
		var r PeakHourRow
		if err := rows.Scan(&r.Hour, &r.OrderCount, &r.Revenue); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type PopularItemRow struct {
	ItemID    pgtype.UUID
	Name      string
	Category  string
	UnitsSold int64
	Revenue   pgtype.Numeric
}

func (q *Queries) GetPopularItems(ctx context.Context, limit int32) ([]PopularItemRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT mi.id, mi.name, mi.category, SUM(oi.quantity), SUM(oi.subtotal)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN menu_items mi ON mi.id = oi.item_id
		WHERE o.status <> 'Cancelled'
		GROUP BY mi.id
		ORDER BY SUM(oi.quantity) DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PopularItemRow
	for rows.Next() {
		var r PopularItemRow
		if err := rows.Scan(&r.ItemID, &r.Name, &r.Category, &r.UnitsSold, &r.Revenue); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (q *Queries) CountActiveCustomers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE is_active`).Scan(&n)
	return n, err
}

func (q *Queries) CountOrdersSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE created_at >= $1`, since).Scan(&n)
	return n, err
}

func (q *Queries) GetRevenueSince(ctx context.Context, since time.Time) (pgtype.Numeric, error) {
	var total pgtype.Numeric
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0) FROM orders
		WHERE created_at >= $1 AND status = 'Delivered'`, since).Scan(&total)
	return total, err
}

func (q *Queries) CountOpenOrders(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE status IN ('Pending', 'Preparing')`).Scan(&n)
	return n, err
}
