package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, customer_id, status, payment_mode, total_amount, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.PaymentMode, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// GetNextOrderNumber computes the next sequential order number suffix.
// Concurrent transactions can read the same MAX; the unique constraint on
// order_number catches the race and the service retries.
func (q *Queries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM 5) AS INT)), 0) + 1
		FROM orders`).Scan(&n)
	return n, err
}

type CreateOrderParams struct {
	OrderNumber string
	CustomerID  uuid.UUID
	Status      string
	PaymentMode string
	TotalAmount pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (order_number, customer_id, status, payment_mode, total_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+orderColumns,
		arg.OrderNumber, arg.CustomerID, arg.Status, arg.PaymentMode, arg.TotalAmount)
	return scanOrder(row)
}

type CreateOrderItemParams struct {
	OrderID   uuid.UUID
	ItemID    uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Subtotal  pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var item OrderItem
	err := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, item_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, order_id, item_id, quantity, unit_price, subtotal`,
		arg.OrderID, arg.ItemID, arg.Quantity, arg.UnitPrice, arg.Subtotal,
	).Scan(&item.ID, &item.OrderID, &item.ItemID, &item.Quantity, &item.UnitPrice, &item.Subtotal)
	return item, err
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderForUpdate locks the order row so a status transition and its wallet
// side effects serialize against concurrent updates.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	return scanOrder(row)
}

type GetOrderForCustomerParams struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
}

func (q *Queries) GetOrderForCustomer(ctx context.Context, arg GetOrderForCustomerParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE id = $1 AND customer_id = $2`, arg.ID, arg.CustomerID)
	return scanOrder(row)
}

type GetOrderWithCustomerRow struct {
	Order
	CustomerName string
}

func (q *Queries) GetOrderWithCustomer(ctx context.Context, id uuid.UUID) (GetOrderWithCustomerRow, error) {
	var r GetOrderWithCustomerRow
	err := q.db.QueryRow(ctx, `
		SELECT o.id, o.order_number, o.customer_id, o.status, o.payment_mode,
		       o.total_amount, o.created_at, o.updated_at, c.name
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1`, id,
	).Scan(&r.ID, &r.OrderNumber, &r.CustomerID, &r.Status, &r.PaymentMode,
		&r.TotalAmount, &r.CreatedAt, &r.UpdatedAt, &r.CustomerName)
	return r, err
}

type ListOrdersParams struct {
	Status pgtype.Text
	Limit  int32
	Offset int32
}

type ListOrdersRow struct {
	Order
	CustomerName string
	ItemCount    int64
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]ListOrdersRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT o.id, o.order_number, o.customer_id, o.status, o.payment_mode,
		       o.total_amount, o.created_at, o.updated_at,
		       c.name, COUNT(oi.id) AS item_count
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		LEFT JOIN order_items oi ON oi.order_id = o.id
		WHERE ($1::text IS NULL OR o.status = $1)
		GROUP BY o.id, c.name
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3`,
		arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ListOrdersRow
	for rows.Next() {
		var r ListOrdersRow
		if err := rows.Scan(
			&r.ID, &r.OrderNumber, &r.CustomerID, &r.Status, &r.PaymentMode,
			&r.TotalAmount, &r.CreatedAt, &r.UpdatedAt,
			&r.CustomerName, &r.ItemCount,
		); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type ListOrdersByCustomerParams struct {
	CustomerID uuid.UUID
	Limit      int32
	Offset     int32
}

func (q *Queries) ListOrdersByCustomer(ctx context.Context, arg ListOrdersByCustomerParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		arg.CustomerID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

type CountOrdersByStatusRow struct {
	Status string
	Count  int64
}

func (q *Queries) CountOrdersByStatus(ctx context.Context) ([]CountOrdersByStatusRow, error) {
	rows, err := q.db.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CountOrdersByStatusRow
	for rows.Next() {
		var r CountOrdersByStatusRow
		if err := rows.Scan(&r.Status, &r.Count); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type OrderLineRow struct {
	ItemID    uuid.UUID
	ItemName  string
	Quantity  int32
	UnitPrice pgtype.Numeric
	Subtotal  pgtype.Numeric
}

// ListOrderLines returns an order's line items with their menu item names and
// the unit prices snapshotted at placement time.
func (q *Queries) ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]OrderLineRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT oi.item_id, mi.name, oi.quantity, oi.unit_price, oi.subtotal
		FROM order_items oi
		JOIN menu_items mi ON mi.id = oi.item_id
		WHERE oi.order_id = $1
		ORDER BY mi.name`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []OrderLineRow
	for rows.Next() {
		var r OrderLineRow
		if err := rows.Scan(&r.ItemID, &r.ItemName, &r.Quantity, &r.UnitPrice, &r.Subtotal); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	Status     string
	FromStatus string
}

// UpdateOrderStatus transitions an order, guarded by the status the caller
// read. No rows means the order vanished or another update won the race.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+orderColumns,
		arg.ID, arg.Status, arg.FromStatus)
	return scanOrder(row)
}
