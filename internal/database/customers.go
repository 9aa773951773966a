package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const customerColumns = `id, name, email, hashed_password, date_of_birth, wallet_balance, is_active, created_at, updated_at`

func scanCustomer(row interface{ Scan(dest ...any) error }) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.HashedPassword,
		&c.DateOfBirth,
		&c.WalletBalance,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

func (q *Queries) GetCustomerByID(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := q.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

func (q *Queries) GetCustomerByEmail(ctx context.Context, email string) (Customer, error) {
	row := q.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE email = $1`, email)
	return scanCustomer(row)
}

// GetCustomerForUpdate locks the customer row for the life of the enclosing
// transaction. All wallet balance mutations go through this lock.
func (q *Queries) GetCustomerForUpdate(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := q.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, id)
	return scanCustomer(row)
}

type ListCustomersParams struct {
	Limit  int32
	Offset int32
	Search pgtype.Text
}

type ListCustomersRow struct {
	Customer
	Phones pgtype.Text
}

func (q *Queries) ListCustomers(ctx context.Context, arg ListCustomersParams) ([]ListCustomersRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT c.id, c.name, c.email, c.hashed_password, c.date_of_birth,
		       c.wallet_balance, c.is_active, c.created_at, c.updated_at,
		       string_agg(cp.phone, ', ' ORDER BY cp.phone) AS phones
		FROM customers c
		LEFT JOIN customer_phones cp ON cp.customer_id = c.id
		WHERE ($3::text IS NULL OR c.name ILIKE '%' || $3 || '%' OR c.email ILIKE '%' || $3 || '%')
		GROUP BY c.id
		ORDER BY c.name
		LIMIT $1 OFFSET $2`,
		arg.Limit, arg.Offset, arg.Search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ListCustomersRow
	for rows.Next() {
		var r ListCustomersRow
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Email, &r.HashedPassword, &r.DateOfBirth,
			&r.WalletBalance, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
			&r.Phones,
		); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type CreateCustomerParams struct {
	Name           string
	Email          string
	HashedPassword string
	DateOfBirth    pgtype.Date
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO customers (name, email, hashed_password, date_of_birth)
		VALUES ($1, $2, $3, $4)
		RETURNING `+customerColumns,
		arg.Name, arg.Email, arg.HashedPassword, arg.DateOfBirth)
	return scanCustomer(row)
}

type UpdateCustomerParams struct {
	ID          uuid.UUID
	Name        string
	Email       string
	DateOfBirth pgtype.Date
}

func (q *Queries) UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE customers
		SET name = $2, email = $3, date_of_birth = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns,
		arg.ID, arg.Name, arg.Email, arg.DateOfBirth)
	return scanCustomer(row)
}

func (q *Queries) SoftDeleteCustomer(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, `
		UPDATE customers SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active
		RETURNING id`, id).Scan(&out)
	return out, err
}

type UpdateWalletBalanceParams struct {
	ID            uuid.UUID
	WalletBalance pgtype.Numeric
}

func (q *Queries) UpdateWalletBalance(ctx context.Context, arg UpdateWalletBalanceParams) (Customer, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE customers SET wallet_balance = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns,
		arg.ID, arg.WalletBalance)
	return scanCustomer(row)
}

type AddCustomerPhoneParams struct {
	CustomerID uuid.UUID
	Phone      string
}

func (q *Queries) AddCustomerPhone(ctx context.Context, arg AddCustomerPhoneParams) (CustomerPhone, error) {
	var p CustomerPhone
	err := q.db.QueryRow(ctx, `
		INSERT INTO customer_phones (customer_id, phone)
		VALUES ($1, $2)
		RETURNING id, customer_id, phone, created_at`,
		arg.CustomerID, arg.Phone).Scan(&p.ID, &p.CustomerID, &p.Phone, &p.CreatedAt)
	return p, err
}

type DeleteCustomerPhoneParams struct {
	CustomerID uuid.UUID
	Phone      string
}

func (q *Queries) DeleteCustomerPhone(ctx context.Context, arg DeleteCustomerPhoneParams) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM customer_phones WHERE customer_id = $1 AND phone = $2`,
		arg.CustomerID, arg.Phone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) ListCustomerPhones(ctx context.Context, customerID uuid.UUID) ([]CustomerPhone, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, customer_id, phone, created_at
		FROM customer_phones WHERE customer_id = $1 ORDER BY phone`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CustomerPhone
	for rows.Next() {
		var p CustomerPhone
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.Phone, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
