package database

import (
	"context"

	"github.com/google/uuid"
)

const adminColumns = `id, name, email, hashed_password, is_active, created_at, updated_at`

func scanAdmin(row interface{ Scan(dest ...any) error }) (Admin, error) {
	var a Admin
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.HashedPassword, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (Admin, error) {
	row := q.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email)
	return scanAdmin(row)
}

func (q *Queries) GetAdminByID(ctx context.Context, id uuid.UUID) (Admin, error) {
	row := q.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id)
	return scanAdmin(row)
}
