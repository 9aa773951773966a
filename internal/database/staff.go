package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const staffColumns = `id, name, email, hashed_password, role, salary, is_active, created_at, updated_at`

func scanStaff(row interface{ Scan(dest ...any) error }) (Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.HashedPassword, &s.Role, &s.Salary, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (q *Queries) GetStaffByEmail(ctx context.Context, email string) (Staff, error) {
	row := q.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE email = $1`, email)
	return scanStaff(row)
}

func (q *Queries) GetStaffByID(ctx context.Context, id uuid.UUID) (Staff, error) {
	row := q.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id)
	return scanStaff(row)
}

type ListStaffRow struct {
	Staff
	Shifts pgtype.Text
}

func (q *Queries) ListStaff(ctx context.Context) ([]ListStaffRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT s.id, s.name, s.email, s.hashed_password, s.role, s.salary,
		       s.is_active, s.created_at, s.updated_at,
		       string_agg(ss.shift, ', ' ORDER BY ss.shift) AS shifts
		FROM staff s
		LEFT JOIN staff_shifts ss ON ss.staff_id = s.id
		GROUP BY s.id
		ORDER BY s.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ListStaffRow
	for rows.Next() {
		var r ListStaffRow
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Email, &r.HashedPassword, &r.Role, &r.Salary,
			&r.IsActive, &r.CreatedAt, &r.UpdatedAt, &r.Shifts,
		); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type CreateStaffParams struct {
	Name           string
	Email          string
	HashedPassword string
	Role           string
	Salary         pgtype.Numeric
}

func (q *Queries) CreateStaff(ctx context.Context, arg CreateStaffParams) (Staff, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO staff (name, email, hashed_password, role, salary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+staffColumns,
		arg.Name, arg.Email, arg.HashedPassword, arg.Role, arg.Salary)
	return scanStaff(row)
}

type UpdateStaffParams struct {
	ID     uuid.UUID
	Name   string
	Role   string
	Salary pgtype.Numeric
}

func (q *Queries) UpdateStaff(ctx context.Context, arg UpdateStaffParams) (Staff, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE staff SET name = $2, role = $3, salary = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+staffColumns,
		arg.ID, arg.Name, arg.Role, arg.Salary)
	return scanStaff(row)
}

func (q *Queries) SoftDeleteStaff(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, `
		UPDATE staff SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active
		RETURNING id`, id).Scan(&out)
	return out, err
}

func (q *Queries) DeleteStaffShifts(ctx context.Context, staffID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM staff_shifts WHERE staff_id = $1`, staffID)
	return err
}

type AddStaffShiftParams struct {
	StaffID uuid.UUID
	Shift   string
}

func (q *Queries) AddStaffShift(ctx context.Context, arg AddStaffShiftParams) (StaffShift, error) {
	var s StaffShift
	err := q.db.QueryRow(ctx, `
		INSERT INTO staff_shifts (staff_id, shift)
		VALUES ($1, $2)
		RETURNING id, staff_id, shift`,
		arg.StaffID, arg.Shift).Scan(&s.ID, &s.StaffID, &s.Shift)
	return s, err
}
