package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/campus-canteen/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Errors returned by the staff service.
var (
	ErrStaffNotFound = errors.New("staff member not found")
)

// StaffStore defines the DB methods needed for staff writes.
// Satisfied by *database.Queries (and its WithTx variant).
type StaffStore interface {
	GetStaffByID(ctx context.Context, id uuid.UUID) (database.Staff, error)
	CreateStaff(ctx context.Context, arg database.CreateStaffParams) (database.Staff, error)
	DeleteStaffShifts(ctx context.Context, staffID uuid.UUID) error
	AddStaffShift(ctx context.Context, arg database.AddStaffShiftParams) (database.StaffShift, error)
}

// NewStaffStore creates a StaffStore from a DBTX (pool or tx).
type NewStaffStore func(db database.DBTX) StaffStore

// StaffService handles transactional staff writes.
type StaffService struct {
	pool     TxBeginner
	newStore NewStaffStore
}

// NewStaffService creates a new StaffService.
func NewStaffService(pool TxBeginner, newStore NewStaffStore) *StaffService {
	return &StaffService{pool: pool, newStore: newStore}
}

// CreateWithShifts inserts a staff member and their initial shift
// assignments in one transaction, so a shift failure rolls back the whole
// creation instead of leaving a partial shift set.
func (s *StaffService) CreateWithShifts(ctx context.Context, arg database.CreateStaffParams, shifts []string) (*database.Staff, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	staff, err := store.CreateStaff(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("create staff: %w", err)
	}

	for _, shift := range shifts {
		if _, err := store.AddStaffShift(ctx, database.AddStaffShiftParams{
			StaffID: staff.ID,
			Shift:   shift,
		}); err != nil {
			return nil, fmt.Errorf("add shift %s: %w", shift, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &staff, nil
}

// ReplaceShifts swaps a staff member's shift assignments for the given set
// atomically.
func (s *StaffService) ReplaceShifts(ctx context.Context, staffID uuid.UUID, shifts []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetStaffByID(ctx, staffID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStaffNotFound
		}
		return fmt.Errorf("get staff: %w", err)
	}

	if err := store.DeleteStaffShifts(ctx, staffID); err != nil {
		return fmt.Errorf("clear shifts: %w", err)
	}
	for _, shift := range shifts {
		if _, err := store.AddStaffShift(ctx, database.AddStaffShiftParams{
			StaffID: staffID,
			Shift:   shift,
		}); err != nil {
			return fmt.Errorf("add shift %s: %w", shift, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
