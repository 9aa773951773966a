package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/campus-canteen/api/internal/database"
	"github.com/campus-canteen/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the wallet service.
var (
	ErrInvalidAmount = errors.New("amount must be > 0")
)

// WalletStore defines the DB methods needed for wallet top-ups.
// Satisfied by *database.Queries (and its WithTx variant).
type WalletStore interface {
	GetCustomerForUpdate(ctx context.Context, id uuid.UUID) (database.Customer, error)
	UpdateWalletBalance(ctx context.Context, arg database.UpdateWalletBalanceParams) (database.Customer, error)
	CreateWalletTransaction(ctx context.Context, arg database.CreateWalletTransactionParams) (database.WalletTransaction, error)
}

// NewWalletStore creates a WalletStore from a DBTX (pool or tx).
type NewWalletStore func(db database.DBTX) WalletStore

// WalletService handles wallet business logic.
type WalletService struct {
	pool     TxBeginner
	newStore NewWalletStore
}

// NewWalletService creates a new WalletService.
func NewWalletService(pool TxBeginner, newStore NewWalletStore) *WalletService {
	return &WalletService{pool: pool, newStore: newStore}
}

// TopUpResult is the recorded top-up with the customer's new balance.
type TopUpResult struct {
	Transaction database.WalletTransaction
	NewBalance  decimal.Decimal
}

// TopUp credits a customer's wallet atomically. The customer row is locked
// for the duration so concurrent top-ups and order debits serialize.
func (s *WalletService) TopUp(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) (*TopUpResult, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	customer, err := store.GetCustomerForUpdate(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("lock customer: %w", err)
	}

	newBalance := numericToDecimal(customer.WalletBalance).Add(amount)
	if _, err := store.UpdateWalletBalance(ctx, database.UpdateWalletBalanceParams{
		ID:            customerID,
		WalletBalance: decimalToNumeric(newBalance),
	}); err != nil {
		return nil, fmt.Errorf("credit wallet: %w", err)
	}

	walletTx, err := store.CreateWalletTransaction(ctx, database.CreateWalletTransactionParams{
		CustomerID:   customerID,
		OrderID:      pgtype.UUID{},
		Type:         enum.WalletTxTopUp,
		Amount:       decimalToNumeric(amount),
		BalanceAfter: decimalToNumeric(newBalance),
	})
	if err != nil {
		return nil, fmt.Errorf("record top-up: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &TopUpResult{Transaction: walletTx, NewBalance: newBalance}, nil
}
