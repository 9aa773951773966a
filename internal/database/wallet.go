package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateWalletTransactionParams struct {
	CustomerID   uuid.UUID
	OrderID      pgtype.UUID
	Type         string
	Amount       pgtype.Numeric
	BalanceAfter pgtype.Numeric
}

func (q *Queries) CreateWalletTransaction(ctx context.Context, arg CreateWalletTransactionParams) (WalletTransaction, error) {
	var tx WalletTransaction
	err := q.db.QueryRow(ctx, `
		INSERT INTO wallet_transactions (customer_id, order_id, type, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, customer_id, order_id, type, amount, balance_after, created_at`,
		arg.CustomerID, arg.OrderID, arg.Type, arg.Amount, arg.BalanceAfter,
	).Scan(&tx.ID, &tx.CustomerID, &tx.OrderID, &tx.Type, &tx.Amount, &tx.BalanceAfter, &tx.CreatedAt)
	return tx, err
}

type ListWalletTransactionsParams struct {
	CustomerID uuid.UUID
	Limit      int32
	Offset     int32
}

func (q *Queries) ListWalletTransactions(ctx context.Context, arg ListWalletTransactionsParams) ([]WalletTransaction, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, customer_id, order_id, type, amount, balance_after, created_at
		FROM wallet_transactions
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		arg.CustomerID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WalletTransaction
	for rows.Next() {
		var tx WalletTransaction
		if err := rows.Scan(&tx.ID, &tx.CustomerID, &tx.OrderID, &tx.Type, &tx.Amount, &tx.BalanceAfter, &tx.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}
