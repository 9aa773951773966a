package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campus-canteen/api/internal/database"
	"github.com/campus-canteen/api/internal/enum"
	"github.com/campus-canteen/api/internal/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidPaymentMode  = errors.New("invalid payment_mode")
	ErrInvalidItemID       = errors.New("invalid item_id")
	ErrItemNotFound        = errors.New("menu item not found or unavailable")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidTransition   = errors.New("status transition not allowed")
	ErrStatusConflict      = errors.New("order status changed concurrently")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to place orders and move them
// through their status lifecycle. Satisfied by *database.Queries (and its
// WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context) (int32, error)
	GetCustomerForUpdate(ctx context.Context, id uuid.UUID) (database.Customer, error)
	GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (database.GetMenuItemForOrderRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateWalletBalance(ctx context.Context, arg database.UpdateWalletBalanceParams) (database.Customer, error)
	CreateWalletTransaction(ctx context.Context, arg database.CreateWalletTransactionParams) (database.WalletTransaction, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// PlaceOrderRequest is the validated input for placing an order.
type PlaceOrderRequest struct {
	CustomerID  uuid.UUID
	PaymentMode string
	Items       []PlaceOrderItemRequest
}

// PlaceOrderItemRequest is a single line in the order.
type PlaceOrderItemRequest struct {
	ItemID   string
	Quantity int32
}

// PlaceOrderResult is the created order with its lines. NewBalance is set
// only for wallet payments, holding the balance after the debit.
type PlaceOrderResult struct {
	Order      database.Order
	Items      []database.OrderItem
	NewBalance *decimal.Decimal
}

// allowedTransitions defines the order status lifecycle. Delivered and
// Cancelled are terminal; non-terminal orders only move forward.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:   {enum.OrderStatusPreparing, enum.OrderStatusDelivered, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusDelivered, enum.OrderStatusCancelled},
}

func isAllowedTransition(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// PlaceOrder validates, prices, and creates an order atomically, debiting the
// customer's wallet when payment_mode is WALLET. Retries up to
// maxOrderNumberRetries times on order_number unique constraint violations
// (race condition where concurrent transactions get the same MAX).
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if !isValidPaymentMode(req.PaymentMode) {
		return nil, ErrInvalidPaymentMode
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Retry loop: handles order_number unique constraint race condition.
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.placeOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

// placeOrderTx executes the full order placement in a single transaction.
func (s *OrderService) placeOrderTx(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Lock the customer row first. This serializes concurrent orders and
	// top-ups for the same customer, so the balance check below cannot race.
	customer, err := store.GetCustomerForUpdate(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("lock customer: %w", err)
	}

	nextNum, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	orderNumber := fmt.Sprintf("CTN-%03d", nextNum)

	// --- Resolve items: validate + snapshot effective prices ---
	now := time.Now()
	total := decimal.Zero
	var items []database.CreateOrderItemParams

	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		itemID, err := uuid.Parse(line.ItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidItemID)
		}
		item, err := store.GetMenuItemForOrder(ctx, itemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrItemNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}

		unitPrice := pricing.EffectiveUnitPrice(
			numericToDecimal(item.Price),
			numericToDecimal(item.DiscountPercent),
			item.OfferValidUntil.Time,
			item.OfferActive.Bool,
			now,
		)
		subtotal := unitPrice.Mul(decimal.NewFromInt32(line.Quantity))
		total = total.Add(subtotal)

		items = append(items, database.CreateOrderItemParams{
			ItemID:    itemID,
			Quantity:  line.Quantity,
			UnitPrice: decimalToNumeric(unitPrice),
			Subtotal:  decimalToNumeric(subtotal),
		})
	}

	if req.PaymentMode == enum.PaymentModeWallet {
		balance := numericToDecimal(customer.WalletBalance)
		if balance.LessThan(total) {
			return nil, ErrInsufficientBalance
		}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber: orderNumber,
		CustomerID:  req.CustomerID,
		Status:      enum.OrderStatusPending,
		PaymentMode: req.PaymentMode,
		TotalAmount: decimalToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var itemResults []database.OrderItem
	for _, params := range items {
		params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		itemResults = append(itemResults, item)
	}

	var newBalance *decimal.Decimal
	if req.PaymentMode == enum.PaymentModeWallet {
		debited := numericToDecimal(customer.WalletBalance).Sub(total)
		newBalance = &debited
		// A fully discounted order debits nothing; the ledger only
		// records positive amounts.
		if total.IsPositive() {
			if _, err := store.UpdateWalletBalance(ctx, database.UpdateWalletBalanceParams{
				ID:            req.CustomerID,
				WalletBalance: decimalToNumeric(debited),
			}); err != nil {
				return nil, fmt.Errorf("debit wallet: %w", err)
			}
			if _, err := store.CreateWalletTransaction(ctx, database.CreateWalletTransactionParams{
				CustomerID:   req.CustomerID,
				OrderID:      pgtype.UUID{Bytes: order.ID, Valid: true},
				Type:         enum.WalletTxDebit,
				Amount:       decimalToNumeric(total),
				BalanceAfter: decimalToNumeric(debited),
			}); err != nil {
				return nil, fmt.Errorf("record wallet debit: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &PlaceOrderResult{Order: order, Items: itemResults, NewBalance: newBalance}, nil
}

// UpdateStatus transitions an order to a new status. Cancelling a WALLET
// order refunds the full amount back to the customer's wallet in the same
// transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (*database.Order, error) {
	if !isValidStatus(newStatus) {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	if !isAllowedTransition(order.Status, newStatus) {
		return nil, ErrInvalidTransition
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         orderID,
		Status:     newStatus,
		FromStatus: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	// Nothing to refund for a zero-total order.
	if newStatus == enum.OrderStatusCancelled && order.PaymentMode == enum.PaymentModeWallet &&
		numericToDecimal(order.TotalAmount).IsPositive() {
		if err := s.refundOrder(ctx, store, order); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, nil
}

// refundOrder credits the full order amount back to the customer's wallet.
// Runs inside the status transition transaction.
func (s *OrderService) refundOrder(ctx context.Context, store OrderStore, order database.Order) error {
	customer, err := store.GetCustomerForUpdate(ctx, order.CustomerID)
	if err != nil {
		return fmt.Errorf("lock customer for refund: %w", err)
	}
	amount := numericToDecimal(order.TotalAmount)
	newBalance := numericToDecimal(customer.WalletBalance).Add(amount)
	if _, err := store.UpdateWalletBalance(ctx, database.UpdateWalletBalanceParams{
		ID:            order.CustomerID,
		WalletBalance: decimalToNumeric(newBalance),
	}); err != nil {
		return fmt.Errorf("credit refund: %w", err)
	}
	if _, err := store.CreateWalletTransaction(ctx, database.CreateWalletTransactionParams{
		CustomerID:   order.CustomerID,
		OrderID:      pgtype.UUID{Bytes: order.ID, Valid: true},
		Type:         enum.WalletTxRefund,
		Amount:       decimalToNumeric(amount),
		BalanceAfter: decimalToNumeric(newBalance),
	}); err != nil {
		return fmt.Errorf("record refund: %w", err)
	}
	return nil
}

// --- Helpers ---

func isValidPaymentMode(s string) bool {
	switch s {
	case enum.PaymentModeWallet, enum.PaymentModeUPI, enum.PaymentModeCard:
		return true
	}
	return false
}

func isValidStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusPreparing,
		enum.OrderStatusDelivered, enum.OrderStatusCancelled:
		return true
	}
	return false
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
