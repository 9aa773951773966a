package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/campus-canteen/api/internal/database"
	"github.com/campus-canteen/api/internal/middleware"
	"github.com/campus-canteen/api/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletQueryStore defines the read-side database methods needed by wallet
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type WalletQueryStore interface {
	GetCustomerByID(ctx context.Context, id uuid.UUID) (database.Customer, error)
	ListWalletTransactions(ctx context.Context, arg database.ListWalletTransactionsParams) ([]database.WalletTransaction, error)
}

// TopUpper is the business-logic surface the handler drives.
// Satisfied by *service.WalletService.
type TopUpper interface {
	TopUp(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) (*service.TopUpResult, error)
}

// WalletHandler handles the customer wallet endpoints.
type WalletHandler struct {
	svc   TopUpper
	store WalletQueryStore
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(svc TopUpper, store WalletQueryStore) *WalletHandler {
	return &WalletHandler{svc: svc, store: store}
}

// --- Request / Response types ---

type topUpRequest struct {
	Amount string `json:"amount"`
}

type walletTransactionResponse struct {
	ID           uuid.UUID `json:"id"`
	OrderID      *string   `json:"order_id"`
	Type         string    `json:"type"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

type walletResponse struct {
	Balance      string                      `json:"balance"`
	Transactions []walletTransactionResponse `json:"transactions"`
}

type topUpResponse struct {
	NewBalance  string                    `json:"new_balance"`
	Transaction walletTransactionResponse `json:"transaction"`
}

func toWalletTransactionResponse(tx database.WalletTransaction) walletTransactionResponse {
	resp := walletTransactionResponse{
		ID:           tx.ID,
		Type:         tx.Type,
		Amount:       numericToString(tx.Amount),
		BalanceAfter: numericToString(tx.BalanceAfter),
		CreatedAt:    tx.CreatedAt,
	}
	if tx.OrderID.Valid {
		s := uuid.UUID(tx.OrderID.Bytes).String()
		resp.OrderID = &s
	}
	return resp
}

// --- Handlers ---

// Get returns the authenticated customer's balance and recent transactions.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	customer, err := h.store.GetCustomerByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		log.Printf("ERROR: get wallet: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	params := database.ListWalletTransactionsParams{
		CustomerID: claims.UserID,
		Limit:      50,
		Offset:     0,
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			params.Limit = int32(n)
		}
	}

	transactions, err := h.store.ListWalletTransactions(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list wallet transactions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := walletResponse{
		Balance:      numericToString(customer.WalletBalance),
		Transactions: make([]walletTransactionResponse, len(transactions)),
	}
	for i, tx := range transactions {
		resp.Transactions[i] = toWalletTransactionResponse(tx)
	}

	writeJSON(w, http.StatusOK, resp)
}

// TopUp credits the authenticated customer's wallet.
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Amount == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount is required"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
		return
	}

	result, err := h.svc.TopUp(r.Context(), claims.UserID, amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be > 0"})
		case errors.Is(err, service.ErrCustomerNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
		default:
			log.Printf("ERROR: top up wallet: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, topUpResponse{
		NewBalance:  result.NewBalance.StringFixed(2),
		Transaction: toWalletTransactionResponse(result.Transaction),
	})
}
