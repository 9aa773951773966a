package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/campus-canteen/api/internal/database"
	"github.com/campus-canteen/api/internal/enum"
	"github.com/campus-canteen/api/internal/middleware"
	"github.com/campus-canteen/api/internal/service"
	"github.com/campus-canteen/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderQueryStore defines the read-side database methods needed by order
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type OrderQueryStore interface {
	GetOrderWithCustomer(ctx context.Context, id uuid.UUID) (database.GetOrderWithCustomerRow, error)
	GetOrderForCustomer(ctx context.Context, arg database.GetOrderForCustomerParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.ListOrdersRow, error)
	ListOrdersByCustomer(ctx context.Context, arg database.ListOrdersByCustomerParams) ([]database.Order, error)
	ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]database.OrderLineRow, error)
	CountOrdersByStatus(ctx context.Context) ([]database.CountOrdersByStatusRow, error)
}

// OrderPlacer is the business-logic surface the handler drives.
// Satisfied by *service.OrderService.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.PlaceOrderResult, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (*database.Order, error)
}

// Broadcaster pushes events to connected websocket clients.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToRoles(roles []string, event ws.Event)
}

// OrderHandler handles order placement, reads, and status transitions.
type OrderHandler struct {
	svc   OrderPlacer
	store OrderQueryStore
	hub   Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderPlacer, store OrderQueryStore, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// --- Request / Response types ---

type createOrderRequest struct {
	PaymentMode string                   `json:"payment_mode"`
	Items       []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int32  `json:"quantity"`
}

type orderResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	Status      string    `json:"status"`
	PaymentMode string    `json:"payment_mode"`
	TotalAmount string    `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type orderItemResponse struct {
	ItemID    uuid.UUID `json:"item_id"`
	Name      string    `json:"name,omitempty"`
	Quantity  int32     `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	Subtotal  string    `json:"subtotal"`
}

type orderDetailResponse struct {
	orderResponse
	CustomerName string              `json:"customer_name,omitempty"`
	Items        []orderItemResponse `json:"items"`
	// WalletBalance is only set on placement of a wallet-paid order.
	WalletBalance string `json:"wallet_balance,omitempty"`
}

type orderListEntry struct {
	orderResponse
	CustomerName string `json:"customer_name"`
	ItemCount    int64  `json:"item_count"`
}

type orderListResponse struct {
	Orders       []orderListEntry `json:"orders"`
	StatusCounts map[string]int64 `json:"status_counts"`
}

func toOrderResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Status:      o.Status,
		PaymentMode: o.PaymentMode,
		TotalAmount: numericToString(o.TotalAmount),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// --- Handlers ---

// Create places a new order for the authenticated customer.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.PlaceOrderItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.PlaceOrderItemRequest{ItemID: it.ItemID, Quantity: it.Quantity}
	}

	result, err := h.svc.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		CustomerID:  claims.UserID,
		PaymentMode: req.PaymentMode,
		Items:       items,
	})
	if err != nil {
		h.respondPlaceOrderError(w, err)
		return
	}

	itemResponses := make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		itemResponses[i] = orderItemResponse{
			ItemID:    item.ItemID,
			Quantity:  item.Quantity,
			UnitPrice: numericToString(item.UnitPrice),
			Subtotal:  numericToString(item.Subtotal),
		}
	}

	resp := orderDetailResponse{
		orderResponse: toOrderResponse(result.Order),
		Items:         itemResponses,
	}
	if result.NewBalance != nil {
		resp.WalletBalance = result.NewBalance.StringFixed(2)
	}

	h.broadcast("order.created", resp)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *OrderHandler) respondPlaceOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInsufficientBalance):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "insufficient wallet balance"})
	case errors.Is(err, service.ErrCustomerNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
	case isPlaceOrderValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: place order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func isPlaceOrderValidationError(err error) bool {
	for _, target := range []error{
		service.ErrEmptyItems,
		service.ErrInvalidQuantity,
		service.ErrInvalidPaymentMode,
		service.ErrInvalidItemID,
		service.ErrItemNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// List returns orders for staff and admin views, with per-status counts.
// Supports ?status=, ?limit=, ?offset=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	params := database.ListOrdersParams{Limit: 50, Offset: 0}

	if s := r.URL.Query().Get("status"); s != "" {
		if !isKnownStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status.String = s
		params.Status.Valid = true
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			params.Limit = int32(n)
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			params.Offset = int32(n)
		}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	counts, err := h.store.CountOrdersByStatus(r.Context())
	if err != nil {
		log.Printf("ERROR: count orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	entries := make([]orderListEntry, len(orders))
	for i, o := range orders {
		entries[i] = orderListEntry{
			orderResponse: toOrderResponse(o.Order),
			CustomerName:  o.CustomerName,
			ItemCount:     o.ItemCount,
		}
	}

	statusCounts := make(map[string]int64, len(counts))
	for _, c := range counts {
		statusCounts[c.Status] = c.Count
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders:       entries,
		StatusCounts: statusCounts,
	})
}

// Get returns a single order with its line items. Customers can only read
// their own orders; staff and admin can read any.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var resp orderDetailResponse
	if claims.Role == enum.RoleCustomer {
		order, err := h.store.GetOrderForCustomer(r.Context(), database.GetOrderForCustomerParams{
			ID:         orderID,
			CustomerID: claims.UserID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Hide the existence of other customers' orders.
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
				return
			}
			log.Printf("ERROR: get order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp.orderResponse = toOrderResponse(order)
	} else {
		row, err := h.store.GetOrderWithCustomer(r.Context(), orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
				return
			}
			log.Printf("ERROR: get order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp.orderResponse = toOrderResponse(row.Order)
		resp.CustomerName = row.CustomerName
	}

	lines, err := h.store.ListOrderLines(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order lines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp.Items = make([]orderItemResponse, len(lines))
	for i, line := range lines {
		resp.Items[i] = orderItemResponse{
			ItemID:    line.ItemID,
			Name:      line.ItemName,
			Quantity:  line.Quantity,
			UnitPrice: numericToString(line.UnitPrice),
			Subtotal:  numericToString(line.Subtotal),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListMine returns the authenticated customer's own orders, newest first.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	params := database.ListOrdersByCustomerParams{
		CustomerID: claims.UserID,
		Limit:      50,
		Offset:     0,
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			params.Limit = int32(n)
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			params.Offset = int32(n)
		}
	}

	orders, err := h.store.ListOrdersByCustomer(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list my orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}

	writeJSON(w, http.StatusOK, resp)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updateStatusResponse struct {
	Message string `json:"message"`
	orderResponse
}

// UpdateStatus transitions an order through its lifecycle. Cancelling a
// wallet-paid order refunds the customer inside the same transaction.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		case errors.Is(err, service.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "status transition not allowed"})
		case errors.Is(err, service.ErrStatusConflict):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order was updated concurrently, retry"})
		default:
			log.Printf("ERROR: update order status: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	orderResp := toOrderResponse(*order)
	h.broadcast("order.status_updated", orderResp)
	writeJSON(w, http.StatusOK, updateStatusResponse{
		Message:       fmt.Sprintf("order %s marked %s", order.OrderNumber, order.Status),
		orderResponse: orderResp,
	})
}

// --- Helpers ---

func isKnownStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusPreparing,
		enum.OrderStatusDelivered, enum.OrderStatusCancelled:
		return true
	}
	return false
}

func (h *OrderHandler) broadcast(eventType string, payload interface{}) {
	if h.hub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}
	h.hub.BroadcastToRoles([]string{enum.RoleAdmin, enum.RoleStaff}, ws.Event{
		Type:    eventType,
		Payload: data,
	})
}
