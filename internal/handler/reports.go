package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/campus-canteen/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ReportStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportStore interface {
	GetTopCustomers(ctx context.Context) ([]database.TopCustomerRow, error)
	GetRecentOrderSummaries(ctx context.Context, limit int32) ([]database.RecentOrderSummaryRow, error)
	GetCategorySales(ctx context.Context) ([]database.CategorySalesRow, error)
	GetPeakHours(ctx context.Context) ([]database.PeakHourRow, error)
	GetPopularItems(ctx context.Context, limit int32) ([]database.PopularItemRow, error)
	CountActiveCustomers(ctx context.Context) (int64, error)
	CountOrdersSince(ctx context.Context, since time.Time) (int64, error)
	GetRevenueSince(ctx context.Context, since time.Time) (pgtype.Numeric, error)
	CountOpenOrders(ctx context.Context) (int64, error)
}

// ReportHandler serves canteen analytics for admins.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterAdminRoutes registers report endpoints. Expected to be mounted
// inside an admin-only subrouter: /reports
func (h *ReportHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/summary", h.Summary)
	r.Get("/top-customers", h.TopCustomers)
	r.Get("/recent-orders", h.RecentOrders)
	r.Get("/category-sales", h.CategorySales)
	r.Get("/peak-hours", h.PeakHours)
	r.Get("/popular-items", h.PopularItems)
}

func parseLimit(r *http.Request, def int32) int32 {
	l := r.URL.Query().Get("limit")
	if l == "" {
		return def
	}
	n, err := strconv.Atoi(l)
	if err != nil || n <= 0 || n > 200 {
		return def
	}
	return int32(n)
}

func uuidString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// --- Handlers ---

type summaryResponse struct {
	ActiveCustomers int64                 `json:"active_customers"`
	OrdersToday     int64                 `json:"orders_today"`
	RevenueToday    string                `json:"revenue_today"`
	OpenOrders      int64                 `json:"open_orders"`
	RecentOrders    []recentOrderResponse `json:"recent_orders"`
}

// Summary returns today's headline numbers for the admin dashboard.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	customers, err := h.store.CountActiveCustomers(ctx)
	if err != nil {
		log.Printf("ERROR: count active customers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	orders, err := h.store.CountOrdersSince(ctx, midnight)
	if err != nil {
		log.Printf("ERROR: count orders today: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	revenue, err := h.store.GetRevenueSince(ctx, midnight)
	if err != nil {
		log.Printf("ERROR: revenue today: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	open, err := h.store.CountOpenOrders(ctx)
	if err != nil {
		log.Printf("ERROR: count open orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	recent, err := h.store.GetRecentOrderSummaries(ctx, 5)
	if err != nil {
		log.Printf("ERROR: recent orders for summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		ActiveCustomers: customers,
		OrdersToday:     orders,
		RevenueToday:    numericToString(revenue),
		OpenOrders:      open,
		RecentOrders:    toRecentOrderResponses(recent),
	})
}

type topCustomerResponse struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	OrderCount int64  `json:"order_count"`
	TotalSpent string `json:"total_spent"`
}

// TopCustomers returns customers with more delivered orders than the
// average customer.
func (h *ReportHandler) TopCustomers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.GetTopCustomers(r.Context())
	if err != nil {
		log.Printf("ERROR: top customers report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]topCustomerResponse, len(rows))
	for i, row := range rows {
		resp[i] = topCustomerResponse{
			Name:       row.Name,
			Email:      row.Email,
			OrderCount: row.OrderCount,
			TotalSpent: numericToString(row.TotalSpent),
		}
		resp[i].CustomerID = uuidString(row.CustomerID)
	}

	writeJSON(w, http.StatusOK, resp)
}

type recentOrderResponse struct {
	OrderNumber  string    `json:"order_number"`
	CustomerName string    `json:"customer_name"`
	Status       string    `json:"status"`
	TotalAmount  string    `json:"total_amount"`
	Items        string    `json:"items"`
	CreatedAt    time.Time `json:"created_at"`
}

func toRecentOrderResponses(rows []database.RecentOrderSummaryRow) []recentOrderResponse {
	resp := make([]recentOrderResponse, len(rows))
	for i, row := range rows {
		resp[i] = recentOrderResponse{
			OrderNumber:  row.OrderNumber,
			CustomerName: row.CustomerName,
			Status:       row.Status,
			TotalAmount:  numericToString(row.TotalAmount),
			Items:        row.Items.String,
			CreatedAt:    row.CreatedAt,
		}
	}
	return resp
}

// RecentOrders returns the latest orders with a one-line item summary.
func (h *ReportHandler) RecentOrders(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.GetRecentOrderSummaries(r.Context(), parseLimit(r, 20))
	if err != nil {
		log.Printf("ERROR: recent orders report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toRecentOrderResponses(rows))
}

type categorySalesResponse struct {
	Category     string `json:"category"`
	OrderCount   int64  `json:"order_count"`
	UnitsSold    int64  `json:"units_sold"`
	Revenue      string `json:"revenue"`
	AvgLineValue string `json:"avg_line_value"`
	MaxLineValue string `json:"max_line_value"`
}

// CategorySales returns per-category order counts, units and revenue.
func (h *ReportHandler) CategorySales(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.GetCategorySales(r.Context())
	if err != nil {
		log.Printf("ERROR: category sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]categorySalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = categorySalesResponse{
			Category:     row.Category,
			OrderCount:   row.OrderCount,
			UnitsSold:    row.UnitsSold,
			Revenue:      numericToString(row.Revenue),
			AvgLineValue: numericToString(row.AvgLineValue),
			MaxLineValue: numericToString(row.MaxLineValue),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type peakHourResponse struct {
	Hour       int32  `json:"hour"`
	OrderCount int64  `json:"order_count"`
	Revenue    string `json:"revenue"`
}

// PeakHours returns order counts grouped by hour of day.
func (h *ReportHandler) PeakHours(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.GetPeakHours(r.Context())
	if err != nil {
		log.Printf("ERROR: peak hours report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]peakHourResponse, len(rows))
	for i, row := range rows {
		resp[i] = peakHourResponse{
			Hour:       row.Hour,
			OrderCount: row.OrderCount,
			Revenue:    numericToString(row.Revenue),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type popularItemResponse struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	UnitsSold int64  `json:"units_sold"`
	Revenue   string `json:"revenue"`
}

// PopularItems returns the best selling menu items by units sold.
func (h *ReportHandler) PopularItems(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.GetPopularItems(r.Context(), parseLimit(r, 10))
	if err != nil {
		log.Printf("ERROR: popular items report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]popularItemResponse, len(rows))
	for i, row := range rows {
		resp[i] = popularItemResponse{
			ItemID:    uuidString(row.ItemID),
			Name:      row.Name,
			Category:  row.Category,
			UnitsSold: row.UnitsSold,
			Revenue:   numericToString(row.Revenue),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
