package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/campus-canteen/api/internal/database"
	"github.com/campus-canteen/api/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListActiveMenuItems(ctx context.Context, arg database.ListActiveMenuItemsParams) ([]database.MenuItemWithOfferRow, error)
	ListMenuItems(ctx context.Context) ([]database.MenuItemWithOfferRow, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	SoftDeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// MenuHandler handles the public catalog and the admin menu CRUD.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterAdminRoutes registers menu CRUD endpoints. Expected to be mounted
// inside an admin-only subrouter: /menu-items
func (h *MenuHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type menuItemRequest struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Category string `json:"category"`
	OfferID  string `json:"offer_id"`
}

type menuItemResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Category  string    `json:"category"`
	OfferID   *string   `json:"offer_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// catalogItemResponse adds the computed effective price and offer details
// for the customer-facing catalog.
type catalogItemResponse struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	Price          string            `json:"price"`
	EffectivePrice string            `json:"effective_price"`
	Category       string            `json:"category"`
	Offer          *catalogOfferInfo `json:"offer"`
}

type catalogOfferInfo struct {
	Description     string    `json:"description"`
	DiscountPercent string    `json:"discount_percent"`
	ValidUntil      time.Time `json:"valid_until"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:        m.ID,
		Name:      m.Name,
		Price:     numericToString(m.Price),
		Category:  m.Category,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.OfferID.Valid {
		s := uuid.UUID(m.OfferID.Bytes).String()
		resp.OfferID = &s
	}
	return resp
}

func toCatalogItemResponse(row database.MenuItemWithOfferRow, now time.Time) catalogItemResponse {
	listPrice := numericToDecimal(row.Price)
	discount := numericToDecimal(row.DiscountPercent)
	effective := pricing.EffectiveUnitPrice(listPrice, discount, row.OfferValidUntil.Time, row.OfferActive.Bool, now)

	resp := catalogItemResponse{
		ID:             row.ID,
		Name:           row.Name,
		Price:          listPrice.StringFixed(2),
		EffectivePrice: effective.StringFixed(2),
		Category:       row.Category,
	}
	// Only surface offers that still apply.
	if row.OfferActive.Valid && row.OfferActive.Bool && row.OfferValidUntil.Time.After(now) {
		resp.Offer = &catalogOfferInfo{
			Description:     row.OfferDescription.String,
			DiscountPercent: discount.StringFixed(2),
			ValidUntil:      row.OfferValidUntil.Time,
		}
	}
	return resp
}

// --- Helpers ---

var errNegativePrice = errors.New("negative price")

func parsePrice(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errNegativePrice
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func numericToString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
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

func (h *MenuHandler) parseRequest(r *http.Request) (database.CreateMenuItemParams, string, bool) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return database.CreateMenuItemParams{}, "invalid request body", false
	}
	if req.Name == "" {
		return database.CreateMenuItemParams{}, "name is required", false
	}
	if req.Category == "" {
		return database.CreateMenuItemParams{}, "category is required", false
	}
	if req.Price == "" {
		return database.CreateMenuItemParams{}, "price is required", false
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			return database.CreateMenuItemParams{}, "price must be >= 0", false
		}
		return database.CreateMenuItemParams{}, "invalid price", false
	}
	offerID := pgtype.UUID{}
	if req.OfferID != "" {
		oid, err := uuid.Parse(req.OfferID)
		if err != nil {
			return database.CreateMenuItemParams{}, "invalid offer_id", false
		}
		offerID = pgtype.UUID{Bytes: oid, Valid: true}
	}
	return database.CreateMenuItemParams{
		Name:     req.Name,
		Price:    price,
		Category: req.Category,
		OfferID:  offerID,
	}, "", true
}

// --- Handlers ---

// Catalog returns active menu items with their effective prices.
// Public to any authenticated user; supports ?category= filtering.
func (h *MenuHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	category := pgtype.Text{}
	if c := r.URL.Query().Get("category"); c != "" {
		category = pgtype.Text{String: c, Valid: true}
	}

	items, err := h.store.ListActiveMenuItems(r.Context(), database.ListActiveMenuItemsParams{Category: category})
	if err != nil {
		log.Printf("ERROR: list catalog: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	now := time.Now()
	resp := make([]catalogItemResponse, len(items))
	for i, item := range items {
		resp[i] = toCatalogItemResponse(item, now)
	}

	writeJSON(w, http.StatusOK, resp)
}

// List returns all menu items including inactive ones, for admin views.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListMenuItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	type adminMenuItemResponse struct {
		menuItemResponse
		OfferDescription *string `json:"offer_description"`
	}

	resp := make([]adminMenuItemResponse, len(items))
	for i, row := range items {
		resp[i] = adminMenuItemResponse{menuItemResponse: toMenuItemResponse(row.MenuItem)}
		if row.OfferDescription.Valid {
			resp[i].OfferDescription = &row.OfferDescription.String
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new menu item.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	params, msg, ok := h.parseRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), params)
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offer_id"})
			return
		}
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update modifies an existing menu item.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	params, msg, ok := h.parseRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:       id,
		Name:     params.Name,
		Price:    params.Price,
		Category: params.Category,
		OfferID:  params.OfferID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offer_id"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete soft-deletes a menu item by setting is_active=false.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	if _, err := h.store.SoftDeleteMenuItem(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
