package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/campus-canteen/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// OfferStore defines the database methods needed by offer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OfferStore interface {
	ListOffers(ctx context.Context) ([]database.Offer, error)
	ListActiveOffers(ctx context.Context, now time.Time) ([]database.Offer, error)
	GetOffer(ctx context.Context, id uuid.UUID) (database.Offer, error)
	CreateOffer(ctx context.Context, arg database.CreateOfferParams) (database.Offer, error)
	UpdateOffer(ctx context.Context, arg database.UpdateOfferParams) (database.Offer, error)
	SoftDeleteOffer(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// OfferHandler handles offer CRUD endpoints.
type OfferHandler struct {
	store OfferStore
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(store OfferStore) *OfferHandler {
	return &OfferHandler{store: store}
}

// RegisterAdminRoutes registers offer CRUD endpoints. Expected to be mounted
// inside an admin-only subrouter: /offers
func (h *OfferHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type offerRequest struct {
	Description     string    `json:"description"`
	DiscountPercent string    `json:"discount_percent"`
	ValidUntil      time.Time `json:"valid_until"`
}

type offerResponse struct {
	ID              uuid.UUID `json:"id"`
	Description     string    `json:"description"`
	DiscountPercent string    `json:"discount_percent"`
	ValidUntil      time.Time `json:"valid_until"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toOfferResponse(o database.Offer) offerResponse {
	return offerResponse{
		ID:              o.ID,
		Description:     o.Description,
		DiscountPercent: numericToString(o.DiscountPercent),
		ValidUntil:      o.ValidUntil,
		IsActive:        o.IsActive,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// parseDiscountPercent accepts 0-100 inclusive.
func parseDiscountPercent(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return pgtype.Numeric{}, errors.New("out of range")
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func (h *OfferHandler) parseRequest(r *http.Request) (database.CreateOfferParams, string, bool) {
	var req offerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return database.CreateOfferParams{}, "invalid request body", false
	}
	if req.Description == "" {
		return database.CreateOfferParams{}, "description is required", false
	}
	if req.DiscountPercent == "" {
		return database.CreateOfferParams{}, "discount_percent is required", false
	}
	if req.ValidUntil.IsZero() {
		return database.CreateOfferParams{}, "valid_until is required", false
	}
	discount, err := parseDiscountPercent(req.DiscountPercent)
	if err != nil {
		return database.CreateOfferParams{}, "discount_percent must be between 0 and 100", false
	}
	return database.CreateOfferParams{
		Description:     req.Description,
		DiscountPercent: discount,
		ValidUntil:      req.ValidUntil,
	}, "", true
}

// --- Handlers ---

// List returns all offers, newest expiry first.
func (h *OfferHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		offers []database.Offer
		err    error
	)
	if r.URL.Query().Get("active") == "true" {
		offers, err = h.store.ListActiveOffers(r.Context(), time.Now())
	} else {
		offers, err = h.store.ListOffers(r.Context())
	}
	if err != nil {
		log.Printf("ERROR: list offers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]offerResponse, len(offers))
	for i, o := range offers {
		resp[i] = toOfferResponse(o)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single offer by ID.
func (h *OfferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offer ID"})
		return
	}

	offer, err := h.store.GetOffer(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "offer not found"})
			return
		}
		log.Printf("ERROR: get offer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOfferResponse(offer))
}

// Create adds a new offer.
func (h *OfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	params, msg, ok := h.parseRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	offer, err := h.store.CreateOffer(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create offer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toOfferResponse(offer))
}

// Update modifies an existing offer.
func (h *OfferHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offer ID"})
		return
	}

	params, msg, ok := h.parseRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	offer, err := h.store.UpdateOffer(r.Context(), database.UpdateOfferParams{
		ID:              id,
		Description:     params.Description,
		DiscountPercent: params.DiscountPercent,
		ValidUntil:      params.ValidUntil,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "offer not found"})
			return
		}
		log.Printf("ERROR: update offer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOfferResponse(offer))
}

// Delete soft-deletes an offer. Menu items keep their offer_id pointer; the
// pricing rules ignore inactive offers.
func (h *OfferHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offer ID"})
		return
	}

	if _, err := h.store.SoftDeleteOffer(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "offer not found"})
			return
		}
		log.Printf("ERROR: delete offer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
