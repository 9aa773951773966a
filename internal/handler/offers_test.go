package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/campus-canteen/api/internal/database"
	"github.com/campus-canteen/api/internal/enum"
	"github.com/campus-canteen/api/internal/handler"
	"github.com/campus-canteen/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Mock OfferStore ---

type mockOfferStore struct {
	listFn       func(ctx context.Context) ([]database.Offer, error)
	listActiveFn func(ctx context.Context, now time.Time) ([]database.Offer, error)
	getFn        func(ctx context.Context, id uuid.UUID) (database.Offer, error)
	createFn     func(ctx context.Context, arg database.CreateOfferParams) (database.Offer, error)
	updateFn     func(ctx context.Context, arg database.UpdateOfferParams) (database.Offer, error)
	deleteFn     func(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

func (m *mockOfferStore) ListOffers(ctx context.Context) ([]database.Offer, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []database.Offer{}, nil
}

func (m *mockOfferStore) ListActiveOffers(ctx context.Context, now time.Time) ([]database.Offer, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, now)
	}
	return []database.Offer{}, nil
}

func (m *mockOfferStore) GetOffer(ctx context.Context, id uuid.UUID) (database.Offer, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return database.Offer{}, pgx.ErrNoRows
}

func (m *mockOfferStore) CreateOffer(ctx context.Context, arg database.CreateOfferParams) (database.Offer, error) {
	if m.createFn != nil {
		return m.createFn(ctx, arg)
	}
	return database.Offer{}, pgx.ErrNoRows
}

func (m *mockOfferStore) UpdateOffer(ctx context.Context, arg database.UpdateOfferParams) (database.Offer, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, arg)
	}
	return database.Offer{}, pgx.ErrNoRows
}

func (m *mockOfferStore) SoftDeleteOffer(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return uuid.Nil, pgx.ErrNoRows
}

func setupOfferRouter(store *mockOfferStore) *chi.Mux {
	h := handler.NewOfferHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/admin/offers", func(ar chi.Router) {
		ar.Use(middleware.RequireRole(enum.RoleAdmin))
		h.RegisterAdminRoutes(ar)
	})
	return r
}

func testOffer(t *testing.T, description, discount string) database.Offer {
	t.Helper()
	return database.Offer{
		ID:              uuid.New(),
		Description:     description,
		DiscountPercent: testNumeric(t, discount),
		ValidUntil:      time.Now().Add(72 * time.Hour),
		IsActive:        true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

// --- Tests ---

func TestOfferCreate_HappyPath(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)
	validUntil := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	store := &mockOfferStore{
		createFn: func(ctx context.Context, arg database.CreateOfferParams) (database.Offer, error) {
			if arg.Description != "Exam week special" {
				t.Errorf("description: got %v, want 'Exam week special'", arg.Description)
			}
			if !arg.ValidUntil.Equal(validUntil) {
				t.Errorf("valid_until: got %v, want %v", arg.ValidUntil, validUntil)
			}
			offer := testOffer(t, arg.Description, "15")
			offer.ValidUntil = arg.ValidUntil
			return offer, nil
		},
	}

	router := setupOfferRouter(store)
	rr := doAuthRequest(t, router, "POST", "/admin/offers/", map[string]interface{}{
		"description":      "Exam week special",
		"discount_percent": "15",
		"valid_until":      validUntil.Format(time.RFC3339),
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["discount_percent"] != "15.00" {
		t.Errorf("discount_percent: got %v, want 15.00", resp["discount_percent"])
	}
}

func TestOfferCreate_DiscountOutOfRange(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)
	router := setupOfferRouter(&mockOfferStore{})

	rr := doAuthRequest(t, router, "POST", "/admin/offers/", map[string]interface{}{
		"description":      "Everything free",
		"discount_percent": "150",
		"valid_until":      time.Now().Add(time.Hour).Format(time.RFC3339),
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "discount_percent must be between 0 and 100" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestOfferCreate_MissingValidUntil(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)
	router := setupOfferRouter(&mockOfferStore{})

	rr := doAuthRequest(t, router, "POST", "/admin/offers/", map[string]interface{}{
		"description":      "No expiry",
		"discount_percent": "10",
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestOfferList_ActiveFilter(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)
	called := false

	store := &mockOfferStore{
		listActiveFn: func(ctx context.Context, now time.Time) ([]database.Offer, error) {
			called = true
			return []database.Offer{testOffer(t, "Active only", "5")}, nil
		},
	}

	router := setupOfferRouter(store)
	rr := doAuthRequest(t, router, "GET", "/admin/offers/?active=true", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if !called {
		t.Error("active=true should query active offers")
	}
	resp := decodeListResponse(t, rr)
	if len(resp) != 1 {
		t.Fatalf("offers count: got %d, want 1", len(resp))
	}
}

func TestOfferGet_NotFound(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)
	router := setupOfferRouter(&mockOfferStore{})

	rr := doAuthRequest(t, router, "GET", "/admin/offers/"+uuid.New().String(), nil, claims)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNotFound, rr.Body.String())
	}
}

func TestOfferUpdate_HappyPath(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)
	offerID := uuid.New()

	store := &mockOfferStore{
		updateFn: func(ctx context.Context, arg database.UpdateOfferParams) (database.Offer, error) {
			if arg.ID != offerID {
				t.Errorf("id: got %v, want %v", arg.ID, offerID)
			}
			offer := testOffer(t, arg.Description, "25")
			offer.ID = arg.ID
			return offer, nil
		},
	}

	router := setupOfferRouter(store)
	rr := doAuthRequest(t, router, "PUT", "/admin/offers/"+offerID.String(), map[string]interface{}{
		"description":      "Updated deal",
		"discount_percent": "25",
		"valid_until":      time.Now().Add(time.Hour).Format(time.RFC3339),
	}, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestOfferDelete_NotFound(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)
	router := setupOfferRouter(&mockOfferStore{})

	rr := doAuthRequest(t, router, "DELETE", "/admin/offers/"+uuid.New().String(), nil, claims)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNotFound, rr.Body.String())
	}
}

func TestOffer_CustomerForbidden(t *testing.T) {
	claims := testClaims(enum.RoleCustomer)
	router := setupOfferRouter(&mockOfferStore{})

	rr := doAuthRequest(t, router, "GET", "/admin/offers/", nil, claims)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusForbidden, rr.Body.String())
	}
}
