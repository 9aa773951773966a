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
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// CustomerStore defines the database methods needed by customer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CustomerStore interface {
	ListCustomers(ctx context.Context, arg database.ListCustomersParams) ([]database.ListCustomersRow, error)
	GetCustomerByID(ctx context.Context, id uuid.UUID) (database.Customer, error)
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	UpdateCustomer(ctx context.Context, arg database.UpdateCustomerParams) (database.Customer, error)
	SoftDeleteCustomer(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListCustomerPhones(ctx context.Context, customerID uuid.UUID) ([]database.CustomerPhone, error)
	AddCustomerPhone(ctx context.Context, arg database.AddCustomerPhoneParams) (database.CustomerPhone, error)
	DeleteCustomerPhone(ctx context.Context, arg database.DeleteCustomerPhoneParams) error
}

// CustomerHandler handles customer management endpoints for admins.
type CustomerHandler struct {
	store CustomerStore
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore) *CustomerHandler {
	return &CustomerHandler{store: store}
}

// RegisterAdminRoutes registers customer CRUD endpoints. Expected to be
// mounted inside an admin-only subrouter: /customers
func (h *CustomerHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/phones", h.AddPhone)
	r.Delete("/{id}/phones/{phone}", h.DeletePhone)
}

// --- Request / Response types ---

type createCustomerRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	DateOfBirth string   `json:"date_of_birth"` // YYYY-MM-DD
	Phones      []string `json:"phones"`
}

type updateCustomerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	DateOfBirth string `json:"date_of_birth"`
}

type customerResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	DateOfBirth   *string   `json:"date_of_birth"`
	WalletBalance string    `json:"wallet_balance"`
	IsActive      bool      `json:"is_active"`
	Phones        []string  `json:"phones,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toCustomerResponse(c database.Customer) customerResponse {
	resp := customerResponse{
		ID:            c.ID,
		Name:          c.Name,
		Email:         c.Email,
		WalletBalance: numericToString(c.WalletBalance),
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.DateOfBirth.Valid {
		s := c.DateOfBirth.Time.Format("2006-01-02")
		resp.DateOfBirth = &s
	}
	return resp
}

// --- Helpers ---

func parseDateOfBirth(s string) (pgtype.Date, error) {
	if s == "" {
		return pgtype.Date{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return pgtype.Date{}, err
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- Handlers ---

// List returns customers with their phone numbers.
// Supports ?search= on name and email, plus ?limit= and ?offset=.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	params := database.ListCustomersParams{Limit: 50, Offset: 0}

	if s := r.URL.Query().Get("search"); s != "" {
		params.Search = pgtype.Text{String: s, Valid: true}
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

	customers, err := h.store.ListCustomers(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list customers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	type listEntry struct {
		customerResponse
		Phones *string `json:"phones"`
	}
	resp := make([]listEntry, len(customers))
	for i, row := range customers {
		resp[i] = listEntry{customerResponse: toCustomerResponse(row.Customer)}
		if row.Phones.Valid {
			resp[i].Phones = &row.Phones.String
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single customer with their phone numbers.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	customer, err := h.store.GetCustomerByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		log.Printf("ERROR: get customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	phones, err := h.store.ListCustomerPhones(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list customer phones: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toCustomerResponse(customer)
	for _, p := range phones {
		resp.Phones = append(resp.Phones, p.Phone)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create registers a new customer account.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name, email and password are required"})
		return
	}

	dob, err := parseDateOfBirth(req.DateOfBirth)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date_of_birth, expected YYYY-MM-DD"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: hash password: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	customer, err := h.store.CreateCustomer(r.Context(), database.CreateCustomerParams{
		Name:           req.Name,
		Email:          req.Email,
		HashedPassword: string(hashed),
		DateOfBirth:    dob,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
			return
		}
		log.Printf("ERROR: create customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toCustomerResponse(customer)
	for _, phone := range req.Phones {
		if phone == "" {
			continue
		}
		p, err := h.store.AddCustomerPhone(r.Context(), database.AddCustomerPhoneParams{
			CustomerID: customer.ID,
			Phone:      phone,
		})
		if err != nil {
			log.Printf("ERROR: add customer phone: %v", err)
			continue
		}
		resp.Phones = append(resp.Phones, p.Phone)
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Update modifies a customer's profile fields. Password and wallet balance
// have their own flows and are not touched here.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	var req updateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and email are required"})
		return
	}

	dob, err := parseDateOfBirth(req.DateOfBirth)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date_of_birth, expected YYYY-MM-DD"})
		return
	}

	customer, err := h.store.UpdateCustomer(r.Context(), database.UpdateCustomerParams{
		ID:          id,
		Name:        req.Name,
		Email:       req.Email,
		DateOfBirth: dob,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
			return
		}
		log.Printf("ERROR: update customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

// Delete deactivates a customer account. Order history is preserved.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	if _, err := h.store.SoftDeleteCustomer(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		log.Printf("ERROR: delete customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type addPhoneRequest struct {
	Phone string `json:"phone"`
}

// AddPhone attaches a phone number to a customer.
func (h *CustomerHandler) AddPhone(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	var req addPhoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "phone is required"})
		return
	}

	phone, err := h.store.AddCustomerPhone(r.Context(), database.AddCustomerPhoneParams{
		CustomerID: id,
		Phone:      req.Phone,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "phone already registered"})
			return
		}
		log.Printf("ERROR: add customer phone: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":    phone.ID.String(),
		"phone": phone.Phone,
	})
}

// DeletePhone removes a phone number from a customer.
func (h *CustomerHandler) DeletePhone(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	phone := chi.URLParam(r, "phone")
	if phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "phone is required"})
		return
	}

	if err := h.store.DeleteCustomerPhone(r.Context(), database.DeleteCustomerPhoneParams{
		CustomerID: id,
		Phone:      phone,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "phone not found"})
			return
		}
		log.Printf("ERROR: delete customer phone: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
