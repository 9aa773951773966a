package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/campus-canteen/api/internal/auth"
	"github.com/campus-canteen/api/internal/database"
	"github.com/campus-canteen/api/internal/enum"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetAdminByEmail(ctx context.Context, email string) (database.Admin, error)
	GetAdminByID(ctx context.Context, id uuid.UUID) (database.Admin, error)
	GetStaffByEmail(ctx context.Context, email string) (database.Staff, error)
	GetStaffByID(ctx context.Context, id uuid.UUID) (database.Staff, error)
	GetCustomerByEmail(ctx context.Context, email string) (database.Customer, error)
	GetCustomerByID(ctx context.Context, id uuid.UUID) (database.Customer, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
}

// --- Request / Response types ---

type loginRequest struct {
	Role     string `json:"role"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	WalletBalance string    `json:"wallet_balance,omitempty"`
}

// account is what all three login tables have in common. WalletBalance is
// only set for customers.
type account struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Role           string
	HashedPassword string
	IsActive       bool
	WalletBalance  string
}

// --- Handlers ---

// Login handles role + email + password authentication. The role selects
// which account table to check: admins, staff, or customers.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}
	if req.Role == "" {
		req.Role = enum.RoleCustomer
	}

	acct, err := h.lookupByEmail(r.Context(), req.Role, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		if errors.Is(err, errUnknownRole) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.HashedPassword), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	if !acct.IsActive {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	h.respondWithTokens(w, acct)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "refresh_token is required"})
		return
	}

	claims, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	acct, err := h.lookupByID(r.Context(), claims.Role, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, errUnknownRole) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "account not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !acct.IsActive {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "account not found"})
		return
	}

	h.respondWithTokens(w, acct)
}

// --- Helpers ---

var errUnknownRole = errors.New("unknown role")

func (h *AuthHandler) lookupByEmail(ctx context.Context, role, email string) (account, error) {
	switch role {
	case enum.RoleAdmin:
		a, err := h.store.GetAdminByEmail(ctx, email)
		if err != nil {
			return account{}, err
		}
		return account{ID: a.ID, Name: a.Name, Email: a.Email, Role: enum.RoleAdmin, HashedPassword: a.HashedPassword, IsActive: a.IsActive}, nil
	case enum.RoleStaff:
		s, err := h.store.GetStaffByEmail(ctx, email)
		if err != nil {
			return account{}, err
		}
		return account{ID: s.ID, Name: s.Name, Email: s.Email, Role: enum.RoleStaff, HashedPassword: s.HashedPassword, IsActive: s.IsActive}, nil
	case enum.RoleCustomer:
		c, err := h.store.GetCustomerByEmail(ctx, email)
		if err != nil {
			return account{}, err
		}
		return account{ID: c.ID, Name: c.Name, Email: c.Email, Role: enum.RoleCustomer, HashedPassword: c.HashedPassword, IsActive: c.IsActive, WalletBalance: numericToString(c.WalletBalance)}, nil
	}
	return account{}, errUnknownRole
}

func (h *AuthHandler) lookupByID(ctx context.Context, role string, id uuid.UUID) (account, error) {
	switch role {
	case enum.RoleAdmin:
		a, err := h.store.GetAdminByID(ctx, id)
		if err != nil {
			return account{}, err
		}
		return account{ID: a.ID, Name: a.Name, Email: a.Email, Role: enum.RoleAdmin, HashedPassword: a.HashedPassword, IsActive: a.IsActive}, nil
	case enum.RoleStaff:
		s, err := h.store.GetStaffByID(ctx, id)
		if err != nil {
			return account{}, err
		}
		return account{ID: s.ID, Name: s.Name, Email: s.Email, Role: enum.RoleStaff, HashedPassword: s.HashedPassword, IsActive: s.IsActive}, nil
	case enum.RoleCustomer:
		c, err := h.store.GetCustomerByID(ctx, id)
		if err != nil {
			return account{}, err
		}
		return account{ID: c.ID, Name: c.Name, Email: c.Email, Role: enum.RoleCustomer, HashedPassword: c.HashedPassword, IsActive: c.IsActive, WalletBalance: numericToString(c.WalletBalance)}, nil
	}
	return account{}, errUnknownRole
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, acct account) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, acct.ID, acct.Role)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, acct.ID, acct.Role)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: userResponse{
			ID:            acct.ID,
			Name:          acct.Name,
			Email:         acct.Email,
			Role:          acct.Role,
			WalletBalance: acct.WalletBalance,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}
