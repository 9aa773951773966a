package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/campus-canteen/api/internal/database"
	"github.com/campus-canteen/api/internal/enum"
	"github.com/campus-canteen/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// StaffWriter runs the transactional staff mutations.
// Satisfied by *service.StaffService.
type StaffWriter interface {
	CreateWithShifts(ctx context.Context, arg database.CreateStaffParams, shifts []string) (*database.Staff, error)
	ReplaceShifts(ctx context.Context, staffID uuid.UUID, shifts []string) error
}

// StaffStore defines the read-side database methods needed by staff
// handlers. Satisfied by *database.Queries; narrow interface for
// testability.
type StaffStore interface {
	ListStaff(ctx context.Context) ([]database.ListStaffRow, error)
	GetStaffByID(ctx context.Context, id uuid.UUID) (database.Staff, error)
	UpdateStaff(ctx context.Context, arg database.UpdateStaffParams) (database.Staff, error)
	SoftDeleteStaff(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// StaffHandler handles staff management endpoints for admins.
type StaffHandler struct {
	svc   StaffWriter
	store StaffStore
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(svc StaffWriter, store StaffStore) *StaffHandler {
	return &StaffHandler{svc: svc, store: store}
}

// RegisterAdminRoutes registers staff CRUD endpoints. Expected to be
// mounted inside an admin-only subrouter: /staff
func (h *StaffHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Put("/{id}/shifts", h.SetShifts)
}

// --- Request / Response types ---

type createStaffRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Role     string   `json:"role"`
	Salary   string   `json:"salary"`
	Shifts   []string `json:"shifts"`
}

type updateStaffRequest struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	Salary string `json:"salary"`
}

type setShiftsRequest struct {
	Shifts []string `json:"shifts"`
}

type staffResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Salary    string    `json:"salary"`
	IsActive  bool      `json:"is_active"`
	Shifts    []string  `json:"shifts,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toStaffResponse(s database.Staff) staffResponse {
	return staffResponse{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Role:      s.Role,
		Salary:    numericToString(s.Salary),
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func isValidShift(shift string) bool {
	switch shift {
	case enum.ShiftMorning, enum.ShiftAfternoon, enum.ShiftEvening:
		return true
	}
	return false
}

func validateShifts(shifts []string) (string, bool) {
	seen := make(map[string]bool, len(shifts))
	for _, shift := range shifts {
		if !isValidShift(shift) {
			return "invalid shift: " + shift, false
		}
		if seen[shift] {
			return "duplicate shift: " + shift, false
		}
		seen[shift] = true
	}
	return "", true
}

func parseSalary(s string) (pgtype.Numeric, string, bool) {
	salary, err := parsePrice(s)
	if err != nil {
		return pgtype.Numeric{}, "invalid salary", false
	}
	return salary, "", true
}

// --- Handlers ---

// List returns all staff members with their assigned shifts.
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	staff, err := h.store.ListStaff(r.Context())
	if err != nil {
		log.Printf("ERROR: list staff: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	type listEntry struct {
		staffResponse
		Shifts *string `json:"shifts"`
	}
	resp := make([]listEntry, len(staff))
	for i, row := range staff {
		resp[i] = listEntry{staffResponse: toStaffResponse(row.Staff)}
		if row.Shifts.Valid {
			resp[i].Shifts = &row.Shifts.String
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single staff member.
func (h *StaffHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid staff ID"})
		return
	}

	staff, err := h.store.GetStaffByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "staff member not found"})
			return
		}
		log.Printf("ERROR: get staff: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toStaffResponse(staff))
}

// Create registers a new staff member, optionally with initial shifts.
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name, email, password and role are required"})
		return
	}
	if msg, ok := validateShifts(req.Shifts); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	salary, msg, ok := parseSalary(req.Salary)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: hash password: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	staff, err := h.svc.CreateWithShifts(r.Context(), database.CreateStaffParams{
		Name:           req.Name,
		Email:          req.Email,
		HashedPassword: string(hashed),
		Role:           req.Role,
		Salary:         salary,
	}, req.Shifts)
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
			return
		}
		log.Printf("ERROR: create staff: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toStaffResponse(*staff)
	resp.Shifts = req.Shifts
	writeJSON(w, http.StatusCreated, resp)
}

// Update modifies a staff member's name, role and salary.
func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid staff ID"})
		return
	}

	var req updateStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and role are required"})
		return
	}

	salary, msg, ok := parseSalary(req.Salary)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	staff, err := h.store.UpdateStaff(r.Context(), database.UpdateStaffParams{
		ID:     id,
		Name:   req.Name,
		Role:   req.Role,
		Salary: salary,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "staff member not found"})
			return
		}
		log.Printf("ERROR: update staff: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toStaffResponse(staff))
}

// Delete deactivates a staff member.
func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid staff ID"})
		return
	}

	if _, err := h.store.SoftDeleteStaff(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "staff member not found"})
			return
		}
		log.Printf("ERROR: delete staff: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetShifts replaces a staff member's shift assignments with the given set.
func (h *StaffHandler) SetShifts(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid staff ID"})
		return
	}

	var req setShiftsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg, ok := validateShifts(req.Shifts); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	if err := h.svc.ReplaceShifts(r.Context(), id, req.Shifts); err != nil {
		if errors.Is(err, service.ErrStaffNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "staff member not found"})
			return
		}
		log.Printf("ERROR: replace staff shifts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"shifts": req.Shifts})
}
