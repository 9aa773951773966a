package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/campus-canteen/api/internal/database"
	"github.com/campus-canteen/api/internal/enum"
	"github.com/campus-canteen/api/internal/handler"
	"github.com/campus-canteen/api/internal/middleware"
	"github.com/campus-canteen/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock StaffWriter / StaffStore ---

type mockStaffWriter struct {
	createFn  func(ctx context.Context, arg database.CreateStaffParams, shifts []string) (*database.Staff, error)
	replaceFn func(ctx context.Context, staffID uuid.UUID, shifts []string) error
}

func (m *mockStaffWriter) CreateWithShifts(ctx context.Context, arg database.CreateStaffParams, shifts []string) (*database.Staff, error) {
	if m.createFn != nil {
		return m.createFn(ctx, arg, shifts)
	}
	return &database.Staff{}, nil
}

func (m *mockStaffWriter) ReplaceShifts(ctx context.Context, staffID uuid.UUID, shifts []string) error {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, staffID, shifts)
	}
	return service.ErrStaffNotFound
}

type mockStaffStore struct {
	listFn   func(ctx context.Context) ([]database.ListStaffRow, error)
	getFn    func(ctx context.Context, id uuid.UUID) (database.Staff, error)
	updateFn func(ctx context.Context, arg database.UpdateStaffParams) (database.Staff, error)
	deleteFn func(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

func (m *mockStaffStore) ListStaff(ctx context.Context) ([]database.ListStaffRow, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []database.ListStaffRow{}, nil
}

func (m *mockStaffStore) GetStaffByID(ctx context.Context, id uuid.UUID) (database.Staff, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return database.Staff{}, pgx.ErrNoRows
}

func (m *mockStaffStore) UpdateStaff(ctx context.Context, arg database.UpdateStaffParams) (database.Staff, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, arg)
	}
	return database.Staff{}, pgx.ErrNoRows
}

func (m *mockStaffStore) SoftDeleteStaff(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return uuid.Nil, pgx.ErrNoRows
}

func setupStaffRouter(svc *mockStaffWriter, store *mockStaffStore) *chi.Mux {
	h := handler.NewStaffHandler(svc, store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/admin/staff", func(ar chi.Router) {
		ar.Use(middleware.RequireRole(enum.RoleAdmin))
		h.RegisterAdminRoutes(ar)
	})
	return r
}

func testStaff(t *testing.T, name string) database.Staff {
	t.Helper()
	return database.Staff{
		ID:        uuid.New(),
		Name:      name,
		Email:     "staff@canteen.edu",
		Role:      "cook",
		Salary:    testNumeric(t, "18000.00"),
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// --- Tests ---

func TestStaffCreate_HappyPath(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)
	var capturedShifts []string

	svc := &mockStaffWriter{
		createFn: func(ctx context.Context, arg database.CreateStaffParams, shifts []string) (*database.Staff, error) {
			if arg.Name != "Meena" {
				t.Errorf("name: got %v, want Meena", arg.Name)
			}
			if arg.Role != "cashier" {
				t.Errorf("role: got %v, want cashier", arg.Role)
			}
			if err := bcrypt.CompareHashAndPassword([]byte(arg.HashedPassword), []byte("meena-pass")); err != nil {
				t.Errorf("hashed password does not match plaintext: %v", err)
			}
			capturedShifts = shifts
			s := testStaff(t, arg.Name)
			s.Role = arg.Role
			s.Salary = arg.Salary
			return &s, nil
		},
	}

	router := setupStaffRouter(svc, &mockStaffStore{})
	rr := doAuthRequest(t, router, "POST", "/admin/staff/", map[string]interface{}{
		"name":     "Meena",
		"email":    "meena@canteen.edu",
		"password": "meena-pass",
		"role":     "cashier",
		"salary":   "20000",
		"shifts":   []string{"MORNING", "EVENING"},
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if len(capturedShifts) != 2 {
		t.Fatalf("shifts passed: got %d, want 2", len(capturedShifts))
	}
	if capturedShifts[0] != "MORNING" || capturedShifts[1] != "EVENING" {
		t.Errorf("shifts: got %v", capturedShifts)
	}
}

func TestStaffCreate_ShiftInsertFailureRejected(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)

	svc := &mockStaffWriter{
		createFn: func(ctx context.Context, arg database.CreateStaffParams, shifts []string) (*database.Staff, error) {
			return nil, errors.New("add shift MORNING: connection reset")
		},
	}

	router := setupStaffRouter(svc, &mockStaffStore{})
	rr := doAuthRequest(t, router, "POST", "/admin/staff/", map[string]interface{}{
		"name":     "Meena",
		"email":    "meena@canteen.edu",
		"password": "meena-pass",
		"role":     "cashier",
		"salary":   "20000",
		"shifts":   []string{"MORNING"},
	}, claims)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusInternalServerError, rr.Body.String())
	}
}

func TestStaffCreate_DuplicateShift(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)
	router := setupStaffRouter(&mockStaffWriter{}, &mockStaffStore{})

	rr := doAuthRequest(t, router, "POST", "/admin/staff/", map[string]interface{}{
		"name":     "Meena",
		"email":    "meena@canteen.edu",
		"password": "meena-pass",
		"role":     "cashier",
		"salary":   "20000",
		"shifts":   []string{"MORNING", "MORNING"},
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestStaffCreate_InvalidShift(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)
	router := setupStaffRouter(&mockStaffWriter{}, &mockStaffStore{})

	rr := doAuthRequest(t, router, "POST", "/admin/staff/", map[string]interface{}{
		"name":     "Meena",
		"email":    "meena@canteen.edu",
		"password": "meena-pass",
		"role":     "cashier",
		"salary":   "20000",
		"shifts":   []string{"GRAVEYARD"},
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestStaffCreate_MissingRole(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)
	router := setupStaffRouter(&mockStaffWriter{}, &mockStaffStore{})

	rr := doAuthRequest(t, router, "POST", "/admin/staff/", map[string]interface{}{
		"name":     "Meena",
		"email":    "meena@canteen.edu",
		"password": "meena-pass",
		"salary":   "20000",
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestStaffList_IncludesShifts(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)

	store := &mockStaffStore{
		listFn: func(ctx context.Context) ([]database.ListStaffRow, error) {
			return []database.ListStaffRow{
				{
					Staff:  testStaff(t, "Meena"),
					Shifts: pgtype.Text{String: "MORNING, EVENING", Valid: true},
				},
			}, nil
		},
	}

	router := setupStaffRouter(&mockStaffWriter{}, store)
	rr := doAuthRequest(t, router, "GET", "/admin/staff/", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeListResponse(t, rr)
	if len(resp) != 1 {
		t.Fatalf("staff count: got %d, want 1", len(resp))
	}
	if resp[0]["shifts"] != "MORNING, EVENING" {
		t.Errorf("shifts: got %v", resp[0]["shifts"])
	}
	if resp[0]["salary"] != "18000.00" {
		t.Errorf("salary: got %v, want 18000.00", resp[0]["salary"])
	}
}

func TestStaffUpdate_NotFound(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)
	router := setupStaffRouter(&mockStaffWriter{}, &mockStaffStore{})

	rr := doAuthRequest(t, router, "PUT", "/admin/staff/"+uuid.New().String(), map[string]interface{}{
		"name":   "Meena",
		"role":   "cook",
		"salary": "21000",
	}, claims)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNotFound, rr.Body.String())
	}
}

func TestStaffSetShifts_ReplacesExisting(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)
	staff := testStaff(t, "Meena")
	var replaced []string

	svc := &mockStaffWriter{
		replaceFn: func(ctx context.Context, staffID uuid.UUID, shifts []string) error {
			if staffID != staff.ID {
				t.Errorf("staff_id: got %v, want %v", staffID, staff.ID)
			}
			replaced = shifts
			return nil
		},
	}

	router := setupStaffRouter(svc, &mockStaffStore{})
	rr := doAuthRequest(t, router, "PUT", "/admin/staff/"+staff.ID.String()+"/shifts", map[string]interface{}{
		"shifts": []string{"AFTERNOON"},
	}, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if len(replaced) != 1 || replaced[0] != "AFTERNOON" {
		t.Errorf("shifts: got %v, want [AFTERNOON]", replaced)
	}
}

func TestStaffSetShifts_UnknownStaff(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)
	router := setupStaffRouter(&mockStaffWriter{}, &mockStaffStore{})

	rr := doAuthRequest(t, router, "PUT", "/admin/staff/"+uuid.New().String()+"/shifts", map[string]interface{}{
		"shifts": []string{"MORNING"},
	}, claims)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNotFound, rr.Body.String())
	}
}

func TestStaffDelete_HappyPath(t *testing.T) {
	claims := testClaims(enum.RoleAdmin)

	store := &mockStaffStore{
		deleteFn: func(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
			return id, nil
		},
	}

	router := setupStaffRouter(&mockStaffWriter{}, store)
	rr := doAuthRequest(t, router, "DELETE", "/admin/staff/"+uuid.New().String(), nil, claims)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}
}

func TestStaff_CustomerForbidden(t *testing.T) {
	claims := testClaims(enum.RoleCustomer)
	router := setupStaffRouter(&mockStaffWriter{}, &mockStaffStore{})

	rr := doAuthRequest(t, router, "GET", "/admin/staff/", nil, claims)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusForbidden, rr.Body.String())
	}
}
