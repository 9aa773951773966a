package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campus-canteen/api/internal/auth"
	"github.com/campus-canteen/api/internal/database"
	"github.com/campus-canteen/api/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock AuthStore ---

type mockAuthStore struct {
	admins    map[string]database.Admin
	staff     map[string]database.Staff
	customers map[string]database.Customer
}

func (m *mockAuthStore) GetAdminByEmail(ctx context.Context, email string) (database.Admin, error) {
	if a, ok := m.admins[email]; ok {
		return a, nil
	}
	return database.Admin{}, pgx.ErrNoRows
}

func (m *mockAuthStore) GetAdminByID(ctx context.Context, id uuid.UUID) (database.Admin, error) {
	for _, a := range m.admins {
		if a.ID == id {
			return a, nil
		}
	}
	return database.Admin{}, pgx.ErrNoRows
}

func (m *mockAuthStore) GetStaffByEmail(ctx context.Context, email string) (database.Staff, error) {
	if s, ok := m.staff[email]; ok {
		return s, nil
	}
	return database.Staff{}, pgx.ErrNoRows
}

func (m *mockAuthStore) GetStaffByID(ctx context.Context, id uuid.UUID) (database.Staff, error) {
	for _, s := range m.staff {
		if s.ID == id {
			return s, nil
		}
	}
	return database.Staff{}, pgx.ErrNoRows
}

func (m *mockAuthStore) GetCustomerByEmail(ctx context.Context, email string) (database.Customer, error) {
	if c, ok := m.customers[email]; ok {
		return c, nil
	}
	return database.Customer{}, pgx.ErrNoRows
}

func (m *mockAuthStore) GetCustomerByID(ctx context.Context, id uuid.UUID) (database.Customer, error) {
	for _, c := range m.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return database.Customer{}, pgx.ErrNoRows
}

// --- Helpers ---

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hashed)
}

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testJWTSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func testAuthStore(t *testing.T) *mockAuthStore {
	t.Helper()
	return &mockAuthStore{
		admins: map[string]database.Admin{
			"admin@canteen.edu": {
				ID: uuid.New(), Name: "Admin", Email: "admin@canteen.edu",
				HashedPassword: hashPassword(t, "admin-pass"), IsActive: true,
			},
		},
		staff: map[string]database.Staff{
			"cook@canteen.edu": {
				ID: uuid.New(), Name: "Cook", Email: "cook@canteen.edu",
				HashedPassword: hashPassword(t, "cook-pass"), Role: "cook", IsActive: true,
			},
		},
		customers: map[string]database.Customer{
			"asha@campus.edu": {
				ID: uuid.New(), Name: "Asha", Email: "asha@campus.edu",
				HashedPassword: hashPassword(t, "asha-pass"), IsActive: true,
				WalletBalance: testNumeric(t, "340.00"),
			},
		},
	}
}

// --- Login tests ---

func TestLogin_AdminHappyPath(t *testing.T) {
	store := testAuthStore(t)
	router := setupAuthRouter(store)

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"role":     "admin",
		"email":    "admin@canteen.edu",
		"password": "admin-pass",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["access_token"] == "" {
		t.Error("access_token should not be empty")
	}
	if resp["refresh_token"] == "" {
		t.Error("refresh_token should not be empty")
	}
	user := resp["user"].(map[string]interface{})
	if user["role"] != "admin" {
		t.Errorf("role: got %v, want admin", user["role"])
	}
	if user["email"] != "admin@canteen.edu" {
		t.Errorf("email: got %v, want admin@canteen.edu", user["email"])
	}

	// Token must carry the admin's identity.
	claims, err := auth.ValidateToken(testJWTSecret, resp["access_token"].(string))
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Role != "admin" {
		t.Errorf("claims role: got %v, want admin", claims.Role)
	}
	if claims.UserID != store.admins["admin@canteen.edu"].ID {
		t.Errorf("claims user_id: got %v, want %v", claims.UserID, store.admins["admin@canteen.edu"].ID)
	}
}

func TestLogin_StaffHappyPath(t *testing.T) {
	router := setupAuthRouter(testAuthStore(t))

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"role":     "staff",
		"email":    "cook@canteen.edu",
		"password": "cook-pass",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	user := resp["user"].(map[string]interface{})
	if user["role"] != "staff" {
		t.Errorf("role: got %v, want staff", user["role"])
	}
}

func TestLogin_RoleDefaultsToCustomer(t *testing.T) {
	router := setupAuthRouter(testAuthStore(t))

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    "asha@campus.edu",
		"password": "asha-pass",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	user := resp["user"].(map[string]interface{})
	if user["role"] != "customer" {
		t.Errorf("role: got %v, want customer", user["role"])
	}
	if user["wallet_balance"] != "340.00" {
		t.Errorf("wallet_balance: got %v, want 340.00", user["wallet_balance"])
	}
}

func TestLogin_AdminHasNoWalletBalance(t *testing.T) {
	router := setupAuthRouter(testAuthStore(t))

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"role":     "admin",
		"email":    "admin@canteen.edu",
		"password": "admin-pass",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	user := decodeResponse(t, rr)["user"].(map[string]interface{})
	if _, present := user["wallet_balance"]; present {
		t.Errorf("wallet_balance should be omitted for admins, got %v", user["wallet_balance"])
	}
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	store := testAuthStore(t)
	c := store.customers["asha@campus.edu"]
	c.IsActive = false
	store.customers["asha@campus.edu"] = c
	router := setupAuthRouter(store)

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    "asha@campus.edu",
		"password": "asha-pass",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "invalid credentials" {
		t.Errorf("error: got %v, want 'invalid credentials'", resp["error"])
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	router := setupAuthRouter(testAuthStore(t))

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"role":     "admin",
		"email":    "admin@canteen.edu",
		"password": "wrong",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "invalid credentials" {
		t.Errorf("error: got %v, want 'invalid credentials'", resp["error"])
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	router := setupAuthRouter(testAuthStore(t))

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"role":     "customer",
		"email":    "nobody@campus.edu",
		"password": "whatever",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}

func TestLogin_RoleTableIsolation(t *testing.T) {
	// A customer's credentials must not work against the admin table.
	router := setupAuthRouter(testAuthStore(t))

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"role":     "admin",
		"email":    "asha@campus.edu",
		"password": "asha-pass",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}

func TestLogin_InvalidRole(t *testing.T) {
	router := setupAuthRouter(testAuthStore(t))

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"role":     "superuser",
		"email":    "admin@canteen.edu",
		"password": "admin-pass",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestLogin_MissingFields(t *testing.T) {
	router := setupAuthRouter(testAuthStore(t))

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"email": "admin@canteen.edu",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

// --- Refresh tests ---

func TestRefresh_HappyPath(t *testing.T) {
	store := testAuthStore(t)
	router := setupAuthRouter(store)

	staff := store.staff["cook@canteen.edu"]
	refreshToken, err := auth.GenerateRefreshToken(testJWTSecret, staff.ID, "staff")
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := doRequest(t, router, "POST", "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	user := resp["user"].(map[string]interface{})
	if user["role"] != "staff" {
		t.Errorf("role: got %v, want staff", user["role"])
	}
	if user["id"] != staff.ID.String() {
		t.Errorf("id: got %v, want %v", user["id"], staff.ID)
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	router := setupAuthRouter(testAuthStore(t))

	rr := doRequest(t, router, "POST", "/auth/refresh", map[string]string{
		"refresh_token": "garbage",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}

func TestRefresh_DeletedAccount(t *testing.T) {
	router := setupAuthRouter(testAuthStore(t))

	refreshToken, err := auth.GenerateRefreshToken(testJWTSecret, uuid.New(), "customer")
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := doRequest(t, router, "POST", "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}

func TestRefresh_MissingToken(t *testing.T) {
	router := setupAuthRouter(testAuthStore(t))

	rr := doRequest(t, router, "POST", "/auth/refresh", map[string]string{})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}
