package router

import (
	"log"
	"net/http"

	"github.com/campus-canteen/api/internal/config"
	"github.com/campus-canteen/api/internal/database"
	"github.com/campus-canteen/api/internal/enum"
	"github.com/campus-canteen/api/internal/handler"
	mw "github.com/campus-canteen/api/internal/middleware"
	"github.com/campus-canteen/api/internal/service"
	"github.com/campus-canteen/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",          // Vite dev server
			"https://canteen.campus.edu",     // Production dashboard
			"https://stg-canteen.campus.edu", // Staging dashboard
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Catalog (all roles)
		menuHandler := handler.NewMenuHandler(queries)
		r.Get("/menu", menuHandler.Catalog)

		// Orders
		orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
			return database.New(db)
		})
		orderHandler := handler.NewOrderHandler(orderService, queries, hub)
		r.With(mw.RequireRole(enum.RoleCustomer)).Post("/orders", orderHandler.Create)
		r.With(mw.RequireRole(enum.RoleAdmin, enum.RoleStaff)).Get("/orders", orderHandler.List)
		r.Get("/orders/{id}", orderHandler.Get)
		r.With(mw.RequireRole(enum.RoleAdmin)).Patch("/orders/{id}/status", orderHandler.UpdateStatus)

		// Customer self-service
		walletService := service.NewWalletService(pool, func(db database.DBTX) service.WalletStore {
			return database.New(db)
		})
		walletHandler := handler.NewWalletHandler(walletService, queries)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleCustomer))
			r.Get("/my/orders", orderHandler.ListMine)
			r.Get("/my/wallet", walletHandler.Get)
			r.Post("/my/wallet/topup", walletHandler.TopUp)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdmin))

			r.Route("/admin/menu-items", menuHandler.RegisterAdminRoutes)

			offerHandler := handler.NewOfferHandler(queries)
			r.Route("/admin/offers", offerHandler.RegisterAdminRoutes)

			customerHandler := handler.NewCustomerHandler(queries)
			r.Route("/admin/customers", customerHandler.RegisterAdminRoutes)

			staffService := service.NewStaffService(pool, func(db database.DBTX) service.StaffStore {
				return database.New(db)
			})
			staffHandler := handler.NewStaffHandler(staffService, queries)
			r.Route("/admin/staff", staffHandler.RegisterAdminRoutes)

			reportHandler := handler.NewReportHandler(queries)
			r.Route("/admin/reports", reportHandler.RegisterAdminRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
