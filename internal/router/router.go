package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/suju-order/api/internal/config"
	"github.com/suju-order/api/internal/database"
	"github.com/suju-order/api/internal/enum"
	"github.com/suju-order/api/internal/handler"
	mw "github.com/suju-order/api/internal/middleware"
	"github.com/suju-order/api/internal/service"
	"github.com/suju-order/api/internal/ws"
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
			"http://localhost:5173", // dev frontend
			"http://localhost:3000",
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
	r.Get("/ws/production", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services
	auditor := service.NewAuditRecorder(queries)

	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newOrderStore, auditor, cfg.CutoffHour)

	newMutationStore := func(db database.DBTX) service.MutationStore {
		return database.New(db)
	}
	mutationService := service.NewMutationService(pool, newMutationStore, auditor)

	newFulfillmentStore := func(db database.DBTX) service.FulfillmentStore {
		return database.New(db)
	}
	fulfillmentService := service.NewFulfillmentService(pool, newFulfillmentStore, auditor)

	statusService := service.NewStatusService(queries)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Master data
		masterHandler := handler.NewMasterHandler(queries)
		r.Route("/masters", masterHandler.RegisterRoutes)

		// Orders
		orderHandler := handler.NewOrderHandler(orderService, mutationService, statusService, hub)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Production floor routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleProduction, enum.RoleMaterials))
			productionHandler := handler.NewProductionHandler(fulfillmentService, mutationService, statusService, hub)
			r.Route("/production", productionHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
