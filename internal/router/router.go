package router

import (
	"log"
	"net/http"

	"github.com/bookbarn/api/internal/cart"
	"github.com/bookbarn/api/internal/config"
	"github.com/bookbarn/api/internal/database"
	"github.com/bookbarn/api/internal/enum"
	"github.com/bookbarn/api/internal/handler"
	mw "github.com/bookbarn/api/internal/middleware"
	"github.com/bookbarn/api/internal/service"
	"github.com/bookbarn/api/internal/ws"
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
			"http://localhost:5173", // storefront dev server
			"https://shop.bookbarn.example",
			"https://admin.bookbarn.example",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Services
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	promoService := service.NewPromoService(queries)
	orderService := service.NewOrderService(pool, pool, newOrderStore, promoService)
	cartService := service.NewCartService(cart.NewStore(), queries)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Catalog routes (public)
	productHandler := handler.NewProductHandler(queries)
	productHandler.RegisterRoutes(r)

	// Promo validation (public)
	promoHandler := handler.NewPromoHandler(promoService, queries)
	promoHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Cart and checkout (any authenticated user)
		cartHandler := handler.NewCartHandler(cartService)
		cartHandler.RegisterRoutes(r)

		checkoutHandler := handler.NewCheckoutHandler(orderService, cartService, promoService, hub)
		checkoutHandler.RegisterRoutes(r)

		// Customer order views
		orderHandler := handler.NewOrderHandler(orderService, queries)
		orderHandler.RegisterCustomerRoutes(r)

		// Staff routes (back office + counter)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleStaff))

			orderHandler.RegisterStaffRoutes(r)

			posHandler := handler.NewPOSHandler(orderService, queries, hub)
			posHandler.RegisterRoutes(r)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))
			promoHandler.RegisterAdminRoutes(r)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
