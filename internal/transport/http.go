package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/storefront/internal/cache"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/config"
	"github.com/vasiliy-maslov/storefront/internal/discount"
	"github.com/vasiliy-maslov/storefront/internal/handler"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
	"github.com/vasiliy-maslov/storefront/internal/middleware"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/payment"
)

// NewRouter wires repositories, services and handlers onto the HTTP surface.
// The gateway is injected so tests and local setups can substitute a fake.
func NewRouter(pool *pgxpool.Pool, c cache.Cache, gateway payment.Gateway, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.App.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	gate := inventory.NewGate(pool)
	catalogRepo := catalog.NewRepository(pool)
	catalogSvc := catalog.NewService(catalogRepo, c, cfg.Redis.CacheTTL)
	discountRepo := discount.NewRepository(pool)
	cartRepo := cart.NewRepository(pool)
	cartSvc := cart.NewService(cartRepo, gate)
	orderRepo := order.NewRepository(pool)
	orderSvc := order.NewService(orderRepo, catalogSvc, discountRepo, gateway, cfg.Stripe.Currency)
	settlementStore := payment.NewSettlementStore(pool, gate, cartRepo, discountRepo)
	settler := payment.NewSettler(settlementStore, cfg.Stripe.WebhookSecret)

	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)
	cartHandler := handler.NewCartHandler(cartSvc)
	webhookHandler := handler.NewWebhookHandler(settler)

	catalogHandler.RegisterRoutes(r)
	webhookHandler.RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth)
		orderHandler.RegisterRoutes(r)
		cartHandler.RegisterRoutes(r)
	})

	return r
}
