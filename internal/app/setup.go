// Package app wires the inventory service together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/retailinventory/internal/authz"
	"github.com/abgdnv/retailinventory/internal/claims"
	"github.com/abgdnv/retailinventory/internal/config"
	"github.com/abgdnv/retailinventory/internal/metrics"
	"github.com/abgdnv/retailinventory/internal/service"
	"github.com/abgdnv/retailinventory/internal/store"
	"github.com/abgdnv/retailinventory/internal/transport/rest"
	"github.com/abgdnv/retailinventory/pkg/messaging"
	"github.com/abgdnv/retailinventory/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const ServiceName = "inventory"

type Dependencies struct {
	ProductService service.ProductService
	StoreService   service.StoreService
	AuthService    service.AuthService
	Verifier       claims.Verifier
	Metrics        *metrics.Metrics
	Registry       *prometheus.Registry
	Logger         *slog.Logger
}

// Stores groups the three repositories behind one backend.
type Stores struct {
	Products store.ProductStore
	Stores   store.StoreStore
	Users    store.UserStore
}

// NewPgStores returns repositories backed by Postgres.
func NewPgStores(dbPool *pgxpool.Pool) Stores {
	pg := store.NewPgStore(dbPool)
	return Stores{Products: pg.Products(), Stores: pg.Stores(), Users: pg.Users()}
}

// NewInMemoryStores returns repositories that live as long as the process.
func NewInMemoryStores() Stores {
	mem := store.NewInMemoryStore()
	return Stores{Products: mem.Products(), Stores: mem.Stores(), Users: mem.Users()}
}

// SetupDependencies builds the services on top of the given stores. publisher may be nil when no broker is configured.
func SetupDependencies(ctx context.Context, cfg *config.Config, stores Stores, publisher messaging.Publisher,
	logger *slog.Logger) (*Dependencies, error) {
	if cfg.Database.Seed {
		err := store.Seed(ctx, store.SeedData{
			Products: stores.Products,
			Stores:   stores.Stores,
			Users:    stores.Users,
			Password: cfg.Database.SeedPassword,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to seed data: %w", err)
		}
	}

	issuer, err := claims.NewIssuer(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential issuer: %w", err)
	}
	verifier, err := claims.NewVerifier(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential verifier: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	engine := authz.NewEngine(authz.AdminListScope(cfg.Authz.AdminListScope))
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}

	return &Dependencies{
		ProductService: service.NewProductService(stores.Products, stores.Stores, engine, publisher, m, logger),
		StoreService:   service.NewStoreService(stores.Stores, engine, publisher, m, logger),
		AuthService:    service.NewAuthService(stores.Users, issuer, logger),
		Verifier:       verifier,
		Metrics:        m,
		Registry:       registry,
		Logger:         logger,
	}, nil
}

// SetupHttpHandler builds the router with every route and middleware.
// Used by tests to drive the full stack without a listener.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	mux.Use(deps.Metrics.Middleware)
	wireRoutes(mux, deps)
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.ProductService, deps.StoreService, deps.AuthService, deps.Verifier, deps.Logger)
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

// SetupHttpServer creates the HTTP server of the inventory service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, ServiceName, SetupHttpHandler(deps))
}
