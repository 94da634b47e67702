// Package e2e runs the inventory HTTP API against a PostgreSQL container.
//
// A fresh schema is migrated once per suite; every test truncates the tables and
// re-seeds the development data set (Main Store with its owner, staff and three products,
// plus the system admin), then drives the real router through an httptest.Server.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abgdnv/retailinventory/internal/app"
	"github.com/abgdnv/retailinventory/internal/config"
	"github.com/abgdnv/retailinventory/internal/service"
	"github.com/abgdnv/retailinventory/internal/store"
	pkgconfig "github.com/abgdnv/retailinventory/pkg/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "INVENTORY_SKIP_INTEGRATION_TESTS"

const (
	productURL   = "/api/products"
	storeURL     = "/api/stores"
	seedPassword = "seed-password"
)

type InventoryE2ESuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	stores      app.Stores
	server      *httptest.Server
	httpClient  *http.Client
	appCfg      *config.Config
	logger      *slog.Logger
	ctx         context.Context
}

func testConfig() *config.Config {
	var cfg config.Config
	cfg.Database.Driver = pkgconfig.DriverPostgres
	cfg.Database.Seed = true
	cfg.Database.SeedPassword = seedPassword
	cfg.JWT.Key = "0123456789abcdef0123456789abcdef"
	cfg.JWT.Issuer = "retail-inventory"
	cfg.Authz.AdminListScope = "optin"
	return &cfg
}

func (s *InventoryE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("inventory"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgx pool")
	for i := range 10 {
		s.logger.Info("Pinging E2E PostgreSQL database", "attempt", i+1)
		if err = s.dbPool.Ping(s.ctx); err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	wd, _ := os.Getwd()
	sourceURL := "file://" + filepath.Join(wd, "..", "..", "..", "migrations")
	m, err := migrate.New(sourceURL, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}

	s.appCfg = testConfig()
	s.stores = app.NewPgStores(s.dbPool)
}

func (s *InventoryE2ESuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("Failed to terminate E2E PostgreSQL container", "error", err)
		}
	}
}

// SetupTest resets the tables and starts a server on the freshly seeded data.
func (s *InventoryE2ESuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE users, products, stores RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate tables")

	deps, err := app.SetupDependencies(s.ctx, s.appCfg, s.stores, nil, s.logger)
	require.NoError(s.T(), err, "Failed to set up application for E2E")
	s.server = httptest.NewServer(app.SetupHttpHandler(deps))
	s.httpClient = s.server.Client()
}

func (s *InventoryE2ESuite) TearDownTest() {
	s.server.Close()
}

func TestInventoryE2E(t *testing.T) {
	if os.Getenv(skipE2ETests) == "1" {
		t.Skip("Skipping E2E tests based on " + skipE2ETests + " env var")
	}
	suite.Run(t, new(InventoryE2ESuite))
}

func (s *InventoryE2ESuite) TestOwnerDeletesAndRestoresProduct() {
	// given
	owner := s.login("owner")
	staff := s.login("staff")
	products := s.listProducts(owner, "")
	s.Require().Len(products, 3)
	target := fmt.Sprintf("%s/%d", productURL, products[0].ID)

	// when
	_, status := s.doRequest(http.MethodDelete, target, staff, nil)
	s.Equal(http.StatusForbidden, status, "staff never deletes")
	_, status = s.doRequest(http.MethodDelete, target, owner, nil)
	s.Equal(http.StatusNoContent, status)

	// then
	_, status = s.doRequest(http.MethodGet, target, owner, nil)
	s.Equal(http.StatusNotFound, status)
	s.Len(s.listProducts(owner, ""), 2)
	_, status = s.doRequest(http.MethodPut, target, owner, map[string]any{"name": "x", "quantity": 1, "price": 1, "version": 2})
	s.Equal(http.StatusBadRequest, status, "deleted products accept no content update")

	body, status := s.doRequest(http.MethodPost, target+"/restore", owner, nil)
	s.Require().Equal(http.StatusOK, status)
	var restored service.ProductDto
	s.Require().NoError(json.Unmarshal(body, &restored))
	s.Equal("active", restored.State)
	s.Require().NotNil(restored.DeletedBy)
	s.Equal("owner", *restored.DeletedBy)
	s.Require().NotNil(restored.RestoredBy)
	s.Equal("owner", *restored.RestoredBy)
	s.Equal(int32(3), restored.Version)
}

func (s *InventoryE2ESuite) TestTenantIsolation() {
	// given
	admin := s.login("admin")
	owner := s.login("owner")
	otherStore := s.createStore(admin, "Second Store")
	body, status := s.doRequest(http.MethodPost, productURL, admin,
		map[string]any{"name": "Foreign", "quantity": 1, "price": 100, "storeId": otherStore.ID})
	s.Require().Equal(http.StatusCreated, status)
	var foreign service.ProductDto
	s.Require().NoError(json.Unmarshal(body, &foreign))
	target := fmt.Sprintf("%s/%d", productURL, foreign.ID)

	// when / then
	_, status = s.doRequest(http.MethodGet, target, owner, nil)
	s.Equal(http.StatusForbidden, status)
	_, status = s.doRequest(http.MethodDelete, target, owner, nil)
	s.Equal(http.StatusForbidden, status)
	_, status = s.doRequest(http.MethodGet, productURL+"?storeId="+fmt.Sprint(otherStore.ID), owner, nil)
	s.Equal(http.StatusForbidden, status, "owner may not list another store")
	for _, p := range s.listProducts(owner, "") {
		s.NotEqual(otherStore.ID, p.StoreID)
	}
	s.Len(s.listProducts(admin, ""), 4)
	s.Len(s.listProducts(admin, "?storeId="+fmt.Sprint(otherStore.ID)), 1)

	// the owner creating a product lands in their own store whatever the payload says
	body, status = s.doRequest(http.MethodPost, productURL, owner,
		map[string]any{"name": "Mine", "quantity": 1, "price": 100, "storeId": otherStore.ID})
	s.Require().Equal(http.StatusCreated, status)
	var mine service.ProductDto
	s.Require().NoError(json.Unmarshal(body, &mine))
	s.NotEqual(otherStore.ID, mine.StoreID)
}

func (s *InventoryE2ESuite) TestConcurrentUpdateLosesOnStaleVersion() {
	// given
	owner := s.login("owner")
	product := s.listProducts(owner, "")[0]
	target := fmt.Sprintf("%s/%d", productURL, product.ID)
	payload := map[string]any{"name": "Renamed", "quantity": 1, "price": 100, "version": product.Version}

	// when
	_, first := s.doRequest(http.MethodPut, target, owner, payload)
	_, second := s.doRequest(http.MethodPut, target, owner, payload)

	// then
	s.Equal(http.StatusOK, first)
	s.Equal(http.StatusConflict, second)
}

func (s *InventoryE2ESuite) TestDeletedStoreRejectsProducts() {
	// given
	admin := s.login("admin")
	otherStore := s.createStore(admin, "Closing Store")
	_, status := s.doRequest(http.MethodDelete, fmt.Sprintf("%s/%d", storeURL, otherStore.ID), admin, nil)
	s.Require().Equal(http.StatusNoContent, status)

	// when
	_, status = s.doRequest(http.MethodPost, productURL, admin,
		map[string]any{"name": "Orphan", "quantity": 1, "price": 100, "storeId": otherStore.ID})

	// then
	s.Equal(http.StatusBadRequest, status)
}

func (s *InventoryE2ESuite) TestStaffOfAnotherStoreCannotRead() {
	// given
	admin := s.login("admin")
	otherStore := s.createStore(admin, "Branch")
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.MinCost)
	s.Require().NoError(err)
	_, err = s.stores.Users.Create(s.ctx, store.User{Username: "branch-staff", PasswordHash: string(hash), Role: "Staff", StoreID: &otherStore.ID})
	s.Require().NoError(err)
	branchStaff := s.login("branch-staff")

	// when
	products := s.listProducts(branchStaff, "")

	// then
	s.Empty(products)
	_, status := s.doRequest(http.MethodGet, fmt.Sprintf("%s/%d", storeURL, otherStore.ID), branchStaff, nil)
	s.Equal(http.StatusOK, status)
	_, status = s.doRequest(http.MethodGet, storeURL, branchStaff, nil)
	s.Equal(http.StatusForbidden, status)
}

func (s *InventoryE2ESuite) login(username string) string {
	s.T().Helper()
	body, status := s.doRequest(http.MethodPost, "/api/auth/login", "",
		service.LoginDto{Username: username, Password: seedPassword})
	s.Require().Equal(http.StatusOK, status, string(body))
	var res service.LoginResultDto
	s.Require().NoError(json.Unmarshal(body, &res))
	return res.Token
}

func (s *InventoryE2ESuite) listProducts(token, query string) []service.ProductDto {
	s.T().Helper()
	body, status := s.doRequest(http.MethodGet, productURL+query, token, nil)
	s.Require().Equal(http.StatusOK, status, string(body))
	var products []service.ProductDto
	s.Require().NoError(json.Unmarshal(body, &products))
	return products
}

func (s *InventoryE2ESuite) createStore(token, name string) service.StoreDto {
	s.T().Helper()
	body, status := s.doRequest(http.MethodPost, storeURL, token, service.StoreCreateDto{Name: name})
	s.Require().Equal(http.StatusCreated, status, string(body))
	var created service.StoreDto
	s.Require().NoError(json.Unmarshal(body, &created))
	return created
}

// doRequest sends a request to the test server and returns the response body and status code.
func (s *InventoryE2ESuite) doRequest(method, path, token string, payload any) ([]byte, int) {
	s.T().Helper()
	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		require.NoError(s.T(), err)
		body = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, body)
	require.NoError(s.T(), err, "Failed to create HTTP request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err, "HTTP request failed")
	defer func() {
		require.NoError(s.T(), resp.Body.Close(), "Failed to close response body")
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err, "Failed to read response body")
	return bodyBytes, resp.StatusCode
}
