// Package rest provides the HTTP handlers of the inventory service.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/abgdnv/retailinventory/internal/authz"
	"github.com/abgdnv/retailinventory/internal/claims"
	inverrors "github.com/abgdnv/retailinventory/internal/errors"
	"github.com/abgdnv/retailinventory/internal/service"
	"github.com/abgdnv/retailinventory/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	products service.ProductService
	stores   service.StoreService
	auth     service.AuthService
	verifier claims.Verifier
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new Handler serving products, stores and login.
func NewHandler(products service.ProductService, stores service.StoreService, auth service.AuthService,
	verifier claims.Verifier, logger *slog.Logger) *Handler {
	return &Handler{
		products: products,
		stores:   stores,
		auth:     auth,
		verifier: verifier,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes of the inventory service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Post("/api/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.verifier, h.logger))

		r.Route("/api/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetProduct)
				r.Put("/", h.UpdateProduct)
				r.Delete("/", h.DeleteProduct)
				r.Post("/restore", h.RestoreProduct)
			})
		})

		r.Route("/api/stores", func(r chi.Router) {
			r.Get("/", h.ListStores)
			r.Post("/", h.CreateStore)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetStore)
				r.Put("/", h.UpdateStore)
				r.Delete("/", h.DeleteStore)
				r.Post("/restore", h.RestoreStore)
			})
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}

// principal fetches the caller stored by AuthMiddleware.
func (h *Handler) principal(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (authz.Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		logger.ErrorContext(r.Context(), "Route is not behind the auth middleware")
		web.RespondError(w, logger, http.StatusUnauthorized, "Authentication required")
		return authz.Principal{}, false
	}
	return p, true
}

// listQuery reads the paging and filter parameters shared by the list endpoints.
func (h *Handler) listQuery(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (service.ListQuery, bool) {
	limit, ok := web.ParseValidateBetween(r, w, logger, "limit", 1, service.MaxPageLimit, service.DefaultPageLimit)
	if !ok {
		return service.ListQuery{}, false
	}
	offset, ok := web.ParseValidateGte(r, w, logger, "offset", 0, 0)
	if !ok {
		return service.ListQuery{}, false
	}
	storeID, ok := web.ParseOptionalID(r, w, logger, "storeId")
	if !ok {
		return service.ListQuery{}, false
	}
	includeDeleted, ok := web.ParseBool(r, w, logger, "includeDeleted")
	if !ok {
		return service.ListQuery{}, false
	}
	return service.ListQuery{StoreID: storeID, IncludeDeleted: includeDeleted, Offset: offset, Limit: limit}, true
}

// decodeValid decodes the JSON body into T and runs struct validation on it.
// On failure the response has already been written.
func decodeValid[T any](h *Handler, w http.ResponseWriter, r *http.Request, logger *slog.Logger, prepare func(*T)) (T, bool) {
	var dto T
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		logger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return dto, false
	}
	if prepare != nil {
		prepare(&dto)
	}
	if err := h.validate.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, logger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return dto, false
		}
		logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return dto, false
	}
	return dto, true
}

// respondServiceError maps a service error onto an HTTP status. failure is the message used for unexpected errors.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, failure string) {
	ctx := r.Context()
	switch {
	case errors.Is(err, inverrors.ErrAuthzDenied), errors.Is(err, inverrors.ErrMalformedPrincipal):
		logger.WarnContext(ctx, "Access denied", "error", err)
		web.RespondError(w, logger, http.StatusForbidden, "Access denied")
	case errors.Is(err, inverrors.ErrOptimisticLock):
		logger.WarnContext(ctx, "Stale version", "error", err)
		web.RespondError(w, logger, http.StatusConflict, "The record has been modified by another request")
	case errors.Is(err, inverrors.ErrStateConflict):
		logger.WarnContext(ctx, "Invalid state transition", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, inverrors.ErrProductNotFound):
		logger.WarnContext(ctx, "Product not found", "error", err)
		web.RespondError(w, logger, http.StatusNotFound, "Product not found")
	case errors.Is(err, inverrors.ErrStoreNotFound):
		logger.WarnContext(ctx, "Store not found", "error", err)
		web.RespondError(w, logger, http.StatusNotFound, "Store not found")
	case errors.Is(err, inverrors.ErrStoreUnavailable):
		logger.WarnContext(ctx, "Store unavailable", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Store does not exist or is deleted")
	case errors.Is(err, inverrors.ErrInvalidCredentials):
		web.RespondError(w, logger, http.StatusUnauthorized, "Invalid username or password")
	default:
		logger.ErrorContext(ctx, failure, "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, failure)
	}
}
