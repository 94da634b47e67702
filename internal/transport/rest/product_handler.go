package rest

import (
	"net/http"

	"github.com/abgdnv/retailinventory/internal/service"
	"github.com/abgdnv/retailinventory/pkg/web"
)

// ListProducts retrieves the products visible to the caller.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	p, ok := h.principal(w, r, mLogger)
	if !ok {
		return
	}
	q, ok := h.listQuery(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to list products", "limit", q.Limit, "offset", q.Offset, "includeDeleted", q.IncludeDeleted)
	list, err := h.products.List(r.Context(), p, q)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// GetProduct retrieves a product by its ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	p, ok := h.principal(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	includeDeleted, ok := web.ParseBool(r, w, mLogger, "includeDeleted")
	if !ok {
		return
	}
	found, err := h.products.Get(r.Context(), p, id, includeDeleted)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to retrieve product")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// CreateProduct handles the creation of a new product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	p, ok := h.principal(w, r, mLogger)
	if !ok {
		return
	}
	dto, ok := decodeValid[service.ProductCreateDto](h, w, r, mLogger, nil)
	if !ok {
		return
	}
	created, err := h.products.Create(r.Context(), p, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "StoreID", created.StoreID)
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// UpdateProduct replaces the content of a product. The body ID may be omitted but must match the path.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	p, ok := h.principal(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	dto, ok := decodeValid(h, w, r, mLogger, func(d *service.ProductUpdateDto) {
		if d.ID == 0 {
			d.ID = id
		}
	})
	if !ok {
		return
	}
	if dto.ID != id {
		web.RespondError(w, mLogger, http.StatusBadRequest, "ID in path does not match ID in body")
		return
	}
	updated, err := h.products.Update(r.Context(), p, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to update product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Version", updated.Version)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// DeleteProduct soft-deletes a product.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	p, ok := h.principal(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	if err := h.products.Delete(r.Context(), p, id); err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to delete product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// RestoreProduct brings a soft-deleted product back.
func (h *Handler) RestoreProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	p, ok := h.principal(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	restored, err := h.products.Restore(r.Context(), p, id)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to restore product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product restored successfully", "ID", id)
	web.RespondJSON(w, mLogger, http.StatusOK, restored)
}
