package rest

import (
	"net/http"

	"github.com/abgdnv/retailinventory/internal/service"
	"github.com/abgdnv/retailinventory/pkg/web"
)

func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	p, ok := h.principal(w, r, mLogger)
	if !ok {
		return
	}
	q, ok := h.listQuery(w, r, mLogger)
	if !ok {
		return
	}
	list, err := h.stores.List(r.Context(), p, q)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to fetch stores")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved store list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
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
	found, err := h.stores.Get(r.Context(), p, id, includeDeleted)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to retrieve store")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	p, ok := h.principal(w, r, mLogger)
	if !ok {
		return
	}
	dto, ok := decodeValid[service.StoreCreateDto](h, w, r, mLogger, nil)
	if !ok {
		return
	}
	created, err := h.stores.Create(r.Context(), p, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to create store")
		return
	}
	mLogger.InfoContext(r.Context(), "Store created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

func (h *Handler) UpdateStore(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	p, ok := h.principal(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	dto, ok := decodeValid(h, w, r, mLogger, func(d *service.StoreUpdateDto) {
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
	updated, err := h.stores.Update(r.Context(), p, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to update store")
		return
	}
	mLogger.InfoContext(r.Context(), "Store updated successfully", "ID", updated.ID, "Version", updated.Version)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// DeleteStore soft-deletes a store. Its products are left untouched.
func (h *Handler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	p, ok := h.principal(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	if err := h.stores.Delete(r.Context(), p, id); err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to delete store")
		return
	}
	mLogger.InfoContext(r.Context(), "Store deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RestoreStore(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	p, ok := h.principal(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	restored, err := h.stores.Restore(r.Context(), p, id)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to restore store")
		return
	}
	mLogger.InfoContext(r.Context(), "Store restored successfully", "ID", id)
	web.RespondJSON(w, mLogger, http.StatusOK, restored)
}
