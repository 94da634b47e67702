package rest

import (
	"net/http"

	"github.com/abgdnv/retailinventory/internal/service"
	"github.com/abgdnv/retailinventory/pkg/web"
)

// Login exchanges a username and password for a bearer credential.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	dto, ok := decodeValid[service.LoginDto](h, w, r, mLogger, nil)
	if !ok {
		return
	}
	result, err := h.auth.Login(r.Context(), dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to log in")
		return
	}
	mLogger.InfoContext(r.Context(), "User logged in", "username", dto.Username, "role", result.Role)
	web.RespondJSON(w, mLogger, http.StatusOK, result)
}
