package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abgdnv/retailinventory/internal/authz"
	"github.com/abgdnv/retailinventory/internal/claims"
	inverrors "github.com/abgdnv/retailinventory/internal/errors"
	"github.com/abgdnv/retailinventory/pkg/logger"
	"github.com/abgdnv/retailinventory/pkg/web"
)

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p authz.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by AuthMiddleware.
func PrincipalFrom(ctx context.Context) (authz.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(authz.Principal)
	return p, ok
}

// AuthMiddleware verifies the bearer credential and stores the resulting principal in the request context.
func AuthMiddleware(verifier claims.Verifier, log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				web.RespondError(w, log, http.StatusUnauthorized, "Authorization header is required")
				return
			}

			tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || tokenString == "" {
				web.RespondError(w, log, http.StatusUnauthorized, "Bearer token is required")
				return
			}

			p, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				log.WarnContext(r.Context(), "Credential rejected", "error", err)
				if errors.Is(err, inverrors.ErrCredentialExpired) {
					web.RespondError(w, log, http.StatusUnauthorized, "Token has expired")
					return
				}
				web.RespondError(w, log, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := WithPrincipal(r.Context(), p)
			ctx = logger.AppendCtx(ctx, slog.String("actor", p.Actor()), slog.String("role", p.Role().String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
