package middleware

import (
	"context"
	"net/http"

	"github.com/baharkarakas/market-backend/internal/api/httpx"
)

type RoleChecker interface {
	HasAnyRole(ctx context.Context, userID int64, names ...string) (bool, error)
}

// RequireRole allows only callers holding one of the named roles, resolved from the database.
func RequireRole(rc RoleChecker, names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid := UserID(r.Context())
			if uid == 0 {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}
			ok, err := rc.HasAnyRole(r.Context(), uid, names...)
			if err != nil {
				httpx.WriteServiceError(w, r, err)
				return
			}
			if !ok {
				httpx.WriteError(w, http.StatusForbidden, "forbidden", "Insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
