package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/baharkarakas/market-backend/internal/api/httpx"
	"github.com/baharkarakas/market-backend/internal/services"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (services.Identity, error)
}

// Identify attaches the caller to the request context when credentials are present.
// Bearer access tokens are always accepted; in dev the X-User-Id header is
// trusted as well. user_id in the query is a filter, never an identity.
// Anonymous requests pass through.
func Identify(authn Authenticator, allowDevIdentity bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if len(ah) > 7 && strings.EqualFold(ah[:7], "bearer ") {
				id, err := authn.Authenticate(r.Context(), strings.TrimSpace(ah[7:]))
				if err != nil {
					httpx.WriteServiceError(w, r, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), UserCtx{UserID: id.UserID, SessionID: id.SessionID})))
				return
			}

			if allowDevIdentity {
				raw := r.Header.Get("X-User-Id")
				if uid, err := strconv.ParseInt(raw, 10, 64); err == nil && uid > 0 {
					slog.Debug("dev identity", "user_id", uid, "path", r.URL.Path)
					next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), UserCtx{UserID: uid})))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == 0 {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
