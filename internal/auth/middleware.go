package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gatewarden/gatewarden/internal/platform/httpx"
	"github.com/gatewarden/gatewarden/internal/shared"
)

// Middleware gates protected routes on a verified access token.
type Middleware struct {
	Tokens *TokenManager
	Logger *slog.Logger
}

// RequireAuth rejects requests without a valid, unexpired access token and
// stores the verified claims in the request context.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, shared.ErrUnauthenticated.Error())
			return
		}
		claims, err := m.Tokens.VerifyAccess(tokenString)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Debug("access token rejected", slog.Any("error", err), slog.String("path", r.URL.Path))
			}
			httpx.Error(w, http.StatusUnauthorized, shared.ErrUnauthenticated.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

// RequireAdmin rejects requests whose token lacks the admin role. It must
// run after RequireAuth; authentication failures stay 401 while role
// failures become 403 so the caller can tell them apart.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			httpx.Error(w, http.StatusUnauthorized, shared.ErrUnauthenticated.Error())
			return
		}
		if claims.Role != shared.RoleAdmin {
			httpx.Error(w, http.StatusForbidden, shared.ErrForbidden.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
