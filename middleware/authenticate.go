package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hexveil/authgate"
	"github.com/hexveil/authgate/token"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the verified claims injected by [Authenticate].
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*token.Claims)
	return claims, ok
}

// Authenticate returns middleware that verifies the Bearer token on each
// request and injects the claims into the request context. An absent or
// non-Bearer Authorization header is Unauthenticated; a present token that
// fails verification carries the verifier's own kind (malformed, expired,
// revoked, or a 500-class store failure on the fail-closed path).
func Authenticate(engine *authgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, authgate.ErrUnauthenticated)
				return
			}

			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, authgate.NewError(authgate.KindUnauthenticated, "missing bearer token"))
				return
			}

			ctx := authgate.WithClientIP(r.Context(), clientIP(r))
			claims, err := engine.Validate(ctx, raw)
			if err != nil {
				writeError(w, err)
				return
			}

			ctx = context.WithValue(ctx, claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole wraps [Authenticate] and additionally rejects authenticated
// callers whose role does not match.
func RequireRole(engine *authgate.Engine, role string) func(http.Handler) http.Handler {
	authenticate := Authenticate(engine)
	return func(next http.Handler) http.Handler {
		return authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || claims.Role != role {
				writeError(w, authgate.ErrInsufficientRole)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
