package middleware

import (
	"net/http"

	"github.com/safar/go-storefront/internal/auth"
)

// TokenHeader carries the signed payload issued at login.
const TokenHeader = "token"

type Authenticator interface {
	Authenticate(token string) (*auth.Claims, error)
}

// TokenPayload parses the token header into the request context. Invalid
// or missing tokens are not rejected here; routes that need an identity
// check for it themselves.
func TokenPayload(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := authenticator.Authenticate(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
