package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/timecard-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired rejects requests without a valid, unrevoked access token.
func AuthRequired(svc jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}
			if token == nil {
				response.Unauthorized(w, "Missing token")
				return
			}

			if svc.IsTokenRevoked(rawToken(r)) {
				response.Unauthorized(w, "Token revoked")
				return
			}

			if _, err := jwt.ClaimsFromContext(r.Context()); err != nil {
				response.Unauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// TokenFromQuery reads the token from ?token=. Browsers cannot set headers on
// an EventSource, so reminder streams authenticate this way.
func TokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}

func rawToken(r *http.Request) string {
	if t := jwtauth.TokenFromHeader(r); t != "" {
		return t
	}
	if t := jwtauth.TokenFromCookie(r); t != "" {
		return t
	}
	return TokenFromQuery(r)
}
