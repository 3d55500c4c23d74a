package middleware

import (
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timecard-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/jwt"
)

// RequirePermission checks if the caller's role grants permission
func RequirePermission(permission jwt.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := jwt.ClaimsFromContext(r.Context())
			if err != nil {
				response.Forbidden(w, fmt.Sprintf("Insufficient permissions: required '%s'", permission))
				return
			}

			if !jwt.HasPermission(claims.Role, permission) {
				response.Forbidden(w, fmt.Sprintf("Insufficient permissions: required '%s', but role is '%s'", permission, claims.Role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Actor derives the review actor from the verified token. The review
// permission is resolved here so the core only sees a boolean.
func Actor(r *http.Request) timeentry.Actor {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		return timeentry.Actor{}
	}
	return timeentry.Actor{
		ID:        claims.Subject,
		CanReview: jwt.HasPermission(claims.Role, jwt.PermissionReview),
	}
}

// EmployeeScope returns the employee the caller may act for. Employee tokens
// are pinned to their own id; kiosk and supervisor tokens may name anyone.
func EmployeeScope(r *http.Request, requested string) (string, bool) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		return "", false
	}
	if claims.Role != jwt.RoleEmployee {
		return requested, true
	}
	if requested != "" && requested != claims.EmployeeID {
		return "", false
	}
	return claims.EmployeeID, true
}
