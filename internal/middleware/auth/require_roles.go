package auth

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/okulikov/shopapi/internal/apperr"
)

// RequireRoles passes the request through iff the resolved account's role is
// in the permitted set. An empty set means any authenticated account. It must
// be chained after RequireAuth: a missing identity in context is a wiring bug
// and surfaces as an internal fault, not an operational error.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return errors.New("role gate reached without an authenticated account in context")
			}
			if len(allowed) == 0 {
				return next(c)
			}
			if _, ok := allowed[user.Role]; !ok {
				return apperr.Forbidden("insufficient permissions")
			}
			return next(c)
		}
	}
}
