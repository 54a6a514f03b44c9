package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/okulikov/shopapi/internal/models"
)

// CookieName is the cookie carrying the session token for browser clients.
const CookieName = "token"

const contextKey = "user"

// TokenFromRequest extracts the raw session token. The Authorization header
// takes precedence over the cookie when both are present.
func TokenFromRequest(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if ck, err := c.Cookie(CookieName); err == nil {
		return ck.Value
	}
	return ""
}

func CurrentUser(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(contextKey).(*models.User)
	return u, ok
}

func setUserContext(c echo.Context, u *models.User) {
	c.Set(contextKey, u)
}
