package auth

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/okulikov/shopapi/internal/apperr"
	"github.com/okulikov/shopapi/internal/models"
	"github.com/okulikov/shopapi/internal/token"
)

type Middleware struct {
	DB     *gorm.DB
	Issuer *token.Issuer
}

// RequireAuth verifies the inbound session token, loads the bound account and
// attaches it to the request context. Any failure ends the request with
// Unauthenticated and no state is mutated.
func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := TokenFromRequest(c)
		if raw == "" {
			return apperr.Unauthenticated("missing authentication token")
		}

		claims, err := m.Issuer.Parse(raw)
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				return apperr.Unauthenticated("token expired")
			}
			return apperr.Unauthenticated("invalid authentication token")
		}

		var user models.User
		if err := m.DB.First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Unauthenticated("account no longer exists")
			}
			return fmt.Errorf("load account %d: %w", claims.UserID, err)
		}
		if !user.Active {
			return apperr.Unauthenticated("account is deactivated")
		}

		setUserContext(c, &user)
		return next(c)
	}
}
