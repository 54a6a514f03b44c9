package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/okulikov/shopapi/internal/apperr"
	"github.com/okulikov/shopapi/internal/hash"
	"github.com/okulikov/shopapi/internal/logging"
	authmw "github.com/okulikov/shopapi/internal/middleware/auth"
	"github.com/okulikov/shopapi/internal/models"
	"github.com/okulikov/shopapi/internal/mykafka"
	"github.com/okulikov/shopapi/internal/token"
)

type AuthHandler struct {
	DB           *gorm.DB
	Issuer       *token.Issuer
	Producer     *mykafka.Producer
	CookieSecure bool
}

type RegisterRequest struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=72"`
}

func CreateCookie(name, value, path string, expTime time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expTime,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (h *AuthHandler) setTokenCookie(c echo.Context, raw string) {
	c.SetCookie(CreateCookie(authmw.CookieName, raw, "/", time.Now().Add(h.Issuer.TTL()), h.CookieSecure))
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "err", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "malformed request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:         req.Name,
		Email:        NormalizeEmail(req.Email),
		PasswordHash: pwHash,
		Role:         models.RoleUser,
		Active:       true,
	}
	// Uniqueness is enforced by the index; a pre-check SELECT would race.
	if err := h.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("email already exists")
		}
		return fmt.Errorf("create user: %w", err)
	}

	raw, err := h.Issuer.Sign(user.ID, user.Role)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	h.setTokenCookie(c, raw)

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"token": raw,
		"user":  user,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "malformed request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	// One failure message for unknown email, wrong password and disabled
	// account, so callers cannot probe which emails are registered.
	var user models.User
	err := h.DB.Where("email = ?", NormalizeEmail(req.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Unauthenticated("invalid credentials")
		}
		return fmt.Errorf("find user: %w", err)
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return apperr.Unauthenticated("invalid credentials")
	}
	if !user.Active {
		return apperr.Unauthenticated("invalid credentials")
	}

	now := time.Now()
	if err := h.DB.Model(&user).Update("last_login_at", now).Error; err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	user.LastLoginAt = &now

	raw, err := h.Issuer.Sign(user.ID, user.Role)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	h.setTokenCookie(c, raw)

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"token": raw,
		"user":  user,
	})
}

// LogOut only clears the client-held cookie. The token itself stays valid
// until expiry: tokens are stateless and there is no server-side revocation.
func (h *AuthHandler) LogOut(c echo.Context) error {
	c.SetCookie(CreateCookie(authmw.CookieName, "logged-out", "/", time.Now().Add(10*time.Second), h.CookieSecure))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out",
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	user, ok := authmw.CurrentUser(c)
	if !ok {
		return errors.New("me handler reached without an authenticated account in context")
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	user, ok := authmw.CurrentUser(c)
	if !ok {
		return errors.New("password handler reached without an authenticated account in context")
	}

	var req UpdatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "malformed request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if !hash.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return apperr.Unauthenticated("current password is incorrect")
	}

	pwHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := h.DB.Model(user).Update("password_hash", pwHash).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "password updated",
	})
}
