package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/okulikov/shopapi/internal/apperr"
	"github.com/okulikov/shopapi/internal/logging"
	"github.com/okulikov/shopapi/internal/models"
	"github.com/okulikov/shopapi/internal/mykafka"
	"github.com/okulikov/shopapi/internal/util"
)

// UserHandler covers the admin-only account operations: listing, role change
// and soft-disable. Accounts are never hard-deleted.
type UserHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

func (h *UserHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "err", err)
	}
}

func userID(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return 0, apperr.Validation(apperr.FieldError{Field: "id", Message: "must be a positive integer"})
	}
	return uint(id), nil
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)
	if page < 1 {
		page = 1
	}

	var total int64
	if err := h.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	var users []models.User
	if err := h.DB.Model(&models.User{}).
		Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": users,
		"meta": map[string]any{
			"page":     page,
			"size":     limit,
			"total":    total,
			"has_prev": page > 1,
			"has_next": int64(offset+limit) < total,
		},
	})
}

func (h *UserHandler) UpdateRole(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	var req UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "malformed request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user not found")
		}
		return fmt.Errorf("load user %d: %w", id, err)
	}

	if err := h.DB.Model(&user).Update("role", req.Role).Error; err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	user.Role = req.Role

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":   "user_role_changed",
		"userID": user.ID,
		"role":   user.Role,
	})

	return c.JSON(http.StatusOK, user)
}

// DeactivateUser flips the active flag. Outstanding tokens for the account
// keep verifying cryptographically, but the resolver rejects them on the
// liveness check, which is the only revocation this design has.
func (h *UserHandler) DeactivateUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	result := h.DB.Model(&models.User{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		return fmt.Errorf("deactivate user %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("user not found")
	}

	h.publish(c, fmt.Sprint(id), map[string]any{
		"type":   "user_deactivated",
		"userID": id,
	})

	return c.NoContent(http.StatusNoContent)
}
