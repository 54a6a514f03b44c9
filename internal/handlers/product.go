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

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

type CreateProductRequest struct {
	Name        string  `json:"name"        validate:"required,max=200"`
	Description string  `json:"description" validate:"required"`
	Category    string  `json:"category"    validate:"required,max=100"`
	Price       float64 `json:"price"       validate:"gte=0"`
	Count       uint    `json:"count"`
}

type PatchProductRequest struct {
	Name        *string  `json:"name"        validate:"omitempty,max=200"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"    validate:"omitempty,max=100"`
	Price       *float64 `json:"price"       validate:"omitempty,gte=0"`
	Count       *uint    `json:"count"`
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "err", err)
	}
}

func productID(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return 0, apperr.Validation(apperr.FieldError{Field: "id", Message: "must be a positive integer"})
	}
	return uint(id), nil
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("product not found")
		}
		return fmt.Errorf("load product %d: %w", id, err)
	}

	return c.JSON(http.StatusOK, product)
}

// listFilter maps query parameters onto a conditional gorm chain.
func listFilter(c echo.Context, q *gorm.DB) *gorm.DB {
	if category := c.QueryParam("category"); category != "" {
		q = q.Where("category = ?", category)
	}
	if raw := c.QueryParam("min_price"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			q = q.Where("price >= ?", v)
		}
	}
	if raw := c.QueryParam("max_price"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			q = q.Where("price <= ?", v)
		}
	}
	if raw := c.QueryParam("in_stock"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil && v {
			q = q.Where("count > 0")
		}
	}
	return q
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)
	if page < 1 {
		page = 1
	}

	base := listFilter(c, h.DB.Model(&models.Product{}))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return fmt.Errorf("count products: %w", err)
	}

	var items []models.Product
	if err := listFilter(c, h.DB.Model(&models.Product{})).
		Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "malformed request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	prod := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Count:       req.Count,
	}
	if err := h.DB.Create(&prod).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	h.publish(c, fmt.Sprint(prod.ID), map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}

	var req PatchProductRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "malformed request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("product not found")
		}
		return fmt.Errorf("load product %d: %w", id, err)
	}

	if req.Name != nil {
		prod.Name = *req.Name
	}
	if req.Description != nil {
		prod.Description = *req.Description
	}
	if req.Category != nil {
		prod.Category = *req.Category
	}
	if req.Price != nil {
		prod.Price = *req.Price
	}
	if req.Count != nil {
		prod.Count = *req.Count
	}

	if err := h.DB.Save(&prod).Error; err != nil {
		return fmt.Errorf("save product %d: %w", id, err)
	}

	h.publish(c, fmt.Sprint(prod.ID), map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusOK, prod)
}

// DeleteProduct is a soft delete: the row keeps its data and is excluded from
// default queries by the deleted_at marker.
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}

	if err := h.DB.Delete(&models.Product{}, id).Error; err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}

	h.publish(c, fmt.Sprint(id), map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})

	return c.NoContent(http.StatusNoContent)
}
