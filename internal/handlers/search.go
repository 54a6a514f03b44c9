package handlers

import (
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/okulikov/shopapi/internal/apperr"
	"github.com/okulikov/shopapi/internal/es"
	"github.com/okulikov/shopapi/internal/util"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return apperr.Validation(apperr.FieldError{Field: "q", Message: "is required"})
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, size := util.Calculate(page, size)

	total, products, err := es.SearchProducts(c.Request().Context(), h.ES, h.Index, q, from, size)
	if err != nil {
		return fmt.Errorf("search products: %w", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total":    total,
		"products": products,
	})
}
