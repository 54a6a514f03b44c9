package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/okulikov/shopapi/internal/apperr"
)

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewHTTPErrorHandler maps operational errors to their status with the
// message passed through verbatim. Everything else is logged with full detail
// and answered with a generic body so internals never leak to callers.
func NewHTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if ae := apperr.As(err); ae != nil {
			body := echo.Map{"error": ae.Message}
			if len(ae.Fields) > 0 {
				body["fields"] = ae.Fields
			}
			_ = c.JSON(statusOf(ae.Kind), body)
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
			_ = c.JSON(he.Code, echo.Map{"error": fmt.Sprint(he.Message)})
			return
		}

		log.Error("request failed",
			"err", err,
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}
