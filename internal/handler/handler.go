package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"procurement-service/internal/apperr"
)

// parseID parses the :id path parameter. A malformed id is a validation
// error, not a lookup miss.
func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, apperr.Validation("Invalid ID format")
	}
	return uint(id), nil
}

// parsePagination parses the page/limit query parameters with the defaults
// page=1 limit=10. Non-positive values are rejected.
func parsePagination(c echo.Context) (page, limit int, err error) {
	page, limit = 1, 10
	if v := c.QueryParam("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, apperr.Validation("Page and limit must be positive integers.")
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, apperr.Validation("Page and limit must be positive integers.")
		}
	}
	if page < 1 || limit < 1 {
		return 0, 0, apperr.Validation("Page and limit must be positive integers.")
	}
	return page, limit, nil
}

// totalPages computes the page count for a list response.
func totalPages(total int64, limit int) int64 {
	return (total + int64(limit) - 1) / int64(limit)
}

// respondError translates any error into the {message, status} body the API
// promises. Everything without a status of its own becomes a generic 500
// that leaks no internal detail.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	appErr := apperr.From(err)
	if appErr.Status == http.StatusInternalServerError {
		log.Error("Request failed", zap.Error(err))
	} else {
		log.Warn("Request rejected",
			zap.Int("status", appErr.Status),
			zap.String("message", appErr.Message))
	}
	return c.JSON(appErr.Status, appErr)
}
