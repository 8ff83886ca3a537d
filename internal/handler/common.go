// Package handler holds the echo HTTP handlers. Handlers decode and
// validate transport input, call the booking core or a repository under a
// bounded context, and render {"item": ...} / {"items": ...} envelopes or
// {"error": "..."} on failure.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

const requestTimeout = 5 * time.Second

// reqCtx bounds downstream calls made on behalf of one request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func item(c echo.Context, status int, v any) error {
	return c.JSON(status, echo.Map{"item": v})
}

func items[T any](c echo.Context, v []T) error {
	if v == nil {
		v = []T{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": v})
}
