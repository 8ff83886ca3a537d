package handler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/service"
)

// ErrorMapping maps one error (matched with errors.Is) to a response. An
// empty Message passes the business error's own message through.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string
}

// ErrorMapper turns errors returned by the core and the repositories into
// HTTP statuses and client-safe messages.
type ErrorMapper struct {
	mappings       []ErrorMapping
	defaultStatus  int
	defaultMessage string
}

// NewErrorMapper returns a mapper preloaded with the booking error kinds.
// Capacity, conflict and transition failures are all 409: the request was
// well formed but the current state of the venue rejects it.
func NewErrorMapper() *ErrorMapper {
	m := &ErrorMapper{
		defaultStatus:  http.StatusInternalServerError,
		defaultMessage: "internal server error",
	}
	return m.
		WithMapping(service.ErrValidation, http.StatusBadRequest, "").
		WithMapping(service.ErrNotFound, http.StatusNotFound, "").
		WithMapping(service.ErrCapacity, http.StatusConflict, "").
		WithMapping(service.ErrConflict, http.StatusConflict, "").
		WithMapping(service.ErrInvalidTransition, http.StatusConflict, "").
		WithMapping(sql.ErrNoRows, http.StatusNotFound, "not found").
		WithMapping(repository.ErrEmailExists, http.StatusConflict, "email already exists").
		WithMapping(repository.ErrDuplicate, http.StatusConflict, "already exists").
		WithMapping(repository.ErrMissingParent, http.StatusNotFound, "referenced resource not found").
		WithMapping(repository.ErrTooLong, http.StatusBadRequest, "value too long")
}

// WithMapping adds a mapping. Earlier mappings win.
func (m *ErrorMapper) WithMapping(err error, status int, message string) *ErrorMapper {
	m.mappings = append(m.mappings, ErrorMapping{Error: err, Status: status, Message: message})
	return m
}

// Map returns the status and message for err.
func (m *ErrorMapper) Map(err error) (int, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "request timeout"
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable, "request cancelled"
	}
	for _, mp := range m.mappings {
		if !errors.Is(err, mp.Error) {
			continue
		}
		msg := mp.Message
		if msg == "" {
			msg = service.Message(err)
		}
		if msg == "" {
			msg = http.StatusText(mp.Status)
		}
		return mp.Status, msg
	}
	return m.defaultStatus, m.defaultMessage
}

// Respond writes the error envelope for err. Unmapped faults are logged
// with the request id; their detail never reaches the client.
func (m *ErrorMapper) Respond(c echo.Context, err error) error {
	status, msg := m.Map(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			slog.String("method", c.Request().Method),
			slog.String("path", c.Path()),
			slog.Any("err", err))
	}
	return c.JSON(status, echo.Map{"error": msg})
}
