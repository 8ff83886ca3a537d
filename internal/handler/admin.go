package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
)

// AdminHandler manages the venue catalogue: locations, their weekly hours
// and their tables. Every successful write purges the public response
// cache.
type AdminHandler struct {
	Locations LocationStore
	Tables    TableStore
	Cache     CachePurger
	Errors    *ErrorMapper
}

func NewAdminHandler(locations LocationStore, tables TableStore, cache CachePurger) *AdminHandler {
	if locations == nil || tables == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Locations: locations, Tables: tables, Cache: cache, Errors: NewErrorMapper()}
}

type hoursReq struct {
	Weekday int    `json:"weekday"`
	Open    string `json:"open"`
	Close   string `json:"close"`
}

type locationReq struct {
	Name     string     `json:"name"`
	Address  string     `json:"address"`
	Phone    string     `json:"phone"`
	IsActive *bool      `json:"is_active"`
	Hours    []hoursReq `json:"hours"`
}

type tableReq struct {
	Number   int    `json:"number"`
	Seats    int    `json:"seats"`
	Zone     string `json:"zone"`
	IsActive *bool  `json:"is_active"`
}

func toHours(in []hoursReq) ([]model.OpeningHours, string) {
	out := make([]model.OpeningHours, len(in))
	for i, h := range in {
		out[i] = model.OpeningHours{Weekday: time.Weekday(h.Weekday), Open: strings.TrimSpace(h.Open), Close: strings.TrimSpace(h.Close)}
	}
	if err := model.ValidateHours(out); err != nil {
		return nil, "invalid hours: " + err.Error()
	}
	return out, ""
}

// CreateLocation handles POST /v1/admin/locations.
func (h *AdminHandler) CreateLocation(c echo.Context) error {
	var req locationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	loc := &model.Location{
		Name:     strings.TrimSpace(req.Name),
		Address:  strings.TrimSpace(req.Address),
		Phone:    strings.TrimSpace(req.Phone),
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if loc.Name == "" {
		return badRequest(c, "name is required")
	}
	hours, msg := toHours(req.Hours)
	if msg != "" {
		return badRequest(c, msg)
	}
	loc.Hours = hours

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Locations.Create(ctx, loc); err != nil {
		return h.Errors.Respond(c, err)
	}
	h.purge(ctx)
	return item(c, http.StatusCreated, loc)
}

// UpdateLocation handles PUT /v1/admin/locations/:id. Hours are managed
// separately through SetHours.
func (h *AdminHandler) UpdateLocation(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req locationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	loc, err := h.Locations.GetByID(ctx, id)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		loc.Name = name
	}
	if req.Address != "" {
		loc.Address = strings.TrimSpace(req.Address)
	}
	if req.Phone != "" {
		loc.Phone = strings.TrimSpace(req.Phone)
	}
	if req.IsActive != nil {
		loc.IsActive = *req.IsActive
	}
	if err := h.Locations.Update(ctx, loc); err != nil {
		return h.Errors.Respond(c, err)
	}
	h.purge(ctx)
	return item(c, http.StatusOK, loc)
}

// SetHours handles PUT /v1/admin/locations/:id/hours with a JSON array of
// {weekday, open, close}. Weekdays left out become closed days. Existing
// bookings are not re-validated against the new hours.
func (h *AdminHandler) SetHours(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req []hoursReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	hours, msg := toHours(req)
	if msg != "" {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Locations.SetHours(ctx, id, hours); err != nil {
		return h.Errors.Respond(c, err)
	}
	h.purge(ctx)
	loc, err := h.Locations.GetByID(ctx, id)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return item(c, http.StatusOK, loc)
}

// CreateTable handles POST /v1/admin/locations/:id/tables.
func (h *AdminHandler) CreateTable(c echo.Context) error {
	locID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req tableReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	t := &model.Table{LocationID: locID, IsActive: req.IsActive == nil || *req.IsActive}
	if msg := applyTable(t, req, true); msg != "" {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tables.Create(ctx, t); err != nil {
		return h.Errors.Respond(c, err)
	}
	h.purge(ctx)
	return item(c, http.StatusCreated, t)
}

// UpdateTable handles PUT /v1/admin/tables/:id. Zero fields are kept.
func (h *AdminHandler) UpdateTable(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req tableReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tables.GetByID(ctx, id)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	if msg := applyTable(t, req, false); msg != "" {
		return badRequest(c, msg)
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if err := h.Tables.Update(ctx, t); err != nil {
		return h.Errors.Respond(c, err)
	}
	h.purge(ctx)
	return item(c, http.StatusOK, t)
}

// DeactivateTable handles DELETE /v1/admin/tables/:id. Tables are never
// removed so past reservations keep their assignments.
func (h *AdminHandler) DeactivateTable(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tables.Deactivate(ctx, id); err != nil {
		return h.Errors.Respond(c, err)
	}
	h.purge(ctx)
	return c.NoContent(http.StatusNoContent)
}

// applyTable copies the request onto t. On create, number, seats and zone
// are required; on update, zero values keep the current field.
func applyTable(t *model.Table, req tableReq, create bool) string {
	if req.Number < 0 || req.Seats < 0 {
		return "number and seats must be positive"
	}
	if create && (req.Number == 0 || req.Seats == 0) {
		return "number and seats are required"
	}
	if req.Number > 0 {
		t.Number = req.Number
	}
	if req.Seats > 0 {
		t.Seats = req.Seats
	}
	if req.Zone != "" || create {
		zone := req.Zone
		if zone == "" {
			zone = string(model.ZoneMainHall)
		}
		z, ok := model.ParseZone(zone)
		if !ok {
			return "zone must be one of main_hall, garden, vip, bar"
		}
		t.Zone = z
	}
	return ""
}

func (h *AdminHandler) purge(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("response cache purge failed", slog.Any("err", err))
	}
}
