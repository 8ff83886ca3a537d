package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// PublicHandler serves the anonymous catalogue, availability and booking
// endpoints.
type PublicHandler struct {
	Locations LocationStore
	Tables    TableStore
	Grid      Availability
	Bookings  Bookings
	Errors    *ErrorMapper
}

func NewPublicHandler(locations LocationStore, tables TableStore, grid Availability, bookings Bookings) *PublicHandler {
	if locations == nil || tables == nil || grid == nil || bookings == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	return &PublicHandler{Locations: locations, Tables: tables, Grid: grid, Bookings: bookings, Errors: NewErrorMapper()}
}

// ListLocations handles GET /v1/locations. Inactive venues are hidden.
func (h *PublicHandler) ListLocations(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	locs, err := h.Locations.List(ctx, false)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return items(c, locs)
}

// GetLocation handles GET /v1/locations/:id.
func (h *PublicHandler) GetLocation(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	loc, err := h.activeLocation(c, id)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return item(c, http.StatusOK, loc)
}

// ListTables handles GET /v1/locations/:id/tables: the bookable tables in
// number order.
func (h *PublicHandler) ListTables(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if _, err := h.activeLocation(c, id); err != nil {
		return h.Errors.Respond(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	tables, err := h.Tables.ListActive(ctx, id)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	model.SortByNumber(tables)
	return items(c, tables)
}

// Availability handles GET /v1/locations/:id/availability?date=&guests=.
func (h *PublicHandler) Availability(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	date, err := timeslot.ParseDate(c.QueryParam("date"))
	if err != nil {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	guests := 1
	if g := strings.TrimSpace(c.QueryParam("guests")); g != "" {
		if guests, err = strconv.Atoi(g); err != nil {
			return badRequest(c, "guests must be a number")
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	grid, err := h.Grid.Build(ctx, id, date, guests)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return items(c, grid)
}

type createReservationReq struct {
	LocationID uint64   `json:"location_id"`
	Type       string   `json:"type"`
	Date       string   `json:"date"`
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
	Guests     int      `json:"guests"`
	TableIDs   []uint64 `json:"table_ids"`
	Customer   struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email"`
	} `json:"customer"`
	Notes string `json:"notes"`
}

func (r createReservationReq) toService(actor string) service.CreateRequest {
	typ := model.ReservationType(strings.ToLower(strings.TrimSpace(r.Type)))
	if typ == "" {
		typ = model.TypeTable
	}
	return service.CreateRequest{
		LocationID: r.LocationID,
		Type:       typ,
		Date:       strings.TrimSpace(r.Date),
		StartTime:  strings.TrimSpace(r.StartTime),
		EndTime:    strings.TrimSpace(r.EndTime),
		Guests:     r.Guests,
		TableIDs:   r.TableIDs,
		Customer:   model.Customer{Name: r.Customer.Name, Phone: r.Customer.Phone, Email: r.Customer.Email},
		Notes:      strings.TrimSpace(r.Notes),
		Actor:      actor,
	}
}

// CreateReservation handles POST /v1/reservations. Public bookings start
// pending and are recorded as made by the customer.
func (h *PublicHandler) CreateReservation(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.LocationID == 0 {
		return badRequest(c, "location_id required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Bookings.Create(ctx, req.toService(service.ActorCustomer))
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return item(c, http.StatusCreated, viewPublic(r))
}

// activeLocation hides inactive venues behind 404.
func (h *PublicHandler) activeLocation(c echo.Context, id uint64) (*model.Location, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()
	loc, err := h.Locations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &service.Error{Kind: service.ErrNotFound, Msg: "location not found"}
		}
		return nil, err
	}
	if !loc.IsActive {
		return nil, &service.Error{Kind: service.ErrNotFound, Msg: "location not found"}
	}
	return loc, nil
}

// actorOf names the staff member behind a request.
func actorOf(c echo.Context) string { return middleware.Actor(c) }
