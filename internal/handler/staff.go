package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// StaffHandler serves the reservation desk used by STAFF and ADMIN
// accounts.
type StaffHandler struct {
	Bookings Bookings
	Errors   *ErrorMapper
}

func NewStaffHandler(bookings Bookings) *StaffHandler {
	if bookings == nil {
		panic("nil dependency passed to NewStaffHandler")
	}
	return &StaffHandler{Bookings: bookings, Errors: NewErrorMapper()}
}

// List handles GET /v1/staff/reservations?location_id=&date=&status=&limit=.
func (h *StaffHandler) List(c echo.Context) error {
	var f model.ReservationFilter
	if s := c.QueryParam("location_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || id == 0 {
			return badRequest(c, "invalid location_id")
		}
		f.LocationID = id
	}
	if s := c.QueryParam("date"); s != "" {
		d, err := timeslot.ParseDate(s)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		f.Date = &d
	}
	f.Status = model.ReservationStatus(strings.ToLower(strings.TrimSpace(c.QueryParam("status"))))
	f.Limit = defaultListLimit
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return badRequest(c, "invalid limit")
		}
		f.Limit = min(n, maxListLimit)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	rs, err := h.Bookings.List(ctx, f)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return items(c, viewReservations(rs))
}

// Get handles GET /v1/staff/reservations/:id, including status history.
func (h *StaffHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Bookings.Get(ctx, id)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return item(c, http.StatusOK, viewReservation(r))
}

// Create handles POST /v1/staff/reservations, e.g. for phone bookings.
func (h *StaffHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.LocationID == 0 {
		return badRequest(c, "location_id required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Bookings.Create(ctx, req.toService(actorOf(c)))
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return item(c, http.StatusCreated, viewReservation(r))
}

type statusReq struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// ChangeStatus handles PATCH /v1/staff/reservations/:id/status.
func (h *StaffHandler) ChangeStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	next := model.ReservationStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if next == "" {
		return badRequest(c, "status required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Bookings.ChangeStatus(ctx, id, next, actorOf(c), strings.TrimSpace(req.Reason))
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return item(c, http.StatusOK, viewReservation(r))
}

type updateReq struct {
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Guests    *int    `json:"guests"`
	Notes     *string `json:"notes"`
}

// Update handles PATCH /v1/staff/reservations/:id. Omitted fields keep
// their value.
func (h *StaffHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req updateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Date == nil && req.StartTime == nil && req.EndTime == nil && req.Guests == nil && req.Notes == nil {
		return badRequest(c, "nothing to update")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Bookings.Update(ctx, id, service.UpdateRequest{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Guests:    req.Guests,
		Notes:     req.Notes,
		Actor:     actorOf(c),
	})
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return item(c, http.StatusOK, viewReservation(r))
}

// Delete handles DELETE /v1/admin/reservations/:id. It erases the booking
// and its history; cancelling is the normal path.
func (h *StaffHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Bookings.Delete(ctx, id); err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
