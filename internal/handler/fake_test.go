package handler

import (
	"context"
	"database/sql"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/timeslot"
	"github.com/iliyamo/table-reservation/internal/utils"
)

const testSecret = "handler-secret"

type fakeBookings struct {
	created   []service.CreateRequest
	updated   []service.UpdateRequest
	statusArg struct {
		id     uint64
		next   model.ReservationStatus
		actor  string
		reason string
	}
	filter  model.ReservationFilter
	deleted []uint64

	res  *model.Reservation
	list []model.Reservation
	err  error
}

func (f *fakeBookings) Create(_ context.Context, req service.CreateRequest) (*model.Reservation, error) {
	f.created = append(f.created, req)
	return f.res, f.err
}

func (f *fakeBookings) ChangeStatus(_ context.Context, id uint64, next model.ReservationStatus, actor, reason string) (*model.Reservation, error) {
	f.statusArg.id, f.statusArg.next, f.statusArg.actor, f.statusArg.reason = id, next, actor, reason
	return f.res, f.err
}

func (f *fakeBookings) Update(_ context.Context, _ uint64, req service.UpdateRequest) (*model.Reservation, error) {
	f.updated = append(f.updated, req)
	return f.res, f.err
}

func (f *fakeBookings) Get(context.Context, uint64) (*model.Reservation, error) { return f.res, f.err }

func (f *fakeBookings) List(_ context.Context, flt model.ReservationFilter) ([]model.Reservation, error) {
	f.filter = flt
	return f.list, f.err
}

func (f *fakeBookings) Delete(_ context.Context, id uint64) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

type fakeGrid struct {
	loc    uint64
	date   time.Time
	guests int
	slots  []service.AvailabilitySlot
	err    error
}

func (g *fakeGrid) Build(_ context.Context, loc uint64, date time.Time, guests int) ([]service.AvailabilitySlot, error) {
	g.loc, g.date, g.guests = loc, date, guests
	return g.slots, g.err
}

type fakeLocations struct {
	byID     map[uint64]*model.Location
	created  []*model.Location
	hoursSet map[uint64][]model.OpeningHours
	err      error
}

func (f *fakeLocations) GetByID(_ context.Context, id uint64) (*model.Location, error) {
	if l, ok := f.byID[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLocations) List(_ context.Context, includeInactive bool) ([]model.Location, error) {
	var out []model.Location
	for id := uint64(1); id <= uint64(len(f.byID)); id++ {
		if l, ok := f.byID[id]; ok && (includeInactive || l.IsActive) {
			out = append(out, *l)
		}
	}
	return out, f.err
}

func (f *fakeLocations) Create(_ context.Context, l *model.Location) error {
	if f.err != nil {
		return f.err
	}
	l.ID = uint64(len(f.byID) + 1)
	f.byID[l.ID] = l
	f.created = append(f.created, l)
	return nil
}

func (f *fakeLocations) Update(_ context.Context, l *model.Location) error {
	if _, ok := f.byID[l.ID]; !ok {
		return sql.ErrNoRows
	}
	f.byID[l.ID] = l
	return f.err
}

func (f *fakeLocations) SetHours(_ context.Context, id uint64, hours []model.OpeningHours) error {
	l, ok := f.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	l.Hours = hours
	if f.hoursSet == nil {
		f.hoursSet = map[uint64][]model.OpeningHours{}
	}
	f.hoursSet[id] = hours
	return nil
}

type fakeTables struct {
	tables      []model.Table
	err         error
	deactivated []uint64
}

func (f *fakeTables) ListActive(_ context.Context, loc uint64) ([]model.Table, error) {
	var out []model.Table
	for _, t := range f.tables {
		if t.LocationID == loc && t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTables) ListByLocation(_ context.Context, loc uint64) ([]model.Table, error) {
	var out []model.Table
	for _, t := range f.tables {
		if t.LocationID == loc {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTables) GetByID(_ context.Context, id uint64) (*model.Table, error) {
	for _, t := range f.tables {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTables) Create(_ context.Context, t *model.Table) error {
	if f.err != nil {
		return f.err
	}
	t.ID = uint64(len(f.tables) + 1)
	f.tables = append(f.tables, *t)
	return nil
}

func (f *fakeTables) Update(_ context.Context, t *model.Table) error {
	for i := range f.tables {
		if f.tables[i].ID == t.ID {
			f.tables[i] = *t
			return f.err
		}
	}
	return sql.ErrNoRows
}

func (f *fakeTables) Deactivate(_ context.Context, id uint64) error {
	for i := range f.tables {
		if f.tables[i].ID == id {
			f.tables[i].IsActive = false
			f.deactivated = append(f.deactivated, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

type countingPurger struct{ n int }

func (p *countingPurger) Purge(context.Context) error { p.n++; return nil }

func sampleReservation() *model.Reservation {
	d, _ := timeslot.ParseDate("2025-03-14")
	by := "user:7"
	return &model.Reservation{
		ID:          12,
		Code:        "6f1c0d1e-5b7a-4d0c-9b59-3d2c8f1e2a10",
		LocationID:  1,
		Type:        model.TypeTable,
		TableIDs:    []uint64{2, 3},
		Customer:    model.Customer{Name: "Ada", Phone: "+1 555 0100"},
		Date:        d,
		Window:      timeslot.Slot{Start: timeslot.MustClock("18:30"), End: timeslot.MustClock("20:30")},
		Guests:      5,
		Status:      model.StatusConfirmed,
		ConfirmedBy: &by,
		History: []model.StatusHistoryEntry{
			{ReservationID: 12, Status: model.StatusPending, ChangedBy: "customer", Reason: "Reservation created"},
			{ReservationID: 12, Status: model.StatusConfirmed, ChangedBy: "user:7"},
		},
	}
}

func bearerFor(t *testing.T, uid uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, uid, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

// call routes one request through a fresh echo instance. When auth is
// non-empty the route runs behind JWTAuth and it becomes the
// Authorization header.
func call(t *testing.T, method, route, target, body, auth string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	var mw []echo.MiddlewareFunc
	if auth != "" {
		mw = append(mw, middleware.JWTAuth(testSecret))
	}
	e.Add(method, route, h, mw...)

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
