package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// ActorCustomer is recorded as changedBy for public bookings.
const ActorCustomer = "customer"

// Column widths of the reservation tables, in characters.
const (
	maxNameLen   = 120
	maxPhoneLen  = 40
	maxEmailLen  = 255
	maxActorLen  = 64
	maxReasonLen = 255
)

// CreateRequest is a booking request. EndTime may be empty, in which case
// the default duration applies, clipped to closing time.
type CreateRequest struct {
	LocationID uint64
	Type       model.ReservationType
	Date       string // YYYY-MM-DD
	StartTime  string // HH:MM
	EndTime    string // HH:MM, optional
	Guests     int
	TableIDs   []uint64
	Customer   model.Customer
	Notes      string
	Actor      string
}

// UpdateRequest edits a reservation. Nil fields are left unchanged.
type UpdateRequest struct {
	Date      *string
	StartTime *string
	EndTime   *string
	Guests    *int
	Notes     *string
	Actor     string
}

// Manager is the single write path for reservations. Every write that can
// change table occupancy re-checks conflicts inside the (location, date)
// lock held by the Transactor.
type Manager struct {
	repos  Repositories
	tx     Transactor
	events EventSink
	cfg    config.BookingConfig
	now    func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(repos Repositories, tx Transactor, events EventSink, cfg config.BookingConfig, opts ...Option) *Manager {
	if repos.Locations == nil || repos.Tables == nil || repos.Reservations == nil || tx == nil {
		panic("nil dependency passed to NewManager")
	}
	if events == nil {
		events = nopSink{}
	}
	m := &Manager{repos: repos, tx: tx, events: events, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create validates and stores a pending reservation, allocating tables when
// none were requested.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*model.Reservation, error) {
	if !req.Type.Valid() {
		return nil, validationf("type must be one of table, event, full_venue")
	}
	date, err := m.parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	start, err := timeslot.ParseClock(req.StartTime)
	if err != nil || start == timeslot.EndOfDay {
		return nil, validationf("start_time must be HH:MM")
	}
	var end timeslot.Clock
	if strings.TrimSpace(req.EndTime) != "" {
		if end, err = timeslot.ParseClock(req.EndTime); err != nil {
			return nil, validationf("end_time must be HH:MM")
		}
		if end <= start {
			return nil, validationf("start_time must be before end_time")
		}
	}
	if err := m.checkGuests(req.Guests); err != nil {
		return nil, err
	}
	customer, err := normalizeCustomer(req.Customer)
	if err != nil {
		return nil, err
	}
	requested, err := uniqueIDs(req.TableIDs)
	if err != nil {
		return nil, err
	}
	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		actor = ActorCustomer
	}
	if err := maxLen("actor", actor, maxActorLen); err != nil {
		return nil, err
	}

	var created *model.Reservation
	err = m.tx.WithinDay(ctx, req.LocationID, date, func(ctx context.Context, repos Repositories) error {
		loc, active, err := NewCapacityIndex(repos.Locations, repos.Tables).Load(ctx, req.LocationID)
		if err != nil {
			return err
		}
		window, err := m.fitWindow(loc, date, start, end)
		if err != nil {
			return err
		}
		book, err := NewConflictResolver(repos.Reservations, repos.Tables).Day(ctx, loc.ID, date, active)
		if err != nil {
			return err
		}
		tables, err := assignTables(req.Type, req.Guests, requested, nil, active, book, window)
		if err != nil {
			return err
		}

		now := m.now().UTC()
		r := &model.Reservation{
			Code:       uuid.NewString(),
			LocationID: loc.ID,
			Type:       req.Type,
			TableIDs:   tables,
			Customer:   customer,
			Date:       date,
			Window:     window,
			Guests:     req.Guests,
			Status:     model.StatusPending,
			Notes:      strings.TrimSpace(req.Notes),
			History: []model.StatusHistoryEntry{{
				Status:    model.StatusPending,
				ChangedBy: actor,
				ChangedAt: now,
				Reason:    "reservation created",
			}},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repos.Reservations.Insert(ctx, r); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("reservation created",
		slog.Uint64("reservation_id", created.ID),
		slog.Uint64("location_id", created.LocationID),
		slog.String("type", string(created.Type)),
		slog.String("date", created.Date.Format(timeslot.DateLayout)),
		slog.String("window", created.Window.String()),
		slog.Any("tables", created.TableIDs))
	m.events.Emit(ctx, queue.NewEvent(queue.EventReservationCreated, created, m.now()))
	return created, nil
}

// ChangeStatus moves a reservation through the lifecycle and appends a
// history entry. Confirming re-validates the booking against the rest of
// its day.
func (m *Manager) ChangeStatus(ctx context.Context, id uint64, next model.ReservationStatus, actor, reason string) (*model.Reservation, error) {
	if !next.Valid() {
		return nil, validationf("status must be one of pending, confirmed, cancelled, completed")
	}
	actor = strings.TrimSpace(actor)
	reason = strings.TrimSpace(reason)
	if err := maxLen("actor", actor, maxActorLen); err != nil {
		return nil, err
	}
	if err := maxLen("reason", reason, maxReasonLen); err != nil {
		return nil, err
	}
	current, err := m.get(ctx, m.repos.Reservations, id)
	if err != nil {
		return nil, err
	}

	var (
		updated *model.Reservation
		prev    model.ReservationStatus
		why     string
	)
	err = m.tx.WithinDay(ctx, current.LocationID, current.Date, func(ctx context.Context, repos Repositories) error {
		r, err := m.get(ctx, repos.Reservations, id)
		if err != nil {
			return err
		}
		if !r.Date.Equal(current.Date) {
			return conflictf("reservation %d was modified concurrently, retry", id)
		}
		if !r.Status.CanTransitionTo(next) {
			return transitionf("cannot change status from %s to %s", r.Status, next)
		}
		if next == model.StatusConfirmed {
			if err := m.recheck(ctx, repos, r); err != nil {
				return err
			}
		}

		now := m.now().UTC()
		why = reason
		if why == "" {
			why = fmt.Sprintf("status changed from %s to %s", r.Status, next)
		}
		patch := model.StatusPatch{
			Status: next,
			Entry: model.StatusHistoryEntry{
				ReservationID: id,
				Status:        next,
				ChangedBy:     actor,
				ChangedAt:     now,
				Reason:        why,
			},
		}
		if next == model.StatusConfirmed {
			by := actor
			patch.ConfirmedBy = &by
			patch.ConfirmedAt = &now
		}
		prev = r.Status
		updated, err = repos.Reservations.UpdateStatus(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("reservation status changed",
		slog.Uint64("reservation_id", id),
		slog.String("from", string(prev)),
		slog.String("to", string(next)),
		slog.String("actor", actor))
	ev := queue.NewEvent(queue.EventReservationStatusChanged, updated, m.now())
	ev.PreviousStatus = string(prev)
	ev.Actor = actor
	ev.Reason = why
	m.events.Emit(ctx, ev)
	return updated, nil
}

// Update edits date, window, party size or notes. Scheduling edits run the
// same conflict and capacity checks as Create; current tables are kept when
// they remain free and large enough, otherwise tables are reallocated.
func (m *Manager) Update(ctx context.Context, id uint64, req UpdateRequest) (*model.Reservation, error) {
	current, err := m.get(ctx, m.repos.Reservations, id)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, transitionf("cannot edit a %s reservation", current.Status)
	}

	date := current.Date
	if req.Date != nil {
		if date, err = m.parseDate(*req.Date); err != nil {
			return nil, err
		}
	}
	start, end := current.Window.Start, current.Window.End
	if req.StartTime != nil {
		if start, err = timeslot.ParseClock(*req.StartTime); err != nil || start == timeslot.EndOfDay {
			return nil, validationf("start_time must be HH:MM")
		}
		if req.EndTime == nil {
			end = start.Add(current.Window.Minutes())
		}
	}
	if req.EndTime != nil {
		if end, err = timeslot.ParseClock(*req.EndTime); err != nil {
			return nil, validationf("end_time must be HH:MM")
		}
	}
	if end <= start {
		return nil, validationf("start_time must be before end_time")
	}
	guests := current.Guests
	if req.Guests != nil {
		guests = *req.Guests
		if err := m.checkGuests(guests); err != nil {
			return nil, err
		}
	}
	window := timeslot.Slot{Start: start, End: end}
	rescheduled := !date.Equal(current.Date) || window != current.Window || guests != current.Guests

	var updated *model.Reservation
	err = m.tx.WithinDay(ctx, current.LocationID, date, func(ctx context.Context, repos Repositories) error {
		r, err := m.get(ctx, repos.Reservations, id)
		if err != nil {
			return err
		}
		if r.Status.IsTerminal() {
			return transitionf("cannot edit a %s reservation", r.Status)
		}
		if rescheduled {
			loc, active, err := NewCapacityIndex(repos.Locations, repos.Tables).Load(ctx, r.LocationID)
			if err != nil {
				return err
			}
			if _, err := m.fitWindow(loc, date, window.Start, window.End); err != nil {
				return err
			}
			book, err := NewConflictResolver(repos.Reservations, repos.Tables).Day(ctx, r.LocationID, date, active, IgnoreReservation(r.ID))
			if err != nil {
				return err
			}
			tables, err := assignTables(r.Type, guests, nil, r.TableIDs, active, book, window)
			if err != nil {
				return err
			}
			r.Date, r.Window, r.Guests, r.TableIDs = date, window, guests, tables
		}
		if req.Notes != nil {
			r.Notes = strings.TrimSpace(*req.Notes)
		}
		r.UpdatedAt = m.now().UTC()
		if err := repos.Reservations.UpdateDetails(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := queue.NewEvent(queue.EventReservationUpdated, updated, m.now())
	ev.Actor = strings.TrimSpace(req.Actor)
	m.events.Emit(ctx, ev)
	return updated, nil
}

// Get loads one reservation with its tables and history.
func (m *Manager) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	return m.get(ctx, m.repos.Reservations, id)
}

// List returns reservations matching f, newest date first.
func (m *Manager) List(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validationf("unknown status %q", f.Status)
	}
	return m.repos.Reservations.List(ctx, f)
}

// Delete removes a reservation outright. It is an administrative action
// outside the lifecycle.
func (m *Manager) Delete(ctx context.Context, id uint64) error {
	err := m.repos.Reservations.Delete(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundf("reservation %d not found", id)
	}
	if err == nil {
		slog.Info("reservation deleted", slog.Uint64("reservation_id", id))
	}
	return err
}

func (m *Manager) get(ctx context.Context, repo ReservationRepository, id uint64) (*model.Reservation, error) {
	r, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundf("reservation %d not found", id)
		}
		return nil, err
	}
	return r, nil
}

// recheck verifies that r still fits among the other bookings of its day.
func (m *Manager) recheck(ctx context.Context, repos Repositories, r *model.Reservation) error {
	active, err := repos.Tables.ListActive(ctx, r.LocationID)
	if err != nil {
		return err
	}
	book, err := NewConflictResolver(repos.Reservations, repos.Tables).Day(ctx, r.LocationID, r.Date, active, IgnoreReservation(r.ID))
	if err != nil {
		return err
	}
	if r.Type == model.TypeFullVenue {
		if other := book.FirstHolding(); other != nil {
			return conflictf("location already has reservation %d on this date", other.ID)
		}
		return nil
	}
	if book.FullVenue() != nil {
		return conflictf("location is booked for the whole day")
	}
	held := book.Held(r.Window)
	for _, id := range r.TableIDs {
		if _, ok := held[id]; ok {
			return conflictf("table %d is already booked in this window", id)
		}
	}
	return nil
}

// assignTables applies the per-type booking rules and returns the table ids
// the reservation will hold. requested are tables picked by the caller;
// keep are tables already assigned, reused when still free and sufficient.
func assignTables(typ model.ReservationType, guests int, requested, keep []uint64, active []model.Table, book *DayBook, window timeslot.Slot) ([]uint64, error) {
	switch typ {
	case model.TypeFullVenue:
		if len(requested) > 0 {
			return nil, validationf("full_venue reservations cannot select tables")
		}
		if other := book.FirstHolding(); other != nil {
			return nil, conflictf("location already has a reservation on this date")
		}
		return nil, nil

	case model.TypeTable, model.TypeEvent:
		if book.FullVenue() != nil {
			return nil, conflictf("location is booked for the whole day")
		}
		held := book.Held(window)

		if len(requested) > 0 {
			chosen, err := pickTables(active, requested)
			if err != nil {
				return nil, err
			}
			for _, t := range chosen {
				if _, ok := held[t.ID]; ok {
					return nil, conflictf("table %d is already booked in the requested window", t.Number)
				}
			}
			if typ == model.TypeTable && model.TotalSeats(chosen) < guests {
				return nil, capacityf("selected tables seat %d, fewer than %d guests", model.TotalSeats(chosen), guests)
			}
			return tableIDs(chosen), nil
		}

		if len(keep) > 0 {
			if kept, err := pickTables(active, keep); err == nil && !anyHeld(kept, held) &&
				(typ != model.TypeTable || model.TotalSeats(kept) >= guests) {
				return tableIDs(kept), nil
			}
		}
		picked, err := Allocate(book.Free(held), guests)
		if err != nil {
			return nil, capacityf("no tables available for %d guests in the requested window", guests)
		}
		return tableIDs(picked), nil
	}
	return nil, validationf("type must be one of table, event, full_venue")
}

func pickTables(active []model.Table, ids []uint64) ([]model.Table, error) {
	byID := make(map[uint64]model.Table, len(active))
	for _, t := range active {
		byID[t.ID] = t
	}
	out := make([]model.Table, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, validationf("table %d is not an active table of this location", id)
		}
		out = append(out, t)
	}
	return out, nil
}

func anyHeld(tables []model.Table, held map[uint64]struct{}) bool {
	for _, t := range tables {
		if _, ok := held[t.ID]; ok {
			return true
		}
	}
	return false
}

// fitWindow checks a requested window against the opening hours of date.
// A zero end means "default duration, clipped to closing time".
func (m *Manager) fitWindow(loc *model.Location, date time.Time, start, end timeslot.Clock) (timeslot.Slot, error) {
	hours, open := loc.HoursOn(date)
	if !open {
		return timeslot.Slot{}, validationf("location is closed on %s", date.Weekday())
	}
	if end == 0 {
		end = start.Add(m.cfg.DefaultDurationMin)
		if end > hours.End {
			end = hours.End
		}
	}
	w := timeslot.Slot{Start: start, End: end}
	if w.Start >= w.End || !w.Within(hours) {
		return timeslot.Slot{}, validationf("requested window %s is outside opening hours %s", w, hours)
	}
	return w, nil
}

func (m *Manager) parseDate(s string) (time.Time, error) {
	d, err := timeslot.ParseDate(s)
	if err != nil {
		return time.Time{}, validationf("date must be YYYY-MM-DD")
	}
	if !m.cfg.AllowPastDates && d.Before(timeslot.Day(m.now().UTC())) {
		return time.Time{}, validationf("date %s is in the past", s)
	}
	return d, nil
}

func (m *Manager) checkGuests(n int) error {
	if n < 1 {
		return validationf("guests must be at least 1")
	}
	if m.cfg.MaxGuests > 0 && n > m.cfg.MaxGuests {
		return validationf("guests must be at most %d", m.cfg.MaxGuests)
	}
	return nil
}

func normalizeCustomer(c model.Customer) (model.Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.Name == "" {
		return c, validationf("customer name is required")
	}
	if c.Phone == "" {
		return c, validationf("customer phone is required")
	}
	if err := maxLen("customer name", c.Name, maxNameLen); err != nil {
		return c, err
	}
	if err := maxLen("customer phone", c.Phone, maxPhoneLen); err != nil {
		return c, err
	}
	if c.Email != "" {
		if err := maxLen("customer email", c.Email, maxEmailLen); err != nil {
			return c, err
		}
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return c, validationf("customer email is invalid")
		}
	}
	return c, nil
}

func maxLen(field, v string, n int) error {
	if utf8.RuneCountInString(v) > n {
		return validationf("%s must be at most %d characters", field, n)
	}
	return nil
}

func uniqueIDs(ids []uint64) ([]uint64, error) {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			return nil, validationf("table ids must be positive")
		}
		if _, dup := seen[id]; dup {
			return nil, validationf("table %d listed twice", id)
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
