package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
)

// memStore is an in-memory implementation of the repositories. dayLocker
// serializes on dayMu, standing in for the row lock taken by the SQL store.
type memStore struct {
	dayMu sync.Mutex

	mu           sync.Mutex
	locations    map[uint64]model.Location
	tables       []model.Table
	reservations map[uint64]model.Reservation
	nextID       uint64
	findCalls    int
}

func newMemStore() *memStore {
	return &memStore{
		locations:    map[uint64]model.Location{},
		reservations: map[uint64]model.Reservation{},
	}
}

func (s *memStore) GetByID(_ context.Context, id uint64) (*model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &l, nil
}

func (s *memStore) ListActive(_ context.Context, locationID uint64) ([]model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Table
	// reverse order so callers cannot rely on storage order
	for i := len(s.tables) - 1; i >= 0; i-- {
		t := s.tables[i]
		if t.LocationID == locationID && t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) FindOverlapping(_ context.Context, locationID uint64, from, to time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	want := map[model.ReservationStatus]bool{}
	for _, st := range statuses {
		want[st] = true
	}
	var out []model.Reservation
	for _, r := range s.sortedLocked() {
		if r.LocationID != locationID || !want[r.Status] {
			continue
		}
		if r.Date.Before(from) || r.Date.After(to) {
			continue
		}
		out = append(out, cloneReservation(r))
	}
	return out, nil
}

func (s *memStore) Insert(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	for i := range r.History {
		r.History[i].ReservationID = r.ID
		r.History[i].ID = uint64(i + 1)
	}
	s.reservations[r.ID] = cloneReservation(*r)
	return nil
}

func (s *memStore) UpdateStatus(_ context.Context, id uint64, patch model.StatusPatch) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	r = cloneReservation(r)
	r.Status = patch.Status
	if patch.ConfirmedBy != nil {
		r.ConfirmedBy = patch.ConfirmedBy
		r.ConfirmedAt = patch.ConfirmedAt
	}
	entry := patch.Entry
	entry.ID = uint64(len(r.History) + 1)
	r.History = append(r.History, entry)
	r.UpdatedAt = entry.ChangedAt
	s.reservations[id] = r
	out := cloneReservation(r)
	return &out, nil
}

func (s *memStore) UpdateDetails(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reservations[r.ID]
	if !ok {
		return sql.ErrNoRows
	}
	cur.Date, cur.Window, cur.Guests, cur.Notes = r.Date, r.Window, r.Guests, r.Notes
	cur.TableIDs = append([]uint64(nil), r.TableIDs...)
	cur.UpdatedAt = r.UpdatedAt
	s.reservations[r.ID] = cur
	return nil
}

func (s *memStore) List(_ context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.sortedLocked() {
		if f.LocationID != 0 && r.LocationID != f.LocationID {
			continue
		}
		if f.Date != nil && !r.Date.Equal(*f.Date) {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, cloneReservation(r))
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.reservations, id)
	return nil
}

func (s *memStore) all() []model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *memStore) sortedLocked() []model.Reservation {
	out := make([]model.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) getReservation(id uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := cloneReservation(r)
	return &out, nil
}

func cloneReservation(r model.Reservation) model.Reservation {
	r.TableIDs = append([]uint64(nil), r.TableIDs...)
	r.History = append([]model.StatusHistoryEntry(nil), r.History...)
	return r
}

type recordingSink struct {
	mu     sync.Mutex
	events []queue.Event
}

func (s *recordingSink) Emit(_ context.Context, ev queue.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, ev := range s.events {
		out = append(out, ev.Name)
	}
	return out
}

var (
	// Monday 09:00 UTC
	testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	// Friday
	testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
)

const testDate = "2025-03-14"

// fixture is location 1 with tables A(6), B(4), C(2) and an inactive D(8),
// plus location 2 with one table and inactive location 3.
type fixture struct {
	store *memStore
	sink  *recordingSink
	mgr   *Manager
	grid  *GridBuilder
}

func newFixture() *fixture {
	s := newMemStore()
	hours := []model.OpeningHours{}
	for wd := time.Monday; wd <= time.Saturday; wd++ {
		hours = append(hours, model.OpeningHours{Weekday: wd, Open: "12:00", Close: "23:00"})
	}
	s.locations[1] = model.Location{ID: 1, Name: "Harbor", IsActive: true, Hours: hours}
	s.locations[2] = model.Location{ID: 2, Name: "Garden", IsActive: true, Hours: hours}
	s.locations[3] = model.Location{ID: 3, Name: "Closed for good", IsActive: false, Hours: hours}
	s.tables = []model.Table{
		{ID: 1, LocationID: 1, Number: 1, Seats: 6, Zone: model.ZoneMainHall, IsActive: true},
		{ID: 2, LocationID: 1, Number: 2, Seats: 4, Zone: model.ZoneGarden, IsActive: true},
		{ID: 3, LocationID: 1, Number: 3, Seats: 2, Zone: model.ZoneBar, IsActive: true},
		{ID: 4, LocationID: 1, Number: 4, Seats: 8, Zone: model.ZoneVIP, IsActive: false},
		{ID: 5, LocationID: 2, Number: 1, Seats: 4, Zone: model.ZoneMainHall, IsActive: true},
	}
	sink := &recordingSink{}
	cfg := config.DefaultBookingConfig()
	repos := Repositories{Locations: s, Tables: s, Reservations: reservationView{s}}
	return &fixture{
		store: s,
		sink:  sink,
		mgr:   NewManager(repos, dayLocker{s}, sink, cfg, WithClock(func() time.Time { return testNow })),
		grid:  NewGridBuilder(repos, cfg),
	}
}

// reservationView exposes the reservation half of memStore; memStore's own
// GetByID serves locations.
type reservationView struct{ *memStore }

func (v reservationView) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	return v.getReservation(id)
}

type dayLocker struct{ s *memStore }

func (d dayLocker) WithinDay(ctx context.Context, _ uint64, _ time.Time, fn func(context.Context, Repositories) error) error {
	d.s.dayMu.Lock()
	defer d.s.dayMu.Unlock()
	return fn(ctx, Repositories{Locations: d.s, Tables: d.s, Reservations: reservationView{d.s}})
}

func (f *fixture) book(req CreateRequest) (*model.Reservation, error) {
	if req.LocationID == 0 {
		req.LocationID = 1
	}
	if req.Type == "" {
		req.Type = model.TypeTable
	}
	if req.Date == "" {
		req.Date = testDate
	}
	if req.Customer.Name == "" {
		req.Customer = model.Customer{Name: "Ada", Phone: "+100200300"}
	}
	return f.mgr.Create(context.Background(), req)
}
