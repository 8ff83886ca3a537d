package service

import (
	"context"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// HeldOption adjusts which reservations count as holding tables.
type HeldOption func(*heldQuery)

type heldQuery struct {
	excluded map[model.ReservationStatus]bool
	ignoreID uint64
}

// ExcludeStatuses replaces the default exclusion set ({cancelled}).
func ExcludeStatuses(statuses ...model.ReservationStatus) HeldOption {
	return func(q *heldQuery) {
		q.excluded = make(map[model.ReservationStatus]bool, len(statuses))
		for _, s := range statuses {
			q.excluded[s] = true
		}
	}
}

// IgnoreReservation leaves one reservation out, used when re-checking a
// booking against everything else on its day.
func IgnoreReservation(id uint64) HeldOption {
	return func(q *heldQuery) { q.ignoreID = id }
}

// ConflictResolver derives table occupancy from stored reservations. Nothing
// is cached; every answer is computed from the current reservation set.
type ConflictResolver struct {
	reservations ReservationRepository
	tables       TableRepository
}

func NewConflictResolver(reservations ReservationRepository, tables TableRepository) *ConflictResolver {
	return &ConflictResolver{reservations: reservations, tables: tables}
}

// DayBook is one location's reservations for one date, loaded with a single
// read, against which any number of windows can be checked.
type DayBook struct {
	reservations []model.Reservation
	active       []model.Table
}

// Day loads the reservations of locationID on date that are not excluded.
// active is the location's active table set, used when a full venue booking
// holds everything.
func (cr *ConflictResolver) Day(ctx context.Context, locationID uint64, date time.Time, active []model.Table, opts ...HeldOption) (*DayBook, error) {
	q := heldQuery{excluded: map[model.ReservationStatus]bool{model.StatusCancelled: true}}
	for _, opt := range opts {
		opt(&q)
	}
	statuses := make([]model.ReservationStatus, 0, len(model.AllStatuses))
	for _, s := range model.AllStatuses {
		if !q.excluded[s] {
			statuses = append(statuses, s)
		}
	}
	book := &DayBook{active: active}
	if len(statuses) == 0 {
		return book, nil
	}
	from, to := timeslot.DayBounds(date)
	found, err := cr.reservations.FindOverlapping(ctx, locationID, from, to, statuses)
	if err != nil {
		return nil, err
	}
	for _, r := range found {
		if q.ignoreID != 0 && r.ID == q.ignoreID {
			continue
		}
		book.reservations = append(book.reservations, r)
	}
	return book, nil
}

// TablesHeld returns the ids of tables held during window on date.
func (cr *ConflictResolver) TablesHeld(ctx context.Context, locationID uint64, date time.Time, window timeslot.Slot, opts ...HeldOption) (map[uint64]struct{}, error) {
	active, err := cr.tables.ListActive(ctx, locationID)
	if err != nil {
		return nil, err
	}
	book, err := cr.Day(ctx, locationID, date, active, opts...)
	if err != nil {
		return nil, err
	}
	return book.Held(window), nil
}

// Held returns the tables occupied during window. A pending or confirmed
// full venue booking holds every active table regardless of the window.
func (b *DayBook) Held(window timeslot.Slot) map[uint64]struct{} {
	held := make(map[uint64]struct{})
	if b.FullVenue() != nil {
		for _, t := range b.active {
			held[t.ID] = struct{}{}
		}
		return held
	}
	for _, r := range b.reservations {
		if !r.Window.Overlaps(window) {
			continue
		}
		for _, id := range r.TableIDs {
			held[id] = struct{}{}
		}
	}
	return held
}

// FullVenue returns a pending or confirmed full venue booking, if any.
func (b *DayBook) FullVenue() *model.Reservation {
	for i := range b.reservations {
		r := &b.reservations[i]
		if r.Type == model.TypeFullVenue && r.Status.Holds() {
			return r
		}
	}
	return nil
}

// FirstHolding returns any pending or confirmed booking of the day.
func (b *DayBook) FirstHolding() *model.Reservation {
	for i := range b.reservations {
		if b.reservations[i].Status.Holds() {
			return &b.reservations[i]
		}
	}
	return nil
}

// Free returns the active tables not in held, keeping their order.
func (b *DayBook) Free(held map[uint64]struct{}) []model.Table {
	free := make([]model.Table, 0, len(b.active))
	for _, t := range b.active {
		if _, ok := held[t.ID]; !ok {
			free = append(free, t)
		}
	}
	return free
}
