// Package service is the reservation availability and table allocation
// engine: it answers which tables and slots are free, picks tables for a
// party and drives the reservation lifecycle. Storage and event delivery are
// reached through the interfaces below.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
)

// Lookups that find nothing return an error matching sql.ErrNoRows.

type LocationRepository interface {
	GetByID(ctx context.Context, id uint64) (*model.Location, error)
}

type TableRepository interface {
	// ListActive returns the active tables of a location in any order.
	ListActive(ctx context.Context, locationID uint64) ([]model.Table, error)
}

type ReservationRepository interface {
	// FindOverlapping returns reservations of the location whose date lies in
	// [from, to] and whose status is one of statuses, with TableIDs filled.
	FindOverlapping(ctx context.Context, locationID uint64, from, to time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error)
	// Insert stores r with its tables and history and sets r.ID.
	Insert(ctx context.Context, r *model.Reservation) error
	// UpdateStatus applies patch and returns the stored reservation.
	UpdateStatus(ctx context.Context, id uint64, patch model.StatusPatch) (*model.Reservation, error)
	// UpdateDetails rewrites date, window, guests, notes and table assignment.
	UpdateDetails(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	List(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error)
	Delete(ctx context.Context, id uint64) error
}

// Repositories groups the stores the core reads and writes.
type Repositories struct {
	Locations    LocationRepository
	Tables       TableRepository
	Reservations ReservationRepository
}

// Transactor runs fn with repositories bound to one transaction that holds
// the exclusive lock for (locationID, date). Conflict checks and writes for
// the same location and day never interleave.
type Transactor interface {
	WithinDay(ctx context.Context, locationID uint64, date time.Time, fn func(ctx context.Context, repos Repositories) error) error
}

// EventSink accepts events after a successful commit. Emit must not block
// and its failures never affect the reservation.
type EventSink interface {
	Emit(ctx context.Context, ev queue.Event)
}

type nopSink struct{}

func (nopSink) Emit(context.Context, queue.Event) {}
