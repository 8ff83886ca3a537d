package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// Store bundles the repositories over one pool and serializes booking
// writes per location and day.
type Store struct {
	db *sql.DB

	Locations    *LocationRepo
	Tables       *TableRepo
	Reservations *ReservationRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		Locations:    NewLocationRepo(db),
		Tables:       NewTableRepo(db),
		Reservations: NewReservationRepo(db),
	}
}

// DB exposes the pool for callers that manage their own statements.
func (s *Store) DB() *sql.DB { return s.db }

// Repositories returns the pool-bound repositories in the shape the
// booking core expects.
func (s *Store) Repositories() service.Repositories {
	return service.Repositories{Locations: s.Locations, Tables: s.Tables, Reservations: s.Reservations}
}

// WithinDay opens a transaction, takes the row lock of
// booking_day_locks(locationID, date) and runs fn with repositories bound
// to that transaction. Concurrent callers for the same location and day
// wait on the lock until the holder commits or rolls back.
func (s *Store) WithinDay(ctx context.Context, locationID uint64, date time.Time, fn func(ctx context.Context, repos service.Repositories) error) error {
	day := timeslot.Day(date).Format(timeslot.DateLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO booking_day_locks (location_id, lock_date) VALUES (?, ?) ON DUPLICATE KEY UPDATE location_id = location_id",
		locationID, day); err != nil {
		return err
	}
	var held uint64
	if err := tx.QueryRowContext(ctx,
		"SELECT location_id FROM booking_day_locks WHERE location_id = ? AND lock_date = ? FOR UPDATE",
		locationID, day).Scan(&held); err != nil {
		return err
	}

	repos := service.Repositories{
		Locations:    NewLocationRepo(tx),
		Tables:       NewTableRepo(tx),
		Reservations: NewReservationRepo(tx),
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
