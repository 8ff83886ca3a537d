package model

import (
	"errors"
	"time"

	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// ReservationType selects how a booking occupies the venue.
type ReservationType string

const (
	TypeTable     ReservationType = "table"
	TypeEvent     ReservationType = "event"
	TypeFullVenue ReservationType = "full_venue"
)

// Valid reports whether t is a known reservation type.
func (t ReservationType) Valid() bool {
	switch t {
	case TypeTable, TypeEvent, TypeFullVenue:
		return true
	}
	return false
}

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []ReservationStatus{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}

// ErrInvalidStatusTransition is returned by CanTransitionTo callers when a
// move is not part of the lifecycle.
var ErrInvalidStatusTransition = errors.New("invalid status transition")

var validTransitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// Valid reports whether s is a known status.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s ReservationStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Holds reports whether a reservation in this status occupies its tables.
func (s ReservationStatus) Holds() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransitionTo reports whether the lifecycle allows s -> next.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Customer is the guest contact attached to a reservation.
type Customer struct {
	Name  string `json:"name"`            // reservations.customer_name
	Phone string `json:"phone"`           // reservations.customer_phone
	Email string `json:"email,omitempty"` // reservations.customer_email (nullable)
}

// Reservation is a booking of tables, or of the whole venue, at one
// location for a window on a calendar date.
//
// Fields:
//
//	ID          – primary key identifier.
//	Code        – public booking reference handed to the customer.
//	LocationID  – location being booked.
//	Type        – table, event or full_venue.
//	TableIDs    – assigned tables (empty for full_venue).
//	Customer    – guest contact.
//	Date        – calendar date at UTC midnight.
//	Window      – occupied wall-clock window on Date.
//	Guests      – party size.
//	Status      – lifecycle state.
//	Notes       – free text from staff or customer.
//	ConfirmedBy – actor that confirmed the booking.
//	ConfirmedAt – when the booking was confirmed.
//	History     – append-only status trail, oldest first.
type Reservation struct {
	ID          uint64               // reservations.id
	Code        string               // reservations.code
	LocationID  uint64               // reservations.location_id
	Type        ReservationType      // reservations.type
	TableIDs    []uint64             // reservation_tables.table_id
	Customer    Customer             // reservations.customer_*
	Date        time.Time            // reservations.reservation_date
	Window      timeslot.Slot        // reservations.start_min / end_min
	Guests      int                  // reservations.guests
	Status      ReservationStatus    // reservations.status
	Notes       string               // reservations.notes
	ConfirmedBy *string              // reservations.confirmed_by (nullable)
	ConfirmedAt *time.Time           // reservations.confirmed_at (nullable)
	History     []StatusHistoryEntry // reservation_status_history rows
	CreatedAt   time.Time            // reservations.created_at
	UpdatedAt   time.Time            // reservations.updated_at
}

// UsesTable reports whether id is among the reservation's tables.
func (r *Reservation) UsesTable(id uint64) bool {
	for _, t := range r.TableIDs {
		if t == id {
			return true
		}
	}
	return false
}

// StatusHistoryEntry is one row of the audit trail.
type StatusHistoryEntry struct {
	ID            uint64            `json:"id"`             // reservation_status_history.id
	ReservationID uint64            `json:"reservation_id"` // reservation_status_history.reservation_id
	Status        ReservationStatus `json:"status"`         // reservation_status_history.status
	ChangedBy     string            `json:"changed_by"`     // reservation_status_history.changed_by
	ChangedAt     time.Time         `json:"changed_at"`     // reservation_status_history.changed_at
	Reason        string            `json:"reason"`         // reservation_status_history.reason
}

// StatusPatch is the write applied by a status change: the new status, the
// history row to append and, for confirmations, the confirmation stamp.
type StatusPatch struct {
	Status      ReservationStatus
	Entry       StatusHistoryEntry
	ConfirmedBy *string
	ConfirmedAt *time.Time
}

// ReservationFilter narrows staff listings. Zero values are ignored.
type ReservationFilter struct {
	LocationID uint64
	Date       *time.Time
	Status     ReservationStatus
	Limit      int
}
