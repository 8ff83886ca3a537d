// Package queue defines the reservation event payloads and moves them to
// the message brokers: RabbitMQ for notification delivery and Kafka for
// cross-instance fan-out.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// Event names published by the booking core.
const (
	EventReservationCreated       = "reservation.created"
	EventReservationStatusChanged = "reservation.status_changed"
	EventReservationUpdated       = "reservation.updated"
)

// Event is emitted after a reservation write has committed. It carries
// enough information for consumers to notify the guest or refresh a staff
// board without querying the primary database.
type Event struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	OccurredAt     time.Time      `json:"occurred_at"`
	LocationID     uint64         `json:"location_id"`
	ReservationID  uint64         `json:"reservation_id"`
	Code           string         `json:"code"`
	Type           string         `json:"type"`
	Date           string         `json:"date"`
	StartTime      string         `json:"start_time"`
	EndTime        string         `json:"end_time"`
	Guests         int            `json:"guests"`
	Status         string         `json:"status"`
	PreviousStatus string         `json:"previous_status,omitempty"`
	Actor          string         `json:"actor,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Customer       model.Customer `json:"customer"`
	TableIDs       []uint64       `json:"table_ids"`
}

// NewEvent snapshots r into an event with a fresh id.
func NewEvent(name string, r *model.Reservation, at time.Time) Event {
	tables := make([]uint64, len(r.TableIDs))
	copy(tables, r.TableIDs)
	return Event{
		ID:            uuid.NewString(),
		Name:          name,
		OccurredAt:    at.UTC(),
		LocationID:    r.LocationID,
		ReservationID: r.ID,
		Code:          r.Code,
		Type:          string(r.Type),
		Date:          r.Date.Format(timeslot.DateLayout),
		StartTime:     r.Window.Start.String(),
		EndTime:       r.Window.End.String(),
		Guests:        r.Guests,
		Status:        string(r.Status),
		Customer:      r.Customer,
		TableIDs:      tables,
	}
}
