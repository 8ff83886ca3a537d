package handler

import (
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// reservationView is the JSON shape of a reservation.
type reservationView struct {
	ID          uint64                     `json:"id"`
	Code        string                     `json:"code"`
	LocationID  uint64                     `json:"location_id"`
	Type        model.ReservationType      `json:"type"`
	Date        string                     `json:"date"`
	StartTime   string                     `json:"start_time"`
	EndTime     string                     `json:"end_time"`
	Guests      int                        `json:"guests"`
	Status      model.ReservationStatus    `json:"status"`
	TableIDs    []uint64                   `json:"table_ids"`
	Customer    model.Customer             `json:"customer"`
	Notes       string                     `json:"notes,omitempty"`
	ConfirmedBy *string                    `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time                 `json:"confirmed_at,omitempty"`
	History     []model.StatusHistoryEntry `json:"history,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

func viewReservation(r *model.Reservation) reservationView {
	tables := r.TableIDs
	if tables == nil {
		tables = []uint64{}
	}
	return reservationView{
		ID:          r.ID,
		Code:        r.Code,
		LocationID:  r.LocationID,
		Type:        r.Type,
		Date:        r.Date.Format(timeslot.DateLayout),
		StartTime:   r.Window.Start.String(),
		EndTime:     r.Window.End.String(),
		Guests:      r.Guests,
		Status:      r.Status,
		TableIDs:    tables,
		Customer:    r.Customer,
		Notes:       r.Notes,
		ConfirmedBy: r.ConfirmedBy,
		ConfirmedAt: r.ConfirmedAt,
		History:     r.History,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func viewReservations(rs []model.Reservation) []reservationView {
	out := make([]reservationView, len(rs))
	for i := range rs {
		out[i] = viewReservation(&rs[i])
	}
	return out
}

// publicReservation is what an anonymous booker gets back: no audit trail
// and no staff identities.
type publicReservation struct {
	Code       string                  `json:"code"`
	LocationID uint64                  `json:"location_id"`
	Type       model.ReservationType   `json:"type"`
	Date       string                  `json:"date"`
	StartTime  string                  `json:"start_time"`
	EndTime    string                  `json:"end_time"`
	Guests     int                     `json:"guests"`
	Status     model.ReservationStatus `json:"status"`
	TableIDs   []uint64                `json:"table_ids"`
	Customer   model.Customer          `json:"customer"`
}

func viewPublic(r *model.Reservation) publicReservation {
	v := viewReservation(r)
	return publicReservation{
		Code:       v.Code,
		LocationID: v.LocationID,
		Type:       v.Type,
		Date:       v.Date,
		StartTime:  v.StartTime,
		EndTime:    v.EndTime,
		Guests:     v.Guests,
		Status:     v.Status,
		TableIDs:   v.TableIDs,
		Customer:   v.Customer,
	}
}
