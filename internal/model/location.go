package model

import (
	"fmt"
	"time"

	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// Location is a restaurant venue that owns tables and accepts bookings.
// A location is bookable only while IsActive is true. Opening hours are
// kept per weekday; a weekday without an entry is a closed day.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – display name of the venue.
//	Address   – street address.
//	Phone     – contact phone (optional).
//	IsActive  – whether the location accepts reservations.
//	Hours     – opening hours rows from location_hours.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Location struct {
	ID        uint64         `json:"id"`         // locations.id
	Name      string         `json:"name"`       // locations.name
	Address   string         `json:"address"`    // locations.address
	Phone     string         `json:"phone"`      // locations.phone
	IsActive  bool           `json:"is_active"`  // locations.is_active
	Hours     []OpeningHours `json:"hours"`      // location_hours rows
	CreatedAt time.Time      `json:"created_at"` // locations.created_at
	UpdatedAt time.Time      `json:"updated_at"` // locations.updated_at
}

// OpeningHours is one weekday's opening window. Weekday follows
// time.Weekday numbering (0 = Sunday).
type OpeningHours struct {
	Weekday time.Weekday `json:"weekday"` // location_hours.weekday
	Open    string       `json:"open"`    // location_hours.open_time (HH:MM)
	Close   string       `json:"close"`   // location_hours.close_time (HH:MM)
}

// Window parses the opening hours into a slot.
func (h OpeningHours) Window() (timeslot.Slot, error) {
	return timeslot.New(h.Open, h.Close)
}

// HoursOn returns the opening window for the weekday of date. The second
// result is false when the location is closed that day or the stored hours
// are malformed.
func (l Location) HoursOn(date time.Time) (timeslot.Slot, bool) {
	wd := date.Weekday()
	for _, h := range l.Hours {
		if h.Weekday != wd {
			continue
		}
		w, err := h.Window()
		if err != nil {
			return timeslot.Slot{}, false
		}
		return w, true
	}
	return timeslot.Slot{}, false
}

// ValidateHours checks that every row names a weekday once and has a well
// formed window with open before close.
func ValidateHours(hours []OpeningHours) error {
	seen := make(map[time.Weekday]bool, len(hours))
	for _, h := range hours {
		if h.Weekday < time.Sunday || h.Weekday > time.Saturday {
			return fmt.Errorf("weekday %d out of range 0-6", h.Weekday)
		}
		if seen[h.Weekday] {
			return fmt.Errorf("%s listed twice", h.Weekday)
		}
		seen[h.Weekday] = true
		if _, err := h.Window(); err != nil {
			return fmt.Errorf("%s: %w", h.Weekday, err)
		}
	}
	return nil
}
