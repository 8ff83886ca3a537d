package service

import (
	"context"
	"time"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// AvailabilitySlot is one row of the slot picker.
type AvailabilitySlot struct {
	Time                string `json:"time"`
	EndTime             string `json:"end_time"`
	AvailableTableCount int    `json:"available_table_count"`
	AvailableSeats      int    `json:"available_seats"`
	CanAccommodate      bool   `json:"can_accommodate"`
}

// GridBuilder renders a location's availability for a date.
type GridBuilder struct {
	repos Repositories
	cfg   config.BookingConfig
}

func NewGridBuilder(repos Repositories, cfg config.BookingConfig) *GridBuilder {
	return &GridBuilder{repos: repos, cfg: cfg}
}

// Build returns one entry per grid slot of the location's opening hours on
// date. A closed day yields an empty grid. Reservations are read once per
// call and the result has no side effects.
func (g *GridBuilder) Build(ctx context.Context, locationID uint64, date time.Time, guests int) ([]AvailabilitySlot, error) {
	if guests < 1 {
		return nil, validationf("guests must be at least 1")
	}
	loc, active, err := NewCapacityIndex(g.repos.Locations, g.repos.Tables).Load(ctx, locationID)
	if err != nil {
		return nil, err
	}
	day := timeslot.Day(date)
	hours, open := loc.HoursOn(day)
	if !open {
		return []AvailabilitySlot{}, nil
	}
	book, err := NewConflictResolver(g.repos.Reservations, g.repos.Tables).Day(ctx, locationID, day, active)
	if err != nil {
		return nil, err
	}

	grid := timeslot.GenerateGrid(hours.Start, hours.End, g.cfg.SlotGranularityMin, g.cfg.DefaultDurationMin)
	out := make([]AvailabilitySlot, 0, len(grid))
	for _, slot := range grid {
		free := book.Free(book.Held(slot))
		seats := model.TotalSeats(free)
		out = append(out, AvailabilitySlot{
			Time:                slot.Start.String(),
			EndTime:             slot.End.String(),
			AvailableTableCount: len(free),
			AvailableSeats:      seats,
			CanAccommodate:      seats >= guests,
		})
	}
	return out, nil
}
