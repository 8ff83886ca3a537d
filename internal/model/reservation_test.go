package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	allowed := map[[2]ReservationStatus]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusCancelled}: true,
		{StatusConfirmed, StatusCompleted}: true,
	}
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			got := from.CanTransitionTo(to)
			assert.Equal(t, allowed[[2]ReservationStatus{from, to}], got, "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatusesRejectEverything(t *testing.T) {
	for _, s := range []ReservationStatus{StatusCancelled, StatusCompleted} {
		require.True(t, s.IsTerminal())
		assert.False(t, s.Holds())
		for _, to := range AllStatuses {
			assert.False(t, s.CanTransitionTo(to))
		}
	}
	assert.True(t, StatusPending.Holds())
	assert.True(t, StatusConfirmed.Holds())
}

func TestReservationTypeValid(t *testing.T) {
	assert.True(t, TypeTable.Valid())
	assert.True(t, TypeEvent.Valid())
	assert.True(t, TypeFullVenue.Valid())
	assert.False(t, ReservationType("brunch").Valid())
}

func TestParseZone(t *testing.T) {
	z, ok := ParseZone("Main-Hall")
	require.True(t, ok)
	assert.Equal(t, ZoneMainHall, z)

	_, ok = ParseZone("terrace")
	assert.False(t, ok)
}

func TestSortBySeatsDescBreaksTiesByNumber(t *testing.T) {
	tables := []Table{
		{ID: 1, Number: 7, Seats: 4},
		{ID: 2, Number: 2, Seats: 6},
		{ID: 3, Number: 3, Seats: 4},
		{ID: 4, Number: 1, Seats: 2},
	}
	SortBySeatsDesc(tables)
	var order []int
	for _, tb := range tables {
		order = append(order, tb.Number)
	}
	assert.Equal(t, []int{2, 3, 7, 1}, order)
	assert.Equal(t, 16, TotalSeats(tables))
}

func TestLocationHoursOn(t *testing.T) {
	loc := Location{Hours: []OpeningHours{
		{Weekday: time.Friday, Open: "12:00", Close: "23:00"},
		{Weekday: time.Saturday, Open: "bad", Close: "23:00"},
	}}
	friday := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	w, ok := loc.HoursOn(friday)
	require.True(t, ok)
	assert.Equal(t, "12:00-23:00", w.String())

	_, ok = loc.HoursOn(friday.AddDate(0, 0, 1))
	assert.False(t, ok, "malformed hours count as closed")

	_, ok = loc.HoursOn(friday.AddDate(0, 0, 2))
	assert.False(t, ok, "no row means closed")
}

func TestValidateHours(t *testing.T) {
	ok := []OpeningHours{
		{Weekday: time.Monday, Open: "12:00", Close: "22:00"},
		{Weekday: time.Saturday, Open: "10:00", Close: "24:00"},
	}
	assert.NoError(t, ValidateHours(ok))
	assert.NoError(t, ValidateHours(nil))

	assert.Error(t, ValidateHours(append(ok, OpeningHours{Weekday: time.Monday, Open: "08:00", Close: "11:00"})))
	assert.Error(t, ValidateHours([]OpeningHours{{Weekday: 7, Open: "12:00", Close: "22:00"}}))
	assert.Error(t, ValidateHours([]OpeningHours{{Weekday: time.Friday, Open: "22:00", Close: "12:00"}}))
	assert.Error(t, ValidateHours([]OpeningHours{{Weekday: time.Friday, Open: "noon", Close: "22:00"}}))
}
