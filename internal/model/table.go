package model

import (
	"sort"
	"strings"
	"time"
)

// Zone is the area of a venue a table stands in.
type Zone string

const (
	ZoneMainHall Zone = "main_hall"
	ZoneGarden   Zone = "garden"
	ZoneVIP      Zone = "vip"
	ZoneBar      Zone = "bar"
)

// Valid reports whether z is a known zone.
func (z Zone) Valid() bool {
	switch z {
	case ZoneMainHall, ZoneGarden, ZoneVIP, ZoneBar:
		return true
	}
	return false
}

// ParseZone accepts the zone names case-insensitively, with "-" or "_".
func ParseZone(s string) (Zone, bool) {
	z := Zone(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	return z, z.Valid()
}

// Table describes a physical dining table. Tables are never removed once
// created; they are deactivated instead so historical reservations keep
// their references.
//
// Fields:
//
//	ID         – primary key identifier.
//	LocationID – location that owns the table.
//	Number     – table number, unique within the location.
//	Seats      – seating capacity.
//	Zone       – area of the venue.
//	IsActive   – whether the table can be booked.
type Table struct {
	ID         uint64    `json:"id"`          // dining_tables.id
	LocationID uint64    `json:"location_id"` // dining_tables.location_id
	Number     int       `json:"number"`      // dining_tables.table_number
	Seats      int       `json:"seats"`       // dining_tables.seats
	Zone       Zone      `json:"zone"`        // dining_tables.zone
	IsActive   bool      `json:"is_active"`   // dining_tables.is_active
	CreatedAt  time.Time `json:"created_at"`  // dining_tables.created_at
	UpdatedAt  time.Time `json:"updated_at"`  // dining_tables.updated_at
}

// SortBySeatsDesc orders tables for allocation: larger tables first,
// ties by ascending table number.
func SortBySeatsDesc(tables []Table) {
	sort.SliceStable(tables, func(i, j int) bool {
		if tables[i].Seats != tables[j].Seats {
			return tables[i].Seats > tables[j].Seats
		}
		return tables[i].Number < tables[j].Number
	})
}

// SortByNumber orders tables for display.
func SortByNumber(tables []Table) {
	sort.SliceStable(tables, func(i, j int) bool {
		return tables[i].Number < tables[j].Number
	})
}

// TotalSeats sums the seats of tables.
func TotalSeats(tables []Table) int {
	n := 0
	for _, t := range tables {
		n += t.Seats
	}
	return n
}
