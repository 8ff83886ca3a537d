// Package timeslot provides wall-clock window helpers shared by the
// availability grid and the booking path. A Clock is a number of minutes
// after midnight; a Slot is a half-open [Start, End) window inside one day.
package timeslot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EndOfDay is the only clock value above 23:59 and may be used as a window end.
const EndOfDay Clock = 24 * 60

const (
	DefaultGranularity = 30  // minutes between grid starts
	DefaultDuration    = 120 // minutes a booking occupies
)

// DateLayout is the calendar date format used on the wire and in SQL.
const DateLayout = "2006-01-02"

var (
	ErrInvalidClock  = errors.New("invalid time, expected HH:MM")
	ErrInvalidWindow = errors.New("start time must be before end time")
	ErrInvalidDate   = errors.New("invalid date, expected YYYY-MM-DD")
)

// Clock is a wall-clock time expressed in minutes after midnight.
type Clock int

// ParseClock parses a zero-padded or short "HH:MM" value. "24:00" is accepted.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 || !digits(hh) || !digits(mm) {
		return 0, ErrInvalidClock
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, ErrInvalidClock
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, ErrInvalidClock
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, ErrInvalidClock
	}
	return Clock(h*60 + m), nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MustClock is ParseClock for constants; it panics on malformed input.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(fmt.Sprintf("timeslot: %q: %v", s, err))
	}
	return c
}

// String renders the clock as zero-padded "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add returns c moved by n minutes, capped to the day.
func (c Clock) Add(n int) Clock {
	v := int(c) + n
	if v > int(EndOfDay) {
		return EndOfDay
	}
	if v < 0 {
		return 0
	}
	return Clock(v)
}

// Slot is a half-open window [Start, End) on one calendar day.
type Slot struct {
	Start Clock
	End   Clock
}

// New builds a slot from two "HH:MM" values and enforces start < end.
func New(start, end string) (Slot, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Slot{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Slot{}, err
	}
	if s == EndOfDay {
		return Slot{}, ErrInvalidClock
	}
	if s >= e {
		return Slot{}, ErrInvalidWindow
	}
	return Slot{Start: s, End: e}, nil
}

// Overlaps reports whether two windows intersect. A window ending exactly
// when the other starts does not overlap it.
func (s Slot) Overlaps(o Slot) bool {
	return s.Start < o.End && s.End > o.Start
}

// Within reports whether s lies entirely inside o.
func (s Slot) Within(o Slot) bool {
	return s.Start >= o.Start && s.End <= o.End
}

// Minutes is the slot length.
func (s Slot) Minutes() int { return int(s.End - s.Start) }

func (s Slot) String() string { return s.Start.String() + "-" + s.End.String() }

// GenerateGrid yields candidate windows starting at open and every
// granularity minutes after it while the start is before close. Each window
// lasts duration minutes and is clipped to close. Non-positive granularity or
// duration fall back to the defaults.
func GenerateGrid(open, close Clock, granularity, duration int) []Slot {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	if open >= close {
		return nil
	}
	out := make([]Slot, 0, (int(close-open)+granularity-1)/granularity)
	for start := open; start < close; start = start.Add(granularity) {
		end := start.Add(duration)
		if end > close {
			end = close
		}
		out = append(out, Slot{Start: start, End: end})
	}
	return out
}

// ParseDate parses "YYYY-MM-DD" into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// Day truncates t to UTC midnight of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayBounds returns the first and last millisecond of the date's day,
// suitable for inclusive range queries.
func DayBounds(date time.Time) (time.Time, time.Time) {
	start := Day(date)
	end := start.Add(24*time.Hour - time.Millisecond)
	return start, end
}
