package config

// BookingConfig tunes the availability grid and booking validation.
type BookingConfig struct {
	SlotGranularityMin int  // minutes between availability grid starts
	DefaultDurationMin int  // minutes a reservation occupies when no end is given
	MaxGuests          int  // largest accepted party size
	AllowPastDates     bool // accept bookings for dates before today
}

// LoadBookingConfig reads BOOKING_* variables with defaults of 30 minute
// granularity, 120 minute duration and 50 guests.
func LoadBookingConfig() BookingConfig {
	cfg := BookingConfig{
		SlotGranularityMin: envInt("BOOKING_SLOT_GRANULARITY_MIN", 30),
		DefaultDurationMin: envInt("BOOKING_DEFAULT_DURATION_MIN", 120),
		MaxGuests:          envInt("BOOKING_MAX_GUESTS", 50),
		AllowPastDates:     envBool("BOOKING_ALLOW_PAST_DATES", false),
	}
	return cfg.normalized()
}

func (c BookingConfig) normalized() BookingConfig {
	if c.SlotGranularityMin <= 0 {
		c.SlotGranularityMin = 30
	}
	if c.DefaultDurationMin <= 0 {
		c.DefaultDurationMin = 120
	}
	if c.MaxGuests <= 0 {
		c.MaxGuests = 50
	}
	return c
}

// DefaultBookingConfig is the configuration used when nothing is set.
func DefaultBookingConfig() BookingConfig {
	return BookingConfig{}.normalized()
}
