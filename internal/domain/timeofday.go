package domain

import "time"

// Time-of-day labels.
const (
	TimeOfDayMorning   = "Morning"
	TimeOfDayAfternoon = "Afternoon"
	TimeOfDayEvening   = "Evening"
	TimeOfDayNight     = "Night"
	TimeOfDayUnknown   = "Unknown"
)

// TimeOfDayFor buckets a logged time by its wall-clock hour. A nil time
// (nothing could be parsed) is "Unknown".
func TimeOfDayFor(t *time.Time) string {
	if t == nil {
		return TimeOfDayUnknown
	}
	return TimeOfDayForHour(t.Hour())
}

// TimeOfDayForHour buckets an hour in [0,24).
func TimeOfDayForHour(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return TimeOfDayMorning
	case hour >= 12 && hour < 17:
		return TimeOfDayAfternoon
	case hour >= 17 && hour < 21:
		return TimeOfDayEvening
	default:
		return TimeOfDayNight
	}
}
