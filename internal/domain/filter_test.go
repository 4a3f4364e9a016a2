package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayAfter(t *testing.T) {
	got := DayAfter(time.Date(2024, time.December, 31, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestLoggedOnOrBefore(t *testing.T) {
	until := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		logged time.Time
		want   bool
	}{
		{"same day late evening", time.Date(2024, time.March, 1, 23, 59, 59, 0, time.UTC), true},
		{"day before", time.Date(2024, time.February, 29, 8, 0, 0, 0, time.UTC), true},
		{"next day midnight", time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC), false},
		{"sentinel", MinTimestamp, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Incident{DatetimeLogged: tt.logged}.LoggedOnOrBefore(until))
		})
	}
}

func TestSplitUnkeyed(t *testing.T) {
	keyed, skipped := SplitUnkeyed([]Incident{
		{IncidentNumber: "24-1"},
		{IncidentNumber: ""},
		{IncidentNumber: "24-2"},
	})
	assert.Equal(t, 1, skipped)
	assert.Equal(t, []Incident{{IncidentNumber: "24-1"}, {IncidentNumber: "24-2"}}, keyed)
}
