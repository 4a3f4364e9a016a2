package domain

import "time"

// DayAfter returns midnight UTC at the start of the day following t's
// calendar date. Stores use it as an exclusive upper bound.
func DayAfter(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// LoggedOnOrBefore reports whether the incident was logged on or before the
// calendar date of until. Incidents carrying MinTimestamp always match.
func (i Incident) LoggedOnOrBefore(until time.Time) bool {
	return i.DatetimeLogged.Before(DayAfter(until))
}

// SplitUnkeyed drops incidents with no incident number, which cannot be
// stored under the identity key, and reports how many were dropped.
func SplitUnkeyed(incidents []Incident) (keyed []Incident, skipped int) {
	keyed = make([]Incident, 0, len(incidents))
	for _, inc := range incidents {
		if inc.IncidentNumber == "" {
			skipped++
			continue
		}
		keyed = append(keyed, inc)
	}
	return keyed, skipped
}
