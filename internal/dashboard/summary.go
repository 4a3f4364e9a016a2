// Package dashboard computes the aggregate views shown on the incident
// dashboard from already-normalized incidents.
package dashboard

import (
	"sort"
	"time"

	"github.com/couchcryptid/police-incident-etl/internal/domain"
)

// TopLocationsLimit is the number of locations reported in a summary.
const TopLocationsLimit = 5

// Count is one bar of an aggregate chart.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DateRange spans the logged dates available for filtering. Both bounds are
// nil when no incident carries a real logged time.
type DateRange struct {
	Min *time.Time `json:"min,omitempty"`
	Max *time.Time `json:"max,omitempty"`
}

// Summary is the dashboard view for an optional date upper bound.
type Summary struct {
	Until        *time.Time `json:"until,omitempty"`
	Total        int        `json:"total"`
	ByCategory   []Count    `json:"by_category"`
	ByPriority   []Count    `json:"by_priority"`
	ByTimeOfDay  []Count    `json:"by_time_of_day"`
	TopLocations []Count    `json:"top_locations"`
	Range        DateRange  `json:"range"`
}

// Summarize aggregates incidents logged on or before the calendar date of
// until, or all incidents when until is nil. Counts are ordered by count
// descending, then label ascending. Unknown priorities and blank locations
// are left out of their charts. Range always covers the full input.
func Summarize(incidents []domain.Incident, until *time.Time) Summary {
	var (
		category  = map[string]int{}
		priority  = map[string]int{}
		timeOfDay = map[string]int{}
		location  = map[string]int{}
	)

	s := Summary{Until: until, Range: dateRange(incidents)}
	for _, inc := range incidents {
		if until != nil && !inc.LoggedOnOrBefore(*until) {
			continue
		}
		s.Total++
		category[inc.IncidentCategory]++
		timeOfDay[inc.TimeOfDay]++
		if inc.ResponsePriority != domain.PriorityUnknown {
			priority[inc.ResponsePriority]++
		}
		if inc.Location != "" {
			location[inc.Location]++
		}
	}

	s.ByCategory = ranked(category, 0)
	s.ByPriority = ranked(priority, 0)
	s.ByTimeOfDay = ranked(timeOfDay, 0)
	s.TopLocations = ranked(location, TopLocationsLimit)
	return s
}

func ranked(counts map[string]int, limit int) []Count {
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func dateRange(incidents []domain.Incident) DateRange {
	var r DateRange
	for i := range incidents {
		if !incidents[i].HasLoggedTime() {
			continue
		}
		t := incidents[i].DatetimeLogged
		if r.Min == nil || t.Before(*r.Min) {
			r.Min = &t
		}
		if r.Max == nil || t.After(*r.Max) {
			r.Max = &t
		}
	}
	return r
}
