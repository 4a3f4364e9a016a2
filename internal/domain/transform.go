package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// dateLayouts are tried in order against Date_Logged. Layouts that carry a
// time component only contribute their calendar date.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"01-02-2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05-07",
	"2006/01/02 15:04:05",
	"1/2/2006 3:04:05 PM",
	"January 2, 2006",
	"Jan 2, 2006",
}

// clockLayouts are tried in order against Time_Logged.
var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"15:04:05.000",
	"3:04 PM",
	"3:04:05 PM",
	"3:04PM",
	"3:04 pm",
}

// NormalizeCollection normalizes every feature in the collection. An empty
// collection is a *BatchError and no rows are returned; individual features
// never fail.
func NormalizeCollection(fc FeatureCollection) ([]Incident, error) {
	if len(fc.Features) == 0 {
		return nil, &BatchError{Err: ErrNoFeatures}
	}

	out := make([]Incident, 0, len(fc.Features))
	for _, f := range fc.Features {
		out = append(out, NormalizeFeature(f))
	}
	return out, nil
}

// NormalizeFeature flattens a feature's properties into an Incident, combines
// the logged date and time, and classifies the incident type.
func NormalizeFeature(f RawFeature) Incident {
	prop := func(name string) string {
		return propertyText(f.Properties[name])
	}

	incidentType := prop(PropIncidentType)
	logged := ParseLogged(prop(PropDateLogged), prop(PropTimeLogged))

	inc := Incident{
		IncidentNumber:   prop(PropIncidentNumber),
		Department:       prop(PropDepartment),
		IncidentType:     incidentType,
		Location:         prop(PropLocation),
		ZipCode:          prop(PropZipCode),
		ActionTaken:      prop(PropActionTaken),
		Officer:          prop(PropOfficer),
		DatetimeLogged:   MinTimestamp,
		TimeOfDay:        TimeOfDayFor(logged),
		IncidentCategory: ClassifyCategory(incidentType),
		ResponsePriority: ClassifyPriority(incidentType),
	}
	if logged != nil {
		inc.DatetimeLogged = *logged
	}
	return inc
}

// propertyText renders a raw JSON property value as text. Missing and null
// values are "", numbers keep their literal form.
func propertyText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	r := gjson.ParseBytes(raw)
	switch r.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return r.Str
	case gjson.Number:
		return r.Raw
	default:
		return r.String()
	}
}

// ParseLogged combines a logged date and time into a single wall-clock
// timestamp. It returns nil when either part is missing or unparseable.
func ParseLogged(date, clock string) *time.Time {
	d, ok := parseDate(date)
	if !ok {
		return nil
	}
	hour, minute, sec, ok := parseClock(clock)
	if !ok {
		return nil
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), hour, minute, sec, 0, time.UTC)
	return &t
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// ArcGIS date fields serialize as epoch milliseconds.
	if isDigits(s) && len(s) >= 9 {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseClock(s string) (hour, minute, sec int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, 0, false
	}
	if isDigits(s) {
		return parseHHMM(s)
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), t.Minute(), t.Second(), true
		}
	}
	return 0, 0, 0, false
}

// parseHHMM reads compact 24-hour times such as "1510" or "930".
func parseHHMM(hhmm string) (hour, minute, sec int, ok bool) {
	if len(hhmm) < 3 || len(hhmm) > 4 {
		return 0, 0, 0, false
	}
	if len(hhmm) == 3 {
		hhmm = "0" + hhmm
	}

	h, errH := strconv.Atoi(hhmm[:2])
	m, errM := strconv.Atoi(hhmm[2:])
	if errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, 0, false
	}
	return h, m, 0, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
