package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FeatureCollection is the GeoJSON envelope returned by the feature API.
type FeatureCollection struct {
	Type     string       `json:"type"`
	Features []RawFeature `json:"features"`
}

// RawFeature is one element of the collection. Properties are kept raw so
// that each field can be read leniently regardless of its JSON type.
type RawFeature struct {
	Type       string                     `json:"type"`
	Properties map[string]json.RawMessage `json:"properties"`
	Geometry   json.RawMessage            `json:"geometry,omitempty"`
}

// Source property names on RawFeature.Properties.
const (
	PropIncidentNumber = "Incident_Number"
	PropDateLogged     = "Date_Logged"
	PropTimeLogged     = "Time_Logged"
	PropDepartment     = "Department"
	PropIncidentType   = "Incident_Type"
	PropLocation       = "Location"
	PropZipCode        = "ZipCode"
	PropActionTaken    = "Action_Taken"
	PropOfficer        = "Officer"
)

// MinTimestamp stands in for a logged time that could not be determined.
var MinTimestamp = time.Time{}

// Incident is the normalized, classified row persisted downstream.
type Incident struct {
	IncidentNumber   string    `json:"incident_number"`
	Department       string    `json:"department"`
	IncidentType     string    `json:"incident_type"`
	Location         string    `json:"location"`
	ZipCode          string    `json:"zipcode"`
	ActionTaken      string    `json:"action_taken"`
	Officer          string    `json:"officer"`
	DatetimeLogged   time.Time `json:"datetime_logged"`
	TimeOfDay        string    `json:"time_of_day"`
	IncidentCategory string    `json:"incident_category"`
	ResponsePriority string    `json:"response_priority"`
}

// HasLoggedTime reports whether DatetimeLogged holds a real timestamp rather
// than MinTimestamp.
func (i Incident) HasLoggedTime() bool {
	return !i.DatetimeLogged.Equal(MinTimestamp)
}

// Columns lists the tabular field order shared by exports and stores.
var Columns = []string{
	"incident_number",
	"department",
	"incident_type",
	"location",
	"zipcode",
	"action_taken",
	"officer",
	"datetime_logged",
	"time_of_day",
	"incident_category",
	"response_priority",
}

// IngestRun records the outcome of one extract-transform-load cycle.
type IngestRun struct {
	ID              uuid.UUID
	Source          string
	StartedAt       time.Time
	FinishedAt      time.Time
	FeaturesFetched int
	Normalized      int
	Inserted        int
	Success         bool
	Error           string
}
