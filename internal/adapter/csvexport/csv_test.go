package csvexport

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/police-incident-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIncidents() []domain.Incident {
	return []domain.Incident{
		{
			IncidentNumber:   "24-1",
			Department:       "WPD",
			IncidentType:     "AMB1234",
			Location:         "100 MAIN ST, APT 2",
			ZipCode:          "01608",
			ActionTaken:      "TRANSPORTED",
			Officer:          "SMITH",
			DatetimeLogged:   time.Date(2024, time.March, 1, 6, 15, 0, 0, time.UTC),
			TimeOfDay:        domain.TimeOfDayMorning,
			IncidentCategory: domain.CategoryMedical,
			ResponsePriority: domain.PriorityHigh,
		},
		{
			IncidentNumber:   "24-2",
			IncidentType:     "ZZZ999",
			DatetimeLogged:   domain.MinTimestamp,
			TimeOfDay:        domain.TimeOfDayUnknown,
			IncidentCategory: domain.CategoryOther,
			ResponsePriority: domain.PriorityUnknown,
		},
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleIncidents()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, domain.Columns, records[0])
	assert.Equal(t, []string{
		"24-1", "WPD", "AMB1234", "100 MAIN ST, APT 2", "01608", "TRANSPORTED", "SMITH",
		"2024-03-01 06:15:00", "Morning", "Medical", "High",
	}, records[1])
	assert.Equal(t, "0001-01-01 00:00:00", records[2][7])
	assert.Equal(t, "Unknown", records[2][8])
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))
	assert.Equal(t, "incident_number,department,incident_type,location,zipcode,action_taken,officer,datetime_logged,time_of_day,incident_category,response_priority\n", buf.String())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "police_incidents_transformed.csv")
	require.NoError(t, WriteFile(path, sampleIncidents()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "24-2,,ZZZ999")
}
