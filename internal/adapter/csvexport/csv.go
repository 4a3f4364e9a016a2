// Package csvexport writes normalized incidents as a flat CSV table.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/couchcryptid/police-incident-etl/internal/domain"
)

// TimestampLayout formats datetime_logged in exported rows.
const TimestampLayout = "2006-01-02 15:04:05"

// Write emits a header row followed by one row per incident, in
// domain.Columns order.
func Write(w io.Writer, incidents []domain.Incident) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range incidents {
		if err := cw.Write(Row(incidents[i])); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the export to path, creating parent directories.
func WriteFile(path string, incidents []domain.Incident) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return Write(f, incidents)
}

// Row renders one incident as CSV fields.
func Row(inc domain.Incident) []string {
	return []string{
		inc.IncidentNumber,
		inc.Department,
		inc.IncidentType,
		inc.Location,
		inc.ZipCode,
		inc.ActionTaken,
		inc.Officer,
		inc.DatetimeLogged.Format(TimestampLayout),
		inc.TimeOfDay,
		inc.IncidentCategory,
		inc.ResponsePriority,
	}
}
