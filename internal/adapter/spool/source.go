// Package spool ingests GeoJSON feature collections dropped into a local
// directory.
package spool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/couchcryptid/police-incident-etl/internal/domain"
)

// FileSource implements pipeline.Extractor for a single GeoJSON file.
type FileSource struct {
	path string
}

// NewFileSource creates an extractor reading the feature collection at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Source() string { return "file://" + s.path }

func (s *FileSource) Fetch(_ context.Context) (domain.FeatureCollection, []byte, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return domain.FeatureCollection{}, nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var fc domain.FeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return domain.FeatureCollection{}, nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return fc, raw, nil
}
