package domain

import "errors"

// ErrNoFeatures is returned when a feed contains no features to process.
var ErrNoFeatures = errors.New("no features found in feature collection")

// BatchError aborts a whole transform: nothing from the batch may be loaded.
type BatchError struct {
	Err error
}

func (e *BatchError) Error() string {
	return "batch rejected: " + e.Err.Error()
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
