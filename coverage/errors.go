package coverage

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input: a coordinate out of range or a
// required field missing after normalization. It is returned before any
// spatial computation runs; invalid input is never silently coerced.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DataUnavailableError reports that a required input collection failed to
// load. Queries depending on the collection refuse to run rather than
// degrade; an empty dataset is NOT unavailable, it is a valid empty result.
type DataUnavailableError struct {
	Resource string // "sites" or "regions"
	Err      error
}

func (e *DataUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("%s unavailable", e.Resource)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// IsDataUnavailable reports whether err is (or wraps) a DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var de *DataUnavailableError
	return errors.As(err, &de)
}

// ErrCoverageAdequate reports that a site recommendation was requested for
// a point whose coverage needs no improvement. It describes the caller's
// query, not a failure of the dataset or the engine.
var ErrCoverageAdequate = errors.New("coverage is adequate, nothing to recommend")

// validatePoint checks a query coordinate before it reaches the spatial
// layers.
func validatePoint(p GeoPoint) error {
	if p.Lat < -90 || p.Lat > 90 {
		return &ValidationError{Field: "latitude", Reason: fmt.Sprintf("%g outside [-90, 90]", p.Lat)}
	}
	if p.Lon < -180 || p.Lon > 180 {
		return &ValidationError{Field: "longitude", Reason: fmt.Sprintf("%g outside [-180, 180]", p.Lon)}
	}
	return nil
}
