package types

import "errors"

// Error taxonomy. Dataset load failure is the only fatal error; everything
// else is local to a record or an operation and recovered by the caller.
var (
	// ErrInvalidDataset means the dataset is not a well-formed feature
	// collection or a record is missing required fields. No partial catalog
	// is produced.
	ErrInvalidDataset = errors.New("invalid dataset")

	// ErrEmptyGeometry means a single record's geometry has no vertices to
	// centroid. The record is dropped; the load continues.
	ErrEmptyGeometry = errors.New("empty geometry")

	ErrGeolocationUnavailable = errors.New("geolocation unavailable")
	ErrGeolocationDenied      = errors.New("geolocation permission denied")
	ErrGeolocationTimeout     = errors.New("geolocation timed out")

	// ErrInsufficientSelection means route planning was attempted with
	// fewer than two selected centers. No state is mutated.
	ErrInsufficientSelection = errors.New("route planning requires at least two selected centers")
)
