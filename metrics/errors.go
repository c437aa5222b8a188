package metrics

import "errors"

// Sentinel errors for metric pipelines.
var (
	// ErrUnknownMetric indicates a metric or norm id outside the accepted
	// set.
	ErrUnknownMetric = errors.New("metrics: unknown metric")

	// ErrBadTimestep indicates a timestep that is not a positive integer
	// or does not fit the parent's frame count.
	ErrBadTimestep = errors.New("metrics: bad timestep")

	// ErrBadRatio indicates a downsampling ratio below one.
	ErrBadRatio = errors.New("metrics: downsampling ratio must be a positive integer")

	// ErrTimestepMatchRequired indicates a request for downsampling
	// without matching the ratio to the modality's own timestep, which
	// has not been implemented.
	ErrTimestepMatchRequired = errors.New("metrics: downsampling without timestep matching is not implemented")

	// ErrBadExcludePoints indicates a point-exclusion range that leaves
	// no points or lies outside the contour.
	ErrBadExcludePoints = errors.New("metrics: bad exclude-points range")
)
