package core

import "errors"

// Sentinel errors for core modality operations.
var (
	// ErrMissingData indicates materialization was attempted with no data
	// path, no load path, and no parent modality to derive from.
	ErrMissingData = errors.New("core: no data path, load path, or parent modality to materialize from")

	// ErrOverwrite indicates an array or timevector replacement violates
	// the layout-match invariant.
	ErrOverwrite = errors.New("core: replacement does not match the resident layout")

	// ErrUnsupported indicates an operation that is intentionally not
	// supported, such as releasing a timevector.
	ErrUnsupported = errors.New("core: operation not supported")

	// ErrModalityExists indicates a modality name collision on insertion
	// without the replace flag.
	ErrModalityExists = errors.New("core: modality with this name already exists")

	// ErrInvalidData indicates a ModalityData bundle that violates its
	// construction invariants.
	ErrInvalidData = errors.New("core: invalid modality data")

	// ErrBadShape indicates an array shape with non-positive dimensions or
	// a backing slice of the wrong length.
	ErrBadShape = errors.New("core: bad array shape")

	// ErrShapeMismatch indicates two arrays that were expected to share a
	// layout but do not.
	ErrShapeMismatch = errors.New("core: array shape mismatch")

	// ErrNotImplemented indicates an intentionally unfinished path, such
	// as on-the-fly derivation of a metric modality.
	ErrNotImplemented = errors.New("core: not implemented")
)
