package core

import (
	"fmt"
	"log/slog"
	"math"
)

// ReadFunc reads a ModalityData from an on-disk import format. Readers
// are supplied by the data-import subsystem.
type ReadFunc func(path string) (*ModalityData, error)

// LoadFunc reloads a ModalityData previously saved by artkit. Loaders
// are supplied by the persistence subsystem; see the store package.
type LoadFunc func(loadPath string) (*ModalityData, error)

// DeriveFunc computes a ModalityData from a parent Modality. The parent
// is resolved by name through the owning Recording at derivation time.
type DeriveFunc func(parent Modality) (*ModalityData, error)

// Modality is one named, time-indexed array of measurements belonging to
// a Recording, either directly loaded or derived from another Modality.
//
// All data accessors trigger lazy materialization on first use: whichever
// of Array, Timevector, SamplingRate or TimeOffset is touched first
// materializes all four. Accessors after that are O(1).
type Modality interface {
	// Kind returns the concrete kind name, e.g. "Splines".
	Kind() string
	// Name returns the canonical name of this modality, used as its key
	// in the owning Recording's modality map.
	Name() string
	// NameFor returns the canonical name this kind would give to the
	// supplied metadata. Pure; ignores the receiver's own state.
	NameFor(meta Metadata) string
	// Metadata returns the parameter set identifying this modality.
	Metadata() Metadata
	// Recording returns the owning Recording. Never an ownership edge
	// back: the Recording owns the Modality, not the other way around.
	Recording() *Recording

	// Array returns the data array, materializing on first access.
	Array() (*Array, error)
	// SetArray replaces the array. nil always succeeds and releases the
	// memory; a non-nil replacement must match the resident layout.
	SetArray(a *Array) error
	// Timevector returns the per-frame timestamps, materializing on
	// first access. A released array does not release the timevector.
	Timevector() ([]float64, error)
	// SetTimevector replaces the timevector under the overwrite guard.
	SetTimevector(tv []float64) error
	// SamplingRate returns the sampling rate in Hz.
	SamplingRate() (float64, error)
	// TimeOffset returns the offset of this modality against the
	// Recording's baseline; equals Timevector[0] once materialized.
	TimeOffset() (float64, error)
	// SetTimeOffset shifts the whole timevector so Timevector[0] equals
	// the new offset.
	SetTimeOffset(t float64)
	// TimePrecision returns the memoized timestamp jitter: the maximum
	// absolute deviation of successive timestep deltas from their mean.
	TimePrecision() (float64, error)

	// Excluded reports whether this modality is excluded from processing.
	Excluded() bool
	// SetExcluded sets the exclusion flag. It does not propagate to the
	// owning Recording; use Recording.Exclude for that.
	SetExcluded(excluded bool)
	// IsDerived reports whether this modality was computed from a parent.
	IsDerived() bool
	// GetMeta returns this modality's metadata as a flat map for
	// persistence and diagnostics.
	GetMeta() map[string]any

	// CloneWith builds a new modality of the same concrete kind around
	// already computed data. The downsampling pipeline uses this to keep
	// decimated variants in the same kind as their source.
	CloneWith(meta Metadata, data *ModalityData, timeOffset float64) (Modality, error)
}

// Base carries the shared lazy-materialization engine for all modality
// kinds. Concrete kinds embed *Base and override CloneWith, GetMeta, and
// whatever accessors their data needs.
//
// The cache is tri-state per the field group {array, timevector,
// samplingRate, timeOffset}: absent until first access, loading while a
// fetch is in flight (guards against derivation cycles), resident after.
// Releasing the array returns only the array to absent.
type Base struct {
	rec  *Recording
	kind string
	meta Metadata

	dataPath string
	loadPath string
	reader   ReadFunc
	loader   LoadFunc
	deriver  DeriveFunc

	loading      bool
	array        *Array
	timevector   []float64
	samplingRate float64
	timeOffset   float64
	hasOffset    bool

	timePrecision float64
	hasPrecision  bool

	excluded bool
	log      *slog.Logger
}

// Option configures a Base at construction time.
type Option func(*Base)

// WithDataPath sets the import-format source: path plus the reader that
// parses it.
func WithDataPath(path string, read ReadFunc) Option {
	return func(b *Base) {
		b.dataPath = path
		b.reader = read
	}
}

// WithLoadPath sets the saved-state source: a persistence key plus the
// loader that resolves it.
func WithLoadPath(loadPath string, load LoadFunc) Option {
	return func(b *Base) {
		b.loadPath = loadPath
		b.loader = load
	}
}

// WithDeriver sets the derivation routine invoked against the named
// parent when neither a data path nor a load path is present.
func WithDeriver(derive DeriveFunc) Option {
	return func(b *Base) { b.deriver = derive }
}

// WithParsedData makes the modality resident immediately, skipping every
// load and derive path. The timevector, when present, anchors the time
// offset.
func WithParsedData(d *ModalityData) Option {
	return func(b *Base) { b.adopt(d) }
}

// WithTimeOffset sets the time offset for modalities whose reader applies
// it while parsing. Ignored once a timevector is resident.
func WithTimeOffset(t float64) Option {
	return func(b *Base) {
		if b.timevector == nil {
			b.timeOffset = t
			b.hasOffset = true
		}
	}
}

// WithLogger sets the diagnostic logger; slog.Default() otherwise.
func WithLogger(log *slog.Logger) Option {
	return func(b *Base) { b.log = log }
}

// NewBase builds the shared part of a modality. rec is the owning
// Recording, kind the concrete kind name, meta the identifying parameter
// set (nil for kinds with no parameters).
func NewBase(rec *Recording, kind string, meta Metadata, opts ...Option) *Base {
	b := &Base{
		rec:  rec,
		kind: kind,
		meta: meta,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Kind returns the concrete kind name.
func (b *Base) Kind() string { return b.kind }

// Name returns the canonical name generated from this modality's kind
// and metadata.
func (b *Base) Name() string { return BuildName(b.kind, b.meta) }

// NameFor returns the canonical name this kind gives to meta.
func (b *Base) NameFor(meta Metadata) string { return BuildName(b.kind, meta) }

// Metadata returns the identifying parameter set, nil for plain kinds.
func (b *Base) Metadata() Metadata { return b.meta }

// Recording returns the owning Recording.
func (b *Base) Recording() *Recording { return b.rec }

// IsDerived reports whether the metadata names a parent modality.
func (b *Base) IsDerived() bool {
	return b.meta != nil && b.meta.Parent() != ""
}

// Excluded reports the exclusion flag.
func (b *Base) Excluded() bool { return b.excluded }

// SetExcluded sets the exclusion flag. Excluding a modality does not
// exclude the owning Recording.
func (b *Base) SetExcluded(excluded bool) { b.excluded = excluded }

// GetMeta returns the shared metadata fields as a flat map. Kinds with
// richer parameter sets shadow this with their own.
func (b *Base) GetMeta() map[string]any {
	meta := map[string]any{"kind": b.kind}
	if b.meta != nil {
		meta["parent_name"] = b.meta.Parent()
		if ratio, matched, ok := b.meta.Downsampled(); ok {
			meta["is_downsampled"] = true
			meta["downsampling_ratio"] = ratio
			meta["timestep_matched_downsampling"] = matched
		}
	}
	return meta
}

// CloneWith on Base fails: only concrete kinds know how to rebuild
// themselves around new data.
func (b *Base) CloneWith(Metadata, *ModalityData, float64) (Modality, error) {
	return nil, fmt.Errorf("%w: %s cannot be cloned", ErrUnsupported, b.kind)
}

// Array returns the data array, materializing it on first access or
// after a release.
func (b *Base) Array() (*Array, error) {
	if b.array == nil {
		b.log.Debug("modality array absent, materializing", "modality", b.Name())
		if err := b.materialize(); err != nil {
			return nil, err
		}
	}
	return b.array, nil
}

// SetArray replaces the data array.
//
// nil is always legal: it releases the array for memory reclamation while
// the timevector and metadata persist. A non-nil replacement must match
// the resident array's layout exactly, protecting metric/timevector
// alignment from silent corruption; a first assignment always succeeds.
func (b *Base) SetArray(a *Array) error {
	if a == nil {
		b.array = nil
		return nil
	}
	if b.array != nil && !b.array.SameLayout(a) {
		return fmt.Errorf("%w: shape %v over resident shape %v in %s",
			ErrOverwrite, a.Shape(), b.array.Shape(), b.Name())
	}
	b.array = a
	return nil
}

// Timevector returns the per-frame timestamps. A previously loaded and
// then released array does not clear the timevector, so access here never
// re-triggers a load in that case.
func (b *Base) Timevector() ([]float64, error) {
	if b.timevector == nil {
		if err := b.materialize(); err != nil {
			return nil, err
		}
	}
	return b.timevector, nil
}

// SetTimevector replaces the timevector.
//
// There is no create-on-set path and releasing the timevector is
// intentionally unsupported; both fail with ErrUnsupported. A layout
// mismatch against the resident vector fails with ErrOverwrite. On
// success the time offset is re-anchored to the new first timestamp.
func (b *Base) SetTimevector(tv []float64) error {
	if b.timevector == nil {
		return fmt.Errorf("%w: timevector of %s has not been initialised", ErrUnsupported, b.Name())
	}
	if len(tv) == 0 {
		return fmt.Errorf("%w: releasing timevector memory", ErrUnsupported)
	}
	if len(tv) != len(b.timevector) {
		return fmt.Errorf("%w: timevector length %d over resident length %d in %s",
			ErrOverwrite, len(tv), len(b.timevector), b.Name())
	}
	b.timevector = tv
	b.timeOffset = tv[0]
	b.hasOffset = true
	return nil
}

// SamplingRate returns the sampling rate in Hz, materializing on first
// access.
func (b *Base) SamplingRate() (float64, error) {
	if b.samplingRate == 0 {
		if err := b.materialize(); err != nil {
			return 0, err
		}
	}
	return b.samplingRate, nil
}

// TimeOffset returns the modality's offset against the Recording's
// baseline, materializing on first access.
func (b *Base) TimeOffset() (float64, error) {
	if !b.hasOffset {
		if err := b.materialize(); err != nil {
			return 0, err
		}
	}
	return b.timeOffset, nil
}

// SetTimeOffset shifts the resident timevector by the delta between the
// new and old offset, keeping Timevector[0] == TimeOffset. On an
// unmaterialized modality it only stores the offset.
func (b *Base) SetTimeOffset(t float64) {
	if b.timevector != nil {
		delta := t - b.timevector[0]
		for i := range b.timevector {
			b.timevector[i] += delta
		}
	}
	b.timeOffset = t
	b.hasOffset = true
}

// TimePrecision returns max(|Δtv − mean(Δtv)|) over the timevector: the
// timestamps are guesstimated to be no more precise than the largest
// deviation from the average timestep. Computed once and memoized.
func (b *Base) TimePrecision() (float64, error) {
	if b.hasPrecision {
		return b.timePrecision, nil
	}
	tv, err := b.Timevector()
	if err != nil {
		return 0, err
	}
	if len(tv) > 1 {
		mean := (tv[len(tv)-1] - tv[0]) / float64(len(tv)-1)
		for i := 1; i < len(tv); i++ {
			if dev := math.Abs(tv[i] - tv[i-1] - mean); dev > b.timePrecision {
				b.timePrecision = dev
			}
		}
	}
	b.hasPrecision = true
	return b.timePrecision, nil
}

// materialize populates all four lazy fields from the modality's one
// source. Safe to call repeatedly; re-entry while a fetch is in flight
// means a derivation cycle and fails fast.
func (b *Base) materialize() error {
	if b.loading {
		return fmt.Errorf("%w: derivation cycle through %q", ErrMissingData, b.Name())
	}
	b.loading = true
	defer func() { b.loading = false }()

	data, err := b.fetch()
	if err != nil {
		return err
	}
	b.adopt(data)
	return nil
}

// fetch resolves the modality's single data source, in priority order:
// data path, load path, parent derivation.
func (b *Base) fetch() (*ModalityData, error) {
	switch {
	case b.dataPath != "" && b.reader != nil:
		return b.reader(b.dataPath)
	case b.loadPath != "" && b.loader != nil:
		return b.loader(b.loadPath)
	case b.meta != nil && b.meta.Parent() != "":
		if b.deriver == nil {
			return nil, fmt.Errorf("%w: %s has no derivation routine", ErrNotImplemented, b.Name())
		}
		parent, ok := b.rec.Modality(b.meta.Parent())
		if !ok {
			return nil, fmt.Errorf("%w: parent %q not present in recording %s",
				ErrMissingData, b.meta.Parent(), b.rec.Meta.Basename)
		}
		return b.deriver(parent)
	default:
		return nil, fmt.Errorf("%w: modality %q", ErrMissingData, b.Name())
	}
}

// adopt installs fetched data into the lazy fields.
func (b *Base) adopt(d *ModalityData) {
	if d == nil {
		return
	}
	b.array = d.Data
	b.timevector = d.Timevector
	b.samplingRate = d.SamplingRate
	if len(d.Timevector) > 0 {
		b.timeOffset = d.Timevector[0]
		b.hasOffset = true
	}
}
