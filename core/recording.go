package core

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// RecordingMeta is the basic metadata any Recording should reasonably
// have.
type RecordingMeta struct {
	Prompt          string
	TimeOfRecording time.Time
	ParticipantID   string
	Basename        string
	Path            string
}

// TextGrid is an opaque handle to the recording's time-aligned annotation
// tiers. Parsing and editing the tiers belongs to the annotation
// subsystem; the core only carries the handle and recovers from failed
// loads by substituting an empty grid.
type TextGrid struct {
	Path  string
	Tiers map[string]any
}

// EmptyTextGrid returns a grid with no tiers.
func EmptyTextGrid() *TextGrid {
	return &TextGrid{Tiers: map[string]any{}}
}

// TextGridLoader reads a TextGrid from disk. Supplied by the annotation
// subsystem.
type TextGridLoader func(path string) (*TextGrid, error)

// Recording is one experimental trial: metadata plus 0-n synchronised
// Modalities keyed by canonical name, an annotation map, and the
// recording-wide textgrid.
type Recording struct {
	// ID identifies this recording across saves and loads.
	ID uuid.UUID
	// Meta holds prompt, timestamp, participant, basename and path.
	Meta RecordingMeta

	excluded     bool
	modalities   map[string]Modality
	annotations  map[string]any
	textGrid     *TextGrid
	textGridPath string
	log          *slog.Logger
}

// RecordingOption configures a Recording at construction time.
type RecordingOption func(*Recording)

// WithTextGrid sets the textgrid path and the loader that parses it.
// A failed load degrades to an empty grid with a logged diagnostic
// instead of aborting the Recording's construction.
func WithTextGrid(path string, load TextGridLoader) RecordingOption {
	return func(r *Recording) {
		r.textGridPath = path
		if load == nil {
			return
		}
		grid, err := load(path)
		if err != nil {
			r.log.Error("could not read textgrid, creating an empty one instead",
				"path", path, "error", err)
			grid = EmptyTextGrid()
		}
		grid.Path = path
		r.textGrid = grid
	}
}

// WithRecordingLogger sets the diagnostic logger; slog.Default()
// otherwise.
func WithRecordingLogger(log *slog.Logger) RecordingOption {
	return func(r *Recording) { r.log = log }
}

// NewRecording constructs a mainly empty recording without modalities.
// Modalities and annotations get added after construction with their own
// add functions.
func NewRecording(meta RecordingMeta, opts ...RecordingOption) *Recording {
	r := &Recording{
		ID:          uuid.New(),
		Meta:        meta,
		modalities:  make(map[string]Modality),
		annotations: make(map[string]any),
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.textGrid == nil {
		r.textGrid = EmptyTextGrid()
	}
	return r
}

// Identifier generates a unique human-readable identifier from metadata:
// the prompt followed by the time of recording.
func (r *Recording) Identifier() string {
	return fmt.Sprintf("%s %s", r.Meta.Prompt, r.Meta.TimeOfRecording)
}

// Excluded reports whether this recording is excluded from processing.
func (r *Recording) Excluded() bool { return r.excluded }

// Exclude marks the recording as excluded. A method rather than a bare
// field so exclusion lists can be applied in one pass over a session.
func (r *Recording) Exclude() { r.excluded = true }

// SetExcluded sets the exclusion flag directly.
func (r *Recording) SetExcluded(excluded bool) { r.excluded = excluded }

// TextGrid returns the recording-wide annotation grid, never nil.
func (r *Recording) TextGrid() *TextGrid { return r.textGrid }

// AddModality adds a Modality to the Recording under its canonical name.
//
// If a modality with the same name already exists and replace is false,
// AddModality fails with ErrModalityExists. With replace true the
// existing entry is overwritten; callers must not hold stale references
// to the old instance across a replace, and dependents that already
// materialized from it are not recomputed.
func (r *Recording) AddModality(modality Modality, replace bool) error {
	name := modality.Name()
	if _, ok := r.modalities[name]; ok && !replace {
		return fmt.Errorf("%w: %q in recording %s", ErrModalityExists, name, r.Meta.Basename)
	} else if ok {
		r.log.Debug("replaced modality", "name", name)
	} else {
		r.log.Debug("added new modality", "name", name)
	}
	r.modalities[name] = modality
	return nil
}

// Modality looks up a modality by canonical name.
func (r *Recording) Modality(name string) (Modality, bool) {
	m, ok := r.modalities[name]
	return m, ok
}

// Has reports whether a modality with the given canonical name is
// present. Pipelines use this before deriving to get at-most-once
// computation per distinct parameter combination.
func (r *Recording) Has(name string) bool {
	_, ok := r.modalities[name]
	return ok
}

// Names returns the canonical names of all modalities in sorted order,
// so iteration is deterministic.
func (r *Recording) Names() []string {
	names := make([]string, 0, len(r.modalities))
	for name := range r.modalities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of modalities.
func (r *Recording) Len() int { return len(r.modalities) }

// AddAnnotation stores an annotation object under name, overwriting any
// previous value.
func (r *Recording) AddAnnotation(name string, annotation any) {
	r.annotations[name] = annotation
}

// Annotation looks up an annotation by name.
func (r *Recording) Annotation(name string) (any, bool) {
	a, ok := r.annotations[name]
	return a, ok
}

// String returns the bare minimum representation: "Recording [basename]".
func (r *Recording) String() string {
	return "Recording " + r.Meta.Basename
}
