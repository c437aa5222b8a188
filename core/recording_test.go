package core_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artlab/artkit/core"
)

// TestRecording_AddModality verifies the add/replace contract: duplicate
// names fail with ErrModalityExists unless replace is set.
func TestRecording_AddModality(t *testing.T) {
	rec := newTestRecording(t)
	first := core.NewRawUltrasound(rec, core.RawMeta{},
		core.WithParsedData(newTestData(t)))
	second := core.NewRawUltrasound(rec, core.RawMeta{},
		core.WithParsedData(newTestData(t)))

	require.NoError(t, rec.AddModality(first, false))
	assert.ErrorIs(t, rec.AddModality(second, false), core.ErrModalityExists,
		"same canonical name without replace must fail")
	assert.Equal(t, 1, rec.Len())

	require.NoError(t, rec.AddModality(second, true), "replace overwrites")
	got, ok := rec.Modality(second.Name())
	require.True(t, ok)
	assert.Same(t, second, got, "the replacement instance is resident")
}

// TestRecording_Names verifies that Names returns sorted canonical names
// so iteration order is deterministic.
func TestRecording_Names(t *testing.T) {
	rec := newTestRecording(t)
	for _, kind := range []string{"Zeta", "Alpha", "Mid"} {
		m := core.NewBase(rec, kind, nil, core.WithParsedData(newTestData(t)))
		require.NoError(t, rec.AddModality(m, false))
	}

	assert.Equal(t, []string{"Alpha", "Mid", "Zeta"}, rec.Names())
	assert.True(t, rec.Has("Alpha"))
	assert.False(t, rec.Has("Omega"))
}

// TestRecording_TextGridDegradesToEmpty verifies that a failing textgrid
// load yields an empty grid instead of aborting construction.
func TestRecording_TextGridDegradesToEmpty(t *testing.T) {
	rec := core.NewRecording(core.RecordingMeta{Basename: "P1_002"},
		core.WithTextGrid("/no/such/file.TextGrid",
			func(path string) (*core.TextGrid, error) {
				return nil, errors.New("boom")
			}))

	grid := rec.TextGrid()
	require.NotNil(t, grid, "grid is never nil")
	assert.Empty(t, grid.Tiers, "failed load degrades to an empty grid")
	assert.Equal(t, "/no/such/file.TextGrid", grid.Path)
}

// TestRecording_TextGridLoads verifies the successful load path.
func TestRecording_TextGridLoads(t *testing.T) {
	rec := core.NewRecording(core.RecordingMeta{Basename: "P1_003"},
		core.WithTextGrid("trial.TextGrid",
			func(path string) (*core.TextGrid, error) {
				return &core.TextGrid{Tiers: map[string]any{"words": nil}}, nil
			}))

	assert.Contains(t, rec.TextGrid().Tiers, "words")
	assert.Equal(t, "trial.TextGrid", rec.TextGrid().Path)
}

// TestRecording_Annotations verifies the annotation map semantics:
// last write wins, lookups report presence.
func TestRecording_Annotations(t *testing.T) {
	rec := newTestRecording(t)
	rec.AddAnnotation("peaks", []int{3, 7})
	rec.AddAnnotation("peaks", []int{5})

	got, ok := rec.Annotation("peaks")
	require.True(t, ok)
	assert.Equal(t, []int{5}, got, "overwrites keep the latest value")

	_, ok = rec.Annotation("valleys")
	assert.False(t, ok)
}

// TestRecording_Identifier verifies the human-readable identifier format.
func TestRecording_Identifier(t *testing.T) {
	rec := newTestRecording(t)
	assert.Contains(t, rec.Identifier(), "test prompt")
	assert.Equal(t, "Recording P1_001", rec.String())
}

// TestSession_SortRecordings verifies ordering by recording time and
// stability for equal timestamps.
func TestSession_SortRecordings(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	late := core.NewRecording(core.RecordingMeta{
		Basename: "late", TimeOfRecording: base.Add(time.Hour)})
	early := core.NewRecording(core.RecordingMeta{
		Basename: "early", TimeOfRecording: base})
	alsoEarly := core.NewRecording(core.RecordingMeta{
		Basename: "also-early", TimeOfRecording: base})

	s := core.NewSession("trial", core.PathStructure{Root: "/data/trial"}, nil,
		[]*core.Recording{late, early, alsoEarly})

	require.Equal(t, 3, s.Len())
	assert.Equal(t, "early", s.Recordings[0].Meta.Basename)
	assert.Equal(t, "also-early", s.Recordings[1].Meta.Basename,
		"equal timestamps keep insertion order")
	assert.Equal(t, "late", s.Recordings[2].Meta.Basename)
}
