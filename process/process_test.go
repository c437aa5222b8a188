package process_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artlab/artkit/core"
	"github.com/artlab/artkit/metrics"
	"github.com/artlab/artkit/process"
	"github.com/artlab/artkit/splines"
)

// newSplineRecording builds a recording holding one cartesian spline
// modality of 5 frames by 4 points.
func newSplineRecording(t *testing.T, basename string) *core.Recording {
	t.Helper()
	rec := core.NewRecording(core.RecordingMeta{
		Basename:        basename,
		TimeOfRecording: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	frames, points := 5, 4
	raw := make([]float64, 0, frames*2*points)
	for frame := 0; frame < frames; frame++ {
		for point := 0; point < points; point++ {
			raw = append(raw, float64(point))
		}
		for point := 0; point < points; point++ {
			raw = append(raw, float64(frame))
		}
	}
	array, err := core.NewArray([]int{frames, 2, points}, raw)
	require.NoError(t, err)
	tv := make([]float64, frames)
	for i := range tv {
		tv[i] = float64(i) / 50
	}
	data, err := core.NewModalityData(array, 50, tv)
	require.NoError(t, err)
	spline := splines.New(rec, splines.SplineMeta{
		Coordinates: splines.Cartesian, PointCount: points,
	}, core.WithParsedData(data))
	require.NoError(t, rec.AddModality(spline, false))
	return rec
}

// newRawRecording builds a recording holding one raw ultrasound modality
// of 6 frames of 2x2 pixels.
func newRawRecording(t *testing.T, basename string) *core.Recording {
	t.Helper()
	rec := core.NewRecording(core.RecordingMeta{
		Basename:        basename,
		TimeOfRecording: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	frames := 6
	raw := make([]float64, 0, frames*4)
	for frame := 0; frame < frames; frame++ {
		for pixel := 0; pixel < 4; pixel++ {
			raw = append(raw, float64(frame))
		}
	}
	array, err := core.NewArray([]int{frames, 2, 2}, raw)
	require.NoError(t, err)
	tv := make([]float64, frames)
	for i := range tv {
		tv[i] = float64(i) / 80
	}
	data, err := core.NewModalityData(array, 80, tv)
	require.NoError(t, err)
	parent := core.NewRawUltrasound(rec, core.RawMeta{NumVectors: 2, PixPerVector: 2},
		core.WithParsedData(data))
	require.NoError(t, rec.AddModality(parent, false))
	return rec
}

// TestRun_SplineMetricOperation verifies the derivation pipeline: every
// metric × timestep combination lands in every recording exactly once,
// and re-running the same configuration derives nothing new.
func TestRun_SplineMetricOperation(t *testing.T) {
	recordings := []*core.Recording{
		newSplineRecording(t, "P1_001"),
		newSplineRecording(t, "P1_002"),
	}
	operations := map[string]process.Operation{
		"spline metrics": process.SplineMetricOperation(
			[]metrics.SplineMetricKind{metrics.ANND, metrics.MPBPD}, []int{1, 2}, nil, false),
	}

	require.NoError(t, process.Run(recordings, operations))

	for _, rec := range recordings {
		assert.Equal(t, 5, rec.Len(), "parent plus 2 metrics by 2 timesteps in %s",
			rec.Meta.Basename)
		assert.True(t, rec.Has("SplineMetric annd ts2 on Splines"))
		assert.True(t, rec.Has("SplineMetric mpbpd on Splines"))
	}

	require.NoError(t, process.Run(recordings, operations), "re-run must be clean")
	assert.Equal(t, 5, recordings[0].Len(), "idempotent under the same configuration")
}

// TestRun_WorkersParity verifies that a concurrent run derives exactly
// the same modality names as a sequential one.
func TestRun_WorkersParity(t *testing.T) {
	sequential := make([]*core.Recording, 6)
	concurrent := make([]*core.Recording, 6)
	for i := range sequential {
		sequential[i] = newSplineRecording(t, "seq")
		concurrent[i] = newSplineRecording(t, "conc")
	}
	operations := map[string]process.Operation{
		"spline metrics": process.SplineMetricOperation(
			[]metrics.SplineMetricKind{metrics.APBPD, metrics.Curvature}, []int{1, 3}, nil, false),
	}

	require.NoError(t, process.Run(sequential, operations))
	require.NoError(t, process.Run(concurrent, operations, process.WithWorkers(4)))

	for i := range sequential {
		assert.Equal(t, sequential[i].Names(), concurrent[i].Names())
	}
}

// TestRun_SkipsExcludedRecordings verifies that excluded recordings pass
// through the pipeline untouched.
func TestRun_SkipsExcludedRecordings(t *testing.T) {
	included := newSplineRecording(t, "in")
	excluded := newSplineRecording(t, "out")
	excluded.Exclude()

	operations := map[string]process.Operation{
		"spline metrics": process.SplineMetricOperation(nil, nil, nil, false),
	}
	require.NoError(t, process.Run([]*core.Recording{included, excluded}, operations))

	assert.Equal(t, 2, included.Len(), "default mpbpd derived")
	assert.Equal(t, 1, excluded.Len(), "excluded recording untouched")
}

// TestRun_KindGating verifies that an operation never fires on a
// recording missing its modality kinds.
func TestRun_KindGating(t *testing.T) {
	rec := newRawRecording(t, "raw-only")
	operations := map[string]process.Operation{
		"spline metrics": process.SplineMetricOperation(nil, nil, nil, false),
	}

	require.NoError(t, process.Run([]*core.Recording{rec}, operations))
	assert.Equal(t, 1, rec.Len(), "no splines, no spline metrics")
}

// TestRun_PDOperationAndDownsample verifies a two-stage pipeline: PD
// derivation followed by timestep-matched downsampling, chained through
// sorted operation labels.
func TestRun_PDOperationAndDownsample(t *testing.T) {
	rec := newRawRecording(t, "P1_050")
	operations := map[string]process.Operation{
		"1: pd":         process.PDOperation([]string{"l1"}, []int{1, 2}, false, false, false),
		"2: downsample": process.DownsampleOperation("PD", []int{2}, true),
	}

	require.NoError(t, process.Run([]*core.Recording{rec}, operations))

	assert.True(t, rec.Has("PD l1 on RawUltrasound"))
	assert.True(t, rec.Has("PD l1 ts2 on RawUltrasound"))
	assert.True(t, rec.Has("PD l1 ts2 on RawUltrasound downsampled by 2"),
		"have %v", rec.Names())
	assert.Equal(t, 4, rec.Len())
}

// TestRun_ReleaseDataMemory verifies that the release flag frees the
// parent's array after derivation: with no other source the next access
// fails instead of silently recomputing.
func TestRun_ReleaseDataMemory(t *testing.T) {
	rec := newSplineRecording(t, "P1_060")
	operations := map[string]process.Operation{
		"spline metrics": process.SplineMetricOperation(
			[]metrics.SplineMetricKind{metrics.ANND}, []int{1}, nil, true),
	}

	require.NoError(t, process.Run([]*core.Recording{rec}, operations))
	require.True(t, rec.Has("SplineMetric annd on Splines"))

	parent, _ := rec.Modality("Splines")
	_, err := parent.Array()
	assert.ErrorIs(t, err, core.ErrMissingData, "parent array released after the run")
}
