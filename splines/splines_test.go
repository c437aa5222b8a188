package splines_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artlab/artkit/core"
	"github.com/artlab/artkit/splines"
)

// newSplines builds a spline modality over the given flat [time, channel,
// point] data.
func newSplines(t *testing.T, meta splines.SplineMeta, shape []int, raw []float64) *splines.Splines {
	t.Helper()
	rec := core.NewRecording(core.RecordingMeta{
		Basename:        "P1_010",
		TimeOfRecording: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	array, err := core.NewArray(shape, raw)
	require.NoError(t, err)
	tv := make([]float64, shape[0])
	for i := range tv {
		tv[i] = float64(i) / 50
	}
	data, err := core.NewModalityData(array, 50, tv)
	require.NoError(t, err)
	return splines.New(rec, meta, core.WithParsedData(data))
}

// TestSplines_CartesianPassThrough verifies that cartesian-stored data
// comes back from InCartesian untouched.
func TestSplines_CartesianPassThrough(t *testing.T) {
	raw := []float64{1, 2, 3, 4, 5, 6}
	s := newSplines(t, splines.SplineMeta{Coordinates: splines.Cartesian, PointCount: 3},
		[]int{1, 2, 3}, raw)

	got, err := s.InCartesian()
	require.NoError(t, err)
	assert.Equal(t, raw, got.Data(), "no conversion for the stored representation")
}

// TestSplines_PolarRoundTrip verifies that converting polar data to
// cartesian and back is the identity within floating point error.
func TestSplines_PolarRoundTrip(t *testing.T) {
	// r in channel 0, phi in channel 1, two points per frame.
	raw := []float64{1, 2, 0, math.Pi / 2}
	polar := newSplines(t, splines.SplineMeta{Coordinates: splines.Polar, PointCount: 2},
		[]int{1, 2, 2}, raw)

	cart, err := polar.InCartesian()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cart.At(0, 0, 0), 1e-12, "r=1 phi=0 lands on x=1")
	assert.InDelta(t, 0.0, cart.At(0, 1, 0), 1e-12)
	assert.InDelta(t, 0.0, cart.At(0, 0, 1), 1e-12, "r=2 phi=pi/2 lands on y=2")
	assert.InDelta(t, 2.0, cart.At(0, 1, 1), 1e-12)

	// Same data stored cartesian should convert back to the original polar.
	cartesian := newSplines(t, splines.SplineMeta{Coordinates: splines.Cartesian, PointCount: 2},
		[]int{1, 2, 2}, cart.Data())
	back, err := cartesian.InPolar()
	require.NoError(t, err)
	for i, want := range raw {
		assert.InDelta(t, want, back.Data()[i], 1e-12, "round trip is the identity")
	}
}

// TestSplines_ConfidenceCopiedThrough verifies that a third channel of
// per-point confidences survives conversion unchanged.
func TestSplines_ConfidenceCopiedThrough(t *testing.T) {
	raw := []float64{
		1, 1, // r
		0, math.Pi, // phi
		0.9, 0.4, // confidence
	}
	s := newSplines(t, splines.SplineMeta{
		Coordinates: splines.Polar, PointCount: 2, Confidence: true,
	}, []int{1, 3, 2}, raw)

	cart, err := s.InCartesian()
	require.NoError(t, err)
	assert.Equal(t, 0.9, cart.At(0, 2, 0), "confidence channel unchanged")
	assert.Equal(t, 0.4, cart.At(0, 2, 1))
}

// TestSplines_ChannelCountGuard verifies that data with fewer channels
// than the metadata requires fails with ErrChannelCount.
func TestSplines_ChannelCountGuard(t *testing.T) {
	s := newSplines(t, splines.SplineMeta{
		Coordinates: splines.Cartesian, PointCount: 2, Confidence: true,
	}, []int{1, 2, 2}, []float64{1, 2, 3, 4})

	_, err := s.InCartesian()
	assert.ErrorIs(t, err, splines.ErrChannelCount,
		"declared confidence needs a third channel")
}

// TestSplines_CoordinateSystemGuard verifies that metadata without a
// known coordinate system fails both accessors instead of being treated
// as polar.
func TestSplines_CoordinateSystemGuard(t *testing.T) {
	s := newSplines(t, splines.SplineMeta{PointCount: 2},
		[]int{1, 2, 2}, []float64{1, 2, 3, 4})

	_, err := s.InCartesian()
	assert.ErrorIs(t, err, splines.ErrCoordinates, "zero-value coordinates rejected")

	_, err = s.InPolar()
	assert.ErrorIs(t, err, splines.ErrCoordinates)

	bad := newSplines(t, splines.SplineMeta{Coordinates: "spherical", PointCount: 2},
		[]int{1, 2, 2}, []float64{1, 2, 3, 4})
	_, err = bad.InCartesian()
	assert.ErrorIs(t, err, splines.ErrCoordinates, "unknown system rejected")
}

// TestSplines_CloneWithKeepsKind verifies that the downsampling clone
// stays a Splines modality and keeps the coordinate system.
func TestSplines_CloneWithKeepsKind(t *testing.T) {
	s := newSplines(t, splines.SplineMeta{Coordinates: splines.Polar, PointCount: 2},
		[]int{2, 2, 2}, []float64{1, 1, 0, 0, 2, 2, 1, 1})

	array, err := s.Array()
	require.NoError(t, err)
	data, err := core.NewModalityData(array.Clone(), 50, []float64{0, 0.02})
	require.NoError(t, err)

	clone, err := s.CloneWith(s.SplineMeta().WithDownsampling(2, true), data, 0)
	require.NoError(t, err)

	spline, ok := clone.(*splines.Splines)
	require.True(t, ok, "clone keeps the concrete kind")
	assert.Equal(t, splines.Polar, spline.SplineMeta().Coordinates)
	assert.Equal(t, "Splines downsampled by 2", clone.Name())

	_, err = s.CloneWith(core.BaseMeta{}, data, 0)
	assert.ErrorIs(t, err, core.ErrUnsupported, "foreign metadata type is rejected")
}
