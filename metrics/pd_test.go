package metrics_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artlab/artkit/core"
	"github.com/artlab/artkit/metrics"
)

// newRawParent builds a raw ultrasound modality whose frame t is a 2x2
// image filled with the value t, so consecutive frames differ by one in
// every pixel.
func newRawParent(t *testing.T, frames int) *core.RawUltrasound {
	t.Helper()
	rec := core.NewRecording(core.RecordingMeta{
		Basename:        "P1_040",
		TimeOfRecording: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
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
	return parent
}

// TestPDName_Grammar verifies norm, timestep, mask and the interpolation
// prefix in their documented positions.
func TestPDName_Grammar(t *testing.T) {
	name := metrics.PDName(metrics.PDParameters{
		ParentName: "RawUltrasound", Norm: "l2", Timestep: 2, Mask: metrics.MaskBottom,
	})
	assert.Equal(t, "PD l2 ts2 bottom on RawUltrasound", name)

	name = metrics.PDName(metrics.PDParameters{
		ParentName: "RawUltrasound", Norm: "l1", Timestep: 1, Interpolated: true,
	})
	assert.Equal(t, "Interpolated PD l1 on RawUltrasound", name)
}

// TestPDNamesAndMeta_MaskAxis verifies the cartesian product: the mask
// axis expands to four variants only when maskImages is set.
func TestPDNamesAndMeta_MaskAxis(t *testing.T) {
	plain, err := metrics.PDNamesAndMeta("RawUltrasound",
		[]string{"l1", "l2"}, []int{1, 2}, false, false, true)
	require.NoError(t, err)
	assert.Len(t, plain, 4, "2 norms by 2 timesteps, one mask variant")

	masked, err := metrics.PDNamesAndMeta("RawUltrasound",
		[]string{"l1"}, []int{1}, true, false, true)
	require.NoError(t, err)
	assert.Len(t, masked, 4, "top, bottom, whole and unmasked variants")
	assert.Contains(t, masked, "PD l1 top on RawUltrasound")
	assert.Contains(t, masked, "PD l1 on RawUltrasound")
}

// TestPDNamesAndMeta_Validation verifies rejection of unknown norms and
// bad timesteps.
func TestPDNamesAndMeta_Validation(t *testing.T) {
	_, err := metrics.PDNamesAndMeta("RawUltrasound", []string{"l99"}, nil, false, false, true)
	assert.ErrorIs(t, err, metrics.ErrUnknownMetric)

	_, err = metrics.PDNamesAndMeta("RawUltrasound", nil, []int{0, -2}, false, false, true)
	assert.ErrorIs(t, err, metrics.ErrBadTimestep)
}

// TestCalculatePD_Norms verifies pixel difference against hand-computed
// values: unit change in all four pixels gives l1=4, l2=2, inf=1.
func TestCalculatePD_Norms(t *testing.T) {
	parent := newRawParent(t, 5)

	for norm, want := range map[string]float64{"l1": 4, "l2": 2, "inf": 1} {
		data, err := metrics.CalculatePD(parent, metrics.PDParameters{
			ParentName: parent.Name(), Norm: norm, Timestep: 1,
		})
		require.NoError(t, err, norm)
		assert.Equal(t, 4, data.Data.Len(), "frames minus timestep values")
		for _, v := range data.Data.Data() {
			assert.InDelta(t, want, v, 1e-12, "norm %s", norm)
		}
		assert.InDelta(t, 1.0/80, data.Timevector[0], 1e-12,
			"timevector is the parent's tail")
	}
}

// TestCalculatePD_Timestep verifies that larger timesteps compare frames
// further apart and shorten the result accordingly.
func TestCalculatePD_Timestep(t *testing.T) {
	parent := newRawParent(t, 5)

	data, err := metrics.CalculatePD(parent, metrics.PDParameters{
		ParentName: parent.Name(), Norm: "l1", Timestep: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, data.Data.Len())
	for _, v := range data.Data.Data() {
		assert.InDelta(t, 8.0, v, 1e-12, "two-frame gap doubles every pixel delta")
	}

	_, err = metrics.CalculatePD(parent, metrics.PDParameters{
		ParentName: parent.Name(), Norm: "l1", Timestep: 5,
	})
	assert.ErrorIs(t, err, metrics.ErrBadTimestep,
		"timestep must leave at least one frame pair")
}

// TestCalculatePD_Masks verifies that the top and bottom masks halve the
// pixels contributing to the norm.
func TestCalculatePD_Masks(t *testing.T) {
	parent := newRawParent(t, 3)

	for _, mask := range []metrics.ImageMask{metrics.MaskTop, metrics.MaskBottom} {
		data, err := metrics.CalculatePD(parent, metrics.PDParameters{
			ParentName: parent.Name(), Norm: "l2", Mask: mask,
		})
		require.NoError(t, err, mask)
		for _, v := range data.Data.Data() {
			assert.InDelta(t, math.Sqrt2, v, 1e-12, "two pixels of unit change under %s", mask)
		}
	}

	whole, err := metrics.CalculatePD(parent, metrics.PDParameters{
		ParentName: parent.Name(), Norm: "l2", Mask: metrics.MaskWhole,
	})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, whole.Data.Data()[0], 1e-12,
		"the explicit whole mask equals no mask")
}

// TestCalculatePD_OwnsTimevector verifies that the derived modality's
// timevector is an independent copy: shifting the PD's time offset must
// leave the parent's timestamps untouched.
func TestCalculatePD_OwnsTimevector(t *testing.T) {
	parent := newRawParent(t, 6)
	parentTimes, err := parent.Timevector()
	require.NoError(t, err)
	before := append([]float64(nil), parentTimes...)

	params := metrics.PDParameters{ParentName: parent.Name(), Norm: "l1", Timestep: 1}
	data, err := metrics.CalculatePD(parent, params)
	require.NoError(t, err)
	pd, err := metrics.NewPD(parent.Recording(), params, core.WithParsedData(data))
	require.NoError(t, err)

	pd.SetTimeOffset(100)

	after, err := parent.Timevector()
	require.NoError(t, err)
	assert.Equal(t, before, after, "parent timestamps must not move with the child")
}

// TestPD_LazyDerivationUnsupported verifies that PD built without eager
// data fails materialization with ErrNotImplemented.
func TestPD_LazyDerivationUnsupported(t *testing.T) {
	parent := newRawParent(t, 3)

	pd, err := metrics.NewPD(parent.Recording(), metrics.PDParameters{
		ParentName: parent.Name(), Norm: "l2",
	})
	require.NoError(t, err)

	_, err = pd.Array()
	assert.ErrorIs(t, err, core.ErrNotImplemented)
}
