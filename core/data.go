package core

import "fmt"

// ModalityData is the immutable bundle passed from modality generation
// into a Modality: the array itself, its sampling rate, and the timestamp
// of every frame. It represents already loaded data; none of the fields
// are optional.
//
// Axis order for Data is [time, coordinate axes and datatypes, datapoints]
// and further structure. Stereo audio would be [time, channel], splines
// are [time, x-y-confidence, point] or [time, r-phi-confidence, point]
// for polar data.
type ModalityData struct {
	Data         *Array
	SamplingRate float64
	Timevector   []float64
}

// NewModalityData validates and bundles loaded data.
//
// Invariants enforced here:
//   - Data is non-nil,
//   - SamplingRate is positive,
//   - Timevector has exactly one timestamp per frame,
//   - Timevector is monotonic non-decreasing.
//
// SamplingRate being consistent with the mean spacing of Timevector is
// assumed downstream but not enforced.
func NewModalityData(data *Array, samplingRate float64, timevector []float64) (*ModalityData, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: nil array", ErrInvalidData)
	}
	if samplingRate <= 0 {
		return nil, fmt.Errorf("%w: sampling rate %f is not positive", ErrInvalidData, samplingRate)
	}
	if len(timevector) != data.Frames() {
		return nil, fmt.Errorf("%w: timevector length %d does not match %d frames",
			ErrInvalidData, len(timevector), data.Frames())
	}
	for i := 1; i < len(timevector); i++ {
		if timevector[i] < timevector[i-1] {
			return nil, fmt.Errorf("%w: timevector decreases at index %d", ErrInvalidData, i)
		}
	}
	return &ModalityData{
		Data:         data,
		SamplingRate: samplingRate,
		Timevector:   timevector,
	}, nil
}
