package metrics

import (
	"fmt"
	"slices"
	"strings"

	"github.com/artlab/artkit/core"
)

// DownsampleModality decimates a modality by the given ratio and returns
// the result as a new modality of the same concrete kind.
//
// Every ratio-th sample of both array and timevector is kept and the
// sampling rate is divided by ratio. This is plain decimation, not
// anti-aliased filtering — a documented limitation. The supplied metadata
// should already carry the downsampling fields; the result's name shows
// the ratio used.
func DownsampleModality(m core.Modality, ratio int, meta core.Metadata) (core.Modality, error) {
	if ratio < 1 {
		return nil, fmt.Errorf("%w: %d", ErrBadRatio, ratio)
	}
	data, err := m.Array()
	if err != nil {
		return nil, err
	}
	timevector, err := m.Timevector()
	if err != nil {
		return nil, err
	}
	rate, err := m.SamplingRate()
	if err != nil {
		return nil, err
	}
	offset, err := m.TimeOffset()
	if err != nil {
		return nil, err
	}

	decimated, err := data.Decimate(ratio)
	if err != nil {
		return nil, err
	}
	decimatedTimes := make([]float64, 0, (len(timevector)+ratio-1)/ratio)
	for i := 0; i < len(timevector); i += ratio {
		decimatedTimes = append(decimatedTimes, timevector[i])
	}
	bundle, err := core.NewModalityData(decimated, rate/float64(ratio), decimatedTimes)
	if err != nil {
		return nil, err
	}
	return m.CloneWith(meta, bundle, offset)
}

// DownsampleMetrics decimates every modality in the Recording whose name
// contains pattern and adds the results back to the Recording.
//
// Only matchTimestep mode is supported: a matching modality is decimated
// only when its own timestep is a member of ratios, and always by exactly
// that timestep. The decimated modality is inserted only if its canonical
// name is not already present, so re-running the same configuration is
// idempotent. matchTimestep false fails with ErrTimestepMatchRequired.
func DownsampleMetrics(rec *core.Recording, pattern string, ratios []int, matchTimestep bool) error {
	if !matchTimestep {
		return ErrTimestepMatchRequired
	}

	for _, name := range rec.Names() {
		if !strings.Contains(name, pattern) {
			continue
		}
		m, _ := rec.Modality(name)
		meta := m.Metadata()
		if meta == nil {
			continue
		}
		timestep := meta.Step()
		if timestep < 1 || !slices.Contains(ratios, timestep) {
			continue
		}

		downsampledMeta := meta.WithDownsampling(timestep, true)
		downsampledName := m.NameFor(downsampledMeta)
		if rec.Has(downsampledName) {
			continue
		}
		downsampled, err := DownsampleModality(m, timestep, downsampledMeta)
		if err != nil {
			return fmt.Errorf("downsampling %q: %w", name, err)
		}
		if err := rec.AddModality(downsampled, false); err != nil {
			return err
		}
	}
	return nil
}
