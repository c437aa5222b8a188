package splines

import (
	"errors"
	"fmt"
	"math"

	"github.com/artlab/artkit/core"
)

// Kind is the kind name of spline-contour modalities.
const Kind = "Splines"

// ErrChannelCount indicates stored spline data whose channel count cannot
// support the requested coordinate representation.
var ErrChannelCount = errors.New("splines: channel count does not support the requested representation")

// ErrCoordinates indicates spline metadata naming no known coordinate
// system, so the stored representation cannot be established.
var ErrCoordinates = errors.New("splines: unknown coordinate system")

// CoordinateSystem differentiates the stored coordinate representation.
type CoordinateSystem string

const (
	// Cartesian means channels 0 and 1 hold x and y.
	Cartesian CoordinateSystem = "Cartesian"
	// Polar means channels 0 and 1 hold r and phi.
	Polar CoordinateSystem = "polar"
)

// SplineMeta is the metadata of a Splines modality.
type SplineMeta struct {
	core.BaseMeta

	// Coordinates names the stored representation.
	Coordinates CoordinateSystem
	// PointCount is the number of sample points per contour.
	PointCount int
	// Confidence reports whether a per-point confidence channel exists.
	Confidence bool
}

// WithDownsampling returns a SplineMeta copy marked as downsampled.
// Shadows the BaseMeta method so the spline fields survive the copy.
func (m SplineMeta) WithDownsampling(ratio int, matchedTimestep bool) core.Metadata {
	c := m
	c.IsDownsampled = true
	c.DownsamplingRatio = ratio
	c.TimestepMatchedDownsampling = matchedTimestep
	return c
}

// Splines is the spline-contour modality, data axes [time, channel,
// point].
type Splines struct {
	*core.Base
	meta SplineMeta
}

// New builds a Splines modality belonging to rec.
func New(rec *core.Recording, meta SplineMeta, opts ...core.Option) *Splines {
	return &Splines{
		Base: core.NewBase(rec, Kind, meta, opts...),
		meta: meta,
	}
}

// SplineMeta returns the kind-specific metadata.
func (s *Splines) SplineMeta() SplineMeta { return s.meta }

// CloneWith builds a new Splines modality around already computed data.
func (s *Splines) CloneWith(meta core.Metadata, data *core.ModalityData, timeOffset float64) (core.Modality, error) {
	sm, ok := meta.(SplineMeta)
	if !ok {
		return nil, fmt.Errorf("%w: Splines requires SplineMeta, got %T", core.ErrUnsupported, meta)
	}
	return New(s.Recording(), sm,
		core.WithParsedData(data), core.WithTimeOffset(timeOffset)), nil
}

// GetMeta returns the spline metadata as a flat map.
func (s *Splines) GetMeta() map[string]any {
	meta := s.Base.GetMeta()
	meta["coordinates"] = string(s.meta.Coordinates)
	meta["number_of_sample_points"] = s.meta.PointCount
	meta["confidence_exists"] = s.meta.Confidence
	return meta
}

// InCartesian returns the contours with channels 0 and 1 holding x and y.
// When the stored data is polar it is converted frame by frame; a
// confidence channel is copied through unchanged.
func (s *Splines) InCartesian() (*core.Array, error) {
	if err := s.checkCoordinates(); err != nil {
		return nil, err
	}
	data, err := s.Array()
	if err != nil {
		return nil, err
	}
	if err := s.checkChannels(data); err != nil {
		return nil, err
	}
	if s.meta.Coordinates == Cartesian {
		return data, nil
	}
	return convert(data, polarToCartesian), nil
}

// InPolar returns the contours with channels 0 and 1 holding r and phi.
func (s *Splines) InPolar() (*core.Array, error) {
	if err := s.checkCoordinates(); err != nil {
		return nil, err
	}
	data, err := s.Array()
	if err != nil {
		return nil, err
	}
	if err := s.checkChannels(data); err != nil {
		return nil, err
	}
	if s.meta.Coordinates == Polar {
		return data, nil
	}
	return convert(data, cartesianToPolar), nil
}

// checkCoordinates verifies the metadata names one of the two known
// representations. The zero value would otherwise be treated as polar
// and silently converted.
func (s *Splines) checkCoordinates() error {
	switch s.meta.Coordinates {
	case Cartesian, Polar:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrCoordinates, s.meta.Coordinates)
	}
}

// checkChannels verifies the stored channel count is consistent with the
// metadata: two coordinate channels, plus one more when confidence data
// is declared.
func (s *Splines) checkChannels(data *core.Array) error {
	channels := data.Shape()[1]
	want := 2
	if s.meta.Confidence {
		want = 3
	}
	if channels < want {
		return fmt.Errorf("%w: have %d channels, need %d", ErrChannelCount, channels, want)
	}
	return nil
}

// convert applies a per-point coordinate transform to channels 0 and 1 of
// every frame, copying any further channels through.
func convert(data *core.Array, transform func(a, b float64) (float64, float64)) *core.Array {
	shape := data.Shape()
	frames, channels, points := shape[0], shape[1], shape[2]
	out, _ := core.Zeros(frames, channels, points)
	src, dst := data.Data(), out.Data()
	for t := 0; t < frames; t++ {
		base := t * channels * points
		for p := 0; p < points; p++ {
			a, b := src[base+p], src[base+points+p]
			dst[base+p], dst[base+points+p] = transform(a, b)
		}
		for c := 2; c < channels; c++ {
			copy(dst[base+c*points:base+(c+1)*points], src[base+c*points:base+(c+1)*points])
		}
	}
	return out
}

// cartesianToPolar maps one (x, y) point to (r, phi).
func cartesianToPolar(x, y float64) (float64, float64) {
	return math.Hypot(x, y), math.Atan2(y, x)
}

// polarToCartesian maps one (r, phi) point to (x, y).
func polarToCartesian(r, phi float64) (float64, float64) {
	return r * math.Cos(phi), r * math.Sin(phi)
}
