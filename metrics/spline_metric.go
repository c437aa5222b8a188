package metrics

import (
	"fmt"

	"github.com/artlab/artkit/core"
)

// KindSplineMetric is the kind name of spline-metric modalities.
const KindSplineMetric = "SplineMetric"

// SplineMetricKind identifies one spline metric.
type SplineMetricKind string

// Point-to-point distance metrics.
const (
	// APBPD is the average point-by-point distance between two contours.
	APBPD SplineMetricKind = "apbpd"
	// MPBPD is the median point-by-point distance between two contours.
	MPBPD SplineMetricKind = "mpbpd"
	// SplineL1 is the l1 norm of the contour difference.
	SplineL1 SplineMetricKind = "spline_l1"
	// SplineL2 is the l2 norm of the contour difference.
	SplineL2 SplineMetricKind = "spline_l2"
)

// Nearest-neighbour distance metrics.
const (
	// ANND is the average nearest-neighbour distance.
	ANND SplineMetricKind = "annd"
	// MNND is the median nearest-neighbour distance.
	MNND SplineMetricKind = "mnnd"
)

// Shape characterisation metrics. These describe a single contour, so
// the timestep parameter does not apply and is left out of their names.
const (
	// Curvature is the summed absolute discrete curvature of a contour.
	Curvature SplineMetricKind = "curvature"
	// ModifiedCurvature is the modified curvature index, which weighs
	// curvature by arc length.
	ModifiedCurvature SplineMetricKind = "modified_curvature"
	// Fourier is the scale-normalised magnitude of the second Fourier
	// descriptor of the contour.
	Fourier SplineMetricKind = "fourier"
	// Procrustes is the Procrustes distance of the contour against the
	// recording's first contour after translation, scaling and rotation
	// alignment.
	Procrustes SplineMetricKind = "procrustes"
)

// SplineDistanceMetrics lists the point-to-point distance family.
var SplineDistanceMetrics = []SplineMetricKind{APBPD, MPBPD, SplineL1, SplineL2}

// SplineNNDMetrics lists the nearest-neighbour distance family.
var SplineNNDMetrics = []SplineMetricKind{ANND, MNND}

// SplineShapeMetrics lists the shape characterisation family.
var SplineShapeMetrics = []SplineMetricKind{Curvature, ModifiedCurvature, Fourier, Procrustes}

// IsShape reports whether k characterises a single contour rather than
// comparing two.
func (k SplineMetricKind) IsShape() bool {
	switch k {
	case Curvature, ModifiedCurvature, Fourier, Procrustes:
		return true
	}
	return false
}

// Valid reports whether k is one of the accepted spline metrics.
func (k SplineMetricKind) Valid() bool {
	switch k {
	case APBPD, MPBPD, SplineL1, SplineL2, ANND, MNND,
		Curvature, ModifiedCurvature, Fourier, Procrustes:
		return true
	}
	return false
}

// PointRange excludes unreliable contour endpoints from a metric: Low
// points are dropped from the front of the contour and High points from
// the back.
type PointRange struct {
	Low  int
	High int
}

// SplineMetricParameters is the validated parameter set of one
// SplineMetric modality. It is the sole input to the naming function and
// therefore the sole determinant of whether two derivation requests are
// the same modality.
//
// ReleaseDataMemory does not participate in the name: two parameter sets
// differing only in it collapse to one canonical name. This is a
// deliberate property of the caching scheme, not an oversight.
type SplineMetricParameters struct {
	// ParentName names the spline modality the metric is computed on.
	ParentName string
	// Metric selects the spline metric; defaults to MPBPD.
	Metric SplineMetricKind
	// Timestep is the frame distance between compared contours; 1 means
	// consecutive frames. Ignored by shape metrics.
	Timestep int
	// ExcludePoints optionally drops contour endpoints.
	ExcludePoints *PointRange
	// ReleaseDataMemory asks pipelines to release the parent's array
	// after computing.
	ReleaseDataMemory bool

	// IsDownsampled marks a decimated variant.
	IsDownsampled bool
	// DownsamplingRatio is the decimation ratio when IsDownsampled.
	DownsamplingRatio int
	// TimestepMatchedDownsampling records whether the ratio equalled
	// Timestep at decimation time.
	TimestepMatchedDownsampling bool
}

// Parent returns the parent modality name.
func (p SplineMetricParameters) Parent() string { return p.ParentName }

// Step returns the timestep parameter.
func (p SplineMetricParameters) Step() int { return p.Timestep }

// Downsampled reports the downsampling state.
func (p SplineMetricParameters) Downsampled() (int, bool, bool) {
	return p.DownsamplingRatio, p.TimestepMatchedDownsampling, p.IsDownsampled
}

// WithDownsampling returns a copy marked as downsampled by ratio.
func (p SplineMetricParameters) WithDownsampling(ratio int, matchedTimestep bool) core.Metadata {
	c := p
	c.IsDownsampled = true
	c.DownsamplingRatio = ratio
	c.TimestepMatchedDownsampling = matchedTimestep
	return c
}

// NameParts contributes the metric id, and the timestep when the metric
// is timestep-sensitive.
func (p SplineMetricParameters) NameParts() core.NameParts {
	parts := core.NameParts{Discriminator: string(p.Metric)}
	if !p.Metric.IsShape() {
		parts.Timestep = p.Timestep
	}
	return parts
}

// validate normalises defaults and rejects invalid fields.
func (p *SplineMetricParameters) validate() error {
	if p.Metric == "" {
		p.Metric = MPBPD
	}
	if !p.Metric.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMetric, p.Metric)
	}
	if p.Timestep == 0 {
		p.Timestep = 1
	}
	if p.Timestep < 1 {
		return fmt.Errorf("%w: %d", ErrBadTimestep, p.Timestep)
	}
	if p.ExcludePoints != nil && (p.ExcludePoints.Low < 0 || p.ExcludePoints.High < 0) {
		return fmt.Errorf("%w: %+v", ErrBadExcludePoints, *p.ExcludePoints)
	}
	return nil
}

// SplineMetricName generates a SplineMetric name to be used as its unique
// identifier. This function defines what the names are: SplineMetric.Name
// calls it, and anywhere that needs to guess what a name would be calls
// it too. The parameters do not need to belong to a constructed instance.
func SplineMetricName(params SplineMetricParameters) string {
	return core.BuildName(KindSplineMetric, params)
}

// SplineMetricNamesAndMeta generates SplineMetric names and parameter
// objects for the full cartesian product of metrics × timesteps, with
// excludePoints and releaseDataMemory held fixed. If only some
// combinations are needed, make more than one call or weed the results
// afterwards.
//
// Defaults: metrics to [MPBPD], timesteps to [1].
func SplineMetricNamesAndMeta(
	parentName string,
	kinds []SplineMetricKind,
	timesteps []int,
	excludePoints *PointRange,
	releaseDataMemory bool,
) (map[string]SplineMetricParameters, error) {
	if len(kinds) == 0 {
		kinds = []SplineMetricKind{MPBPD}
	}
	if len(timesteps) == 0 {
		timesteps = []int{1}
	}

	names := make(map[string]SplineMetricParameters, len(kinds)*len(timesteps))
	for _, kind := range kinds {
		for _, timestep := range timesteps {
			params := SplineMetricParameters{
				ParentName:        parentName,
				Metric:            kind,
				Timestep:          timestep,
				ExcludePoints:     excludePoints,
				ReleaseDataMemory: releaseDataMemory,
			}
			if err := params.validate(); err != nil {
				return nil, err
			}
			// Shape metrics collapse all timesteps onto one name; the
			// last parameter set wins, which is harmless because the
			// timestep does not affect their data either.
			names[SplineMetricName(params)] = params
		}
	}
	return names, nil
}

// SplineMetric represents a spline metric as a Modality.
//
// Its array must be supplied eagerly at construction through
// core.WithParsedData or reloaded through a load path; deriving it lazily
// from the parent fails with core.ErrNotImplemented.
type SplineMetric struct {
	*core.Base
	params SplineMetricParameters
}

// NewSplineMetric builds a SplineMetric modality belonging to rec.
func NewSplineMetric(rec *core.Recording, params SplineMetricParameters, opts ...core.Option) (*SplineMetric, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	opts = append(opts, core.WithDeriver(func(core.Modality) (*core.ModalityData, error) {
		return nil, fmt.Errorf(
			"%w: SplineMetric modalities have to be calculated at construction time, in %s",
			core.ErrNotImplemented, SplineMetricName(params))
	}))
	return &SplineMetric{
		Base:   core.NewBase(rec, KindSplineMetric, params, opts...),
		params: params,
	}, nil
}

// Parameters returns the metric parameter set.
func (m *SplineMetric) Parameters() SplineMetricParameters { return m.params }

// CloneWith builds a new SplineMetric around already computed data.
func (m *SplineMetric) CloneWith(meta core.Metadata, data *core.ModalityData, timeOffset float64) (core.Modality, error) {
	params, ok := meta.(SplineMetricParameters)
	if !ok {
		return nil, fmt.Errorf("%w: SplineMetric requires SplineMetricParameters, got %T",
			core.ErrUnsupported, meta)
	}
	return NewSplineMetric(m.Recording(), params,
		core.WithParsedData(data), core.WithTimeOffset(timeOffset))
}

// GetMeta returns the metric parameters as a flat map.
func (m *SplineMetric) GetMeta() map[string]any {
	meta := m.Base.GetMeta()
	meta["metric"] = string(m.params.Metric)
	meta["timestep"] = m.params.Timestep
	meta["release_data_memory"] = m.params.ReleaseDataMemory
	if m.params.ExcludePoints != nil {
		meta["exclude_points"] = []int{m.params.ExcludePoints.Low, m.params.ExcludePoints.High}
	}
	return meta
}
