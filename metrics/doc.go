// Package metrics derives new modalities from existing ones: spline
// metrics over contour data, pixel difference over raw frames, and
// stride decimation of any modality.
//
// 🚀 The request surface is declarative: callers enumerate the metric
// kinds and timesteps they want once, and NamesAndMeta returns the full
// cartesian product as a map from canonical name to parameter object.
// Pipelines check each name against the Recording before computing, so
// re-running a configuration derives every distinct combination at most
// once.
//
// ✨ Metric families:
//   - point-to-point distances: apbpd, mpbpd, spline_l1, spline_l2
//   - nearest-neighbour distances: annd, mnnd
//   - shape characterisation: curvature, modified_curvature, fourier,
//     procrustes (timestep-insensitive, hence no ts tag in their names)
//
// ⚙️ Usage:
//
//	names, err := metrics.SplineMetricNamesAndMeta(splines.Kind,
//	    []metrics.SplineMetricKind{metrics.ANND, metrics.MPBPD},
//	    []int{1, 2}, nil, false)
//	for name, params := range names {
//	    if rec.Has(name) {
//	        continue
//	    }
//	    data, err := metrics.CalculateSplineMetric(parent, params)
//	    ...
//	}
//
// On-the-fly derivation of a metric modality's array is intentionally
// unfinished: SplineMetric and PD must be handed their data at
// construction time, and their lazy derive path fails with
// core.ErrNotImplemented.
package metrics
