// Package process applies registered processing operations to the
// recordings of a session, adding the results back to each Recording as
// new modalities.
//
// An Operation names the modality kinds it applies to; Run invokes it on
// every non-excluded Recording whose modality set intersects those kinds.
// Each Recording's derivation is independent of every other's, so Run can
// fan recordings out to a bounded worker pool with WithWorkers — a
// Recording's modality map is only ever mutated by the one worker that
// owns it.
//
// ⚙️ Usage:
//
//	ops := map[string]process.Operation{
//	    "spline metrics": process.SplineMetricOperation(
//	        []metrics.SplineMetricKind{metrics.ANND}, []int{1, 2}, nil, false),
//	    "downsample": process.DownsampleOperation("SplineMetric", []int{2}, true),
//	}
//	if err := process.Run(session.Recordings, ops); err != nil { ... }
package process
