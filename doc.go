// Package artkit is your in-memory engine for managing multi-modal
// speech-articulation recordings — raw sensor arrays, spline contours,
// and the derived time series computed from them.
//
// 🚀 What is artkit?
//
//	A library that brings together the data model and pipelines of an
//	articulation research toolkit:
//		• Core primitives: Modality, Recording, Session and the lazy
//		  materialization contract that binds them
//		• Canonical naming: deterministic identity for every derived
//		  modality, used both as cache key and human-readable label
//		• Spline modalities: contour data in Cartesian or polar form
//		• Metric pipelines: point-to-point, nearest-neighbour and shape
//		  metrics over splines, pixel difference over raw frames
//		• Downsampling: stride decimation with idempotent re-runs
//		• Persistence: sqlite-backed saved state feeding the lazy loader
//
// ✨ Why choose artkit?
//
//   - Fail-fast guarantees – typed errors for every broken invariant
//   - Memory aware – release an array, keep its identity and timevector
//   - Deterministic – one parameter set, one name, one computation
//   - Extensible – add your own modality kinds on top of core.Base
//
// Under the hood, everything is organized under these subpackages:
//
//	core/    — ModalityData, Modality, Recording, Session & naming
//	splines/ — spline-contour modality and coordinate conversions
//	metrics/ — spline metrics, pixel difference, downsampling
//	process/ — per-Recording processing driver
//	config/  — YAML run configuration
//	store/   — sqlite saved-state persistence
//
// Quick sketch of the modality graph:
//
//	    Splines ──▶ "SplineMetric annd on Splines"
//	       │
//	       └──▶ "SplineMetric annd on Splines downsampled by 2"
//
//	derived modalities hang off their parents by name, never by pointer.
//
// Dive into each package's doc.go for full examples, starting with core.
//
//	go get github.com/artlab/artkit
package artkit
