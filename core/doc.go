// Package core defines the central datastructures of artkit: ModalityData,
// the Modality contract with its lazy materialization engine, and the
// Recording and Session aggregates that own modalities.
//
// 🚀 What is core?
//
//	The modality graph. A Modality is one named, time-indexed array that
//	belongs to a Recording. It materializes its data on first access from
//	exactly one of three sources:
//	  • a data path read by an import reader,
//	  • a load path read by a saved-state loader,
//	  • derivation from a named parent Modality.
//	Parent links are name-based weak references resolved through the
//	owning Recording's map at derivation time, so the graph never holds
//	ownership cycles.
//
// ✨ Key guarantees:
//   - lazy, at-most-once materialization behind a tri-state cache
//     (absent / loading / resident), with a cycle guard
//   - overwrite protection: replacing a resident array or timevector
//     requires an exact layout match (ErrOverwrite otherwise)
//   - memory release: SetArray(nil) frees the array while the identity,
//     timevector and metadata persist
//   - canonical naming: BuildName maps a parameter set to the one string
//     identity used as the modality's cache key in its Recording
//
// ⚙️ Usage:
//
//	rec := core.NewRecording(core.RecordingMeta{Basename: "spag_day1_001"})
//	raw := core.NewRawUltrasound(rec, core.RawMeta{},
//	    core.WithDataPath("spag_day1_001.ult", reader))
//	if err := rec.AddModality(raw, false); err != nil { ... }
//
//	arr, err := raw.Array() // triggers the read, cached afterwards
//
// Complexity: all map operations are O(1); materialization cost is the
// cost of the underlying reader, loader, or deriver, paid once.
package core
