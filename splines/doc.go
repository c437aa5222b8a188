// Package splines provides the spline-contour modality: one tongue (or
// other articulator) contour per time step, stored as an array with axes
// [time, channel, point].
//
// Channels are either x-y(+confidence) or r-phi(+confidence) depending on
// the coordinate system the export format used; InCartesian and InPolar
// convert between the two representations without touching the stored
// data.
//
// ⚙️ Usage:
//
//	meta := splines.SplineMeta{
//	    Coordinates: splines.Polar,
//	    PointCount:  42,
//	    Confidence:  true,
//	}
//	s := splines.New(rec, meta, core.WithParsedData(parsed))
//	xy, err := s.InCartesian()
//
// Conversion fails with ErrChannelCount when the stored channel count
// cannot support the requested representation.
package splines
