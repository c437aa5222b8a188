package metrics

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/artlab/artkit/core"
	"github.com/artlab/artkit/splines"
)

// contour is one spline frame reduced to its usable x/y points.
type contour struct {
	x, y []float64
}

// CalculateSplineMetric computes the requested metric over the parent's
// contour data and returns it as a ModalityData ready to hand to
// NewSplineMetric.
//
// Distance and nearest-neighbour metrics compare frame t against frame
// t−timestep, so the result has parent frames − timestep entries and its
// timevector is the tail of the parent's. Shape metrics describe single
// frames and keep the full timevector.
// Complexity: O(frames · points) for distances, O(frames · points²) for
// nearest-neighbour, O(frames · points · log points) for fourier.
func CalculateSplineMetric(parent *splines.Splines, params SplineMetricParameters) (*core.ModalityData, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	data, err := parent.InCartesian()
	if err != nil {
		return nil, err
	}
	timevector, err := parent.Timevector()
	if err != nil {
		return nil, err
	}
	rate, err := parent.SamplingRate()
	if err != nil {
		return nil, err
	}

	contours, err := extractContours(data, params.ExcludePoints)
	if err != nil {
		return nil, err
	}

	// The result owns its timevector; sharing the parent's backing slice
	// would let a later SetTimeOffset on either modality shift both.
	var values []float64
	var resultTimes []float64
	if params.Metric.IsShape() {
		values, err = shapeSeries(contours, params.Metric)
		resultTimes = append([]float64(nil), timevector...)
	} else {
		if params.Timestep >= len(contours) {
			return nil, fmt.Errorf("%w: timestep %d with only %d frames",
				ErrBadTimestep, params.Timestep, len(contours))
		}
		values, err = comparisonSeries(contours, params.Metric, params.Timestep)
		resultTimes = append([]float64(nil), timevector[params.Timestep:]...)
	}
	if err != nil {
		return nil, err
	}

	result, err := core.NewArray([]int{len(values)}, values)
	if err != nil {
		return nil, err
	}
	return core.NewModalityData(result, rate, resultTimes)
}

// extractContours slices every frame of [time, channel, point] data down
// to its x/y points, honouring the exclusion range.
func extractContours(data *core.Array, exclude *PointRange) ([]contour, error) {
	shape := data.Shape()
	if len(shape) != 3 {
		return nil, fmt.Errorf("%w: spline data must be [time, channel, point], got %v",
			core.ErrShapeMismatch, shape)
	}
	frames, channels, points := shape[0], shape[1], shape[2]

	low, high := 0, 0
	if exclude != nil {
		low, high = exclude.Low, exclude.High
	}
	if low+high >= points {
		return nil, fmt.Errorf("%w: excluding %d+%d of %d points",
			ErrBadExcludePoints, low, high, points)
	}

	contours := make([]contour, frames)
	raw := data.Data()
	for t := 0; t < frames; t++ {
		base := t * channels * points
		contours[t] = contour{
			x: raw[base+low : base+points-high],
			y: raw[base+points+low : base+2*points-high],
		}
	}
	return contours, nil
}

// comparisonSeries computes a two-contour metric for every frame pair
// (t−timestep, t).
func comparisonSeries(contours []contour, metric SplineMetricKind, timestep int) ([]float64, error) {
	values := make([]float64, len(contours)-timestep)
	for t := timestep; t < len(contours); t++ {
		earlier, later := contours[t-timestep], contours[t]
		switch metric {
		case APBPD:
			values[t-timestep] = stat.Mean(pointDistances(earlier, later), nil)
		case MPBPD:
			values[t-timestep] = median(pointDistances(earlier, later))
		case SplineL1:
			values[t-timestep] = differenceNorm(earlier, later, 1)
		case SplineL2:
			values[t-timestep] = differenceNorm(earlier, later, 2)
		case ANND:
			values[t-timestep] = stat.Mean(nearestNeighbourDistances(earlier, later), nil)
		case MNND:
			values[t-timestep] = median(nearestNeighbourDistances(earlier, later))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
		}
	}
	return values, nil
}

// shapeSeries computes a single-contour metric for every frame.
func shapeSeries(contours []contour, metric SplineMetricKind) ([]float64, error) {
	values := make([]float64, len(contours))
	var fft *fourier.CmplxFFT
	if metric == Fourier {
		fft = fourier.NewCmplxFFT(len(contours[0].x))
	}
	for t, c := range contours {
		switch metric {
		case Curvature:
			values[t] = totalCurvature(c, false)
		case ModifiedCurvature:
			values[t] = totalCurvature(c, true)
		case Fourier:
			values[t] = fourierDescriptor(c, fft)
		case Procrustes:
			values[t] = procrustesDistance(contours[0], c)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
		}
	}
	return values, nil
}

// pointDistances returns the euclidean distance between corresponding
// points of two contours.
func pointDistances(a, b contour) []float64 {
	distances := make([]float64, len(a.x))
	for i := range a.x {
		distances[i] = math.Hypot(b.x[i]-a.x[i], b.y[i]-a.y[i])
	}
	return distances
}

// nearestNeighbourDistances returns, for every point of a, the distance
// to its nearest neighbour in b.
func nearestNeighbourDistances(a, b contour) []float64 {
	distances := make([]float64, len(a.x))
	for i := range a.x {
		nearest := math.Inf(1)
		for j := range b.x {
			if d := math.Hypot(b.x[j]-a.x[i], b.y[j]-a.y[i]); d < nearest {
				nearest = d
			}
		}
		distances[i] = nearest
	}
	return distances
}

// differenceNorm treats the contour difference as one flat vector and
// returns its lp norm.
func differenceNorm(a, b contour, p float64) float64 {
	diff := make([]float64, 0, 2*len(a.x))
	for i := range a.x {
		diff = append(diff, b.x[i]-a.x[i], b.y[i]-a.y[i])
	}
	return floats.Norm(diff, p)
}

// totalCurvature sums the absolute turning angles along the contour.
// When weighted, each angle is weighted by the mean of its adjacent
// segment lengths normalised by the contour length, giving the modified
// curvature index.
func totalCurvature(c contour, weighted bool) float64 {
	n := len(c.x)
	if n < 3 {
		return 0
	}
	var arcLength float64
	segments := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		segments[i] = math.Hypot(c.x[i+1]-c.x[i], c.y[i+1]-c.y[i])
		arcLength += segments[i]
	}
	var total float64
	for i := 1; i < n-1; i++ {
		before := math.Atan2(c.y[i]-c.y[i-1], c.x[i]-c.x[i-1])
		after := math.Atan2(c.y[i+1]-c.y[i], c.x[i+1]-c.x[i])
		turn := math.Abs(normalizeAngle(after - before))
		if weighted && arcLength > 0 {
			turn *= (segments[i-1] + segments[i]) / (2 * arcLength)
		}
		total += turn
	}
	return total
}

// normalizeAngle maps an angle into (-pi, pi].
func normalizeAngle(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle <= -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// fourierDescriptor returns |C2|/|C1| of the contour's Fourier
// coefficients: dropping C0 removes translation, dividing by |C1|
// removes scale.
func fourierDescriptor(c contour, fft *fourier.CmplxFFT) float64 {
	if len(c.x) < 3 {
		return 0
	}
	sequence := make([]complex128, len(c.x))
	for i := range c.x {
		sequence[i] = complex(c.x[i], c.y[i])
	}
	coefficients := fft.Coefficients(nil, sequence)
	first := cmplx.Abs(coefficients[1])
	if first == 0 {
		return 0
	}
	return cmplx.Abs(coefficients[2]) / first
}

// procrustesDistance returns the full Procrustes distance between two
// contours: both are centred and scaled to unit norm, then the residual
// after the optimal rotation is reported. 0 means identical shapes.
func procrustesDistance(reference, c contour) float64 {
	u := centredUnitComplex(reference)
	v := centredUnitComplex(c)
	if u == nil || v == nil {
		return 0
	}
	var inner complex128
	for i := range u {
		inner += u[i] * cmplx.Conj(v[i])
	}
	similarity := cmplx.Abs(inner)
	return math.Sqrt(math.Max(0, 1-similarity*similarity))
}

// centredUnitComplex maps a contour to centred, unit-norm complex
// coordinates; nil for degenerate contours.
func centredUnitComplex(c contour) []complex128 {
	n := len(c.x)
	if n == 0 {
		return nil
	}
	meanX := stat.Mean(c.x, nil)
	meanY := stat.Mean(c.y, nil)
	var norm float64
	for i := 0; i < n; i++ {
		dx, dy := c.x[i]-meanX, c.y[i]-meanY
		norm += dx*dx + dy*dy
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	points := make([]complex128, n)
	for i := 0; i < n; i++ {
		points[i] = complex((c.x[i]-meanX)/norm, (c.y[i]-meanY)/norm)
	}
	return points
}

// median returns the middle value of values. The slice is sorted in
// place.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	return stat.Quantile(0.5, stat.Empirical, values, nil)
}
