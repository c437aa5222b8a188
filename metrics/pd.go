package metrics

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/artlab/artkit/core"
)

// KindPD is the kind name of pixel-difference modalities.
const KindPD = "PD"

// ImageMask selects the part of a raw frame PD is computed on. Masking
// happens before any interpolation.
type ImageMask string

const (
	// MaskTop restricts PD to the top half of each frame.
	MaskTop ImageMask = "top"
	// MaskBottom restricts PD to the bottom half of each frame.
	MaskBottom ImageMask = "bottom"
	// MaskWhole is the explicit no-restriction mask.
	MaskWhole ImageMask = "whole"
)

// AcceptedPDNorms lists the norms PD can be calculated with.
var AcceptedPDNorms = []string{
	"l1", "l2", "l3", "l4", "l5", "l6", "l7", "l8", "l9", "l10", "inf",
}

// PDParameters is the validated parameter set of one PD modality. Like
// SplineMetricParameters, it is the sole input to the naming function;
// ReleaseDataMemory does not participate in the name.
type PDParameters struct {
	// ParentName names the raw frame modality PD is computed on.
	ParentName string
	// Norm selects the frame-difference norm; defaults to "l1".
	Norm string
	// Timestep is the frame distance between compared frames.
	Timestep int
	// Mask optionally restricts the computation to part of each frame.
	Mask ImageMask
	// Interpolated marks PD over interpolated rather than raw frames.
	// Interpolation itself belongs to the import subsystem; here the
	// flag only contributes the "Interpolated" name prefix.
	Interpolated bool
	// ReleaseDataMemory asks pipelines to release the parent's array
	// after computing. Defaults to true in PDNamesAndMeta.
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
func (p PDParameters) Parent() string { return p.ParentName }

// Step returns the timestep parameter.
func (p PDParameters) Step() int { return p.Timestep }

// Downsampled reports the downsampling state.
func (p PDParameters) Downsampled() (int, bool, bool) {
	return p.DownsamplingRatio, p.TimestepMatchedDownsampling, p.IsDownsampled
}

// WithDownsampling returns a copy marked as downsampled by ratio.
func (p PDParameters) WithDownsampling(ratio int, matchedTimestep bool) core.Metadata {
	c := p
	c.IsDownsampled = true
	c.DownsamplingRatio = ratio
	c.TimestepMatchedDownsampling = matchedTimestep
	return c
}

// NameParts contributes the norm, the timestep, the mask, and the
// "Interpolated" prefix when the PD is both interpolated and derived.
func (p PDParameters) NameParts() core.NameParts {
	parts := core.NameParts{
		Discriminator: p.Norm,
		Timestep:      p.Timestep,
		Qualifier:     string(p.Mask),
	}
	if p.Interpolated && p.ParentName != "" {
		parts.Prefix = "Interpolated"
	}
	return parts
}

// validate normalises defaults and rejects invalid fields.
func (p *PDParameters) validate() error {
	if p.Norm == "" {
		p.Norm = "l1"
	}
	accepted := false
	for _, norm := range AcceptedPDNorms {
		if p.Norm == norm {
			accepted = true
			break
		}
	}
	if !accepted {
		return fmt.Errorf("%w: pd norm %q", ErrUnknownMetric, p.Norm)
	}
	if p.Timestep == 0 {
		p.Timestep = 1
	}
	if p.Timestep < 1 {
		return fmt.Errorf("%w: %d", ErrBadTimestep, p.Timestep)
	}
	switch p.Mask {
	case "", MaskTop, MaskBottom, MaskWhole:
	default:
		return fmt.Errorf("%w: image mask %q", ErrUnknownMetric, p.Mask)
	}
	return nil
}

// PDName generates a PD modality name to be used as its unique
// identifier; the naming counterpart of SplineMetricName.
func PDName(params PDParameters) string {
	return core.BuildName(KindPD, params)
}

// PDNamesAndMeta generates PD names and parameter objects for the full
// cartesian product of norms × timesteps × masks. maskImages expands the
// mask axis to {top, bottom, whole, none}; otherwise only the unmasked
// variant is produced.
//
// Defaults: norms to ["l2"], timesteps to [1], releaseDataMemory true.
func PDNamesAndMeta(
	parentName string,
	norms []string,
	timesteps []int,
	maskImages bool,
	interpolated bool,
	releaseDataMemory bool,
) (map[string]PDParameters, error) {
	if len(norms) == 0 {
		norms = []string{"l2"}
	}
	if len(timesteps) == 0 {
		timesteps = []int{1}
	}
	masks := []ImageMask{""}
	if maskImages {
		masks = []ImageMask{MaskTop, MaskBottom, MaskWhole, ""}
	}

	names := make(map[string]PDParameters, len(norms)*len(timesteps)*len(masks))
	for _, norm := range norms {
		for _, timestep := range timesteps {
			for _, mask := range masks {
				params := PDParameters{
					ParentName:        parentName,
					Norm:              norm,
					Timestep:          timestep,
					Mask:              mask,
					Interpolated:      interpolated,
					ReleaseDataMemory: releaseDataMemory,
				}
				if err := params.validate(); err != nil {
					return nil, err
				}
				names[PDName(params)] = params
			}
		}
	}
	return names, nil
}

// PD represents pixel difference as a Modality: the norm of the change
// between frames timestep apart, one value per compared pair.
//
// Like SplineMetric, its array must be supplied eagerly at construction;
// the lazy derive path fails with core.ErrNotImplemented.
type PD struct {
	*core.Base
	params PDParameters
}

// NewPD builds a PD modality belonging to rec.
func NewPD(rec *core.Recording, params PDParameters, opts ...core.Option) (*PD, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	opts = append(opts, core.WithDeriver(func(core.Modality) (*core.ModalityData, error) {
		return nil, fmt.Errorf(
			"%w: PD modalities have to be calculated at construction time, in %s",
			core.ErrNotImplemented, PDName(params))
	}))
	return &PD{
		Base:   core.NewBase(rec, KindPD, params, opts...),
		params: params,
	}, nil
}

// Parameters returns the PD parameter set.
func (m *PD) Parameters() PDParameters { return m.params }

// CloneWith builds a new PD around already computed data.
func (m *PD) CloneWith(meta core.Metadata, data *core.ModalityData, timeOffset float64) (core.Modality, error) {
	params, ok := meta.(PDParameters)
	if !ok {
		return nil, fmt.Errorf("%w: PD requires PDParameters, got %T", core.ErrUnsupported, meta)
	}
	return NewPD(m.Recording(), params,
		core.WithParsedData(data), core.WithTimeOffset(timeOffset))
}

// GetMeta returns the PD parameters as a flat map.
func (m *PD) GetMeta() map[string]any {
	meta := m.Base.GetMeta()
	meta["metric"] = m.params.Norm
	meta["timestep"] = m.params.Timestep
	meta["image_mask"] = string(m.params.Mask)
	meta["interpolated"] = m.params.Interpolated
	meta["release_data_memory"] = m.params.ReleaseDataMemory
	return meta
}

// CalculatePD computes pixel difference over the parent's frames and
// returns it as a ModalityData ready to hand to NewPD. The result has
// parent frames − timestep entries and the tail of the parent's
// timevector.
// Complexity: O(frames · frame size)
func CalculatePD(parent core.Modality, params PDParameters) (*core.ModalityData, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	data, err := parent.Array()
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
	if params.Timestep >= data.Frames() {
		return nil, fmt.Errorf("%w: timestep %d with only %d frames",
			ErrBadTimestep, params.Timestep, data.Frames())
	}

	lo, hi := maskBounds(data, params.Mask)
	values := make([]float64, data.Frames()-params.Timestep)
	diff := make([]float64, hi-lo)
	for t := params.Timestep; t < data.Frames(); t++ {
		earlier := data.Frame(t - params.Timestep)[lo:hi]
		later := data.Frame(t)[lo:hi]
		for i := range diff {
			diff[i] = later[i] - earlier[i]
		}
		values[t-params.Timestep] = pdNorm(diff, params.Norm)
	}

	result, err := core.NewArray([]int{len(values)}, values)
	if err != nil {
		return nil, err
	}
	// The result owns its timevector; sharing the parent's backing slice
	// would let a later SetTimeOffset on either modality shift both.
	tail := append([]float64(nil), timevector[params.Timestep:]...)
	return core.NewModalityData(result, rate, tail)
}

// maskBounds maps an image mask to element bounds within one flat frame.
// The frame's leading axis is split in half for the top and bottom masks.
func maskBounds(data *core.Array, mask ImageMask) (int, int) {
	size := data.FrameSize()
	switch mask {
	case MaskTop:
		return 0, size / 2
	case MaskBottom:
		return size / 2, size
	default:
		return 0, size
	}
}

// pdNorm returns the requested norm of the difference vector.
func pdNorm(diff []float64, norm string) float64 {
	if norm == "inf" {
		return floats.Norm(diff, math.Inf(1))
	}
	p, _ := strconv.ParseFloat(strings.TrimPrefix(norm, "l"), 64)
	return floats.Norm(diff, p)
}
