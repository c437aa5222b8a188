package core

import "fmt"

// KindRawUltrasound is the kind name of raw 2D ultrasound frame data.
const KindRawUltrasound = "RawUltrasound"

// RawMeta is the metadata of a RawUltrasound modality: probe geometry as
// reported by the export format, plus the shared base fields.
type RawMeta struct {
	BaseMeta

	// FramesPerSecond is the frame rate the probe reported.
	FramesPerSecond float64
	// NumVectors is the scanline count of one frame.
	NumVectors int
	// PixPerVector is the sample count along one scanline.
	PixPerVector int
}

// WithDownsampling returns a RawMeta copy marked as downsampled. Shadows
// the BaseMeta method so the probe geometry survives the copy.
func (m RawMeta) WithDownsampling(ratio int, matchedTimestep bool) Metadata {
	c := m
	c.IsDownsampled = true
	c.DownsamplingRatio = ratio
	c.TimestepMatchedDownsampling = matchedTimestep
	return c
}

// RawUltrasound is an underived modality over raw sensor frames with
// data axes [time, vector, pixel]. Its array is obtained from a data
// path reader or a saved-state loader, never by derivation.
type RawUltrasound struct {
	*Base
	meta RawMeta
}

// NewRawUltrasound builds a RawUltrasound belonging to rec.
func NewRawUltrasound(rec *Recording, meta RawMeta, opts ...Option) *RawUltrasound {
	return &RawUltrasound{
		Base: NewBase(rec, KindRawUltrasound, meta, opts...),
		meta: meta,
	}
}

// RawUltrasoundMeta returns the kind-specific metadata.
func (r *RawUltrasound) RawUltrasoundMeta() RawMeta { return r.meta }

// CloneWith builds a new RawUltrasound around already computed data.
func (r *RawUltrasound) CloneWith(meta Metadata, data *ModalityData, timeOffset float64) (Modality, error) {
	raw, ok := meta.(RawMeta)
	if !ok {
		return nil, fmt.Errorf("%w: RawUltrasound requires RawMeta, got %T", ErrUnsupported, meta)
	}
	return NewRawUltrasound(r.Recording(), raw,
		WithParsedData(data), WithTimeOffset(timeOffset)), nil
}

// GetMeta returns the raw ultrasound metadata as a flat map.
func (r *RawUltrasound) GetMeta() map[string]any {
	meta := r.Base.GetMeta()
	meta["frames_per_second"] = r.meta.FramesPerSecond
	meta["num_vectors"] = r.meta.NumVectors
	meta["pix_per_vector"] = r.meta.PixPerVector
	return meta
}
