package core

import "strconv"

// NameParts is a metadata kind's contribution to its canonical name.
// The zero value contributes nothing, which is what base (underived)
// kinds return.
type NameParts struct {
	// Prefix goes in front of the whole name, e.g. "Interpolated".
	Prefix string
	// Discriminator is the one-word metric or operation id, e.g. "annd".
	Discriminator string
	// Timestep is appended as " tsN" when greater than one. Kinds whose
	// metric is timestep-insensitive leave it at zero regardless of the
	// timestep they were configured with.
	Timestep int
	// Qualifier is an extra kind-specific token, e.g. an image mask.
	Qualifier string
}

// Metadata is the parameter set that identifies a Modality. Two parameter
// sets that build the same canonical name are the same modality for
// caching purposes, even if fields outside the name (such as a
// release-memory flag) differ.
type Metadata interface {
	// Parent returns the name of the modality this one is derived from,
	// or "" for an underived kind.
	Parent() string

	// Step returns the timestep parameter, or 0 for kinds without one.
	Step() int

	// Downsampled reports the downsampling state: the decimation ratio,
	// whether the ratio matched the modality's own timestep, and whether
	// the modality is downsampled at all.
	Downsampled() (ratio int, matchedTimestep bool, ok bool)

	// WithDownsampling returns a copy of the metadata marked as
	// downsampled by ratio. The receiver is not modified.
	WithDownsampling(ratio int, matchedTimestep bool) Metadata

	// NameParts returns the kind-specific name contribution.
	NameParts() NameParts
}

// BuildName generates the canonical name of a modality from its kind name
// and metadata. This function defines what the names are: every place
// that needs to predict a derived modality's identity before it is
// computed goes through here.
//
// The grammar, with optional pieces in brackets:
//
//	[Prefix ]Kind[ Discriminator][ tsN][ Qualifier][ on Parent][ downsampled by R]
//
// BuildName is pure and deterministic: equal inputs give equal names.
func BuildName(kind string, meta Metadata) string {
	if meta == nil {
		return kind
	}
	parts := meta.NameParts()

	name := kind
	if parts.Discriminator != "" {
		name += " " + parts.Discriminator
	}
	if parts.Timestep > 1 {
		name += " ts" + strconv.Itoa(parts.Timestep)
	}
	if parts.Qualifier != "" {
		name += " " + parts.Qualifier
	}
	if parts.Prefix != "" {
		name = parts.Prefix + " " + name
	}
	if parent := meta.Parent(); parent != "" {
		name += " on " + parent
	}
	if ratio, _, ok := meta.Downsampled(); ok {
		name += " downsampled by " + strconv.Itoa(ratio)
	}
	return name
}

// BaseMeta is the minimal Metadata carried by underived modality kinds.
// Kind-specific metadata structs embed it and override WithDownsampling
// so the copy keeps their extra fields.
type BaseMeta struct {
	// ParentName is the name of the parent modality; "" for base kinds.
	ParentName string

	// IsDownsampled marks the modality as a decimated variant.
	IsDownsampled bool
	// DownsamplingRatio is the decimation ratio when IsDownsampled.
	DownsamplingRatio int
	// TimestepMatchedDownsampling records whether the ratio equalled the
	// modality's own timestep at decimation time.
	TimestepMatchedDownsampling bool
}

// Parent returns the parent modality name, "" for base kinds.
func (m BaseMeta) Parent() string { return m.ParentName }

// Step returns 0: base kinds have no timestep parameter.
func (m BaseMeta) Step() int { return 0 }

// Downsampled reports the downsampling state.
func (m BaseMeta) Downsampled() (int, bool, bool) {
	return m.DownsamplingRatio, m.TimestepMatchedDownsampling, m.IsDownsampled
}

// WithDownsampling returns a copy marked as downsampled by ratio.
func (m BaseMeta) WithDownsampling(ratio int, matchedTimestep bool) Metadata {
	c := m
	c.IsDownsampled = true
	c.DownsamplingRatio = ratio
	c.TimestepMatchedDownsampling = matchedTimestep
	return c
}

// NameParts returns the zero contribution: a base kind's name is just the
// kind name plus the shared suffixes.
func (m BaseMeta) NameParts() NameParts { return NameParts{} }
