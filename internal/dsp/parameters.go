package dsp

// GranularParameters are the meta-parameters of the granular player,
// derived from the density and texture knobs at dispatch time.
type GranularParameters struct {
	// Overlap controls how densely grains are scheduled.
	Overlap float32

	// WindowShape morphs the grain envelope from rectangular (0) to a
	// raised cosine (1).
	WindowShape float32

	// UseDeterministicSeed makes grain scheduling reproducible.
	UseDeterministicSeed bool
}

// SpectralParameters are the phase-vocoder meta-parameters, derived
// from the main knobs at dispatch time.
type SpectralParameters struct {
	Quantization       float32
	RefreshRate        float32
	Warp               float32
	PhaseRandomization float32
}

// KammerlParameters control the slice playback engine.
type KammerlParameters struct {
	// Probability gates slice retriggering.
	Probability float32

	// ClockDivider selects the slice length relative to the loop.
	ClockDivider float32

	// PitchMode selects the per-slice pitch envelope, and doubles as
	// the drive amount of the output waveshaper in spectral cloud mode.
	PitchMode float32

	// Distortion is the per-slice distortion amount.
	Distortion float32
}

// Parameters is the per-block snapshot of control values. It is
// refreshed once per block by the caller before Process is invoked and
// treated as read-only within the block, except for the mode-specific
// sub-parameters which are derived at the top of dispatch.
type Parameters struct {
	Position     float32
	Size         float32
	Pitch        float32 // semitones
	Density      float32
	Texture      float32
	DryWet       float32
	StereoSpread float32
	Feedback     float32
	Reverb       float32

	Freeze  bool
	Trigger bool
	Gate    bool

	Granular GranularParameters
	Spectral SpectralParameters
	Kammerl  KammerlParameters
}
