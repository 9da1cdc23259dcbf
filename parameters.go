package superparasites

import "github.com/sbergen/superparasites/internal/dsp"

// Frame and parameter types are shared with the internal engines; the
// aliases keep the public API in one package.
type (
	// ShortFrame is one stereo frame in the 16-bit wire format.
	ShortFrame = dsp.ShortFrame

	// FloatFrame is one stereo frame in the normalized float format.
	FloatFrame = dsp.FloatFrame

	// Parameters is the per-block snapshot of control values.
	Parameters = dsp.Parameters

	// GranularParameters are the granular meta-parameters.
	GranularParameters = dsp.GranularParameters

	// SpectralParameters are the phase-vocoder meta-parameters.
	SpectralParameters = dsp.SpectralParameters

	// KammerlParameters control the slice playback engine.
	KammerlParameters = dsp.KammerlParameters
)

// PlaybackMode selects the active synthesis engine. Exactly one mode is
// active at a time.
type PlaybackMode uint8

const (
	PlaybackModeGranular PlaybackMode = iota
	PlaybackModeStretch
	PlaybackModeLoopingDelay
	PlaybackModeSpectral
	PlaybackModeSpectralCloud
	PlaybackModeOliverb
	PlaybackModeResonestor
	PlaybackModeKammerl

	// PlaybackModeLast is the "none yet" sentinel used as the previous
	// mode before the first preparation; it is never active.
	PlaybackModeLast
)

// String returns the mode name.
func (m PlaybackMode) String() string {
	switch m {
	case PlaybackModeGranular:
		return "granular"
	case PlaybackModeStretch:
		return "stretch"
	case PlaybackModeLoopingDelay:
		return "looping_delay"
	case PlaybackModeSpectral:
		return "spectral"
	case PlaybackModeSpectralCloud:
		return "spectral_cloud"
	case PlaybackModeOliverb:
		return "oliverb"
	case PlaybackModeResonestor:
		return "resonestor"
	case PlaybackModeKammerl:
		return "kammerl"
	default:
		return "none"
	}
}

// spectral reports whether the mode is a phase-vocoder variant.
func (m PlaybackMode) spectral() bool {
	return m == PlaybackModeSpectral || m == PlaybackModeSpectralCloud
}

// simple reports whether the mode is a plain ring-buffer player. A
// transition between two simple modes is benign: buffers survive it.
func (m PlaybackMode) simple() bool {
	switch m {
	case PlaybackModeGranular, PlaybackModeStretch,
		PlaybackModeLoopingDelay, PlaybackModeKammerl:
		return true
	default:
		return false
	}
}
