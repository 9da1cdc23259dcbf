package superparasites

import "github.com/sbergen/superparasites/internal/fx"

// minWorkspaceBytes is the effect workspace every partition must be
// able to carve out: diffuser line, reverb line, correlator/pitch
// shifter workspace, plus alignment slack.
const minWorkspaceBytes = fx.DiffuserLineLength*4 + fx.ReverbLineLength*2 + correlatorWords*4 + 32

// Default geometry. The two raw regions mirror the memory split of the
// original hardware: a large region of sample memory and a small region
// that doubles as effect workspace.
const (
	// DefaultSampleRate is the internal processing rate in Hz.
	DefaultSampleRate = 32000

	// DefaultLargeBufferSize is the size in bytes of the large raw region.
	DefaultLargeBufferSize = 118784

	// DefaultSmallBufferSize is the size in bytes of the small raw region.
	DefaultSmallBufferSize = 65536

	// MaxBlockSize is the largest per-call frame count Process accepts.
	MaxBlockSize = 512
)

const (
	// maxWSOLASize sizes the correlator workspace, in samples.
	maxWSOLASize = 4096

	// correlatorWords is the correlator workspace size in 32-bit words.
	// The pitch shifter reuses the same bytes as its 16-bit delay line;
	// the two are never active on the same block.
	correlatorWords = 3 * (maxWSOLASize/32 + 2)

	// muteFadeCoeff is the one-pole coefficient of the input/output
	// mute smoothers.
	muteFadeCoeff = 0.01

	// freezeFadeCoeff is the one-pole coefficient of the freeze
	// smoother that winds feedback down while frozen.
	freezeFadeCoeff = 0.0005

	// postGain is the fixed makeup gain of the wet crossfade leg.
	postGain = 1.2

	// Grain counts follow the original hardware formula:
	// (mono ? 40 : 32) * (lofi ? 23 : 16) >> 4.
	grainBaseStereo = 32
	grainBaseMono   = 40
	grainFidelity16 = 16
	grainFidelity8  = 23
)
