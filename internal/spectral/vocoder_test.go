package spectral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbergen/superparasites/internal/dsp"
	"github.com/sbergen/superparasites/internal/testutil"
)

// channelBytes is comfortably larger than the per-channel frame memory
// the vocoder carves out.
const channelBytes = 32768

func newTestVocoder(t *testing.T, transform TransformationType, channels int) *PhaseVocoder {
	t.Helper()
	v := New()
	regions := [2][]byte{
		make([]byte, channelBytes),
		make([]byte, channelBytes),
	}
	require.NoError(t, v.Init(transform, regions, channels, 32000))
	return v
}

func TestPhaseVocoder_InitFailsOnTinyRegion(t *testing.T) {
	v := New()
	regions := [2][]byte{make([]byte, 64), make([]byte, 64)}
	assert.Error(t, v.Init(TransformationFrame, regions, 2, 32000))
}

func TestPhaseVocoder_UninitializedIsSilent(t *testing.T) {
	v := New()
	in := testutil.SineFrames(128, 440, 32000, 0.5)
	out := make([]dsp.FloatFrame, 128)
	out[0] = dsp.FloatFrame{L: 9, R: 9}
	v.Process(&dsp.Parameters{}, in, out)
	assert.InDelta(t, 0, testutil.RMS(out), 1e-9)
}

// TestPhaseVocoder_SilentUntilFirstFrame verifies the analysis latency:
// nothing comes out before a full hop has been accumulated and
// analyzed.
func TestPhaseVocoder_SilentUntilFirstFrame(t *testing.T) {
	v := newTestVocoder(t, TransformationFrame, 2)
	params := &dsp.Parameters{}
	params.Spectral.Quantization = 0
	params.Spectral.Warp = 0.5

	in := testutil.SineFrames(256, 440, 32000, 0.5)
	out := make([]dsp.FloatFrame, 256)
	v.Process(params, in, out)
	assert.InDelta(t, 0, testutil.RMS(out), 1e-9)
}

func TestPhaseVocoder_ResynthesizesEnergy(t *testing.T) {
	v := newTestVocoder(t, TransformationFrame, 2)
	params := &dsp.Parameters{}
	params.Spectral.Warp = 0.5

	in := testutil.SineFrames(512, 440, 32000, 0.5)
	out := make([]dsp.FloatFrame, 512)
	// Push enough material through for the overlap-add to fill.
	for block := 0; block < 16; block++ {
		v.Process(params, in, out)
	}
	assert.Greater(t, testutil.RMS(out), 0.01)
	testutil.AssertFramesFinite(t, out)
}

func TestPhaseVocoder_MonoUsesSingleRegion(t *testing.T) {
	v := New()
	regions := [2][]byte{make([]byte, channelBytes), nil}
	require.NoError(t, v.Init(TransformationFrame, regions, 1, 32000))

	in := testutil.SineFrames(512, 440, 32000, 0.5)
	out := make([]dsp.FloatFrame, 512)
	for block := 0; block < 16; block++ {
		v.Process(&dsp.Parameters{Spectral: dsp.SpectralParameters{Warp: 0.5}}, in, out)
	}
	testutil.AssertFramesFinite(t, out)
	// Mono output mirrors the left channel on the right.
	for i := range out {
		assert.Equal(t, out[i].L, out[i].R, "frame %d", i)
	}
}

func TestPhaseVocoder_CloudHoldsSpectrumWhenFrozen(t *testing.T) {
	v := newTestVocoder(t, TransformationSpectralCloud, 2)

	params := &dsp.Parameters{}
	params.Spectral.RefreshRate = 1

	// Feed material with refresh enabled so the held spectrum charges.
	in := testutil.SineFrames(512, 440, 32000, 0.5)
	out := make([]dsp.FloatFrame, 512)
	for block := 0; block < 16; block++ {
		v.Process(params, in, out)
	}
	require.Greater(t, testutil.RMS(out), 0.0)

	// Freeze and feed silence: the held spectrum keeps sounding.
	params.Freeze = true
	silence := make([]dsp.FloatFrame, 512)
	for block := 0; block < 8; block++ {
		v.Process(params, silence, out)
	}
	assert.Greater(t, testutil.RMS(out), 0.001)
	testutil.AssertFramesFinite(t, out)
}

func TestPhaseVocoder_BufferAdvancesPendingAnalysis(t *testing.T) {
	v := newTestVocoder(t, TransformationFrame, 2)
	params := &dsp.Parameters{Spectral: dsp.SpectralParameters{Warp: 0.5}}

	// Buffer on a fresh vocoder is a no-op.
	v.Buffer(params)

	in := testutil.SineFrames(256, 440, 32000, 0.5)
	out := make([]dsp.FloatFrame, 256)
	v.Process(params, in, out)
	v.Buffer(params)
	testutil.AssertFramesFinite(t, out)
}
