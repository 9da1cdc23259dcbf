package resample

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sbergen/superparasites/internal/dsp"
	"github.com/sbergen/superparasites/internal/testutil"
)

func TestDownsampler_HalvesFrameCount(t *testing.T) {
	var d Downsampler
	d.Init()
	in := testutil.SineFrames(64, 440, 32000, 0.5)
	out := make([]dsp.FloatFrame, 32)
	d.Process(in, out)
	testutil.AssertFramesFinite(t, out)
}

// TestDownsampler_DCGain verifies the [1 2 1]/4 kernel preserves DC.
func TestDownsampler_DCGain(t *testing.T) {
	var d Downsampler
	d.Init()
	in := make([]dsp.FloatFrame, 64)
	for i := range in {
		in[i] = dsp.FloatFrame{L: 0.5, R: 0.5}
	}
	out := make([]dsp.FloatFrame, 32)
	d.Process(in, out)

	// The first sample sees the cleared history.
	for _, f := range out[1:] {
		assert.InDelta(t, 0.5, f.L, 1e-6)
		assert.InDelta(t, 0.5, f.R, 1e-6)
	}
}

// TestDownsampler_HistoryBridgesBlocks verifies continuity across
// Process calls.
func TestDownsampler_HistoryBridgesBlocks(t *testing.T) {
	dc := make([]dsp.FloatFrame, 16)
	for i := range dc {
		dc[i] = dsp.FloatFrame{L: 1, R: 1}
	}

	var d Downsampler
	d.Init()
	out := make([]dsp.FloatFrame, 8)
	d.Process(dc, out)
	d.Process(dc, out)

	// After one full block of DC the history holds 1, so the second
	// block is pure DC from its first sample on.
	assert.InDelta(t, 1, out[0].L, 1e-6)
}

func TestUpsampler_DoublesFrameCount(t *testing.T) {
	var u Upsampler
	u.Init()
	in := testutil.SineFrames(32, 440, 32000, 0.5)
	out := make([]dsp.FloatFrame, 64)
	u.Process(in, out)
	testutil.AssertFramesFinite(t, out)
}

// TestUpsampler_DCGain verifies the interpolator settles to the input
// level on DC.
func TestUpsampler_DCGain(t *testing.T) {
	var u Upsampler
	u.Init()
	in := make([]dsp.FloatFrame, 32)
	for i := range in {
		in[i] = dsp.FloatFrame{L: 0.5, R: 0.5}
	}
	out := make([]dsp.FloatFrame, 64)
	u.Process(in, out)

	// Skip the history warm-up.
	for _, f := range out[8:] {
		assert.InDelta(t, 0.5, f.L, 1e-6)
		assert.InDelta(t, 0.5, f.R, 1e-6)
	}
}

// TestUpsampler_Ordering verifies that the interpolated midpoint lands
// between its neighbors on a ramp.
func TestUpsampler_Ordering(t *testing.T) {
	var u Upsampler
	u.Init()
	in := make([]dsp.FloatFrame, 32)
	for i := range in {
		in[i].L = float32(i)
	}
	out := make([]dsp.FloatFrame, 64)
	u.Process(in, out)

	// On a linear ramp, past the warm-up, consecutive output samples
	// must themselves form a ramp with step 0.5.
	for i := 10; i < 63; i++ {
		assert.InDelta(t, 0.5, out[i+1].L-out[i].L, 1e-4, "step at %d", i)
	}
}

func TestRoundTrip_PreservesDC(t *testing.T) {
	var d Downsampler
	var u Upsampler
	d.Init()
	u.Init()

	in := make([]dsp.FloatFrame, 64)
	for i := range in {
		in[i] = dsp.FloatFrame{L: -0.25, R: 0.75}
	}
	mid := make([]dsp.FloatFrame, 32)
	out := make([]dsp.FloatFrame, 64)
	d.Process(in, mid)
	u.Process(mid, out)

	for _, f := range out[8:] {
		assert.InDelta(t, -0.25, f.L, 1e-5)
		assert.InDelta(t, 0.75, f.R, 1e-5)
	}
}
