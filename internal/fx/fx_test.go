package fx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbergen/superparasites/internal/dsp"
	"github.com/sbergen/superparasites/internal/testutil"
)

func impulseFrames(n int) []dsp.FloatFrame {
	frames := make([]dsp.FloatFrame, n)
	frames[0] = dsp.FloatFrame{L: 1, R: 1}
	return frames
}

func TestDiffuser_DryWhenAmountZero(t *testing.T) {
	var d Diffuser
	d.Init(make([]float32, DiffuserLineLength))
	d.SetAmount(0)

	frames := testutil.SineFrames(256, 440, 32000, 0.5)
	want := make([]dsp.FloatFrame, len(frames))
	copy(want, frames)

	d.Process(frames)
	assert.Equal(t, want, frames)
}

func TestDiffuser_SmearsImpulse(t *testing.T) {
	var d Diffuser
	d.Init(make([]float32, DiffuserLineLength))
	d.SetAmount(1)

	frames := impulseFrames(1024)
	d.Process(frames)

	// The allpass chain spreads the impulse energy over time: some of
	// it must appear after the shortest delay.
	var tailEnergy float64
	for _, f := range frames[100:] {
		tailEnergy += float64(f.L)*float64(f.L) + float64(f.R)*float64(f.R)
	}
	assert.Greater(t, tailEnergy, 0.0)
	testutil.AssertFramesFinite(t, frames)
}

func TestPitchShifter_BypassWhenDry(t *testing.T) {
	var p PitchShifter
	p.Init(make([]int16, PitchShifterLineLength))
	p.SetRatio(2)
	p.SetDryWet(0)

	frames := testutil.SineFrames(128, 440, 32000, 0.5)
	want := make([]dsp.FloatFrame, len(frames))
	copy(want, frames)

	p.Process(frames)
	assert.Equal(t, want, frames)
}

func TestPitchShifter_UnisonIsNearTransparent(t *testing.T) {
	var p PitchShifter
	p.Init(make([]int16, PitchShifterLineLength))
	p.SetRatio(1)
	p.SetSize(1)
	p.SetDryWet(1)

	// At ratio 1 the taps do not move; after the line fills, the wet
	// signal is a fixed delay of the input, so output stays bounded
	// and finite for a bounded input.
	frames := testutil.SineFrames(2048, 440, 32000, 0.5)
	p.Process(frames)
	testutil.AssertFramesFinite(t, frames)
	testutil.AssertFramesInRange(t, frames, -1.01, 1.01)
}

func TestPitchShifter_OctaveUpKeepsBounds(t *testing.T) {
	var p PitchShifter
	p.Init(make([]int16, PitchShifterLineLength))
	p.SetRatio(dsp.SemitonesToRatio(12))
	p.SetSize(0.5)
	p.SetDryWet(1)

	frames := testutil.SineFrames(4096, 220, 32000, 0.8)
	p.Process(frames)
	testutil.AssertFramesFinite(t, frames)
	testutil.AssertFramesInRange(t, frames, -1.8, 1.8)
}

func TestReverb_SilentWhenAmountZero(t *testing.T) {
	var r Reverb
	r.Init(make([]uint16, ReverbLineLength))
	r.SetAmount(0)
	r.SetDiffusion(0.7)
	r.SetTime(0.5)
	r.SetInputGain(0.2)
	r.SetLP(0.7)

	frames := testutil.SineFrames(512, 440, 32000, 0.5)
	want := make([]dsp.FloatFrame, len(frames))
	copy(want, frames)

	r.Process(frames)
	for i := range frames {
		assert.InDelta(t, want[i].L, frames[i].L, 1e-5, "frame %d", i)
		assert.InDelta(t, want[i].R, frames[i].R, 1e-5, "frame %d", i)
	}
}

func TestReverb_AddsTail(t *testing.T) {
	var r Reverb
	r.Init(make([]uint16, ReverbLineLength))
	r.SetAmount(0.5)
	r.SetDiffusion(0.7)
	r.SetTime(0.8)
	r.SetInputGain(0.2)
	r.SetLP(0.7)

	// Excite with a burst, then feed silence: the tail must ring.
	burst := testutil.SineFrames(512, 440, 32000, 0.8)
	r.Process(burst)

	tail := make([]dsp.FloatFrame, 2048)
	r.Process(tail)
	assert.Greater(t, testutil.RMS(tail), 0.0)
	testutil.AssertFramesFinite(t, tail)
}

func TestReverb_Decays(t *testing.T) {
	var r Reverb
	r.Init(make([]uint16, ReverbLineLength))
	r.SetAmount(0.5)
	r.SetDiffusion(0.7)
	r.SetTime(0.35)
	r.SetInputGain(0.2)
	r.SetLP(0.6)

	burst := testutil.SineFrames(512, 440, 32000, 0.8)
	r.Process(burst)

	// Let the longest tank delay fill before comparing windows, so the
	// first window is not still ramping up.
	settle := make([]dsp.FloatFrame, 8192)
	r.Process(settle)

	early := make([]dsp.FloatFrame, 4096)
	r.Process(early)
	late := make([]dsp.FloatFrame, 4096)
	r.Process(late)
	assert.Less(t, testutil.RMS(late), testutil.RMS(early)+1e-9)
}

func TestOliverb_FreezeSustains(t *testing.T) {
	var o Oliverb
	o.Init(make([]uint16, ReverbLineLength))
	o.SetDiffusion(0.6)
	o.SetSize(0.5)
	o.SetModRate(0)
	o.SetModAmount(0)
	o.SetRatio(1)
	o.SetPitchShiftAmount(0)
	o.SetInputGain(0.5)
	o.SetDecay(0.8)
	o.SetLP(0.9)
	o.SetHP(0.01)

	burst := testutil.SineFrames(1024, 330, 32000, 0.8)
	o.Process(burst)

	// Freeze: no input, unity decay.
	o.SetInputGain(0)
	o.SetDecay(1)
	o.SetLP(1)
	o.SetHP(0)

	tail := make([]dsp.FloatFrame, 4096)
	o.Process(tail)
	assert.Greater(t, testutil.RMS(tail), 0.0)
	testutil.AssertFramesFinite(t, tail)
}

func TestResonestor_RingsAfterBurst(t *testing.T) {
	var r Resonestor
	r.Init(make([]float32, ResonestorWorkspace), 32000)
	r.SetPitch(0)
	r.SetChord(0)
	r.SetFeedback(0.9)
	r.SetDamp(0.8)
	r.SetNarrow(0.001)
	r.SetHarmonicity(1)
	r.SetBurstDamp(0.5)
	r.SetBurstComb(0.5)
	r.SetBurstDuration(0.5)

	r.SetTrigger(true)
	frames := make([]dsp.FloatFrame, 4096)
	r.Process(frames)
	r.SetTrigger(false)

	assert.Greater(t, testutil.RMS(frames), 0.0)
	testutil.AssertFramesFinite(t, frames)
}

func TestResonestor_SilentWithoutExcitation(t *testing.T) {
	var r Resonestor
	r.Init(make([]float32, ResonestorWorkspace), 32000)
	r.SetFeedback(0.9)

	frames := make([]dsp.FloatFrame, 1024)
	r.Process(frames)
	assert.InDelta(t, 0, testutil.RMS(frames), 1e-6)
}

func TestReverb_RequiresFullLine(t *testing.T) {
	// The fixed segment lengths must fit the line allocation.
	total := 0
	for _, n := range reverbLengths {
		total += int(n)
	}
	require.LessOrEqual(t, total, ReverbLineLength)
}
