package fx

import (
	"math"

	"github.com/sbergen/superparasites/internal/dsp"
)

// Oliverb is the dedicated reverb playback mode: the generic tank
// extended with size scaling, delay-time modulation, a pitch-shifting
// feedback loop and a highpass damping stage.
type Oliverb struct {
	ap  [4]revSegment
	dap [4]revSegment
	del [2]revSegment

	lpState [2]float32
	hpState [2]float32

	inputGain   float32
	decay       float32
	diffusion   float32
	lp          float32
	hp          float32
	size        float32
	modRate     float32
	modAmount   float32
	ratio       float32
	pitchAmount float32

	lfoPhase float32
	phase    float32 // transposer tap phase
}

var oliverbLengths = []int32{113, 162, 241, 399, 1653, 2038, 1913, 1663, 3411, 4782}

// Init assigns the 16-bit delay line. len(line) must be at least
// ReverbLineLength.
func (o *Oliverb) Init(line []uint16) {
	pos := int32(0)
	segs := []*revSegment{
		&o.ap[0], &o.ap[1], &o.ap[2], &o.ap[3],
		&o.dap[0], &o.dap[1], &o.dap[2], &o.dap[3],
		&o.del[0], &o.del[1],
	}
	for i, s := range segs {
		pos = s.init(line, pos, oliverbLengths[i])
	}
	o.lpState = [2]float32{}
	o.hpState = [2]float32{}
	o.inputGain = 0.5
	o.decay = 0.5
	o.diffusion = 0.625
	o.lp = 0.7
	o.hp = 0.01
	o.size = 1
	o.ratio = 1
	o.lfoPhase = 0
	o.phase = 0
}

// SetDiffusion sets the input allpass coefficient.
func (o *Oliverb) SetDiffusion(v float32) { o.diffusion = dsp.Constrain(v, 0, 0.999) }

// SetSize scales the tank delay times.
func (o *Oliverb) SetSize(v float32) { o.size = dsp.Constrain(v, 0.05, 1) }

// SetModRate sets the delay modulation rate.
func (o *Oliverb) SetModRate(v float32) { o.modRate = dsp.Constrain(v, 0, 1) }

// SetModAmount sets the delay modulation depth in samples.
func (o *Oliverb) SetModAmount(v float32) { o.modAmount = dsp.Constrain(v, 0, 300) }

// SetRatio sets the transposition ratio of the feedback loop.
func (o *Oliverb) SetRatio(v float32) { o.ratio = dsp.Constrain(v, 0.25, 4) }

// SetPitchShiftAmount sets the wet amount of the loop transposer.
func (o *Oliverb) SetPitchShiftAmount(v float32) { o.pitchAmount = dsp.Constrain(v, 0, 1) }

// SetDecay sets the tank decay.
func (o *Oliverb) SetDecay(v float32) { o.decay = dsp.Constrain(v, 0, 1) }

// SetInputGain sets the send level into the tank.
func (o *Oliverb) SetInputGain(v float32) { o.inputGain = dsp.Constrain(v, 0, 1) }

// SetLP sets the lowpass damping coefficient.
func (o *Oliverb) SetLP(v float32) { o.lp = dsp.Constrain(v, 0, 1) }

// SetHP sets the highpass damping coefficient.
func (o *Oliverb) SetHP(v float32) { o.hp = dsp.Constrain(v, 0, 1) }

// Process runs the reverb over the frames in place. Unlike the generic
// Reverb the wet signal replaces the dry input; the gated dry signal is
// expected to have been mixed in by the pre-delay stage upstream.
func (o *Oliverb) Process(frames []dsp.FloatFrame) {
	if o.del[0].line == nil {
		return
	}
	kap := o.diffusion
	const lfoIncBase = 1.0 / 32000
	for i := range frames {
		o.lfoPhase += lfoIncBase * (0.1 + 2*o.modRate)
		if o.lfoPhase >= 1 {
			o.lfoPhase -= 1
		}
		mod := o.modAmount * float32(math.Sin(2*math.Pi*float64(o.lfoPhase)))

		in := (frames[i].L + frames[i].R) * o.inputGain
		x := o.ap[0].allpass(in, kap)
		x = o.ap[1].allpass(x, kap)
		x = o.ap[2].allpass(x, kap)
		x = o.ap[3].allpass(x, kap)

		// Pitch-shifted feedback taps: two sliding taps with a
		// triangular crossfade, sweeping at (1 - ratio).
		window := o.size * float32(o.del[0].length-2)
		if window < 256 {
			window = 256
		}
		o.phase += (1 - o.ratio) / window
		if o.phase >= 1 {
			o.phase -= 1
		}
		if o.phase < 0 {
			o.phase += 1
		}
		fb0 := o.tankTap(0, window, mod)
		fb1 := o.tankTap(1, window, mod)

		t1 := x + o.decay*fb1
		t1 = o.dap[0].allpass(t1, -kap)
		t1 = o.dap[1].allpass(t1, kap)
		dsp.OnePole(&o.lpState[0], t1, o.lp)
		dsp.OnePole(&o.hpState[0], o.lpState[0], o.hp)
		o.del[0].write(o.lpState[0] - o.hpState[0])

		t2 := x + o.decay*fb0
		t2 = o.dap[2].allpass(t2, -kap)
		t2 = o.dap[3].allpass(t2, kap)
		dsp.OnePole(&o.lpState[1], t2, o.lp)
		dsp.OnePole(&o.hpState[1], o.lpState[1], o.hp)
		o.del[1].write(o.lpState[1] - o.hpState[1])

		wetL := o.del[0].readFrac(o.size * float32(o.del[0].length-2) / 3)
		wetR := o.del[1].readFrac(o.size * float32(o.del[1].length-2) * 2 / 3)
		frames[i].L += wetL
		frames[i].R += wetR
	}
}

// tankTap reads the pitch-shifting feedback tap from tank branch n.
func (o *Oliverb) tankTap(n int, window, mod float32) float32 {
	seg := &o.del[n]
	plain := seg.readFrac(o.size*float32(seg.length-2) - 1 + mod)
	if o.pitchAmount <= 0 || o.ratio == 1 {
		return plain
	}
	tri := 2 * o.phase
	if tri > 1 {
		tri = 2 - tri
	}
	d0 := o.phase * window
	d1 := d0 + window*0.5
	if d1 >= window {
		d1 -= window
	}
	shifted := seg.readFrac(d0)*tri + seg.readFrac(d1)*(1-tri)
	return plain + (shifted-plain)*o.pitchAmount
}
