package fx

import (
	"math"

	"github.com/sbergen/superparasites/internal/dsp"
)

// ResonestorWorkspace is the number of float samples of arena memory a
// Resonestor requires: six comb lines plus a burst buffer.
const ResonestorWorkspace = resonestorCombs*resonestorCombLen + resonestorBurstLen

const (
	resonestorCombs    = 6 // three per channel
	resonestorCombLen  = 2048
	resonestorBurstLen = 2048
	resonestorVoices   = 3
)

// Chord tables: semitone offsets of the two upper comb voices,
// selected by the chord knob.
var resonestorChords = [11][2]float32{
	{0.01, 12.01}, {3, 7}, {3, 10}, {3, 12}, {4, 7},
	{4, 11}, {5, 7}, {5, 12}, {7, 12}, {12, 12.01}, {12, 19},
}

// Resonestor is a bank of tuned comb resonators excited by the input
// carrier and by a damped noise burst on each trigger.
type Resonestor struct {
	combs [resonestorCombs]struct {
		line  []float32
		head  int32
		delay float32
		lp    float32
	}
	burst     []float32
	burstPos  int32
	burstLeft int32

	pitch         float32
	chord         float32
	burstDamp     float32
	burstComb     float32
	burstDuration float32
	spread        float32
	stereo        float32
	separation    float32
	freeze        bool
	harmonicity   float32
	distortion    float32
	narrow        float32
	damp          float32
	feedback      float32

	prevTrigger bool
	rngState    uint32
	sampleRate  float32
}

// Init assigns the comb and burst memory. len(buf) must be at least
// ResonestorWorkspace.
func (r *Resonestor) Init(buf []float32, sampleRate float32) {
	off := 0
	for i := range r.combs {
		c := &r.combs[i]
		c.line = buf[off : off+resonestorCombLen]
		for j := range c.line {
			c.line[j] = 0
		}
		c.head = 0
		c.delay = 200
		c.lp = 0
		off += resonestorCombLen
	}
	r.burst = buf[off : off+resonestorBurstLen]
	r.burstLeft = 0
	r.rngState = 0x12345678
	r.sampleRate = sampleRate
	r.harmonicity = 1
	r.damp = 1
	r.narrow = 0.001
	r.prevTrigger = false
}

func (r *Resonestor) SetPitch(semitones float32)  { r.pitch = semitones }
func (r *Resonestor) SetChord(v float32)          { r.chord = dsp.Constrain(v, 0, 1) }
func (r *Resonestor) SetBurstDamp(v float32)      { r.burstDamp = dsp.Constrain(v, 0, 1) }
func (r *Resonestor) SetBurstComb(v float32)      { r.burstComb = dsp.Constrain(v, 0, 1) }
func (r *Resonestor) SetBurstDuration(v float32)  { r.burstDuration = dsp.Constrain(v, 0, 1) }
func (r *Resonestor) SetSpreadAmount(v float32)   { r.spread = dsp.Constrain(v, 0, 1) }
func (r *Resonestor) SetStereo(v float32)         { r.stereo = dsp.Constrain(v, 0, 1) }
func (r *Resonestor) SetSeparation(v float32)     { r.separation = dsp.Constrain(v, 0, 1) }
func (r *Resonestor) SetFreeze(v bool)            { r.freeze = v }
func (r *Resonestor) SetHarmonicity(v float32)    { r.harmonicity = dsp.Constrain(v, 0, 1) }
func (r *Resonestor) SetDistortion(v float32)     { r.distortion = dsp.Constrain(v, 0, 1) }
func (r *Resonestor) SetNarrow(v float32)         { r.narrow = dsp.Constrain(v, 0, 1) }
func (r *Resonestor) SetDamp(v float32)           { r.damp = dsp.Constrain(v, 0, 1) }
func (r *Resonestor) SetFeedback(v float32)       { r.feedback = dsp.Constrain(v, 0, 20) }

// SetTrigger fires a new excitation burst on a rising edge.
func (r *Resonestor) SetTrigger(trigger bool) {
	if trigger && !r.prevTrigger {
		r.burstLeft = int32(64 + r.burstDuration*float32(resonestorBurstLen-64))
		r.burstPos = 0
	}
	r.prevTrigger = trigger
}

func (r *Resonestor) noise() float32 {
	r.rngState = r.rngState*1664525 + 1013904223
	return float32(int32(r.rngState)) / float32(math.MaxInt32)
}

// Process replaces the frames with the resonator output. The incoming
// frames are the carrier injected into the combs.
func (r *Resonestor) Process(frames []dsp.FloatFrame) {
	if r.burst == nil {
		return
	}
	r.retune()
	fbGain := 0.8 + 0.198*dsp.Constrain(r.feedback/20, 0, 1)
	if r.freeze {
		fbGain = 0.9995
	}
	lpCoeff := 0.05 + 0.95*r.damp
	widthL := 0.5 + 0.5*r.stereo
	crossMix := 0.5 * (1 - r.separation)
	for i := range frames {
		// Excitation: carrier plus the damped noise burst.
		exc := float32(0)
		if r.burstLeft > 0 {
			n := r.noise()
			dsp.OnePole(&r.burst[r.burstPos%resonestorBurstLen], n, 0.05+0.95*(1-r.burstDamp))
			exc = r.burst[r.burstPos%resonestorBurstLen] * (0.3 + 0.7*r.burstComb)
			r.burstPos++
			r.burstLeft--
		}
		inL := frames[i].L + exc
		inR := frames[i].R + exc

		var outL, outR float32
		for v := 0; v < resonestorVoices; v++ {
			outL += r.tickComb(v, inL+crossMix*inR, fbGain, lpCoeff)
			outR += r.tickComb(resonestorVoices+v, inR+crossMix*inL, fbGain, lpCoeff)
		}
		outL *= 1.0 / resonestorVoices
		outR *= 1.0 / resonestorVoices

		l := outL*widthL + outR*(1-widthL)
		rr := outR*widthL + outL*(1-widthL)
		if r.distortion > 0 {
			l = dsp.SoftLimit(l * (1 + 3*r.distortion))
			rr = dsp.SoftLimit(rr * (1 + 3*r.distortion))
		}
		mix := 0.1 + 0.9*r.spread
		frames[i].L = frames[i].L + (l-frames[i].L)*mix
		frames[i].R = frames[i].R + (rr-frames[i].R)*mix
	}
}

// tickComb advances one comb resonator by a sample.
func (r *Resonestor) tickComb(n int, in, fbGain, lpCoeff float32) float32 {
	c := &r.combs[n]
	d := int32(c.delay)
	frac := c.delay - float32(d)
	i0 := c.head - d
	if i0 < 0 {
		i0 += resonestorCombLen
	}
	i1 := i0 - 1
	if i1 < 0 {
		i1 += resonestorCombLen
	}
	delayed := c.line[i0] + (c.line[i1]-c.line[i0])*frac
	dsp.OnePole(&c.lp, delayed, lpCoeff)
	y := c.lp
	feedIn := in
	if r.freeze {
		feedIn = 0
	}
	// narrow sharpens resonance by reducing loop losses.
	g := fbGain + (0.9999-fbGain)*r.narrow
	c.line[c.head] = dsp.SoftLimit(feedIn + g*y)
	c.head++
	if c.head >= resonestorCombLen {
		c.head = 0
	}
	return y
}

// retune recomputes the comb delays from pitch, chord and harmonicity.
func (r *Resonestor) retune() {
	chordIdx := int(r.chord * float32(len(resonestorChords)-1))
	chord := resonestorChords[chordIdx]
	base := 65.41 * float64(dsp.SemitonesToRatio(r.pitch)) // C2
	offsets := [resonestorVoices]float32{0, chord[0] * r.harmonicity, chord[1] * r.harmonicity}
	for v := 0; v < resonestorVoices; v++ {
		freq := base * float64(dsp.SemitonesToRatio(offsets[v]))
		delay := float64(r.sampleRate) / freq
		if delay > resonestorCombLen-2 {
			delay = resonestorCombLen - 2
		}
		if delay < 2 {
			delay = 2
		}
		r.combs[v].delay = float32(delay)
		// Right channel slightly detuned by the separation control.
		r.combs[resonestorVoices+v].delay = float32(delay) * (1 + 0.002*r.separation)
	}
}
