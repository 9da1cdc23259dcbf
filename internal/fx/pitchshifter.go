package fx

import "github.com/sbergen/superparasites/internal/dsp"

// PitchShifterLineLength is the number of int16 samples of workspace a
// PitchShifter requires. The workspace is shared with the correlator:
// the two are never active on the same block.
const PitchShifterLineLength = 768

const pitchShifterMaxWindow = PitchShifterLineLength/2 - 2

// PitchShifter is a dual-tap delay-line transposer with a triangular
// crossfade between the taps. It stores its delay memory at 16-bit
// resolution to fit the shared workspace.
type PitchShifter struct {
	line   []int16
	head   int32
	phase  float32
	ratio  float32
	window float32
	dryWet float32
}

// Init assigns the delay line memory. len(line) must be at least
// PitchShifterLineLength.
func (p *PitchShifter) Init(line []int16) {
	p.line = line
	p.Clear()
	p.ratio = 1
	p.window = pitchShifterMaxWindow
	p.dryWet = 0
}

// Clear resets the delay memory and the tap phase, keeping the
// configured ratio and window.
func (p *PitchShifter) Clear() {
	for i := range p.line {
		p.line[i] = 0
	}
	p.head = 0
	p.phase = 0
}

// SetRatio sets the transposition ratio (1 = unison).
func (p *PitchShifter) SetRatio(ratio float32) {
	p.ratio = dsp.Constrain(ratio, 0.25, 4)
}

// SetSize scales the grain window between 128 samples and the maximum
// the workspace allows.
func (p *PitchShifter) SetSize(size float32) {
	size = dsp.Constrain(size, 0, 1)
	p.window = 128 + size*(pitchShifterMaxWindow-128)
}

// SetDryWet sets the wet amount of the transposed signal.
func (p *PitchShifter) SetDryWet(wet float32) {
	p.dryWet = dsp.Constrain(wet, 0, 1)
}

// Process transposes the frames in place.
func (p *PitchShifter) Process(frames []dsp.FloatFrame) {
	if p.line == nil || p.dryWet <= 0 {
		return
	}
	half := int32(len(p.line) / 2)
	for i := range frames {
		p.phase += (1 - p.ratio) / p.window
		if p.phase >= 1 {
			p.phase -= 1
		}
		if p.phase < 0 {
			p.phase += 1
		}
		tri := 2 * p.phase
		if tri > 1 {
			tri = 2 - tri
		}
		d0 := p.phase * p.window
		d1 := d0 + p.window*0.5
		if d1 >= p.window {
			d1 -= p.window
		}
		for ch := 0; ch < 2; ch++ {
			base := int32(ch) * half
			x := frames[i].Sample(ch)
			p.line[base+p.head] = int16(dsp.Constrain(x, -1, 1) * 32767)
			a := p.readTap(base, d0, half)
			b := p.readTap(base, d1, half)
			wet := a*tri + b*(1-tri)
			frames[i].SetSample(ch, x+(wet-x)*p.dryWet)
		}
		p.head++
		if p.head >= half {
			p.head = 0
		}
	}
}

func (p *PitchShifter) readTap(base int32, delay float32, half int32) float32 {
	d := int32(delay)
	frac := delay - float32(d)
	i0 := p.head - d
	if i0 < 0 {
		i0 += half
	}
	i1 := i0 - 1
	if i1 < 0 {
		i1 += half
	}
	a := float32(p.line[base+i0]) / 32768
	b := float32(p.line[base+i1]) / 32768
	return a + (b-a)*frac
}
