// Package fx implements the post-processing effects of the signal
// chain: diffuser, pitch shifter, the two reverb variants and the
// resonestor. All effects operate in place on stereo float frame
// blocks and draw their delay memory from the processor's workspace
// arena, so they never allocate after Init.
package fx

import "github.com/sbergen/superparasites/internal/dsp"

// DiffuserLineLength is the number of float samples of arena memory a
// Diffuser requires.
const DiffuserLineLength = 2048

// Allpass lengths, in samples, mutually prime to smear transients
// without audible comb coloration.
var diffuserDelays = [2][4]int32{
	{126, 180, 269, 444}, // left
	{113, 162, 241, 399}, // right
}

const diffuserGain = 0.625

// Diffuser is a network of four series allpass filters per channel,
// smearing the output of the granular modes.
type Diffuser struct {
	line   []float32
	heads  [2][4]int32
	starts [2][4]int32
	amount float32
}

// Init assigns the delay line memory. len(line) must be at least
// DiffuserLineLength.
func (d *Diffuser) Init(line []float32) {
	d.line = line
	for i := range line {
		line[i] = 0
	}
	offset := int32(0)
	for ch := 0; ch < 2; ch++ {
		for i, n := range diffuserDelays[ch] {
			d.starts[ch][i] = offset
			d.heads[ch][i] = 0
			offset += n
		}
	}
	d.amount = 0
}

// SetAmount sets the dry/wet amount of the diffusion network.
func (d *Diffuser) SetAmount(amount float32) {
	d.amount = dsp.Constrain(amount, 0, 1)
}

// Process diffuses the frames in place.
func (d *Diffuser) Process(frames []dsp.FloatFrame) {
	if d.line == nil || d.amount <= 0 {
		return
	}
	for i := range frames {
		for ch := 0; ch < 2; ch++ {
			x := frames[i].Sample(ch)
			y := x
			for ap := 0; ap < 4; ap++ {
				n := diffuserDelays[ch][ap]
				pos := d.starts[ch][ap] + d.heads[ch][ap]
				z := d.line[pos]
				w := y - diffuserGain*z
				d.line[pos] = w
				y = z + diffuserGain*w
				d.heads[ch][ap]++
				if d.heads[ch][ap] >= n {
					d.heads[ch][ap] = 0
				}
			}
			frames[i].SetSample(ch, x+(y-x)*d.amount)
		}
	}
}
