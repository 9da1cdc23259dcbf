// Package resample implements the fixed factor-of-two sample rate
// converters used by the low-fidelity signal path. The downsampler
// applies a short anti-aliasing kernel before decimation; the
// upsampler reconstructs the intermediate samples with 4-point Hermite
// interpolation.
package resample

import "github.com/sbergen/superparasites/internal/dsp"

// Factor is the fixed conversion factor of the low-fidelity path.
const Factor = 2

// Downsampler halves the sample rate of stereo frame blocks.
type Downsampler struct {
	prev dsp.FloatFrame
}

// Init clears the filter history.
func (d *Downsampler) Init() {
	d.prev = dsp.FloatFrame{}
}

// Process consumes len(in) frames and produces len(in)/2 frames into
// out. The [1 2 1]/4 kernel trades stopband attenuation for a
// worst-case cost low enough for the real-time budget.
func (d *Downsampler) Process(in, out []dsp.FloatFrame) {
	n := len(in) / Factor
	for i := 0; i < n; i++ {
		a := d.prev
		if i > 0 {
			a = in[2*i-1]
		}
		b := in[2*i]
		c := in[2*i+1]
		out[i].L = 0.25*a.L + 0.5*b.L + 0.25*c.L
		out[i].R = 0.25*a.R + 0.5*b.R + 0.25*c.R
	}
	if len(in) > 0 {
		d.prev = in[len(in)-1]
	}
}

// Upsampler doubles the sample rate of stereo frame blocks.
type Upsampler struct {
	hist [4]dsp.FloatFrame
}

// Init clears the interpolation history.
func (u *Upsampler) Init() {
	u.hist = [4]dsp.FloatFrame{}
}

// Process consumes len(in) frames and produces 2*len(in) frames into
// out.
func (u *Upsampler) Process(in, out []dsp.FloatFrame) {
	for i := range in {
		u.hist[3] = u.hist[2]
		u.hist[2] = u.hist[1]
		u.hist[1] = u.hist[0]
		u.hist[0] = in[i]

		// The midpoint between hist[2] and hist[1] precedes hist[1] in
		// the output stream; the extra sample of latency buys the
		// interpolator a point of lookahead.
		out[2*i].L = hermite(u.hist[3].L, u.hist[2].L, u.hist[1].L, u.hist[0].L, 0.5)
		out[2*i].R = hermite(u.hist[3].R, u.hist[2].R, u.hist[1].R, u.hist[0].R, 0.5)
		out[2*i+1].L = u.hist[1].L
		out[2*i+1].R = u.hist[1].R
	}
}

// hermite evaluates 4-point, 3rd-order Hermite interpolation at the
// fractional position x between y1 and y2.
func hermite(y0, y1, y2, y3, x float32) float32 {
	a := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	b := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	c := -0.5*y0 + 0.5*y2
	return ((a*x+b)*x+c)*x + y1
}
