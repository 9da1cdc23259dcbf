package dsp

import "math"

// FilterMode selects the SVF output tap.
type FilterMode int

const (
	FilterModeLowPass FilterMode = iota
	FilterModeHighPass
	FilterModeBandPass
)

// SVF is a topology-preserving-transform state-variable filter (Simper)
// processing one channel of a stereo frame block. The tan prewarp keeps
// the filter stable for any cutoff below Nyquist, which matters to the
// pipeline: the texture curve of the delay modes drives the cutoff all
// the way up to 0.499. Two instances per filtered signal are kept by
// the pipeline, one per channel.
type SVF struct {
	g, k       float32
	a1, a2, a3 float32
	ic1, ic2   float32
}

// Init resets both the coefficients and the filter state.
func (s *SVF) Init() {
	s.SetFQ(0.25, 1)
	s.ic1 = 0
	s.ic2 = 0
}

// SetFQ sets the cutoff as a fraction of the sample rate and the
// resonance.
func (s *SVF) SetFQ(f, q float32) {
	f = Constrain(f, 0, 0.499)
	if q < 1e-3 {
		q = 1e-3
	}
	s.g = float32(math.Tan(math.Pi * float64(f)))
	s.k = 1 / q
	s.a1 = 1 / (1 + s.g*(s.g+s.k))
	s.a2 = s.g * s.a1
	s.a3 = s.g * s.a2
}

// Set copies the coefficients (not the state) from another filter.
func (s *SVF) Set(other *SVF) {
	s.g = other.g
	s.k = other.k
	s.a1 = other.a1
	s.a2 = other.a2
	s.a3 = other.a3
}

// Process filters channel ch of the frames in place, keeping the
// selected output tap.
func (s *SVF) Process(frames []FloatFrame, ch int, mode FilterMode) {
	a1, a2, a3, k := s.a1, s.a2, s.a3, s.k
	ic1, ic2 := s.ic1, s.ic2
	for i := range frames {
		x := frames[i].Sample(ch)
		v3 := x - ic2
		v1 := a1*ic1 + a2*v3
		v2 := ic2 + a2*ic1 + a3*v3
		ic1 = 2*v1 - ic1
		ic2 = 2*v2 - ic2
		switch mode {
		case FilterModeLowPass:
			frames[i].SetSample(ch, v2)
		case FilterModeHighPass:
			frames[i].SetSample(ch, x-k*v1-v2)
		default:
			frames[i].SetSample(ch, v1)
		}
	}
	s.ic1, s.ic2 = ic1, ic2
}
