package fx

import "github.com/sbergen/superparasites/internal/dsp"

// ReverbLineLength is the number of uint16 samples of arena memory the
// reverb variants require.
const ReverbLineLength = 16384

// revSegment is one delay segment carved out of the shared 16-bit
// reverb line.
type revSegment struct {
	line   []uint16
	start  int32
	length int32
	head   int32
}

func (s *revSegment) init(line []uint16, start, length int32) int32 {
	s.line = line
	s.start = start
	s.length = length
	s.head = 0
	for i := start; i < start+length; i++ {
		line[i] = encodeRev(0)
	}
	return start + length
}

func encodeRev(x float32) uint16 {
	x = dsp.Constrain(x, -1.999, 1.999)
	return uint16(int32(x*16384) + 32768)
}

func decodeRev(q uint16) float32 {
	return float32(int32(q)-32768) / 16384
}

func (s *revSegment) write(x float32) {
	s.line[s.start+s.head] = encodeRev(x)
	s.head++
	if s.head >= s.length {
		s.head = 0
	}
}

// read returns the sample delayed by d samples (d < length, relative to
// the most recent write).
func (s *revSegment) read(d int32) float32 {
	i := s.head - 1 - d
	i %= s.length
	if i < 0 {
		i += s.length
	}
	return decodeRev(s.line[s.start+i])
}

// readFrac reads at a fractional delay with linear interpolation.
func (s *revSegment) readFrac(d float32) float32 {
	i := int32(d)
	frac := d - float32(i)
	a := s.read(i)
	return a + (s.read(i+1)-a)*frac
}

// allpass runs the segment as a full-length allpass with gain k.
func (s *revSegment) allpass(x, k float32) float32 {
	z := s.read(s.length - 1)
	w := x - k*z
	s.write(w)
	return z + k*w
}

// Reverb is the generic post-crossfade reverb: four input diffusion
// allpasses feeding a two-branch figure-of-eight tank.
type Reverb struct {
	ap            [4]revSegment
	dap           [4]revSegment
	del           [2]revSegment
	lpState       [2]float32
	amount        float32
	inputGain     float32
	decay         float32
	diffusion     float32
	lp            float32
}

// Reverb segment lengths, in samples. Their sum must not exceed
// ReverbLineLength.
var reverbLengths = []int32{113, 162, 241, 399, 1653, 2038, 1913, 1663, 3411, 4782}

// Init assigns the 16-bit delay line. len(line) must be at least
// ReverbLineLength.
func (r *Reverb) Init(line []uint16) {
	pos := int32(0)
	segs := []*revSegment{
		&r.ap[0], &r.ap[1], &r.ap[2], &r.ap[3],
		&r.dap[0], &r.dap[1], &r.dap[2], &r.dap[3],
		&r.del[0], &r.del[1],
	}
	for i, s := range segs {
		pos = s.init(line, pos, reverbLengths[i])
	}
	r.lpState[0] = 0
	r.lpState[1] = 0
	r.amount = 0
	r.inputGain = 0.2
	r.decay = 0.5
	r.diffusion = 0.625
	r.lp = 0.7
}

// SetAmount sets the wet return level.
func (r *Reverb) SetAmount(v float32) { r.amount = dsp.Constrain(v, 0, 1) }

// SetDiffusion sets the allpass coefficient of the input diffusers.
func (r *Reverb) SetDiffusion(v float32) { r.diffusion = dsp.Constrain(v, 0, 0.999) }

// SetTime sets the tank decay.
func (r *Reverb) SetTime(v float32) { r.decay = dsp.Constrain(v, 0, 0.999) }

// SetInputGain sets the send level into the tank.
func (r *Reverb) SetInputGain(v float32) { r.inputGain = dsp.Constrain(v, 0, 1) }

// SetLP sets the damping lowpass coefficient inside the tank.
func (r *Reverb) SetLP(v float32) { r.lp = dsp.Constrain(v, 0, 1) }

// Process adds the reverb return to the frames in place.
func (r *Reverb) Process(frames []dsp.FloatFrame) {
	if r.del[0].line == nil {
		return
	}
	kap := r.diffusion
	for i := range frames {
		in := (frames[i].L + frames[i].R) * r.inputGain
		x := r.ap[0].allpass(in, kap)
		x = r.ap[1].allpass(x, kap)
		x = r.ap[2].allpass(x, kap)
		x = r.ap[3].allpass(x, kap)

		// Branch 1 is fed by branch 2's tail and vice versa.
		t1 := x + r.decay*r.del[1].read(r.del[1].length-1)
		t1 = r.dap[0].allpass(t1, -kap)
		t1 = r.dap[1].allpass(t1, kap)
		dsp.OnePole(&r.lpState[0], t1, r.lp)
		r.del[0].write(r.lpState[0])

		t2 := x + r.decay*r.del[0].read(r.del[0].length-1)
		t2 = r.dap[2].allpass(t2, -kap)
		t2 = r.dap[3].allpass(t2, kap)
		dsp.OnePole(&r.lpState[1], t2, r.lp)
		r.del[1].write(r.lpState[1])

		wetL := r.del[0].read(r.del[0].length * 1 / 3)
		wetR := r.del[1].read(r.del[1].length * 2 / 3)
		frames[i].L += r.amount * wetL
		frames[i].R += r.amount * wetR
	}
}
