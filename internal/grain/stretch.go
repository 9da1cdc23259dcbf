package grain

import (
	"github.com/sbergen/superparasites/internal/dsp"
	"github.com/sbergen/superparasites/internal/ringbuf"
)

// spliceFade is the crossfade length, in samples, applied when the
// stretch player splices its read head to a new position.
const spliceFade = 64

// StretchPlayer is the WSOLA-style time-stretch/pitch player. It reads
// behind the write head at an arbitrary ratio and periodically splices
// back toward its target delay at the offset the correlator found most
// similar, crossfading over the jump.
type StretchPlayer struct {
	correlator *Correlator
	channels   int

	pos          float32 // absolute fractional read position
	delay        float32 // smoothed target delay
	sinceSplice  int32
	fadeLeft     int32
	fadeFrom     float32
	synchronized bool
}

// Init binds the player to its correlator.
func (s *StretchPlayer) Init(correlator *Correlator, channels int) {
	s.correlator = correlator
	s.channels = channels
	s.pos = 0
	s.delay = 0
	s.sinceSplice = 0
	s.fadeLeft = 0
	s.synchronized = false
}

// SetSynchronized switches tap-tempo synchronized operation, which
// gates pitch shifting and pre-delay scaling upstream.
func (s *StretchPlayer) SetSynchronized(v bool) { s.synchronized = v }

// Synchronized reports whether the player runs tap-tempo synchronized.
func (s *StretchPlayer) Synchronized() bool { return s.synchronized }

// LoadCorrelator refreshes the correlator windows from the ring
// buffers: the reference window is the audio just behind the current
// read head, the search region surrounds the target delay.
func (s *StretchPlayer) LoadCorrelator(bufs *[2]ringbuf.Buffer) {
	if s.correlator == nil || bufs[0].Size() == 0 {
		return
	}
	target := s.correlator.Target()
	for i := range target {
		target[i] = bufs[0].Sample(int32(s.pos) + int32(i))
	}
	source := s.correlator.Source()
	anchor := bufs[0].Head() - int32(s.delay) - int32(len(source))/2
	for i := range source {
		source[i] = bufs[0].Sample(anchor + int32(i))
	}
	s.correlator.StartSearch()
}

// Play renders one block by reading the ring buffers at the pitch
// ratio, splicing when the head drifts a window away from its target.
func (s *StretchPlayer) Play(bufs *[2]ringbuf.Buffer, params *dsp.Parameters, out []dsp.FloatFrame) {
	bufSize := bufs[0].Size()
	if bufSize == 0 {
		return
	}
	ratio := dsp.SemitonesToRatio(params.Pitch)
	window := 256 + params.Size*float32(maxSpliceWindow)
	targetDelay := params.Position * float32(bufSize-int32(window)-ringbuf.TailLength)
	if targetDelay < 0 {
		targetDelay = 0
	}

	for i := range out {
		dsp.OnePole(&s.delay, targetDelay, 0.0005)
		head := float32(bufs[0].Head() - int32(len(out)) + int32(i))
		drift := head - s.delay - s.pos
		if drift < 0 {
			drift = -drift
		}
		s.sinceSplice++
		if drift > window && s.fadeLeft == 0 && s.sinceSplice > spliceFade {
			offset := 0
			if s.correlator != nil {
				offset = s.correlator.Best()
			}
			s.fadeFrom = s.pos
			s.pos = head - s.delay - float32(len(s.correlatorSource())/2) + float32(offset)
			s.fadeLeft = spliceFade
			s.sinceSplice = 0
		}

		l, r := s.read(bufs, s.pos)
		if s.fadeLeft > 0 {
			t := float32(s.fadeLeft) / spliceFade
			fl, fr := s.read(bufs, s.fadeFrom)
			l = l*(1-t) + fl*t
			r = r*(1-t) + fr*t
			s.fadeFrom += ratio
			s.fadeLeft--
		}
		out[i].L = l
		out[i].R = r
		s.pos += ratio
	}
}

// maxSpliceWindow bounds the splice window derived from the size knob.
const maxSpliceWindow = 4096 - 256

func (s *StretchPlayer) correlatorSource() []float32 {
	if s.correlator == nil {
		return nil
	}
	return s.correlator.Source()
}

func (s *StretchPlayer) read(bufs *[2]ringbuf.Buffer, pos float32) (float32, float32) {
	l := bufs[0].ReadLinear(pos)
	r := l
	if s.channels == 2 {
		r = bufs[1].ReadLinear(pos)
	}
	return l, r
}
