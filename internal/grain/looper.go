package grain

import (
	"github.com/sbergen/superparasites/internal/dsp"
	"github.com/sbergen/superparasites/internal/ringbuf"
)

// Looper is the looping delay player. Unfrozen it is a smoothed
// variable delay behind the write head; frozen it loops the captured
// window at the pitch ratio.
type Looper struct {
	channels     int
	delay        float32
	loopPos      float32
	wasFrozen    bool
	synchronized bool
}

// Init resets the looper for a channel count.
func (l *Looper) Init(channels int) {
	l.channels = channels
	l.delay = 0
	l.loopPos = 0
	l.wasFrozen = false
	l.synchronized = false
}

// SetSynchronized switches tap-tempo synchronized operation.
func (l *Looper) SetSynchronized(v bool) { l.synchronized = v }

// Synchronized reports whether the delay is tap-tempo synchronized.
func (l *Looper) Synchronized() bool { return l.synchronized }

// Play renders one block of delayed or frozen-loop audio.
func (l *Looper) Play(bufs *[2]ringbuf.Buffer, params *dsp.Parameters, out []dsp.FloatFrame) {
	bufSize := bufs[0].Size()
	if bufSize == 0 {
		return
	}
	loopLen := (0.01 + 0.99*params.Size) * float32(bufSize-ringbuf.TailLength)
	targetDelay := params.Position * float32(bufSize-ringbuf.TailLength-int32(len(out)))
	if targetDelay < float32(len(out)) {
		targetDelay = float32(len(out))
	}

	if params.Freeze {
		// Writing is suppressed while frozen but the head keeps
		// advancing, so the loop window slides over the held material.
		if !l.wasFrozen {
			l.loopPos = 0
		}
		l.wasFrozen = true
		ratio := dsp.SemitonesToRatio(params.Pitch)
		start := float32(bufs[0].Head()) - loopLen
		for i := range out {
			pos := start + l.loopPos
			out[i].L = bufs[0].ReadLinear(pos)
			if l.channels == 2 {
				out[i].R = bufs[1].ReadLinear(pos)
			} else {
				out[i].R = out[i].L
			}
			l.loopPos += ratio
			for l.loopPos >= loopLen {
				l.loopPos -= loopLen
			}
		}
		return
	}

	l.wasFrozen = false
	head := bufs[0].Head() - int32(len(out))
	for i := range out {
		dsp.OnePole(&l.delay, targetDelay, 0.0005)
		pos := float32(head+int32(i)) - l.delay
		out[i].L = bufs[0].ReadLinear(pos)
		if l.channels == 2 {
			out[i].R = bufs[1].ReadLinear(pos)
		} else {
			out[i].R = out[i].L
		}
	}
}
