package grain

import (
	"github.com/sbergen/superparasites/internal/dsp"
	"github.com/sbergen/superparasites/internal/ringbuf"
)

// KammerlPlayer is the beat-repeat slice player: on a trigger it
// captures a slice behind the write head and replays it, optionally
// with a per-slice pitch envelope and distortion, while recording keeps
// running underneath.
type KammerlPlayer struct {
	channels int

	active      bool
	sliceStart  int32
	sliceLen    int32
	slicePos    float32
	prevTrigger bool
	rng         uint32
}

// Init resets the player for a channel count.
func (k *KammerlPlayer) Init(channels int) {
	k.channels = channels
	k.active = false
	k.prevTrigger = false
	k.rng = 0x2545f491
}

// IsSlicePlaybackActive reports whether a captured slice is currently
// replaying. While it is, the reverb knob is repurposed upstream as the
// feedback amount.
func (k *KammerlPlayer) IsSlicePlaybackActive() bool { return k.active }

func (k *KammerlPlayer) random() float32 {
	k.rng = k.rng*1664525 + 1013904223
	return float32(k.rng>>8) / float32(1<<24)
}

// Play renders one block: live pass-through when idle, looped slice
// playback when triggered.
func (k *KammerlPlayer) Play(bufs *[2]ringbuf.Buffer, params *dsp.Parameters, out []dsp.FloatFrame) {
	bufSize := bufs[0].Size()
	if bufSize == 0 {
		return
	}
	// Slice length halves with each divider step.
	div := uint(1 + params.Kammerl.ClockDivider*5)
	sliceLen := bufSize >> div
	if sliceLen < 128 {
		sliceLen = 128
	}

	if params.Trigger && !k.prevTrigger && k.random() <= params.Kammerl.Probability {
		k.active = true
		k.sliceLen = sliceLen
		k.sliceStart = bufs[0].Head() - sliceLen
		k.slicePos = 0
	}
	if !params.Trigger && !params.Gate {
		k.active = false
	}
	k.prevTrigger = params.Trigger

	drive := 1 + 4*params.Kammerl.Distortion
	if k.active {
		// Pitch mode bends the replay ratio across the slice.
		for i := range out {
			t := k.slicePos / float32(k.sliceLen)
			ratio := 1 - params.Kammerl.PitchMode*t*0.5
			pos := float32(k.sliceStart) + k.slicePos
			l := bufs[0].ReadLinear(pos)
			r := l
			if k.channels == 2 {
				r = bufs[1].ReadLinear(pos)
			}
			out[i].L = dsp.SoftLimit(l * drive)
			out[i].R = dsp.SoftLimit(r * drive)
			k.slicePos += ratio
			if k.slicePos >= float32(k.sliceLen) {
				k.slicePos = 0
			}
		}
		return
	}

	head := bufs[0].Head() - int32(len(out))
	for i := range out {
		pos := float32(head + int32(i))
		l := bufs[0].ReadLinear(pos)
		r := l
		if k.channels == 2 {
			r = bufs[1].ReadLinear(pos)
		}
		out[i].L = l
		out[i].R = r
	}
}
