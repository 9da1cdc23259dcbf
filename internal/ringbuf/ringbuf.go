// Package ringbuf implements the circular sample store backing the
// ring-buffer playback modes. A buffer records at one of two
// resolutions (8- or 16-bit per sample) over memory owned by the
// processor's workspace arena, and supports fade-blended writes so that
// engaging or releasing freeze does not produce discontinuities.
package ringbuf

import "github.com/sbergen/superparasites/internal/dsp"

// TailLength is the length, in samples, of the crossfade applied when
// writing is engaged or released.
const TailLength = 256

// Buffer is a single-channel circular sample store with a
// monotonically advancing write head. Exactly one of the two backing
// resolutions is active, selected at Init time.
type Buffer struct {
	s8   []int8
	s16  []int16
	size int32
	head int32
	fade float32
}

// Init8 initializes the buffer over 8-bit sample storage. The memory
// is cleared.
func (b *Buffer) Init8(mem []int8) {
	b.s8 = mem
	b.s16 = nil
	for i := range mem {
		mem[i] = 0
	}
	b.init(int32(len(mem)))
}

// Init16 initializes the buffer over 16-bit sample storage.
func (b *Buffer) Init16(mem []int16) {
	b.s8 = nil
	b.s16 = mem
	for i := range mem {
		mem[i] = 0
	}
	b.init(int32(len(mem)))
}

func (b *Buffer) init(size int32) {
	b.size = size
	b.head = 0
	b.fade = 1
}

// Size returns the buffer capacity in samples.
func (b *Buffer) Size() int32 { return b.size }

// Head returns the current write head position.
func (b *Buffer) Head() int32 { return b.head }

// Resolution returns the active sample resolution in bits.
func (b *Buffer) Resolution() int {
	if b.s8 != nil {
		return 8
	}
	return 16
}

// Resync moves the write head to a stored position, modulo the buffer
// size. Used when restoring persisted state.
func (b *Buffer) Resync(head int32) {
	if b.size == 0 {
		return
	}
	head %= b.size
	if head < 0 {
		head += b.size
	}
	b.head = head
	b.fade = 1
}

// WriteFade records channel ch of the frames at the write head. When
// play is false, writing winds down over TailLength samples but the
// head keeps advancing over the retained content, so the players track
// real time through the frozen material; when play flips back to true
// the new material is crossfaded back in.
func (b *Buffer) WriteFade(frames []dsp.FloatFrame, ch int, play bool) {
	if b.size == 0 {
		return
	}
	const step = 1.0 / TailLength
	target := float32(0)
	if play {
		target = 1
	}
	for i := range frames {
		if b.fade < target {
			b.fade += step
			if b.fade > target {
				b.fade = target
			}
		} else if b.fade > target {
			b.fade -= step
			if b.fade < target {
				b.fade = target
			}
		}
		if b.fade > 0 {
			old := b.at(b.head)
			b.set(b.head, old+(frames[i].Sample(ch)-old)*b.fade)
		}
		b.head++
		if b.head >= b.size {
			b.head = 0
		}
	}
}

// Sample returns the normalized sample at index i, modulo the buffer
// size.
func (b *Buffer) Sample(i int32) float32 {
	if b.size == 0 {
		return 0
	}
	i %= b.size
	if i < 0 {
		i += b.size
	}
	return b.at(i)
}

// ReadLinear returns the linearly interpolated sample at the fractional
// position pos, modulo the buffer size.
func (b *Buffer) ReadLinear(pos float32) float32 {
	if b.size == 0 {
		return 0
	}
	i := int32(pos)
	frac := pos - float32(i)
	if frac < 0 {
		frac++
		i--
	}
	a := b.Sample(i)
	return a + (b.Sample(i+1)-a)*frac
}

func (b *Buffer) at(i int32) float32 {
	if b.s8 != nil {
		return float32(b.s8[i]) / 128
	}
	return float32(b.s16[i]) / 32768
}

func (b *Buffer) set(i int32, v float32) {
	v = dsp.Constrain(v, -1, 1)
	if b.s8 != nil {
		b.s8[i] = int8(v * 127)
		return
	}
	b.s16[i] = int16(v * 32767)
}
