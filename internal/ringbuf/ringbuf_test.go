package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbergen/superparasites/internal/dsp"
)

func constFrames(n int, v float32) []dsp.FloatFrame {
	frames := make([]dsp.FloatFrame, n)
	for i := range frames {
		frames[i] = dsp.FloatFrame{L: v, R: -v}
	}
	return frames
}

func TestBuffer_Resolution(t *testing.T) {
	var b8, b16 Buffer
	b8.Init8(make([]int8, 512))
	b16.Init16(make([]int16, 512))
	assert.Equal(t, 8, b8.Resolution())
	assert.Equal(t, 16, b16.Resolution())
	assert.Equal(t, int32(512), b8.Size())
	assert.Equal(t, int32(512), b16.Size())
}

func TestBuffer_WriteAdvancesHead(t *testing.T) {
	var b Buffer
	b.Init16(make([]int16, 1024))

	b.WriteFade(constFrames(64, 0.5), 0, true)
	assert.Equal(t, int32(64), b.Head())

	b.WriteFade(constFrames(64, 0.5), 0, true)
	assert.Equal(t, int32(128), b.Head())
}

func TestBuffer_WriteRecordsChannel(t *testing.T) {
	var b Buffer
	b.Init16(make([]int16, 1024))

	b.WriteFade(constFrames(64, 0.5), 1, true)
	// Channel 1 carries -v.
	assert.InDelta(t, -0.5, b.Sample(10), 1e-3)
}

// TestBuffer_FreezeRetainsContent verifies that after the write fade
// winds down, no further material lands in the buffer even though the
// head keeps moving.
func TestBuffer_FreezeRetainsContent(t *testing.T) {
	var b Buffer
	b.Init16(make([]int16, 4096))

	b.WriteFade(constFrames(512, 0.5), 0, true)
	require.Equal(t, int32(512), b.Head())

	b.WriteFade(constFrames(512, -0.9), 0, false)
	b.WriteFade(constFrames(512, -0.9), 0, false)

	// Content before the freeze point survives, and nothing past the
	// fade tail was overwritten.
	assert.InDelta(t, 0.5, b.Sample(300), 1e-3)
	assert.Equal(t, float32(0), b.Sample(512+TailLength+10))
}

// TestBuffer_HeadAdvancesWhileSuppressed verifies the play-through
// contract: suppressing writes freezes the content, not the head, so
// the players keep tracking real time over the retained material.
func TestBuffer_HeadAdvancesWhileSuppressed(t *testing.T) {
	var b Buffer
	b.Init16(make([]int16, 4096))

	b.WriteFade(constFrames(512, 0.3), 0, false)
	assert.Equal(t, int32(512), b.Head())

	b.WriteFade(constFrames(512, 0.3), 0, false)
	assert.Equal(t, int32(1024), b.Head())

	// The head wraps like a normal write would.
	b.WriteFade(constFrames(4096, 0.3), 0, false)
	assert.Equal(t, int32(1024), b.Head())
}

func TestBuffer_UnfreezeCrossfades(t *testing.T) {
	var b Buffer
	b.Init16(make([]int16, 4096))

	b.WriteFade(constFrames(512, 0.5), 0, true)
	b.WriteFade(constFrames(512, 0), 0, false)
	head := b.Head()

	// Re-engage: the first written samples blend old and new.
	b.WriteFade(constFrames(8, -1), 0, true)
	assert.Equal(t, head+8, b.Head())
	first := b.Sample(head)
	assert.Greater(t, float64(first), -1.0)
	assert.Less(t, float64(first), 0.5)
}

func TestBuffer_Resync(t *testing.T) {
	var b Buffer
	b.Init16(make([]int16, 256))

	b.Resync(300)
	assert.Equal(t, int32(300%256), b.Head())

	b.Resync(-10)
	assert.Equal(t, int32(246), b.Head())
}

func TestBuffer_SampleWraps(t *testing.T) {
	var b Buffer
	b.Init16(make([]int16, 256))
	b.WriteFade(constFrames(256, 0.25), 0, true)

	assert.InDelta(t, b.Sample(10), b.Sample(10+256), 1e-6)
	assert.InDelta(t, b.Sample(10), b.Sample(10-256), 1e-6)
}

func TestBuffer_ReadLinear(t *testing.T) {
	var b Buffer
	b.Init16(make([]int16, 256))
	// Write a ramp directly through the fade-in (already at 1).
	frames := make([]dsp.FloatFrame, 256)
	for i := range frames {
		frames[i].L = float32(i) / 256
	}
	b.WriteFade(frames, 0, true)

	a := b.Sample(100)
	c := b.Sample(101)
	mid := b.ReadLinear(100.5)
	assert.InDelta(t, (a+c)/2, mid, 1e-4)
}

func TestBuffer_LowResolutionQuantizes(t *testing.T) {
	var b Buffer
	b.Init8(make([]int8, 256))
	b.WriteFade(constFrames(256, 0.5), 0, true)

	// 8-bit storage holds the value within one quantization step.
	assert.InDelta(t, 0.5, b.Sample(100), 1.0/64)
}

func TestBuffer_ZeroValueIsInert(t *testing.T) {
	var b Buffer
	b.WriteFade(constFrames(16, 1), 0, true)
	assert.Equal(t, float32(0), b.Sample(3))
	assert.Equal(t, float32(0), b.ReadLinear(1.5))
	b.Resync(42)
	assert.Equal(t, int32(0), b.Head())
}
