package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_Sequential(t *testing.T) {
	a := New(make([]byte, 64))

	first, err := a.Bytes(16)
	require.NoError(t, err)
	assert.Len(t, first, 16)

	second, err := a.Bytes(16)
	require.NoError(t, err)
	assert.Len(t, second, 16)

	// Regions must not overlap.
	first[0] = 0xAA
	assert.Equal(t, byte(0), second[0])
}

func TestAllocator_Exhaustion(t *testing.T) {
	a := New(make([]byte, 32))

	_, err := a.Bytes(24)
	require.NoError(t, err)

	_, err = a.Bytes(24)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestAllocator_Alignment(t *testing.T) {
	a := New(make([]byte, 64))

	// An odd-sized allocation must not misalign the next one.
	_, err := a.Bytes(3)
	require.NoError(t, err)

	f, err := Alloc[float32](a, 4)
	require.NoError(t, err)
	assert.Len(t, f, 4)
}

func TestAlloc_TypedSizes(t *testing.T) {
	a := New(make([]byte, 64))

	u16, err := Alloc[uint16](a, 8)
	require.NoError(t, err)
	assert.Len(t, u16, 8)
	assert.Equal(t, 64-16, a.Remaining())
}

// TestView_Aliasing verifies that two views over the same bytes observe
// each other's writes, which the correlator/pitch-shifter sharing
// relies on.
func TestView_Aliasing(t *testing.T) {
	a := New(make([]byte, 64))
	raw, err := a.Bytes(32)
	require.NoError(t, err)

	asFloats := View[float32](raw, 8)
	asInts := View[int16](raw, 16)

	asFloats[0] = 1.0 // 0x3f800000 little-endian
	assert.NotEqual(t, int16(0), asInts[1])

	for i := range asFloats {
		asFloats[i] = 0
	}
	for i := range asInts {
		assert.Equal(t, int16(0), asInts[i])
	}
}

func TestView_PanicsOnShortRegion(t *testing.T) {
	raw := make([]byte, 4)
	assert.Panics(t, func() { View[float32](raw, 2) })
}
