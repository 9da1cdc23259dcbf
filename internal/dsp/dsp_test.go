package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testTolerance = 1e-5

// TestSoftLimit_Transparency verifies that the saturation is nearly
// transparent at small amplitudes and bounded at large ones.
func TestSoftLimit_Transparency(t *testing.T) {
	assert.InDelta(t, 0.1, SoftLimit(0.1), 1e-3)
	assert.InDelta(t, -0.1, SoftLimit(-0.1), 1e-3)
	assert.Equal(t, float32(0), SoftLimit(0))
}

func TestSoftLimit_Odd(t *testing.T) {
	for _, x := range []float32{0.1, 0.5, 1, 2, 3} {
		assert.InDelta(t, -SoftLimit(x), SoftLimit(-x), testTolerance,
			"SoftLimit not odd at x=%f", x)
	}
}

// TestSoftClip_Saturation verifies the hard bounds beyond +-3.
func TestSoftClip_Saturation(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want float32
	}{
		{"far_positive", 10, 1},
		{"far_negative", -10, -1},
		{"boundary_positive", 3, 1},
		{"boundary_negative", -3, -1},
		{"zero", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SoftClip(tt.in), testTolerance)
		})
	}
}

func TestSoftConvert_Range(t *testing.T) {
	assert.Equal(t, int16(32767), SoftConvert(100))
	assert.Equal(t, int16(-32767), SoftConvert(-100))
	assert.Equal(t, int16(0), SoftConvert(0))
	// Monotonic around zero.
	assert.Greater(t, SoftConvert(0.1), int16(0))
	assert.Less(t, SoftConvert(-0.1), int16(0))
}

func TestSemitonesToRatio(t *testing.T) {
	tests := []struct {
		name      string
		semitones float32
		want      float64
	}{
		{"unison", 0, 1},
		{"octave_up", 12, 2},
		{"octave_down", -12, 0.5},
		{"two_octaves_up", 24, 4},
		{"fifth_up", 7, math.Exp2(7.0 / 12)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SemitonesToRatio(tt.semitones), 1e-4)
		})
	}
}

func TestOnePole_Convergence(t *testing.T) {
	var state float32
	for i := 0; i < 10000; i++ {
		OnePole(&state, 1, 0.01)
	}
	assert.InDelta(t, 1, state, 1e-3)

	// A single step moves by coeff times the distance.
	state = 0
	OnePole(&state, 1, 0.25)
	assert.InDelta(t, 0.25, state, testTolerance)
}

func TestConstrain(t *testing.T) {
	assert.Equal(t, float32(0), Constrain(-1, 0, 1))
	assert.Equal(t, float32(1), Constrain(2, 0, 1))
	assert.Equal(t, float32(0.5), Constrain(0.5, 0, 1))
}

func TestInterpolate_Endpoints(t *testing.T) {
	table := []float32{0, 1, 4, 9}
	assert.InDelta(t, 0, Interpolate(table, 0, 3), testTolerance)
	assert.InDelta(t, 9, Interpolate(table, 1, 3), testTolerance)
	// Midway between table[1] and table[2].
	assert.InDelta(t, 2.5, Interpolate(table, 0.5, 3), testTolerance)
}

// TestPitchShiftCrossfade_Trapezoid verifies the dead zone and the
// transition bands of the transposition wet curve.
func TestPitchShiftCrossfade_Trapezoid(t *testing.T) {
	tests := []struct {
		name  string
		pitch float32
		want  float32
	}{
		{"deep_negative", -12, 1},
		{"edge_negative", -0.7, 1},
		{"mid_fade_negative", -0.5, 0.5},
		{"dead_zone_low", -0.3, 0},
		{"center", 0, 0},
		{"dead_zone_high", 0.3, 0},
		{"mid_fade_positive", 0.5, 0.5},
		{"edge_positive", 0.7, 1},
		{"deep_positive", 12, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PitchShiftCrossfade(tt.pitch), 1e-4)
		})
	}
}

// TestXFadeTables_EqualPower verifies the crossfade table pair sums to
// unity power across the fade.
func TestXFadeTables_EqualPower(t *testing.T) {
	for i := range XFadeIn {
		in := XFadeIn[i]
		out := XFadeOut[i]
		assert.InDelta(t, 1, in*in+out*out, 1e-4, "index %d", i)
	}
	assert.InDelta(t, 0, XFadeIn[0], 1e-6)
	assert.InDelta(t, 1, XFadeOut[0], 1e-6)
}

func TestInvTanhTable_Endpoints(t *testing.T) {
	assert.InDelta(t, 0, InvTanh[0], 1e-6)
	// The table spans atanh over [0, ~1); it must be increasing.
	for i := 1; i < len(InvTanh); i++ {
		assert.GreaterOrEqual(t, InvTanh[i], InvTanh[i-1], "index %d", i)
	}
}

func TestFrame_SampleAccessors(t *testing.T) {
	f := FloatFrame{L: 0.25, R: -0.5}
	assert.Equal(t, float32(0.25), f.Sample(0))
	assert.Equal(t, float32(-0.5), f.Sample(1))
	f.SetSample(0, 1)
	f.SetSample(1, -1)
	assert.Equal(t, FloatFrame{L: 1, R: -1}, f)
}
