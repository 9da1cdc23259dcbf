// Package dsp provides the sample formats, parameter snapshot and small
// signal-processing primitives shared by the processor core and its
// synthesis engines.
package dsp

import "math"

// ShortFrame is one stereo sample frame in the 16-bit wire format.
type ShortFrame struct {
	L, R int16
}

// FloatFrame is one stereo sample frame in the normalized internal
// format, each channel approximately in [-1, 1].
type FloatFrame struct {
	L, R float32
}

// Sample returns the channel ch (0 = left, 1 = right) of the frame.
func (f *FloatFrame) Sample(ch int) float32 {
	if ch == 0 {
		return f.L
	}
	return f.R
}

// SetSample sets channel ch (0 = left, 1 = right) of the frame.
func (f *FloatFrame) SetSample(ch int, v float32) {
	if ch == 0 {
		f.L = v
	} else {
		f.R = v
	}
}

// OnePole advances a one-pole smoother toward in with the given
// coefficient: state += coeff * (in - state).
func OnePole(state *float32, in, coeff float32) {
	*state += coeff * (in - *state)
}

// SoftLimit applies a cubic soft saturation, transparent for small
// amplitudes and bounded for large ones.
func SoftLimit(x float32) float32 {
	return x * (27 + x*x) / (27 + 9*x*x)
}

// SoftClip saturates hard outside [-3, 3] and soft-limits inside.
func SoftClip(x float32) float32 {
	if x < -3 {
		return -1
	}
	if x > 3 {
		return 1
	}
	return SoftLimit(x)
}

// SoftConvert converts a normalized float sample to the 16-bit wire
// format with saturating rounding.
func SoftConvert(x float32) int16 {
	return int16(SoftClip(x) * 32767)
}

// SemitonesToRatio converts a pitch offset in semitones to a playback
// rate ratio.
func SemitonesToRatio(semitones float32) float32 {
	return float32(math.Exp2(float64(semitones) / 12))
}

// Constrain clamps x to [lo, hi].
func Constrain(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Interpolate reads a lookup table at fractional index x*scale with
// linear interpolation. x*scale must stay within [0, len(table)-1].
func Interpolate(table []float32, x, scale float32) float32 {
	pos := x * scale
	idx := int(pos)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(table)-1 {
		return table[len(table)-1]
	}
	frac := pos - float32(idx)
	a := table[idx]
	return a + (table[idx+1]-a)*frac
}

// PitchShiftCrossfade maps a pitch offset in semitones to a
// transposition wet amount. The response is a trapezoid: full wet
// beyond +-0.7, fully dry inside [-0.3, 0.3], with linear 0.4-wide
// transition bands in between, so that small detunings near zero leave
// the signal untouched.
func PitchShiftCrossfade(pitch float32) float32 {
	const (
		limit = 0.7
		slew  = 0.4
	)
	x := pitch
	switch {
	case x < -limit:
		return 1
	case x < -limit+slew:
		return 1 - (x+limit)/slew
	case x < limit-slew:
		return 0
	case x < limit:
		return 1 + (x-limit)/slew
	default:
		return 1
	}
}
