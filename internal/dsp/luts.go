package dsp

import "math"

// Lookup table sizes. The crossfade tables are read through
// Interpolate with a scale of XFadeTableScale, the inverse tanh table
// with InvTanhTableScale.
const (
	xfadeTableSize   = 17
	XFadeTableScale  = 16.0
	invTanhTableSize = 257
	InvTanhTableScale = 256.0
)

// XFadeIn and XFadeOut are complementary equal-power crossfade curves
// over [0, 1].
var (
	XFadeIn  [xfadeTableSize]float32
	XFadeOut [xfadeTableSize]float32
)

// InvTanh tabulates the inverse hyperbolic tangent over [0, 1),
// normalized so that InvTanh[last] == 1. Used by the warm distortion
// waveshaper.
var InvTanh [invTanhTableSize]float32

func init() {
	for i := range XFadeIn {
		t := float64(i) / float64(xfadeTableSize-1)
		XFadeIn[i] = float32(math.Sin(t * math.Pi / 2))
		XFadeOut[i] = float32(math.Cos(t * math.Pi / 2))
	}

	// atanh diverges at 1; the last entry is pinned by the normalization.
	const edge = 0.999
	norm := math.Atanh(edge)
	for i := range InvTanh {
		t := float64(i) / float64(invTanhTableSize-1) * edge
		InvTanh[i] = float32(math.Atanh(t) / norm)
	}
}
