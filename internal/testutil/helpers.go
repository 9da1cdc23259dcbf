// Package testutil provides reusable test helper functions for the
// granular processor tests.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sbergen/superparasites/internal/dsp"
)

// Default tolerances for various test scenarios.
const (
	DefaultTolerance = 1e-6
	CurveTolerance   = 1e-3
)

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		f := float64(v)
		if math.IsNaN(f) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(f, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertFramesFinite verifies that no frame holds a NaN or Inf sample.
func AssertFramesFinite(t *testing.T, frames []dsp.FloatFrame, msgAndArgs ...any) bool {
	t.Helper()
	for i, f := range frames {
		for ch := 0; ch < 2; ch++ {
			v := float64(f.Sample(ch))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return assert.Fail(t, "non-finite sample",
					"frame %d channel %d is %f", i, ch, v)
			}
		}
	}
	return true
}

// AssertAllInRange verifies that all elements are within [min, max].
func AssertAllInRange(t *testing.T, s []float32, minVal, maxVal float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v < minVal || v > maxVal {
			return assert.Fail(t, "value out of range",
				"s[%d]=%f is outside range [%f, %f]", i, v, minVal, maxVal)
		}
	}
	return true
}

// AssertFramesInRange verifies that every sample of every frame is
// within [min, max].
func AssertFramesInRange(t *testing.T, frames []dsp.FloatFrame, minVal, maxVal float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, f := range frames {
		for ch := 0; ch < 2; ch++ {
			v := f.Sample(ch)
			if v < minVal || v > maxVal {
				return assert.Fail(t, "sample out of range",
					"frame %d channel %d = %f is outside range [%f, %f]",
					i, ch, v, minVal, maxVal)
			}
		}
	}
	return true
}

// AssertSymmetric verifies that a slice is symmetric (s[i] == s[n-1-i]).
func AssertSymmetric(t *testing.T, s []float32, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	n := len(s)
	for i := 0; i < n/2; i++ {
		j := n - 1 - i
		if !assert.InDelta(t, s[i], s[j], tolerance,
			"slice not symmetric at i=%d: s[%d]=%f != s[%d]=%f", i, i, s[i], j, s[j]) {
			return false
		}
	}
	return true
}

// AssertMonotonic verifies that a slice is monotonically increasing.
func AssertMonotonic(t *testing.T, s []float32, msgAndArgs ...any) bool {
	t.Helper()
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			return assert.Fail(t, "not monotonic",
				"s[%d]=%f < s[%d]=%f", i, s[i], i-1, s[i-1])
		}
	}
	return true
}

// AssertInRange verifies that a value is within [min, max].
func AssertInRange(t *testing.T, value, minVal, maxVal float32, msgAndArgs ...any) bool {
	t.Helper()
	if value < minVal || value > maxVal {
		return assert.Fail(t, "value out of range",
			"value %f is outside range [%f, %f]", value, minVal, maxVal)
	}
	return true
}

// RMS returns the root-mean-square level of both channels combined.
func RMS(frames []dsp.FloatFrame) float64 {
	if len(frames) == 0 {
		return 0
	}
	var sum float64
	for _, f := range frames {
		sum += float64(f.L)*float64(f.L) + float64(f.R)*float64(f.R)
	}
	return math.Sqrt(sum / float64(2*len(frames)))
}

// Peak returns the largest absolute sample value of both channels.
func Peak(frames []dsp.FloatFrame) float32 {
	var peak float32
	for _, f := range frames {
		for ch := 0; ch < 2; ch++ {
			v := f.Sample(ch)
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
	}
	return peak
}

// SineFrames fills a frame slice with an equal sine on both channels.
func SineFrames(n int, freq, sampleRate, amplitude float64) []dsp.FloatFrame {
	frames := make([]dsp.FloatFrame, n)
	for i := range frames {
		v := float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
		frames[i].L = v
		frames[i].R = v
	}
	return frames
}
