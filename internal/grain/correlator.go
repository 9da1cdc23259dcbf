// Package grain implements the ring-buffer playback engines: granular
// player, time-stretch (splice) player with its correlator, looping
// delay and the kammerl slice player. All engines read from the shared
// ring buffers and write whole output blocks; none of them allocates
// after Init.
package grain

import (
	"math"

	"github.com/tphakala/simd/f32"
)

// CorrelatorWindow is the comparison window length in samples.
const CorrelatorWindow = 64

// Correlator evaluates candidate splice offsets between a reference
// window and a search region. Evaluation is amortized: each call to
// EvaluateSomeCandidates scores only a handful of offsets, so the work
// is spread over many blocks and never spikes the real-time budget.
type Correlator struct {
	target []float32
	source []float32

	next  int
	best  int
	score float32
}

// candidatesPerCall bounds the work done by one evaluation step.
const candidatesPerCall = 8

// Init assigns the correlator workspace: a reference window and a
// search region laid out consecutively.
func (c *Correlator) Init(target, source []float32) {
	c.target = target
	c.source = source
	c.Reset()
}

// Reset clears the windows and restarts the search.
func (c *Correlator) Reset() {
	for i := range c.target {
		c.target[i] = 0
	}
	for i := range c.source {
		c.source[i] = 0
	}
	c.StartSearch()
}

// Target returns the reference window for the caller to fill.
func (c *Correlator) Target() []float32 { return c.target }

// Source returns the search region for the caller to fill.
func (c *Correlator) Source() []float32 { return c.source }

// StartSearch restarts candidate evaluation over the current windows.
func (c *Correlator) StartSearch() {
	c.next = 0
	c.best = 0
	c.score = float32(math.Inf(-1))
}

// EvaluateSomeCandidates scores a bounded number of candidate offsets
// by normalized cross-correlation and remembers the best one seen.
func (c *Correlator) EvaluateSomeCandidates() {
	limit := len(c.source) - len(c.target)
	for n := 0; n < candidatesPerCall && c.next <= limit; n++ {
		window := c.source[c.next : c.next+len(c.target)]
		score := f32.DotProductUnsafe(c.target, window)
		if score > c.score {
			c.score = score
			c.best = c.next
		}
		c.next++
	}
}

// Done reports whether every candidate has been scored.
func (c *Correlator) Done() bool {
	return c.next > len(c.source)-len(c.target)
}

// Best returns the best candidate offset found so far, in samples from
// the start of the search region.
func (c *Correlator) Best() int { return c.best }
