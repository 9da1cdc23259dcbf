package grain

import (
	"gonum.org/v1/gonum/dsp/window"

	"github.com/sbergen/superparasites/internal/dsp"
	"github.com/sbergen/superparasites/internal/ringbuf"
)

// MaxGrains bounds the grain pool; the actual count is set at Init
// from channel count and fidelity.
const MaxGrains = 64

const envTableSize = 257

type grainVoice struct {
	active   bool
	pos      float32 // absolute fractional read position
	ratio    float32
	phase    float32 // envelope position, 0..1
	phaseInc float32
	gainL    float32
	gainR    float32
}

// Player is the granular synthesis engine: a pool of windowed grains
// reading from the ring buffers at randomized positions.
type Player struct {
	grains    [MaxGrains]grainVoice
	numGrains int
	channels  int

	envelope  [envTableSize]float32
	envScratch [envTableSize]float64
	envShape  float32

	nextSpawn   int32
	rng         uint32
	prevTrigger bool
}

// Init configures the grain pool. numGrains is clamped to MaxGrains.
func (p *Player) Init(channels, numGrains int) {
	if numGrains > MaxGrains {
		numGrains = MaxGrains
	}
	p.channels = channels
	p.numGrains = numGrains
	for i := range p.grains {
		p.grains[i].active = false
	}
	p.nextSpawn = 0
	p.rng = 0x8d5a61a4
	p.envShape = -1
	p.prevTrigger = false
}

func (p *Player) random() float32 {
	p.rng = p.rng*1664525 + 1013904223
	return float32(p.rng>>8) / float32(1<<24)
}

// refreshEnvelope rebuilds the grain envelope when the window shape
// moved. A Tukey window morphs from rectangular (0) to a raised cosine
// (1) as the shape parameter grows.
func (p *Player) refreshEnvelope(shape float32) {
	if d := shape - p.envShape; d < 0.01 && d > -0.01 {
		return
	}
	p.envShape = shape
	for i := range p.envScratch {
		p.envScratch[i] = 1
	}
	window.Tukey{Alpha: float64(dsp.Constrain(shape, 0, 1))}.Transform(p.envScratch[:])
	for i, v := range p.envScratch {
		p.envelope[i] = float32(v)
	}
}

// Play renders one block of granular output from the ring buffers.
func (p *Player) Play(bufs *[2]ringbuf.Buffer, params *dsp.Parameters, out []dsp.FloatFrame) {
	bufSize := bufs[0].Size()
	if bufSize == 0 {
		return
	}
	if params.Granular.UseDeterministicSeed && params.Trigger && !p.prevTrigger {
		p.rng = 0x8d5a61a4
	}
	p.prevTrigger = params.Trigger

	p.refreshEnvelope(params.Granular.WindowShape)

	size := params.Size
	duration := 512 + size*size*float32(bufSize/2)
	overlap := dsp.Constrain(params.Granular.Overlap, 0, 1)
	interval := int32(duration / (1 + 15*overlap))
	if interval < 64 {
		interval = 64
	}
	ratio := dsp.SemitonesToRatio(params.Pitch)
	norm := 1 / float32(1+4*overlap)

	for i := range out {
		p.nextSpawn--
		if p.nextSpawn <= 0 || (params.Trigger && i == 0) {
			p.spawn(bufs, params, duration, ratio)
			jitter := 0.75 + 0.5*p.random()
			p.nextSpawn = int32(float32(interval) * jitter)
		}

		var l, r float32
		for g := range p.grains[:p.numGrains] {
			gr := &p.grains[g]
			if !gr.active {
				continue
			}
			env := dsp.Interpolate(p.envelope[:], gr.phase, envTableSize-1)
			sl := bufs[0].ReadLinear(gr.pos)
			sr := sl
			if p.channels == 2 {
				sr = bufs[1].ReadLinear(gr.pos)
			}
			l += env * sl * gr.gainL * 2
			r += env * sr * gr.gainR * 2
			gr.pos += gr.ratio
			gr.phase += gr.phaseInc
			if gr.phase >= 1 {
				gr.active = false
			}
		}
		out[i].L = l * norm
		out[i].R = r * norm
	}
}

// spawn starts a new grain at a randomized position behind the write
// head.
func (p *Player) spawn(bufs *[2]ringbuf.Buffer, params *dsp.Parameters, duration, ratio float32) {
	for g := range p.grains[:p.numGrains] {
		gr := &p.grains[g]
		if gr.active {
			continue
		}
		bufSize := float32(bufs[0].Size())
		reach := bufSize - duration - float32(ringbuf.TailLength)
		if reach < 0 {
			reach = 0
		}
		jitter := (p.random() - 0.5) * 0.05 * reach
		offset := params.Position*reach + jitter
		offset = dsp.Constrain(offset, 0, reach)
		gr.pos = float32(bufs[0].Head()) - duration - offset
		gr.ratio = ratio
		gr.phase = 0
		gr.phaseInc = ratio / duration
		pan := 0.5 + params.StereoSpread*(p.random()-0.5)
		gr.gainL = 1 - pan
		gr.gainR = pan
		gr.active = true
		return
	}
}
