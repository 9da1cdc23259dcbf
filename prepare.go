package superparasites

import (
	"github.com/sbergen/superparasites/internal/arena"
	"github.com/sbergen/superparasites/internal/fx"
	"github.com/sbergen/superparasites/internal/grain"
	"github.com/sbergen/superparasites/internal/ringbuf"
	"github.com/sbergen/superparasites/internal/spectral"
)

// Prepare applies pending mode and quality changes and runs the
// amortized background work of the active mode. Call it once per block,
// off the hot path but serialized with Process; Process emits silence
// while a change is pending.
func (p *Processor) Prepare() error {
	modeChanged := p.previousMode != p.mode

	// A switch between the simple recording modes keeps the audio
	// buffers: they share the same layout, so the transition only has
	// to reset the stateful filters.
	benign := !p.resetBuffers &&
		p.mode.simple() && p.previousMode.simple() &&
		p.previousMode != PlaybackModeLast
	if modeChanged && benign {
		p.resetFilters()
		p.pitchShifter.Clear()
		p.previousMode = p.mode
		modeChanged = false
	}

	if modeChanged || p.resetBuffers {
		if err := p.reinit(); err != nil {
			return err
		}
	}

	switch p.mode {
	case PlaybackModeSpectral, PlaybackModeSpectralCloud:
		p.vocoder.Buffer(&p.parameters)
	case PlaybackModeStretch, PlaybackModeOliverb:
		if p.correlator.Done() {
			p.wsPlayer.LoadCorrelator(&p.buffers)
			p.correlator.StartSearch()
		}
		p.correlator.EvaluateSomeCandidates()
	}
	return nil
}

// reinit re-partitions the raw memory and rebuilds every engine for the
// pending mode and quality. Everything the engines reference is carved
// out of the two regions; nothing is heap-allocated here.
func (p *Processor) reinit() error {
	p.parameters.Freeze = false
	p.previousMode = p.mode
	p.resetBuffers = false

	// Partition: in mono the large region holds the single audio
	// channel and the small region is effect workspace. In stereo each
	// channel gets a small-sized region and the workspace is the tail
	// of the large one.
	var workspace []byte
	if p.numChannels == 1 {
		p.sampleMem[0] = p.regions[0]
		p.sampleMem[1] = nil
		workspace = p.regions[1]
	} else {
		p.sampleMem[0] = p.regions[0][:p.cfg.SmallBufferSize]
		p.sampleMem[1] = p.regions[1]
		workspace = p.regions[0][p.cfg.SmallBufferSize:]
	}
	sampleMem := p.sampleMem

	alloc := arena.New(workspace)
	diffuserLine, err := arena.Alloc[float32](alloc, fx.DiffuserLineLength)
	if err != nil {
		return err
	}
	reverbLine, err := arena.Alloc[uint16](alloc, fx.ReverbLineLength)
	if err != nil {
		return err
	}
	// The correlator scratch and the pitch shifter delay line share
	// bytes: the two are never active in the same mode.
	corrBytes, err := alloc.Bytes(correlatorWords * 4)
	if err != nil {
		return err
	}
	corrFloats := arena.View[float32](corrBytes, correlatorWords)
	shifterLine := arena.View[int16](corrBytes, correlatorWords*2)

	p.diffuser.Init(diffuserLine)
	p.reverb.Init(reverbLine)
	p.oliverb.Init(reverbLine)
	p.pitchShifter.Init(shifterLine[:fx.PitchShifterLineLength])
	p.correlator.Init(
		corrFloats[:grain.CorrelatorWindow],
		corrFloats[grain.CorrelatorWindow:])

	base := grainBaseStereo
	if p.numChannels == 1 {
		base = grainBaseMono
	}
	fidelity := grainFidelity16
	if p.lowFidelity {
		fidelity = grainFidelity8
	}
	numGrains := base * fidelity >> 4

	p.player.Init(p.numChannels, numGrains)
	p.wsPlayer.Init(&p.correlator, p.numChannels)
	p.looper.Init(p.numChannels)
	p.kammerl.Init(p.numChannels)

	switch p.mode {
	case PlaybackModeSpectral:
		err := p.vocoder.Init(
			spectral.TransformationFrame, sampleMem, p.numChannels, p.sampleRate)
		if err != nil {
			return err
		}
	case PlaybackModeSpectralCloud:
		err := p.vocoder.Init(
			spectral.TransformationSpectralCloud, sampleMem, p.numChannels, p.sampleRate)
		if err != nil {
			return err
		}
	case PlaybackModeResonestor:
		combMem := arena.View[float32](sampleMem[0], fx.ResonestorWorkspace)
		p.resonestor.Init(combMem, p.sampleRate)
	default:
		p.initBuffers(sampleMem)
	}

	p.srcDown.Init()
	p.srcUp.Init()
	p.resetFilters()
	p.pitchShifter.Clear()
	return nil
}

// initBuffers binds the recording ring buffers to the sample regions at
// the active resolution.
func (p *Processor) initBuffers(sampleMem [2][]byte) {
	for ch := 0; ch < p.numChannels; ch++ {
		mem := sampleMem[ch]
		if p.lowFidelity {
			p.buffers[ch].Init8(arena.View[int8](mem, len(mem)))
		} else {
			p.buffers[ch].Init16(arena.View[int16](mem, len(mem)/2))
		}
	}
	// Mark the dormant channel explicitly in mono so a stale handle
	// cannot be read after a stereo to mono switch.
	if p.numChannels == 1 {
		p.buffers[1] = ringbuf.Buffer{}
	}
}
