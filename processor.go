package superparasites

import (
	"github.com/sbergen/superparasites/internal/dsp"
	"github.com/sbergen/superparasites/internal/fx"
	"github.com/sbergen/superparasites/internal/grain"
	"github.com/sbergen/superparasites/internal/resample"
	"github.com/sbergen/superparasites/internal/ringbuf"
	"github.com/sbergen/superparasites/internal/spectral"
)

// Processor is the real-time granular audio engine: a per-block
// pipeline that converts a frame of stereo input into a frame of
// stereo output through one of the playback modes, shared
// post-processing, and a warm-restart persistence protocol.
//
// All per-block state is single-writer: Process, Prepare and the
// persistence calls must run on the same logical thread (the audio
// callback, or whatever serializes with it). Process never allocates
// and never blocks.
type Processor struct {
	cfg        Config
	sampleRate float32
	blockSize  int

	mode         PlaybackMode
	previousMode PlaybackMode
	numChannels  int
	lowFidelity  bool

	bypass          bool
	silence         bool
	resetBuffers    bool
	muteIn          bool
	muteOut         bool
	reverbDrySignal bool
	synchronized    bool

	muteInFade  float32
	muteOutFade float32
	freezeLP    float32
	dryWet      float32

	parameters Parameters

	// The two raw regions, and the per-channel sample sub-regions of
	// the current partition.
	regions   [2][]byte
	sampleMem [2][]byte

	buffers [2]ringbuf.Buffer

	player       grain.Player
	wsPlayer     grain.StretchPlayer
	looper       grain.Looper
	kammerl      grain.KammerlPlayer
	correlator   grain.Correlator
	vocoder      *spectral.PhaseVocoder
	diffuser     fx.Diffuser
	pitchShifter fx.PitchShifter
	reverb       fx.Reverb
	oliverb      fx.Oliverb
	resonestor   fx.Resonestor

	srcDown resample.Downsampler
	srcUp   resample.Upsampler

	fbFilter [2]dsp.SVF
	lpFilter [2]dsp.SVF
	hpFilter [2]dsp.SVF

	// Per-block scratch, sized once at construction.
	in      []FloatFrame
	out     []FloatFrame
	fb      []FloatFrame
	inDown  []FloatFrame
	outDown []FloatFrame

	persistent    persistentState
	persistentRaw [persistentStateSize]byte
	blockScratch  [3]PersistentBlock
}

// New creates a Processor. The two raw regions are allocated once here;
// nothing allocates after construction.
func New(cfg Config) (*Processor, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Processor{
		cfg:             cfg,
		sampleRate:      float32(cfg.SampleRate),
		blockSize:       cfg.BlockSize,
		mode:            PlaybackModeGranular,
		previousMode:    PlaybackModeLast,
		numChannels:     2,
		resetBuffers:    true,
		reverbDrySignal: true,
		vocoder:         spectral.New(),
	}
	p.regions[0] = make([]byte, cfg.LargeBufferSize)
	p.regions[1] = make([]byte, cfg.SmallBufferSize)
	p.in = make([]FloatFrame, cfg.BlockSize)
	p.out = make([]FloatFrame, cfg.BlockSize)
	p.fb = make([]FloatFrame, cfg.BlockSize)
	p.inDown = make([]FloatFrame, cfg.BlockSize/resample.Factor)
	p.outDown = make([]FloatFrame, cfg.BlockSize/resample.Factor)
	if err := p.reinit(); err != nil {
		return nil, err
	}
	return p, nil
}

// MutableParameters returns the parameter snapshot refreshed by the
// caller once per block, before Process.
func (p *Processor) MutableParameters() *Parameters { return &p.parameters }

// SetPlaybackMode selects the active synthesis engine. A change takes
// effect at the next Prepare; Process emits silence until then.
func (p *Processor) SetPlaybackMode(mode PlaybackMode) { p.mode = mode }

// PlaybackMode returns the active mode.
func (p *Processor) PlaybackMode() PlaybackMode { return p.mode }

// SetNumChannels selects mono (1) or stereo (2) operation. A change
// forces a buffer reset at the next Prepare.
func (p *Processor) SetNumChannels(n int) {
	if n < 1 {
		n = 1
	} else if n > 2 {
		n = 2
	}
	p.resetBuffers = p.resetBuffers || n != p.numChannels
	p.numChannels = n
}

// NumChannels returns the active channel count.
func (p *Processor) NumChannels() int { return p.numChannels }

// SetLowFidelity selects the 8-bit/half-rate path. A change forces a
// buffer reset at the next Prepare.
func (p *Processor) SetLowFidelity(lofi bool) {
	p.resetBuffers = p.resetBuffers || lofi != p.lowFidelity
	p.lowFidelity = lofi
}

// LowFidelity reports whether the low-fidelity path is engaged.
func (p *Processor) LowFidelity() bool { return p.lowFidelity }

// SetQuality sets the packed quality code: bit 0 selects mono, bit 1
// selects the low-fidelity 8-bit path.
func (p *Processor) SetQuality(q int) {
	if q&1 != 0 {
		p.SetNumChannels(1)
	} else {
		p.SetNumChannels(2)
	}
	p.SetLowFidelity(q>>1 != 0)
}

// Quality returns the packed quality code.
func (p *Processor) Quality() int {
	q := 0
	if p.numChannels == 1 {
		q |= 1
	}
	if p.lowFidelity {
		q |= 2
	}
	return q
}

// SetBypass routes the input unprocessed to the output.
func (p *Processor) SetBypass(bypass bool) { p.bypass = bypass }

// Bypass reports whether bypass is engaged.
func (p *Processor) Bypass() bool { return p.bypass }

// SetSilence forces all-zero output.
func (p *Processor) SetSilence(silence bool) { p.silence = silence }

// SetMuteIn fades the input in or out.
func (p *Processor) SetMuteIn(mute bool) { p.muteIn = mute }

// SetMuteOut fades the processed signal in or out.
func (p *Processor) SetMuteOut(mute bool) { p.muteOut = mute }

// SetReverbDrySignal selects whether the generic reverb runs after the
// dry/wet crossfade (true, reverberating the dry leg too) or before it
// (false, wet signal only).
func (p *Processor) SetReverbDrySignal(v bool) { p.reverbDrySignal = v }

// SetSynchronized switches tap-tempo synchronized operation of the
// stretch and looping-delay players.
func (p *Processor) SetSynchronized(v bool) {
	p.synchronized = v
	p.wsPlayer.SetSynchronized(v)
	p.looper.SetSynchronized(v)
}

func (p *Processor) resetFilters() {
	for i := 0; i < 2; i++ {
		p.fbFilter[i].Init()
		p.lpFilter[i].Init()
		p.hpFilter[i].Init()
	}
}

// Process consumes one block of stereo 16-bit frames and produces the
// same number of output frames. len(input) and len(output) must match;
// the block is truncated to the configured block size cap, and on the
// low-fidelity path to an even frame count.
func (p *Processor) Process(input, output []ShortFrame) {
	size := len(input)
	if len(output) < size {
		size = len(output)
	}
	if size > p.blockSize {
		size = p.blockSize
	}
	if p.lowFidelity {
		// The half-rate resamplers work in sample pairs; an odd
		// trailing frame is left untouched, like frames beyond the
		// block size cap.
		size &^= 1
	}
	input, output = input[:size], output[:size]

	if p.bypass {
		copy(output, input)
		return
	}
	if p.silence || p.resetBuffers || p.previousMode != p.mode {
		for i := range output {
			output[i] = ShortFrame{}
		}
		return
	}

	in := p.in[:size]
	out := p.out[:size]
	fb := p.fb[:size]

	for i := range input {
		in[i].L = float32(input[i].L) / 32768
		in[i].R = float32(input[i].R) / 32768
	}

	// Input muting.
	muteLevelIn := float32(1)
	if p.muteIn {
		muteLevelIn = 0
	}
	originalMuteInFade := p.muteInFade
	for i := range in {
		dsp.OnePole(&p.muteInFade, muteLevelIn, muteFadeCoeff)
		in[i].L *= p.muteInFade
		in[i].R *= p.muteInFade
	}

	// Mono mixdown; in the delay modes, stereo spread controls the
	// input crossfade.
	if p.numChannels == 1 {
		xfade := float32(0.5)
		if p.mode == PlaybackModeLoopingDelay || p.mode == PlaybackModeStretch {
			xfade = p.parameters.StereoSpread
		}
		for i := range in {
			m := in[i].L*(1-xfade) + in[i].R*xfade
			in[i].L = m
			in[i].R = m
		}
	}

	// Feedback injection, with high-pass filtering to prevent DC
	// build-up. Kammerl repurposes the reverb knob as feedback amount
	// while a slice is replaying, without the shared filter path.
	feedback := float32(0)
	if p.mode == PlaybackModeKammerl && p.kammerl.IsSlicePlaybackActive() {
		feedback = p.parameters.Reverb
	}
	if p.mode != PlaybackModeOliverb &&
		p.mode != PlaybackModeResonestor &&
		p.mode != PlaybackModeKammerl &&
		p.mode != PlaybackModeSpectralCloud {
		freezeTarget := float32(0)
		if p.parameters.Freeze {
			freezeTarget = 1
		}
		dsp.OnePole(&p.freezeLP, freezeTarget, freezeFadeCoeff)
		feedback = p.parameters.Feedback
		cutoff := (20 + 100*feedback*feedback) / p.sampleRate
		p.fbFilter[0].SetFQ(cutoff, 1)
		p.fbFilter[1].Set(&p.fbFilter[0])
		p.fbFilter[0].Process(fb, 0, dsp.FilterModeHighPass)
		p.fbFilter[1].Process(fb, 1, dsp.FilterModeHighPass)
	}
	fbGain := feedback * (1 - p.freezeLP)
	for i := range in {
		in[i].L += fbGain * (dsp.SoftLimit(fbGain*1.4*fb[i].L+in[i].L) - in[i].L)
		in[i].R += fbGain * (dsp.SoftLimit(fbGain*1.4*fb[i].R+in[i].R) - in[i].R)
	}

	if p.lowFidelity {
		down := size / resample.Factor
		p.srcDown.Process(in, p.inDown[:down])
		p.processGranular(p.inDown[:down], p.outDown[:down])
		p.srcUp.Process(p.outDown[:down], out)
	} else {
		p.processGranular(in, out)
	}

	// Diffusion.
	if !p.mode.spectral() &&
		p.mode != PlaybackModeOliverb &&
		p.mode != PlaybackModeResonestor &&
		p.mode != PlaybackModeKammerl {
		texture := p.parameters.Texture
		diffusion := p.parameters.Density
		if p.mode == PlaybackModeGranular {
			if texture > 0.75 {
				diffusion = (texture - 0.75) * 4
			} else {
				diffusion = 0
			}
		}
		p.diffuser.SetAmount(diffusion)
		p.diffuser.Process(out)
	}

	// Pitch shifting.
	if (p.mode == PlaybackModeLoopingDelay &&
		(!p.parameters.Freeze || p.looper.Synchronized())) ||
		p.mode == PlaybackModeSpectralCloud {
		p.pitchShifter.SetRatio(dsp.SemitonesToRatio(p.parameters.Pitch))
		p.pitchShifter.SetSize(p.parameters.Size)
		wet := float32(1)
		if p.mode != PlaybackModeSpectralCloud {
			wet = dsp.PitchShiftCrossfade(p.parameters.Pitch)
		}
		p.pitchShifter.SetDryWet(wet)
		p.pitchShifter.Process(out)
	}

	// Low/high-pass filters of the delay modes.
	if p.mode == PlaybackModeLoopingDelay || p.mode == PlaybackModeStretch {
		cutoff := p.parameters.Texture
		lpSemitones := float32(0)
		if cutoff < 0.5 {
			lpSemitones = (cutoff - 0.5) * 216
		}
		hpSemitones := (cutoff - 1) * 216
		if cutoff < 0.5 {
			hpSemitones = -0.5 * 216
		}
		lpCutoff := dsp.Constrain(0.5*dsp.SemitonesToRatio(lpSemitones), 0, 0.499)
		hpCutoff := dsp.Constrain(0.25*dsp.SemitonesToRatio(hpSemitones), 0, 0.499)

		p.lpFilter[0].SetFQ(lpCutoff, 0.9)
		p.lpFilter[0].Process(out, 0, dsp.FilterModeLowPass)
		p.lpFilter[1].Set(&p.lpFilter[0])
		p.lpFilter[1].Process(out, 1, dsp.FilterModeLowPass)

		p.hpFilter[0].SetFQ(hpCutoff, 0.9)
		p.hpFilter[0].Process(out, 0, dsp.FilterModeHighPass)
		p.hpFilter[1].Set(&p.hpFilter[0])
		p.hpFilter[1].Process(out, 1, dsp.FilterModeHighPass)
	}

	// This is what is fed back. Reverb is not fed back.
	copy(fb, out)

	// Output muting, ahead of the reverb.
	muteLevelOut := float32(1)
	if p.muteOut {
		muteLevelOut = 0
	}
	originalMuteOutFade := p.muteOutFade
	for i := range out {
		dsp.OnePole(&p.muteOutFade, muteLevelOut, muteFadeCoeff)
		out[i].L *= p.muteOutFade
		out[i].R *= p.muteOutFade
	}

	if !p.reverbDrySignal {
		p.applyReverb(out, feedback)
	}

	// Dry/wet crossfade with the raw input. The dry leg bypassed the
	// mute logic above, so the mutes are re-applied from the fade
	// values captured at block start.
	if p.mode != PlaybackModeResonestor {
		dryWetStep := (p.parameters.DryWet - p.dryWet) / float32(size)
		muteOutFade := originalMuteOutFade
		muteInFade := originalMuteInFade
		for i := range out {
			p.dryWet += dryWetStep
			dryWet := p.dryWet
			if p.mode == PlaybackModeKammerl {
				dryWet = 1
			}
			fadeIn := dsp.Interpolate(dsp.XFadeIn[:], dryWet, dsp.XFadeTableScale)
			fadeOut := dsp.Interpolate(dsp.XFadeOut[:], dryWet, dsp.XFadeTableScale)

			l := float32(input[i].L) / 32768
			r := float32(input[i].R) / 32768

			dsp.OnePole(&muteOutFade, muteLevelOut, muteFadeCoeff)
			dsp.OnePole(&muteInFade, muteLevelIn, muteFadeCoeff)
			fadeOut *= muteInFade * muteOutFade

			out[i].L = l*fadeOut + out[i].L*postGain*fadeIn
			out[i].R = r*fadeOut + out[i].R*postGain*fadeIn
		}
	}

	if p.reverbDrySignal {
		p.applyReverb(out, feedback)
	}

	for i := range out {
		if p.mode == PlaybackModeSpectralCloud {
			out[i].L = warmDistortion(out[i].L, p.parameters.Kammerl.PitchMode)
			out[i].R = warmDistortion(out[i].R, p.parameters.Kammerl.PitchMode)
		}
		output[i].L = dsp.SoftConvert(out[i].L)
		output[i].R = dsp.SoftConvert(out[i].R)
	}
}

// applyReverb runs the generic reverb, skipped for the modes that own
// their reverberation.
func (p *Processor) applyReverb(out []FloatFrame, feedback float32) {
	if p.mode == PlaybackModeOliverb ||
		p.mode == PlaybackModeResonestor ||
		p.mode == PlaybackModeKammerl {
		return
	}
	amount := p.parameters.Reverb
	p.reverb.SetAmount(amount * 0.54)
	p.reverb.SetDiffusion(0.7)
	p.reverb.SetTime(0.35 + 0.63*amount)
	p.reverb.SetInputGain(0.2)
	p.reverb.SetLP(0.6 + 0.37*feedback)
	p.reverb.Process(out)
}

// processGranular writes the conditioned input into the ring buffers
// and dispatches to the active mode's engine.
func (p *Processor) processGranular(in, out []FloatFrame) {
	params := &p.parameters

	// All modes except the spectral pair and the resonestor record the
	// incoming audio. Freeze suppresses writing, except for the modes
	// that play through their buffer regardless.
	if !p.mode.spectral() && p.mode != PlaybackModeResonestor {
		play := !params.Freeze ||
			p.mode == PlaybackModeOliverb ||
			p.mode == PlaybackModeKammerl
		for ch := 0; ch < p.numChannels; ch++ {
			p.buffers[ch].WriteFade(in, ch, play)
		}
	}

	switch p.mode {
	case PlaybackModeGranular:
		// DENSITY and TEXTURE are meta-parameters.
		params.Granular.UseDeterministicSeed = params.Density < 0.5
		switch {
		case params.Density >= 0.53:
			params.Granular.Overlap = (params.Density - 0.53) * 2.12
		case params.Density <= 0.47:
			params.Granular.Overlap = (0.47 - params.Density) * 2.12
		default:
			params.Granular.Overlap = 0
		}
		if params.Texture < 0.75 {
			params.Granular.WindowShape = params.Texture * 1.333
		} else {
			params.Granular.WindowShape = 1
		}
		p.player.Play(&p.buffers, params, out)

	case PlaybackModeStretch:
		p.wsPlayer.Play(&p.buffers, params, out)

	case PlaybackModeLoopingDelay:
		p.looper.Play(&p.buffers, params, out)

	case PlaybackModeSpectral:
		params.Spectral.Quantization = params.Texture
		params.Spectral.RefreshRate = 0.01 + 0.99*params.Density
		warp := params.Size - 0.5
		params.Spectral.Warp = 4*warp*warp*warp + 0.5
		randomization := params.Density - 0.5
		randomization *= randomization * 4.2
		randomization -= 0.05
		params.Spectral.PhaseRandomization = dsp.Constrain(randomization, 0, 1)
		p.vocoder.Process(params, in, out)

	case PlaybackModeSpectralCloud:
		params.Spectral.RefreshRate = 0.01 + 0.99*params.Density
		params.Spectral.PhaseRandomization = params.Texture
		p.vocoder.Process(params, in, out)
		if p.numChannels == 1 {
			for i := range out {
				out[i].R = out[i].L
			}
		}

	case PlaybackModeOliverb:
		p.playOliverb(params, out)

	case PlaybackModeResonestor:
		copy(out, in)
		p.configureResonestor(params)
		p.resonestor.Process(out)

	case PlaybackModeKammerl:
		p.kammerl.Play(&p.buffers, params, out)
	}
}

// playOliverb runs the stretch player as a pre-delay stage and feeds
// the dedicated reverb.
func (p *Processor) playOliverb(params *Parameters, out []FloatFrame) {
	position := params.Position * 0.25
	if p.wsPlayer.Synchronized() {
		position = params.Position
	}
	pre := Parameters{
		Position: position,
		Size:     0.1,
		Texture:  0.5,
		DryWet:   1,
		Trigger:  params.Trigger,
	}
	p.wsPlayer.Play(&p.buffers, &pre, out)

	p.oliverb.SetDiffusion(0.3 + 0.5*params.StereoSpread)
	p.oliverb.SetSize(0.05 + 0.94*params.Size)
	p.oliverb.SetModRate(params.Feedback)
	p.oliverb.SetModAmount(params.Reverb * 300)
	p.oliverb.SetRatio(dsp.SemitonesToRatio(params.Pitch))
	p.oliverb.SetPitchShiftAmount(dsp.PitchShiftCrossfade(params.Pitch))

	if params.Freeze {
		p.oliverb.SetInputGain(0)
		p.oliverb.SetDecay(1)
		p.oliverb.SetLP(1)
		p.oliverb.SetHP(0)
	} else {
		pitch := params.Pitch
		if pitch < 0 {
			pitch = -pitch
		}
		p.oliverb.SetDecay(params.Density*1.3 + 0.15*pitch/24)
		p.oliverb.SetInputGain(0.5)
		lp := float32(1)
		if params.Texture < 0.5 {
			lp = params.Texture * 2
		}
		hp := float32(0)
		if params.Texture > 0.5 {
			hp = (params.Texture - 0.5) * 2
		}
		p.oliverb.SetLP(0.03 + 0.9*lp)
		// The small offset keeps a large DC offset from feeding back.
		p.oliverb.SetHP(0.01 + 0.2*hp)
	}
	p.oliverb.Process(out)
}

// configureResonestor derives the resonator settings from the knobs.
func (p *Processor) configureResonestor(params *Parameters) {
	r := &p.resonestor
	r.SetPitch(params.Pitch)
	r.SetChord(params.Size)
	r.SetTrigger(params.Trigger)
	r.SetBurstDamp(params.Position)
	r.SetBurstComb(1 - params.Position)
	r.SetBurstDuration(1 - params.Position)
	r.SetSpreadAmount(params.Reverb)
	if params.StereoSpread < 0.5 {
		r.SetStereo(0)
		r.SetSeparation((0.5 - params.StereoSpread) * 2)
	} else {
		r.SetStereo((params.StereoSpread - 0.5) * 2)
		r.SetSeparation(0)
	}
	r.SetFreeze(params.Freeze)
	r.SetHarmonicity(1 - params.Feedback*0.5)
	r.SetDistortion(params.DryWet)

	t := params.Texture
	if t < 0.5 {
		r.SetNarrow(0.001)
		l := 1 - (0.5-t)/0.5
		l = l*(1-0.08) + 0.08
		r.SetDamp(l * l)
	} else {
		r.SetDamp(1)
		n := (t - 0.5) / 0.5 * 1.35
		n *= n * n * n
		r.SetNarrow(0.001 + n*n*0.6)
	}

	d := (params.Density - 0.05) / 0.9
	if d < 0 {
		d = 0
	}
	d *= d * d
	d *= d * d
	d *= d * d
	r.SetFeedback(d * 20)
}

// warmDistortion applies the saturating waveshaper of the spectral
// cloud output stage.
func warmDistortion(x, parameter float32) float32 {
	if parameter < 0.1 {
		return x
	}
	const maxDist = 2.0
	fac := maxDist * parameter
	amp := 1 - parameter*0.45

	smp := (1+fac)*x - fac*x*x*x
	sign := float32(1)
	if smp < 0 {
		sign = -1
	}
	lookup := dsp.Constrain(smp/2*sign, 0, 1)
	invTanh := dsp.Interpolate(dsp.InvTanh[:], lookup, dsp.InvTanhTableScale) * sign

	smp += (invTanh - smp) * fac
	smp *= amp
	return dsp.Constrain(smp, -1, 1)
}
