// Package spectral implements the phase vocoder behind the two
// spectral playback modes. Analysis and synthesis use a sine window
// with 4x overlap; the FFT comes from gonum. Frame memory is carved
// from the processor's raw regions, so the vocoder owns no sample
// storage of its own.
package spectral

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/sbergen/superparasites/internal/arena"
	"github.com/sbergen/superparasites/internal/dsp"
)

// TransformationType selects how analyzed frames are turned back into
// audio.
type TransformationType int

const (
	// TransformationFrame resynthesizes each analyzed frame after
	// quantization, warping and phase randomization.
	TransformationFrame TransformationType = iota

	// TransformationSpectralCloud resynthesizes from a held spectrum
	// that is stochastically refreshed from the input.
	TransformationSpectralCloud
)

const (
	frameSize = 2048
	hopSize   = frameSize / 4
	numBins   = frameSize/2 + 1
)

type vocoderChannel struct {
	fifo   []float32 // most recent frameSize input samples
	ola    []float32 // overlap-add synthesis ring
	held   []float32 // held magnitudes (cloud mode)
	phases []float32 // running synthesis phases
}

// PhaseVocoder implements STFT analysis/transformation/resynthesis for
// the spectral playback modes.
type PhaseVocoder struct {
	transform  TransformationType
	channels   int
	sampleRate float32

	fft *fourier.FFT
	win []float64

	ch      [2]vocoderChannel
	fifoPos int32
	olaPos  int32
	pending int32

	seq   []float64
	coeff []complex128
	rng   uint32

	ready bool
}

// New creates the vocoder's rate-independent state: the FFT plan, the
// sine window and the float64 scratch. Per-mode sample memory is bound
// later by Init.
func New() *PhaseVocoder {
	v := &PhaseVocoder{
		fft:   fourier.NewFFT(frameSize),
		win:   make([]float64, frameSize),
		seq:   make([]float64, frameSize),
		coeff: make([]complex128, numBins),
		rng:   0x9e3779b9,
	}
	for i := range v.win {
		v.win[i] = 1
	}
	window.Sine(v.win)
	return v
}

// Init binds the vocoder to its transformation type and carves its
// frame memory from the raw regions: regions[c] backs channel c in
// stereo, regions[0] backs the single mono channel.
func (v *PhaseVocoder) Init(
	transform TransformationType,
	regions [2][]byte,
	channels int,
	sampleRate float32,
) error {
	v.transform = transform
	v.channels = channels
	v.sampleRate = sampleRate
	v.fifoPos = 0
	v.olaPos = 0
	v.pending = 0
	v.ready = false

	for c := 0; c < channels; c++ {
		alloc := arena.New(regions[c])
		var err error
		ch := &v.ch[c]
		if ch.fifo, err = arena.Alloc[float32](alloc, frameSize); err != nil {
			return err
		}
		if ch.ola, err = arena.Alloc[float32](alloc, frameSize); err != nil {
			return err
		}
		if ch.held, err = arena.Alloc[float32](alloc, numBins); err != nil {
			return err
		}
		if ch.phases, err = arena.Alloc[float32](alloc, numBins); err != nil {
			return err
		}
		zero(ch.fifo)
		zero(ch.ola)
		zero(ch.held)
		zero(ch.phases)
	}
	return nil
}

func zero(s []float32) {
	for i := range s {
		s[i] = 0
	}
}

func (v *PhaseVocoder) random() float32 {
	v.rng = v.rng*1664525 + 1013904223
	return float32(v.rng>>8) / float32(1<<24)
}

// Process consumes one block of input and produces one block of
// resynthesized output. Output is silent until the first analysis
// frame has been accumulated.
func (v *PhaseVocoder) Process(params *dsp.Parameters, in, out []dsp.FloatFrame) {
	if v.ch[0].fifo == nil {
		for i := range out {
			out[i] = dsp.FloatFrame{}
		}
		return
	}
	for i := range in {
		for c := 0; c < v.channels; c++ {
			v.ch[c].fifo[v.fifoPos] = in[i].Sample(c)
		}
		v.fifoPos++
		if v.fifoPos >= frameSize {
			v.fifoPos = 0
		}
		v.pending++
		if v.pending >= hopSize {
			v.analyze(params)
			v.pending = 0
		}

		var l, r float32
		if v.ready {
			l = v.ch[0].ola[v.olaPos]
			v.ch[0].ola[v.olaPos] = 0
			r = l
			if v.channels == 2 {
				r = v.ch[1].ola[v.olaPos]
				v.ch[1].ola[v.olaPos] = 0
			}
			v.olaPos++
			if v.olaPos >= frameSize {
				v.olaPos = 0
			}
		}
		out[i].L = l
		out[i].R = r
	}
}

// Buffer advances pending analysis outside the audio block, keeping
// Prepare's amortized contract. It is a no-op when no full hop has
// accumulated.
func (v *PhaseVocoder) Buffer(params *dsp.Parameters) {
	if v.ch[0].fifo != nil && v.pending >= hopSize {
		v.analyze(params)
		v.pending = 0
	}
}

// analyze runs one STFT frame per channel: window, transform the
// spectrum per mode, resynthesize and overlap-add.
func (v *PhaseVocoder) analyze(params *dsp.Parameters) {
	sp := &params.Spectral
	for c := 0; c < v.channels; c++ {
		ch := &v.ch[c]
		for i := 0; i < frameSize; i++ {
			p := v.fifoPos + int32(i)
			if p >= frameSize {
				p -= frameSize
			}
			v.seq[i] = float64(ch.fifo[p]) * v.win[i]
		}
		v.fft.Coefficients(v.coeff, v.seq)

		switch v.transform {
		case TransformationFrame:
			v.transformFrame(sp)
		default:
			v.transformCloud(ch, sp, params.Freeze)
		}

		v.fft.Sequence(v.seq, v.coeff)
		norm := 1.0 / float64(frameSize)
		pos := v.olaPos
		for i := 0; i < frameSize; i++ {
			// Sine window on both analysis and synthesis sums to
			// unity at 4x overlap.
			ch.ola[pos] += float32(v.seq[i] * norm * v.win[i] * 2 / 3)
			pos++
			if pos >= frameSize {
				pos = 0
			}
		}
	}
	v.ready = true
}

// transformFrame applies quantization, warp and phase randomization to
// the spectrum in place.
func (v *PhaseVocoder) transformFrame(sp *dsp.SpectralParameters) {
	quantSteps := float64(0)
	if sp.Quantization > 0.01 {
		quantSteps = math.Exp2(float64(1-sp.Quantization) * 10)
	}
	warp := float64(dsp.Constrain(sp.Warp, 0, 1))
	warpExp := math.Exp2((warp - 0.5) * 4)
	random := dsp.Constrain(sp.PhaseRandomization, 0, 1)

	var mags [numBins]float64
	var phs [numBins]float64
	for b := 0; b < numBins; b++ {
		mags[b] = cmplxAbs(v.coeff[b])
		phs[b] = cmplxPhase(v.coeff[b])
	}
	for b := 0; b < numBins; b++ {
		src := b
		if warpExp != 1 {
			src = int(math.Pow(float64(b)/float64(numBins-1), warpExp) * float64(numBins-1))
		}
		mag := mags[src]
		if quantSteps > 0 {
			mag = math.Floor(mag*quantSteps) / quantSteps
		}
		phase := phs[src]
		if random > 0 {
			phase += float64(v.random()) * 2 * math.Pi * float64(random)
		}
		v.coeff[b] = complex(mag*math.Cos(phase), mag*math.Sin(phase))
	}
}

// transformCloud resynthesizes from the held magnitude spectrum,
// refreshing it stochastically at the configured rate. Freeze pins the
// held spectrum.
func (v *PhaseVocoder) transformCloud(ch *vocoderChannel, sp *dsp.SpectralParameters, freeze bool) {
	refresh := dsp.Constrain(sp.RefreshRate, 0.01, 1)
	if !freeze && v.random() < refresh {
		for b := 0; b < numBins; b++ {
			ch.held[b] = float32(cmplxAbs(v.coeff[b]))
		}
	}
	random := dsp.Constrain(sp.PhaseRandomization, 0, 1)
	for b := 0; b < numBins; b++ {
		// Phases advance freely; randomization scatters them.
		ch.phases[b] += float32(2*math.Pi*hopSize) * float32(b) / frameSize
		if random > 0 {
			ch.phases[b] += v.random() * 2 * math.Pi * random
		}
		if ch.phases[b] > 2*math.Pi*1024 {
			ch.phases[b] = float32(math.Mod(float64(ch.phases[b]), 2*math.Pi))
		}
		mag := float64(ch.held[b])
		v.coeff[b] = complex(mag*math.Cos(float64(ch.phases[b])), mag*math.Sin(float64(ch.phases[b])))
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func cmplxPhase(c complex128) float64 {
	return math.Atan2(imag(c), real(c))
}
