// Package superparasites implements a real-time granular audio
// processor in pure Go: a texture synthesizer that records incoming
// audio into a circular buffer and plays it back through one of eight
// engines, from overlapping windowed grains to a phase vocoder and a
// resonant comb bank.
//
// # Playback modes
//
//   - [PlaybackModeGranular]: overlapping grains drawn from the buffer,
//     with position, size, pitch, density and window-shape control.
//   - [PlaybackModeStretch]: time stretching built on a WSOLA splice
//     search.
//   - [PlaybackModeLoopingDelay]: a delay line whose frozen content
//     loops at an adjustable pitch.
//   - [PlaybackModeSpectral]: an FFT phase vocoder with spectral
//     quantization, warping and phase randomization.
//   - [PlaybackModeOliverb]: a modulated, pitch-shifting reverb tank.
//   - [PlaybackModeResonestor]: a chord-tuned resonating comb bank
//     excited by the input or by noise bursts.
//   - [PlaybackModeSpectralCloud]: a stochastically refreshed held
//     spectrum with a saturating output stage.
//   - [PlaybackModeKammerl]: probabilistic beat-slice repetition with
//     pitch bending and distortion.
//
// All modes share the same post-processing chain: diffusion, pitch
// shifting, filtering, feedback, reverberation and an equal-power
// dry/wet crossfade.
//
// # Quick start
//
//	p, err := superparasites.New(superparasites.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p.SetPlaybackMode(superparasites.PlaybackModeGranular)
//
//	params := p.MutableParameters()
//	params.Position = 0.3
//	params.Size = 0.5
//	params.DryWet = 1
//
//	for {
//	    input := nextBlock()               // []superparasites.ShortFrame
//	    output := make([]superparasites.ShortFrame, len(input))
//	    p.Process(input, output)
//	    p.Prepare()                        // apply pending changes
//	    emit(output)
//	}
//
// # Memory model
//
// The processor works out of two fixed memory regions allocated at
// construction and re-partitioned whenever the mode or quality
// changes. Process and Prepare never allocate, which keeps the hot
// path safe for audio callbacks.
//
// # Persistence
//
// SavePersistentData serializes the audio buffers and enough state to
// resume frozen on the same material; LoadPersistentData restores such
// a stream, adopting the saved mode family and quality if they differ
// from the active ones.
//
// The package is a Go port of the audio engine of the "superparasites"
// firmware for the Mutable Instruments Clouds eurorack module.
package superparasites
