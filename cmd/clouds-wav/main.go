// Command clouds-wav runs a WAV file through the granular processor.
//
// Usage:
//
//	clouds-wav -mode granular -position 0.3 -size 0.5 input.wav output.wav
//	clouds-wav -mode spectral -drywet 1 input.wav output.wav
//	clouds-wav -mode granular -freeze -load state.bin input.wav output.wav
//	clouds-wav -mode granular -save state.bin input.wav output.wav
//
// The output is always stereo 16-bit at the input sample rate. With
// -save, the processor state (audio buffers included) is written after
// the last block; -load restores such a state before processing and
// starts frozen on the restored audio.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	sp "github.com/sbergen/superparasites"
)

const blockFrames = 32

var modeNames = map[string]sp.PlaybackMode{
	"granular":       sp.PlaybackModeGranular,
	"stretch":        sp.PlaybackModeStretch,
	"looping_delay":  sp.PlaybackModeLoopingDelay,
	"spectral":       sp.PlaybackModeSpectral,
	"oliverb":        sp.PlaybackModeOliverb,
	"resonestor":     sp.PlaybackModeResonestor,
	"spectral_cloud": sp.PlaybackModeSpectralCloud,
	"kammerl":        sp.PlaybackModeKammerl,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	mode := flag.String("mode", "granular", "Playback mode: "+modeList())
	quality := flag.Int("quality", 0, "Quality code 0-3 (bit 0: mono, bit 1: 8-bit low fidelity)")
	position := flag.Float64("position", 0.5, "Buffer playback position (0-1)")
	size := flag.Float64("size", 0.5, "Grain size / loop length (0-1)")
	pitch := flag.Float64("pitch", 0, "Transposition in semitones (-48..48)")
	density := flag.Float64("density", 0.5, "Grain density (0-1)")
	texture := flag.Float64("texture", 0.5, "Grain texture / filter (0-1)")
	drywet := flag.Float64("drywet", 0.5, "Dry/wet balance (0-1)")
	spread := flag.Float64("spread", 0.5, "Stereo spread (0-1)")
	feedback := flag.Float64("feedback", 0, "Feedback amount (0-1)")
	reverb := flag.Float64("reverb", 0, "Reverb amount (0-1)")
	freeze := flag.Bool("freeze", false, "Freeze the buffer content")
	saveState := flag.String("save", "", "Write processor state to file after processing")
	loadState := flag.String("load", "", "Restore processor state from file before processing")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav output.wav\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
		return fmt.Errorf("insufficient arguments")
	}

	playbackMode, ok := modeNames[*mode]
	if !ok {
		return fmt.Errorf("unknown mode %q (want one of %s)", *mode, modeList())
	}

	inputFile, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer inputFile.Close()

	decoder := wav.NewDecoder(inputFile)
	if !decoder.IsValidFile() {
		return fmt.Errorf("invalid WAV file: %s", args[0])
	}
	format := decoder.Format()
	if *verbose {
		log.Printf("Input format: %d Hz, %d channels, %d-bit",
			format.SampleRate, format.NumChannels, decoder.BitDepth)
	}

	proc, err := sp.New(sp.Config{SampleRate: float64(format.SampleRate)})
	if err != nil {
		return err
	}
	proc.SetPlaybackMode(playbackMode)
	proc.SetQuality(*quality)
	if err := proc.Prepare(); err != nil {
		return err
	}

	if *loadState != "" {
		data, err := os.ReadFile(*loadState)
		if err != nil {
			return fmt.Errorf("failed to read state file: %w", err)
		}
		if err := proc.LoadPersistentData(data); err != nil {
			return fmt.Errorf("failed to restore state: %w", err)
		}
		if *verbose {
			log.Printf("Restored state from %s (mode %s, quality %d)",
				*loadState, proc.PlaybackMode(), proc.Quality())
		}
	}

	params := proc.MutableParameters()
	params.Position = float32(*position)
	params.Size = float32(*size)
	params.Pitch = float32(*pitch)
	params.Density = float32(*density)
	params.Texture = float32(*texture)
	params.DryWet = float32(*drywet)
	params.StereoSpread = float32(*spread)
	params.Feedback = float32(*feedback)
	params.Reverb = float32(*reverb)
	params.Freeze = *freeze

	outputFile, err := os.Create(args[1])
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer outputFile.Close()

	encoder := wav.NewEncoder(outputFile, format.SampleRate, 16, 2, 1)

	if err := process(proc, decoder, encoder, format); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize output: %w", err)
	}

	if *saveState != "" {
		if err := os.WriteFile(*saveState, proc.SavePersistentData(), 0o644); err != nil {
			return fmt.Errorf("failed to write state file: %w", err)
		}
		if *verbose {
			log.Printf("Saved state to %s", *saveState)
		}
	}
	return nil
}

// process streams the input through the processor one block at a time.
func process(proc *sp.Processor, decoder *wav.Decoder, encoder *wav.Encoder, format *audio.Format) error {
	channels := format.NumChannels
	scale := 1 << (decoder.BitDepth - 1)

	intBuf := &audio.IntBuffer{
		Data:   make([]int, blockFrames*channels),
		Format: format,
	}
	input := make([]sp.ShortFrame, blockFrames)
	output := make([]sp.ShortFrame, blockFrames)
	outBuf := &audio.IntBuffer{
		Data:   make([]int, blockFrames*2),
		Format: &audio.Format{NumChannels: 2, SampleRate: format.SampleRate},
	}

	for {
		n, err := decoder.PCMBuffer(intBuf)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if n == 0 {
			return nil
		}
		frames := n / channels

		for i := 0; i < frames; i++ {
			l := intBuf.Data[i*channels] * 32768 / scale
			r := l
			if channels > 1 {
				r = intBuf.Data[i*channels+1] * 32768 / scale
			}
			input[i] = sp.ShortFrame{L: clamp16(l), R: clamp16(r)}
		}

		proc.Process(input[:frames], output[:frames])
		if err := proc.Prepare(); err != nil {
			return err
		}

		for i := 0; i < frames; i++ {
			outBuf.Data[i*2] = int(output[i].L)
			outBuf.Data[i*2+1] = int(output[i].R)
		}
		outBuf.Data = outBuf.Data[:frames*2]
		if err := encoder.Write(outBuf); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		outBuf.Data = outBuf.Data[:cap(outBuf.Data)]
	}
}

func clamp16(v int) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func modeList() string {
	names := make([]string, 0, len(modeNames))
	for name := range modeNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
