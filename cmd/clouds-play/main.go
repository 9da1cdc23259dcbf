// Command clouds-play streams a synthesized pluck sequence through the
// granular processor to the default audio output.
//
// Usage:
//
//	clouds-play
//	clouds-play -mode spectral -drywet 1
//	clouds-play -mode granular -density 0.8 -texture 0.6 -duration 30s
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"

	sp "github.com/sbergen/superparasites"
)

const sampleRate = 32000

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	mode := flag.String("mode", "granular", "Playback mode name")
	position := flag.Float64("position", 0.2, "Buffer playback position (0-1)")
	size := flag.Float64("size", 0.4, "Grain size (0-1)")
	pitch := flag.Float64("pitch", 0, "Transposition in semitones")
	density := flag.Float64("density", 0.7, "Grain density (0-1)")
	texture := flag.Float64("texture", 0.5, "Grain texture (0-1)")
	drywet := flag.Float64("drywet", 0.8, "Dry/wet balance (0-1)")
	reverb := flag.Float64("reverb", 0.4, "Reverb amount (0-1)")
	duration := flag.Duration("duration", 20*time.Second, "Playback duration")
	flag.Parse()

	playbackMode, err := parseMode(*mode)
	if err != nil {
		return err
	}

	proc, err := sp.New(sp.Config{SampleRate: sampleRate})
	if err != nil {
		return err
	}
	proc.SetPlaybackMode(playbackMode)
	if err := proc.Prepare(); err != nil {
		return err
	}

	params := proc.MutableParameters()
	params.Position = float32(*position)
	params.Size = float32(*size)
	params.Pitch = float32(*pitch)
	params.Density = float32(*density)
	params.Texture = float32(*texture)
	params.DryWet = float32(*drywet)
	params.StereoSpread = 0.5
	params.Reverb = float32(*reverb)

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(&stream{proc: proc})
	player.Play()
	fmt.Fprintf(os.Stderr, "Playing %s mode for %s...\n", playbackMode, *duration)
	time.Sleep(*duration)
	return player.Close()
}

func parseMode(name string) (sp.PlaybackMode, error) {
	for m := sp.PlaybackModeGranular; m < sp.PlaybackModeLast; m++ {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", name)
}

// stream is the oto pull source: it synthesizes the dry pluck
// sequence and processes it block by block.
type stream struct {
	proc    *sp.Processor
	sampleN int
	phase   float64
	pending []byte
}

// A short minor arpeggio, one pluck every half second.
var pluckNotes = []float64{220, 261.63, 329.63, 440, 329.63, 261.63}

const blockFrames = 32

// Read produces interleaved stereo int16 little-endian samples.
func (s *stream) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) == 0 {
			s.pending = s.renderBlock()
		}
		c := copy(p[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *stream) renderBlock() []byte {
	input := make([]sp.ShortFrame, blockFrames)
	output := make([]sp.ShortFrame, blockFrames)

	const pluckInterval = sampleRate / 2
	for i := range input {
		note := s.sampleN / pluckInterval % len(pluckNotes)
		age := float64(s.sampleN%pluckInterval) / sampleRate
		env := math.Exp(-age * 8)
		s.phase += 2 * math.Pi * pluckNotes[note] / sampleRate
		v := int16(math.Sin(s.phase) * env * 12000)
		input[i] = sp.ShortFrame{L: v, R: v}
		s.sampleN++
	}

	s.proc.Process(input, output)
	if err := s.proc.Prepare(); err != nil {
		// Prepare cannot fail once the initial configuration was
		// accepted; emit silence if it somehow does.
		for i := range output {
			output[i] = sp.ShortFrame{}
		}
	}

	buf := make([]byte, blockFrames*4)
	for i, f := range output {
		binary.LittleEndian.PutUint16(buf[i*4:], uint16(f.L))
		binary.LittleEndian.PutUint16(buf[i*4+2:], uint16(f.R))
	}
	return buf
}
