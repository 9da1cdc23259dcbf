package superparasites

import (
	"fmt"
	"testing"
)

// BenchmarkProcessor_Process measures the per-block cost of every mode
// at the default stereo 16-bit quality.
func BenchmarkProcessor_Process(b *testing.B) {
	for mode := PlaybackModeGranular; mode < PlaybackModeLast; mode++ {
		b.Run(mode.String(), func(b *testing.B) {
			p, err := New(Config{})
			if err != nil {
				b.Fatal(err)
			}
			p.SetPlaybackMode(mode)
			if err := p.Prepare(); err != nil {
				b.Fatal(err)
			}

			params := p.MutableParameters()
			params.Position = 0.3
			params.Size = 0.5
			params.Density = 0.6
			params.Texture = 0.4
			params.DryWet = 0.7
			params.StereoSpread = 0.5
			params.Reverb = 0.3

			in := sineInput(testBlock, 0, 0.25)
			out := make([]ShortFrame, testBlock)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				p.Process(in, out)
				if err := p.Prepare(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkProcessor_LowFidelity measures the 8-bit half-rate path.
func BenchmarkProcessor_LowFidelity(b *testing.B) {
	for _, mono := range []bool{false, true} {
		b.Run(fmt.Sprintf("mono_%v", mono), func(b *testing.B) {
			p, err := New(Config{})
			if err != nil {
				b.Fatal(err)
			}
			quality := 2
			if mono {
				quality = 3
			}
			p.SetQuality(quality)
			if err := p.Prepare(); err != nil {
				b.Fatal(err)
			}

			params := p.MutableParameters()
			params.Density = 0.6
			params.Size = 0.5
			params.DryWet = 1

			in := sineInput(testBlock, 0, 0.25)
			out := make([]ShortFrame, testBlock)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				p.Process(in, out)
				if err := p.Prepare(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
