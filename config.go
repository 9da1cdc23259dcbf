package superparasites

import (
	"errors"
	"fmt"

	"github.com/sbergen/superparasites/internal/fx"
)

// Common errors returned by the processor.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid processor configuration")

	// ErrFormatMismatch indicates that a persisted state stream does
	// not match the expected tagged-block layout.
	ErrFormatMismatch = errors.New("persistent data format mismatch")
)

// Config holds the construction-time configuration of a Processor.
// Runtime settings (mode, quality, mutes, bypass) are changed through
// the Processor's setters.
type Config struct {
	// SampleRate is the processing rate in Hz. 0 selects
	// DefaultSampleRate.
	SampleRate float64

	// LargeBufferSize and SmallBufferSize are the sizes in bytes of
	// the two raw memory regions the processor partitions per mode.
	// 0 selects the defaults. Both must be multiples of 4.
	LargeBufferSize int
	SmallBufferSize int

	// BlockSize caps the number of frames per Process call. 0 selects
	// MaxBlockSize.
	BlockSize int
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (c Config) withDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.LargeBufferSize == 0 {
		c.LargeBufferSize = DefaultLargeBufferSize
	}
	if c.SmallBufferSize == 0 {
		c.SmallBufferSize = DefaultSmallBufferSize
	}
	if c.BlockSize == 0 {
		c.BlockSize = MaxBlockSize
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("%w: sample rate %v out of range", ErrInvalidConfig, c.SampleRate)
	}
	if c.BlockSize < 1 || c.BlockSize > MaxBlockSize {
		return fmt.Errorf("%w: block size %d out of range (1-%d)", ErrInvalidConfig, c.BlockSize, MaxBlockSize)
	}
	if c.BlockSize%2 != 0 {
		return fmt.Errorf("%w: block size %d must be even for the low-fidelity path", ErrInvalidConfig, c.BlockSize)
	}
	if c.LargeBufferSize%4 != 0 || c.SmallBufferSize%4 != 0 {
		return fmt.Errorf("%w: region sizes must be multiples of 4", ErrInvalidConfig)
	}
	if c.SmallBufferSize > c.LargeBufferSize {
		return fmt.Errorf("%w: small region (%d) larger than large region (%d)",
			ErrInvalidConfig, c.SmallBufferSize, c.LargeBufferSize)
	}
	// The stereo partition carves the workspace out of the large
	// region; the mono partition uses the whole small region for it.
	if c.LargeBufferSize-c.SmallBufferSize < minWorkspaceBytes {
		return fmt.Errorf("%w: large region must exceed small region by at least %d workspace bytes",
			ErrInvalidConfig, minWorkspaceBytes)
	}
	if c.SmallBufferSize < minWorkspaceBytes {
		return fmt.Errorf("%w: small region must hold at least %d workspace bytes",
			ErrInvalidConfig, minWorkspaceBytes)
	}
	if c.SmallBufferSize < fx.ResonestorWorkspace*4 {
		return fmt.Errorf("%w: small region must hold the %d-byte resonator workspace",
			ErrInvalidConfig, fx.ResonestorWorkspace*4)
	}
	return nil
}
