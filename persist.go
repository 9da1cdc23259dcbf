package superparasites

import (
	"encoding/binary"
	"fmt"
)

// The persistence protocol saves the processor state as a sequence of
// tagged blocks: a 16-byte state header followed by one raw audio
// buffer image per channel. Each block is serialized as a 4-byte ASCII
// tag, a little-endian uint32 payload size and the payload itself.
//
// Loading validates every block against the layout the processor would
// save in its current configuration. The state header carries enough
// information to recover from a mismatch between the saved and the
// active mode or quality: after the header is read, the processor
// reconfigures itself and the remaining blocks are validated against
// the recovered layout.

const persistentStateSize = 16

var (
	tagState  = [4]byte{'S', 't', 'a', 't'}
	tagBuffer = [4]byte{'b', 'u', 'f', 'f'}
)

// PersistentBlock is one unit of the save format. Data aliases live
// processor memory; it is only valid until the next Prepare.
type PersistentBlock struct {
	Tag  [4]byte
	Data []byte
}

// persistentState is the contents of the "Stat" block.
type persistentState struct {
	writeHead [2]uint32
	quality   uint32
	spectral  uint32
}

// spectralCode identifies the family a saved buffer image belongs to,
// so that a load into the wrong mode can be corrected.
func spectralCode(mode PlaybackMode) uint32 {
	switch mode {
	case PlaybackModeSpectral:
		return 1
	case PlaybackModeSpectralCloud:
		return 2
	default:
		return 0
	}
}

func modeFromSpectralCode(code uint32) PlaybackMode {
	switch code {
	case 1:
		return PlaybackModeSpectral
	case 2:
		return PlaybackModeSpectralCloud
	default:
		return PlaybackModeGranular
	}
}

func (p *Processor) encodeState() {
	raw := p.persistentRaw[:]
	binary.LittleEndian.PutUint32(raw[0:], p.persistent.writeHead[0])
	binary.LittleEndian.PutUint32(raw[4:], p.persistent.writeHead[1])
	binary.LittleEndian.PutUint32(raw[8:], p.persistent.quality)
	binary.LittleEndian.PutUint32(raw[12:], p.persistent.spectral)
}

func (p *Processor) decodeState() {
	raw := p.persistentRaw[:]
	p.persistent.writeHead[0] = binary.LittleEndian.Uint32(raw[0:])
	p.persistent.writeHead[1] = binary.LittleEndian.Uint32(raw[4:])
	p.persistent.quality = binary.LittleEndian.Uint32(raw[8:])
	p.persistent.spectral = binary.LittleEndian.Uint32(raw[12:])
}

// PreparePersistentData snapshots the mutable state (write heads,
// quality, mode family) into the state block. Call it before
// GetPersistentData when saving.
func (p *Processor) PreparePersistentData() {
	p.persistent.writeHead[0] = uint32(p.buffers[0].Head())
	p.persistent.writeHead[1] = uint32(p.buffers[1].Head())
	p.persistent.quality = uint32(p.Quality())
	p.persistent.spectral = spectralCode(p.mode)
	p.encodeState()
}

// GetPersistentData returns the block list describing the current
// configuration: the state header plus one audio buffer image per
// channel. The block data aliases processor memory.
func (p *Processor) GetPersistentData() []PersistentBlock {
	blocks := append(p.blockScratch[:0], PersistentBlock{
		Tag:  tagState,
		Data: p.persistentRaw[:],
	})
	for ch := 0; ch < p.numChannels; ch++ {
		size := len(p.sampleMem[p.numChannels-1])
		blocks = append(blocks, PersistentBlock{
			Tag:  tagBuffer,
			Data: p.sampleMem[ch][:size],
		})
	}
	return blocks
}

// SavePersistentData serializes the full processor state, audio
// buffers included, into a self-describing byte stream.
func (p *Processor) SavePersistentData() []byte {
	p.PreparePersistentData()
	blocks := p.GetPersistentData()

	size := 0
	for _, b := range blocks {
		size += 8 + len(b.Data)
	}
	out := make([]byte, 0, size)
	var header [8]byte
	for _, b := range blocks {
		copy(header[:4], b.Tag[:])
		binary.LittleEndian.PutUint32(header[4:], uint32(len(b.Data)))
		out = append(out, header[:]...)
		out = append(out, b.Data...)
	}
	return out
}

// LoadPersistentData restores a stream produced by SavePersistentData.
// The output is silenced for the duration of the load. A saved quality
// or mode family that differs from the active one is adopted from the
// state header before the buffer images are read. On success the
// processor resumes frozen on the restored audio.
func (p *Processor) LoadPersistentData(data []byte) error {
	p.silence = true
	defer func() { p.silence = false }()

	blocks := p.GetPersistentData()
	for i := 0; i < len(blocks); i++ {
		b := blocks[i]
		if len(data) < 8 {
			return fmt.Errorf("truncated block %d header: %w", i, ErrFormatMismatch)
		}
		var tag [4]byte
		copy(tag[:], data[:4])
		size := int(binary.LittleEndian.Uint32(data[4:8]))
		data = data[8:]
		if tag != b.Tag || size != len(b.Data) {
			return fmt.Errorf("block %d: got tag %q size %d, want %q size %d: %w",
				i, tag[:], size, b.Tag[:], len(b.Data), ErrFormatMismatch)
		}
		if len(data) < size {
			return fmt.Errorf("truncated block %d payload: %w", i, ErrFormatMismatch)
		}
		copy(b.Data, data[:size])
		data = data[size:]

		if i == 0 {
			// The header tells which configuration the stream was
			// saved from. Adopt it, rebuild the partition, and
			// validate the remaining blocks against the new layout.
			p.decodeState()
			if spectralCode(p.mode) != p.persistent.spectral {
				p.SetPlaybackMode(modeFromSpectralCode(p.persistent.spectral))
			}
			p.SetQuality(int(p.persistent.quality))
			if err := p.Prepare(); err != nil {
				return err
			}
			blocks = p.GetPersistentData()
		}
	}

	for ch := 0; ch < p.numChannels; ch++ {
		if p.buffers[ch].Size() > 0 {
			p.buffers[ch].Resync(int32(p.persistent.writeHead[ch]))
		}
	}
	p.parameters.Freeze = true
	return nil
}
