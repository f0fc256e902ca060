/*
Package kif implements the Kompakt Icon Format, a palette based run-length
encoded bitmap format for small icons.

A file is a 16 byte header followed by the palette, one 4 byte RGBA record
per entry, and finally the run-length stream, one 2 byte (palette index, run
length) pair per entry. All multi-byte header fields are little-endian and
there is no padding anywhere:

	offset  size  field
	0       4     magic, 'kif1' as a 32-bit value
	4       1     source bytes per pixel, 3 or 4
	5       1     compression, always 0
	6       2     number of palette entries
	8       2     width
	10      2     height
	12      4     number of run-length entries

Palette entry 0 is always transparent black. Pixels are stored row-major from
the top-left corner with no stride padding.
*/
package kif

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Magic is the signature at the start of every file.
	Magic uint32 = 0x6b696631 // 'kif1'

	// HeaderSize is the size in bytes of the serialized Header
	HeaderSize = 16

	paletteEntrySize = 4
	runSize          = 2

	// MaxPaletteEntries is the hard cap on the number of palette entries
	MaxPaletteEntries = 1 << 16

	// MaxIndex is the largest palette index reachable from the
	// run-length stream
	MaxIndex = 0xff

	// MaxRun is the longest run a single run-length entry can hold
	MaxRun = 0xff
)

var (
	// ErrInvalidArgument is returned for a nil buffer or header, a pixel
	// buffer that doesn't match the image dimensions, or an unsupported
	// output depth.
	ErrInvalidArgument = errors.New("kif: invalid argument")

	// ErrMalformedInput is returned when serialized data is truncated or
	// internally inconsistent.
	ErrMalformedInput = errors.New("kif: malformed input")

	// ErrPaletteOverflow is returned when an image has more colors than
	// the run-length stream can address.
	ErrPaletteOverflow = errors.New("kif: palette overflow")
)

// Header is the fixed size header found at the start of every file. It
// implements the encoding.BinaryMarshaler and encoding.BinaryUnmarshaler
// interfaces.
type Header struct {
	Magic          uint32
	BPP            uint8
	Compressed     uint8
	PaletteEntries uint16
	Width          uint16
	Height         uint16
	RLEEntries     uint32
}

// Pixels returns the number of pixels described by the header.
func (h Header) Pixels() int {
	return int(h.Width) * int(h.Height)
}

// Size returns the total serialized size in bytes implied by the header.
func (h Header) Size() int {
	return HeaderSize + int(h.PaletteEntries)*paletteEntrySize + int(h.RLEEntries)*runSize
}

func (h Header) runOffset() int {
	return HeaderSize + int(h.PaletteEntries)*paletteEntrySize
}

// MarshalBinary encodes the header into its 16 byte form.
func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	h.put(b)
	return b, nil
}

func (h Header) put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], h.Magic)
	b[4] = h.BPP
	b[5] = h.Compressed
	binary.LittleEndian.PutUint16(b[6:], h.PaletteEntries)
	binary.LittleEndian.PutUint16(b[8:], h.Width)
	binary.LittleEndian.PutUint16(b[10:], h.Height)
	binary.LittleEndian.PutUint32(b[12:], h.RLEEntries)
}

// UnmarshalBinary decodes the header from the first 16 bytes of b. No
// validation of the field values is performed.
func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("%w: header too small (%d bytes)", ErrMalformedInput, len(b))
	}
	h.Magic = binary.LittleEndian.Uint32(b[0:])
	h.BPP = b[4]
	h.Compressed = b[5]
	h.PaletteEntries = binary.LittleEndian.Uint16(b[6:])
	h.Width = binary.LittleEndian.Uint16(b[8:])
	h.Height = binary.LittleEndian.Uint16(b[10:])
	h.RLEEntries = binary.LittleEndian.Uint32(b[12:])
	return nil
}

func (h Header) validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("%w: bad magic %#08x", ErrMalformedInput, h.Magic)
	}
	if h.BPP != 3 && h.BPP != 4 {
		return fmt.Errorf("%w: bad bytes per pixel %d", ErrMalformedInput, h.BPP)
	}
	if h.Compressed != 0 {
		return fmt.Errorf("%w: unsupported compression %d", ErrMalformedInput, h.Compressed)
	}
	return nil
}

// Run is a single run-length entry; Length repetitions of the palette color
// at Index.
type Run struct {
	Index  uint8
	Length uint8
}
