package kif

import (
	"encoding/binary"
	"fmt"
)

func runs(pix []byte, p *Palette) ([]Run, error) {
	n := len(pix) >> 2
	out := make([]Run, 0, n)
	for i := 0; i < n; {
		v := binary.LittleEndian.Uint32(pix[i<<2:])

		idx, ok := p.lookup(v)
		if !ok {
			return nil, fmt.Errorf("%w: color of pixel %d dropped from full palette", ErrPaletteOverflow, i)
		}
		if idx > MaxIndex {
			return nil, fmt.Errorf("%w: pixel %d needs palette index %d", ErrPaletteOverflow, i, idx)
		}

		// Extend the run while the next pixel is identical
		j := i + 1
		for j < n && j-i < MaxRun && binary.LittleEndian.Uint32(pix[j<<2:]) == v {
			j++
		}

		out = append(out, Run{Index: uint8(idx), Length: uint8(j - i)})
		i = j
	}
	return out, nil
}

// Encode encodes pix, a buffer of h.Width by h.Height 4 byte RGBA pixels in
// row-major order, and returns the serialized file. The remaining fields of
// h are overwritten to describe the returned data.
//
// ErrPaletteOverflow is returned if the image has more distinct colors than
// the run-length stream can address; no lossy fallback is applied.
func Encode(pix []byte, h *Header) ([]byte, error) {
	if pix == nil || h == nil {
		return nil, fmt.Errorf("%w: nil pixels or header", ErrInvalidArgument)
	}
	if len(pix) != h.Pixels()*4 {
		return nil, fmt.Errorf("%w: %d bytes of pixels for a %dx%d image", ErrInvalidArgument, len(pix), h.Width, h.Height)
	}

	p := BuildPalette(pix)

	r, err := runs(pix, p)
	if err != nil {
		return nil, err
	}

	h.Magic = Magic
	h.BPP = 4
	h.Compressed = 0
	h.PaletteEntries = uint16(p.Len())
	h.RLEEntries = uint32(len(r))

	b := make([]byte, h.Size())
	h.put(b)

	o := HeaderSize
	for _, c := range p.colors {
		b[o+0] = c.R
		b[o+1] = c.G
		b[o+2] = c.B
		b[o+3] = c.A
		o += paletteEntrySize
	}

	for _, e := range r {
		b[o+0] = e.Index
		b[o+1] = e.Length
		o += runSize
	}

	return b, nil
}
