package kif

import (
	"fmt"
	"image/color"
)

// Icon is a parsed but not yet expanded file.
type Icon struct {
	Header  Header
	Palette []color.NRGBA
	Runs    []Run
}

// DecodeHeader reads and validates the header at the start of data.
func DecodeHeader(data []byte) (Header, error) {
	var h Header
	if data == nil {
		return h, fmt.Errorf("%w: nil data", ErrInvalidArgument)
	}
	if err := h.UnmarshalBinary(data); err != nil {
		return h, err
	}
	if err := h.validate(); err != nil {
		return h, err
	}
	return h, nil
}

// Parse validates data and returns the header, palette and run-length
// entries it contains.
func Parse(data []byte) (*Icon, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}

	switch size := h.Size(); {
	case len(data) < size:
		return nil, fmt.Errorf("%w: %d bytes, header describes %d", ErrMalformedInput, len(data), size)
	case len(data) > size:
		return nil, fmt.Errorf("%w: %d bytes of trailing data", ErrMalformedInput, len(data)-size)
	}

	icon := &Icon{
		Header:  h,
		Palette: make([]color.NRGBA, h.PaletteEntries),
		Runs:    make([]Run, h.RLEEntries),
	}

	b := data[HeaderSize:h.runOffset()]
	for i := range icon.Palette {
		icon.Palette[i] = color.NRGBA{b[0], b[1], b[2], b[3]}
		b = b[paletteEntrySize:]
	}

	total, want := 0, h.Pixels()
	b = data[h.runOffset():]
	for i := range icon.Runs {
		r := Run{Index: b[0], Length: b[1]}
		b = b[runSize:]

		if int(r.Index) >= len(icon.Palette) {
			return nil, fmt.Errorf("%w: run %d uses palette index %d of %d", ErrMalformedInput, i, r.Index, len(icon.Palette))
		}
		if r.Length == 0 {
			return nil, fmt.Errorf("%w: run %d is empty", ErrMalformedInput, i)
		}
		if total += int(r.Length); total > want {
			return nil, fmt.Errorf("%w: runs exceed %d pixels", ErrMalformedInput, want)
		}

		icon.Runs[i] = r
	}
	if total != want {
		return nil, fmt.Errorf("%w: runs cover %d of %d pixels", ErrMalformedInput, total, want)
	}

	return icon, nil
}

// Pixels expands the run-length entries into a row-major pixel buffer with
// either 24 (RGB) or 32 (RGBA) bits per pixel.
func (icon *Icon) Pixels(depth int) ([]byte, error) {
	if depth != 24 && depth != 32 {
		return nil, fmt.Errorf("%w: output depth %d", ErrInvalidArgument, depth)
	}
	bpp := depth >> 3

	pix := make([]byte, icon.Header.Pixels()*bpp)
	o := 0
	for _, r := range icon.Runs {
		c := icon.Palette[r.Index]
		for j := 0; j < int(r.Length); j++ {
			if o+bpp > len(pix) {
				return nil, fmt.Errorf("%w: runs exceed %d pixels", ErrMalformedInput, icon.Header.Pixels())
			}
			pix[o+0] = c.R
			pix[o+1] = c.G
			pix[o+2] = c.B
			if bpp == 4 {
				pix[o+3] = c.A
			}
			o += bpp
		}
	}
	return pix, nil
}

// Decode decodes data and returns the pixels with the requested depth, 24
// or 32 bits per pixel, along with the file header.
func Decode(data []byte, depth int) ([]byte, Header, error) {
	if depth != 24 && depth != 32 {
		return nil, Header{}, fmt.Errorf("%w: output depth %d", ErrInvalidArgument, depth)
	}

	icon, err := Parse(data)
	if err != nil {
		return nil, Header{}, err
	}

	pix, err := icon.Pixels(depth)
	if err != nil {
		return nil, Header{}, err
	}

	return pix, icon.Header, nil
}
