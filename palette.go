package kif

import (
	"encoding/binary"
	"image/color"
)

// Palette is an ordered, deduplicated list of colors. Entry 0 is always
// transparent black and the remaining entries follow the order in which
// each color was first seen.
type Palette struct {
	colors  []color.NRGBA
	index   map[uint32]int
	dropped int
}

func pack(c color.NRGBA) uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.A)<<24
}

func newPalette() *Palette {
	p := &Palette{
		index: make(map[uint32]int),
	}
	p.add(0)
	return p
}

func (p *Palette) add(v uint32) {
	if _, ok := p.index[v]; ok {
		return
	}
	if len(p.colors) == MaxPaletteEntries {
		p.dropped++
		return
	}
	p.index[v] = len(p.colors)
	p.colors = append(p.colors, color.NRGBA{uint8(v), uint8(v >> 8), uint8(v >> 16), uint8(v >> 24)})
}

// BuildPalette scans pix, a buffer of 4 byte RGBA pixels, and returns the
// palette of distinct colors. Once MaxPaletteEntries colors have been
// collected any further new colors are counted but not added. Any trailing
// partial pixel is ignored.
func BuildPalette(pix []byte) *Palette {
	p := newPalette()
	for i := 0; i+4 <= len(pix); i += 4 {
		p.add(binary.LittleEndian.Uint32(pix[i:]))
	}
	return p
}

// Len returns the number of palette entries.
func (p *Palette) Len() int {
	return len(p.colors)
}

// Dropped returns how many pixels carried a new color after the palette was
// already full.
func (p *Palette) Dropped() int {
	return p.dropped
}

// Colors returns the palette entries in index order.
func (p *Palette) Colors() []color.NRGBA {
	return append([]color.NRGBA(nil), p.colors...)
}

// Index returns the palette index of c and whether it is present.
func (p *Palette) Index(c color.NRGBA) (int, bool) {
	i, ok := p.index[pack(c)]
	return i, ok
}

func (p *Palette) lookup(v uint32) (int, bool) {
	i, ok := p.index[v]
	return i, ok
}
