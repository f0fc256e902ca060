package image

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/bodgit/kif"
	"github.com/ericpauley/go-quantize/quantize"
)

var errTooBig = errors.New("kif: image is too big")

// Count the distinct colors, ignoring transparent black which is always
// in the palette
func countColors(m *image.NRGBA) int {
	colors := make(map[color.NRGBA]struct{})
	for i := 0; i+4 <= len(m.Pix); i += 4 {
		c := color.NRGBA{m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3]}
		if c != (color.NRGBA{}) {
			colors[c] = struct{}{}
		}
	}
	return len(colors)
}

// Return a copy of m with a non-premultiplied pixel buffer, the top-left
// corner at (0, 0) and no stride padding
func toNRGBA(m image.Image) *image.NRGBA {
	b := m.Bounds()
	dup := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dup.Set(x-b.Min.X, y-b.Min.Y, color.NRGBAModel.Convert(m.At(x, y)))
		}
	}
	return dup
}

// Reduce m to no more than maxColors colors
func reduceColors(m image.Image) *image.NRGBA {
	b := m.Bounds()

	q := quantize.MedianCutQuantizer{}
	pm := image.NewPaletted(b, q.Quantize(make(color.Palette, 0, maxColors), m))
	draw.Draw(pm, b, m, b.Min, draw.Src)

	return toNRGBA(pm)
}

// Encode writes the Image m to w in Kompakt Icon Format.
func Encode(w io.Writer, m image.Image) error {
	b := m.Bounds()
	if b.Dx() > maxDimension || b.Dy() > maxDimension {
		return errTooBig
	}

	nm := toNRGBA(m)
	if countColors(nm) > maxColors {
		nm = reduceColors(m)
	}

	h := kif.Header{
		Width:  uint16(b.Dx()),
		Height: uint16(b.Dy()),
	}

	out, err := kif.Encode(nm.Pix, &h)
	if err != nil {
		return err
	}

	_, err = w.Write(out)
	return err
}
