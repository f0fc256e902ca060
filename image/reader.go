package image

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/bodgit/kif"
)

var errNotEnough = fmt.Errorf("%w: not enough image data", kif.ErrMalformedInput)

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func toPalette(p []color.NRGBA) color.Palette {
	cp := make(color.Palette, len(p))
	for i, c := range p {
		cp[i] = c
	}
	return cp
}

// Decode reads a Kompakt Icon Format image from r and returns it as an
// image.Image.
func Decode(r io.Reader) (image.Image, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	icon, err := kif.Parse(b)
	if err != nil {
		return nil, err
	}

	w, h := int(icon.Header.Width), int(icon.Header.Height)
	m := image.NewPaletted(image.Rect(0, 0, w, h), toPalette(icon.Palette))

	i := 0
	for _, run := range icon.Runs {
		for j := 0; j < int(run.Length); j++ {
			m.Pix[i] = run.Index
			i++
		}
	}

	return m, nil
}

// DecodeConfig returns the color model and dimensions of a Kompakt Icon
// Format image without decoding the run-length stream.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var tmp [kif.HeaderSize]byte
	if err := readFull(r, tmp[:]); err != nil {
		if err != io.ErrUnexpectedEOF {
			return image.Config{}, err
		}
		return image.Config{}, errNotEnough
	}

	h, err := kif.DecodeHeader(tmp[:])
	if err != nil {
		return image.Config{}, err
	}

	b := make([]byte, int(h.PaletteEntries)*4)
	if err := readFull(r, b); err != nil {
		if err != io.ErrUnexpectedEOF {
			return image.Config{}, err
		}
		return image.Config{}, errNotEnough
	}

	p := make(color.Palette, h.PaletteEntries)
	for i := range p {
		p[i] = color.NRGBA{b[i*4], b[i*4+1], b[i*4+2], b[i*4+3]}
	}

	return image.Config{
		ColorModel: p,
		Width:      int(h.Width),
		Height:     int(h.Height),
	}, nil
}
