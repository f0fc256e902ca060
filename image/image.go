/*
Package image implements a Kompakt Icon Format decoder and encoder that work
with the standard library image types.

Importing this package registers the "kif" format with image.Decode. Decoded
icons are returned as *image.Paletted using the palette stored in the file.

The format can only address 256 palette entries from its run-length stream,
one of which is reserved for transparent black, so Encode reduces any image
with more colors than that using a median cut quantizer.
*/
package image

import (
	"image"
)

const (
	// The magic number is stored little-endian
	magic = "1fik"

	maxColors    = 255
	maxDimension = 1<<16 - 1
)

func init() {
	image.RegisterFormat("kif", magic, Decode, DecodeConfig)
}
