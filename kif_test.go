package kif

import (
	"encoding/binary"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func solid(w, h int, c [4]byte) []byte {
	pix := make([]byte, 0, w*h*4)
	for i := 0; i < w*h; i++ {
		pix = append(pix, c[:]...)
	}
	return pix
}

// Every pixel gets its own color, none of which are transparent black
func unique(n int) []byte {
	pix := make([]byte, n*4)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(pix[i*4:], uint32(i+1)|0xff000000)
	}
	return pix
}

func stripAlpha(pix []byte) []byte {
	out := make([]byte, 0, len(pix)/4*3)
	for i := 0; i < len(pix); i += 4 {
		out = append(out, pix[i:i+3]...)
	}
	return out
}

func runsOf(t *testing.T, b []byte) []Run {
	icon, err := Parse(b)
	require.NoError(t, err)
	return icon.Runs
}

func TestHeaderMarshal(t *testing.T) {
	h := Header{
		Magic:          Magic,
		BPP:            4,
		PaletteEntries: 0x0102,
		Width:          0x0304,
		Height:         0x0506,
		RLEEntries:     0x0708090a,
	}

	b, err := h.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, []byte{
		'1', 'f', 'i', 'k',
		4, 0,
		0x02, 0x01,
		0x04, 0x03,
		0x06, 0x05,
		0x0a, 0x09, 0x08, 0x07,
	}, b)

	var got Header
	require.NoError(t, got.UnmarshalBinary(b))
	require.Equal(t, h, got)
	require.Equal(t, HeaderSize+0x0102*4+0x0708090a*2, got.Size())

	require.True(t, errors.Is(got.UnmarshalBinary(b[:15]), ErrMalformedInput))
}

func TestBuildPalette(t *testing.T) {
	pix := []byte{
		10, 20, 30, 255,
		1, 2, 3, 4,
		10, 20, 30, 255,
		0, 0, 0, 0,
		5, 6, 7, 8,
	}

	p := BuildPalette(pix)
	require.Equal(t, 4, p.Len())
	require.Equal(t, 0, p.Dropped())

	c := p.Colors()
	require.Equal(t, [4]uint8{0, 0, 0, 0}, [4]uint8{c[0].R, c[0].G, c[0].B, c[0].A})
	require.Equal(t, [4]uint8{10, 20, 30, 255}, [4]uint8{c[1].R, c[1].G, c[1].B, c[1].A})
	require.Equal(t, [4]uint8{1, 2, 3, 4}, [4]uint8{c[2].R, c[2].G, c[2].B, c[2].A})
	require.Equal(t, [4]uint8{5, 6, 7, 8}, [4]uint8{c[3].R, c[3].G, c[3].B, c[3].A})

	i, ok := p.Index(c[3])
	require.True(t, ok)
	require.Equal(t, 3, i)

	// Same input, same palette
	require.Equal(t, c, BuildPalette(pix).Colors())
}

func TestBuildPaletteCap(t *testing.T) {
	p := BuildPalette(unique(70000))
	require.Equal(t, MaxPaletteEntries, p.Len())
	require.Equal(t, 70000-(MaxPaletteEntries-1), p.Dropped())

	// The last color to fit is kept, the next is not
	c := p.Colors()
	_, ok := p.Index(c[MaxPaletteEntries-1])
	require.True(t, ok)
}

func TestEncodeSinglePixel(t *testing.T) {
	h := &Header{Width: 1, Height: 1}
	b, err := Encode([]byte{10, 20, 30, 255}, h)
	require.NoError(t, err)

	require.Equal(t, Magic, h.Magic)
	require.Equal(t, uint8(4), h.BPP)
	require.Equal(t, uint8(0), h.Compressed)
	require.Equal(t, uint16(2), h.PaletteEntries)
	require.Equal(t, uint32(1), h.RLEEntries)
	require.Len(t, b, HeaderSize+2*4+1*2)

	require.Equal(t, []byte{0, 0, 0, 0, 10, 20, 30, 255}, b[HeaderSize:HeaderSize+8])
	require.Equal(t, []Run{{Index: 1, Length: 1}}, runsOf(t, b))

	pix, got, err := Decode(b, 32)
	require.NoError(t, err)
	require.Equal(t, *h, got)
	require.Equal(t, []byte{10, 20, 30, 255}, pix)
}

func TestEncodeRunSplit(t *testing.T) {
	h := &Header{Width: 600, Height: 1}
	b, err := Encode(solid(600, 1, [4]byte{1, 2, 3, 4}), h)
	require.NoError(t, err)

	require.Equal(t, []Run{{1, 255}, {1, 255}, {1, 90}}, runsOf(t, b))
}

func TestEncodeRunLengths(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	w, hh := 97, 61

	// Long horizontal bands with the occasional speckle
	colors := [][4]byte{{0, 0, 0, 0}, {255, 0, 0, 255}, {0, 255, 0, 128}, {0, 0, 255, 255}}
	pix := make([]byte, 0, w*hh*4)
	c := colors[0]
	for i := 0; i < w*hh; i++ {
		if r.Intn(40) == 0 {
			c = colors[r.Intn(len(colors))]
		}
		pix = append(pix, c[:]...)
	}

	h := &Header{Width: uint16(w), Height: uint16(hh)}
	b, err := Encode(pix, h)
	require.NoError(t, err)

	total := 0
	for _, run := range runsOf(t, b) {
		require.NotZero(t, run.Length)
		total += int(run.Length)
	}
	require.Equal(t, w*hh, total)

	got, _, err := Decode(b, 32)
	require.NoError(t, err)
	require.Equal(t, pix, got)

	got, _, err = Decode(b, 24)
	require.NoError(t, err)
	require.Equal(t, stripAlpha(pix), got)
}

func TestEncodeAllUnique(t *testing.T) {
	h := &Header{Width: 15, Height: 17}
	pix := unique(15 * 17)
	b, err := Encode(pix, h)
	require.NoError(t, err)

	require.Equal(t, uint32(15*17), h.RLEEntries)
	for _, r := range runsOf(t, b) {
		require.Equal(t, uint8(1), r.Length)
	}

	got, _, err := Decode(b, 32)
	require.NoError(t, err)
	require.Equal(t, pix, got)
}

func TestEncodeDeterministic(t *testing.T) {
	pix := unique(64)
	b1, err := Encode(pix, &Header{Width: 8, Height: 8})
	require.NoError(t, err)
	b2, err := Encode(pix, &Header{Width: 8, Height: 8})
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}

func TestEncodeReservedEntry(t *testing.T) {
	b, err := Encode(solid(4, 4, [4]byte{255, 255, 255, 255}), &Header{Width: 4, Height: 4})
	require.NoError(t, err)

	icon, err := Parse(b)
	require.NoError(t, err)
	require.Len(t, icon.Palette, 2)
	require.Equal(t, uint8(0), icon.Palette[0].A)
	require.Equal(t, uint8(0), icon.Palette[0].R)
}

func TestEncodeMostColors(t *testing.T) {
	// 255 colors plus transparent black fills every reachable index
	pix := append(unique(255), 0, 0, 0, 0)
	h := &Header{Width: 16, Height: 16}
	b, err := Encode(pix, h)
	require.NoError(t, err)
	require.Equal(t, uint16(256), h.PaletteEntries)

	got, _, err := Decode(b, 32)
	require.NoError(t, err)
	require.Equal(t, pix, got)
}

func TestEncodeOverflow(t *testing.T) {
	_, err := Encode(unique(256), &Header{Width: 16, Height: 16})
	require.True(t, errors.Is(err, ErrPaletteOverflow))

	_, err = Encode(unique(70000), &Header{Width: 700, Height: 100})
	require.True(t, errors.Is(err, ErrPaletteOverflow))
}

func TestEncodeInvalid(t *testing.T) {
	_, err := Encode(nil, &Header{Width: 1, Height: 1})
	require.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = Encode([]byte{1, 2, 3, 4}, nil)
	require.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = Encode([]byte{1, 2, 3, 4}, &Header{Width: 2, Height: 1})
	require.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestEncodeEmpty(t *testing.T) {
	h := &Header{}
	b, err := Encode([]byte{}, h)
	require.NoError(t, err)
	require.Equal(t, uint32(0), h.RLEEntries)

	pix, _, err := Decode(b, 32)
	require.NoError(t, err)
	require.Empty(t, pix)
}

func TestDecodeInvalidDepth(t *testing.T) {
	b, err := Encode([]byte{1, 2, 3, 4}, &Header{Width: 1, Height: 1})
	require.NoError(t, err)

	for _, depth := range []int{0, 8, 16, 48} {
		_, _, err = Decode(b, depth)
		require.True(t, errors.Is(err, ErrInvalidArgument), depth)
	}

	_, _, err = Decode(nil, 32)
	require.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestDecodeMalformed(t *testing.T) {
	valid, err := Encode([]byte{
		1, 2, 3, 4,
		1, 2, 3, 4,
		5, 6, 7, 8,
		0, 0, 0, 0,
	}, &Header{Width: 2, Height: 2})
	require.NoError(t, err)

	// Palette at 16, three entries; runs at 28
	tests := map[string]func([]byte) []byte{
		"short header": func(b []byte) []byte { return b[:10] },
		"truncated":    func(b []byte) []byte { return b[:len(b)-1] },
		"trailing":     func(b []byte) []byte { return append(b, 0) },
		"magic":        func(b []byte) []byte { b[0] = 'x'; return b },
		"bpp":          func(b []byte) []byte { b[4] = 2; return b },
		"compressed":   func(b []byte) []byte { b[5] = 1; return b },
		"index":        func(b []byte) []byte { b[28] = 3; return b },
		"empty run":    func(b []byte) []byte { b[29] = 0; return b },
		"too long":     func(b []byte) []byte { b[29] = 9; return b },
		"too short":    func(b []byte) []byte { b[11] = 3; return b },
	}

	for name, mangle := range tests {
		t.Run(name, func(t *testing.T) {
			b := mangle(append([]byte(nil), valid...))
			_, _, err := Decode(b, 32)
			require.True(t, errors.Is(err, ErrMalformedInput), "%v", err)
		})
	}
}

func TestDecodeHeaderOnly(t *testing.T) {
	h := &Header{Width: 3, Height: 2}
	b, err := Encode(solid(3, 2, [4]byte{9, 9, 9, 9}), h)
	require.NoError(t, err)

	got, err := DecodeHeader(b[:HeaderSize])
	require.NoError(t, err)
	require.Equal(t, *h, got)
}

func TestDecodeRGBSource(t *testing.T) {
	// A file tagged as a 24-bit source still decodes
	h := Header{Magic: Magic, BPP: 3, PaletteEntries: 2, Width: 2, Height: 1, RLEEntries: 1}
	b, err := h.MarshalBinary()
	require.NoError(t, err)
	b = append(b, 0, 0, 0, 0, 7, 8, 9, 255, 1, 2)

	pix, got, err := Decode(b, 24)
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.Equal(t, []byte{7, 8, 9, 7, 8, 9}, pix)
}

func TestFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "icon.kif")
	pix := solid(5, 5, [4]byte{10, 20, 30, 255})

	n, err := WriteFile(name, pix, &Header{Width: 5, Height: 5})
	require.NoError(t, err)

	info, err := os.Stat(name)
	require.NoError(t, err)
	require.Equal(t, int64(n), info.Size())

	got, h, err := ReadFile(name, 32)
	require.NoError(t, err)
	require.Equal(t, pix, got)
	require.Equal(t, uint16(5), h.Width)

	_, _, err = ReadFile(filepath.Join(t.TempDir(), "missing.kif"), 32)
	require.True(t, errors.Is(err, os.ErrNotExist))

	_, err = WriteFile(filepath.Join(t.TempDir(), "missing", "icon.kif"), pix, &Header{Width: 5, Height: 5})
	require.True(t, errors.Is(err, os.ErrNotExist))
}
