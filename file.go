package kif

import (
	"os"
)

// ReadFile reads the named file and decodes it with the requested depth.
func ReadFile(name string, depth int) ([]byte, Header, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, Header{}, err
	}
	return Decode(b, depth)
}

// WriteFile encodes pix and writes the result to the named file, returning
// the number of bytes written.
func WriteFile(name string, pix []byte, h *Header) (int, error) {
	b, err := Encode(pix, h)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(name)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := f.Write(b)
	if err != nil {
		return n, err
	}

	return n, f.Close()
}
