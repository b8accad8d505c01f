package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const compareBufSize = 4096

// sameContent reports whether a and b hold identical bytes. Both files are
// read in lockstep and the comparison stops at the first differing chunk.
func (c contentReader) sameContent(a, b string) (bool, error) {
	fa, err := c.open(a)
	if err != nil {
		return false, err
	}
	defer fa.Close()
	fb, err := c.open(b)
	if err != nil {
		return false, err
	}
	defer fb.Close()

	bufA := make([]byte, compareBufSize)
	bufB := make([]byte, compareBufSize)
	for {
		na, err := readChunk(fa, bufA)
		if err != nil {
			return false, fmt.Errorf("compare %s: %w", a, err)
		}
		nb, err := readChunk(fb, bufB)
		if err != nil {
			return false, fmt.Errorf("compare %s: %w", b, err)
		}
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		if na < compareBufSize {
			return true, nil
		}
	}
}

// readChunk fills buf unless the stream ends first. End of stream is not an
// error; a short count signals it.
func readChunk(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return n, nil
	}
	return n, err
}
