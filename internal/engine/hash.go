package engine

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/zeebo/blake3"
	"golang.org/x/time/rate"
)

// HashAlgorithm names the digest used by the hash stage.
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
	BLAKE3 HashAlgorithm = "blake3"
)

// ParseHashAlgorithm validates a digest name. The empty string selects SHA256.
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	switch HashAlgorithm(s) {
	case "", SHA256:
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	}
	return "", fmt.Errorf("unknown hash algorithm %q (use sha256 or blake3)", s)
}

func (a HashAlgorithm) new() hash.Hash {
	if a == BLAKE3 {
		return blake3.New()
	}
	return sha256.New()
}

const (
	prefixSize  = 64
	hashBufSize = 32 * 1024
)

// PrefixKey holds up to the first 64 bytes of a file. Shorter files are keyed
// on whatever was read.
type PrefixKey string

// HashKey is a 256-bit content digest.
type HashKey [32]byte

// contentReader opens files for the content stages, throttled by an optional
// shared limiter.
type contentReader struct {
	ctx     context.Context
	limiter *rate.Limiter
}

type readCloser struct {
	io.Reader
	io.Closer
}

func (c contentReader) open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if c.limiter == nil {
		return f, nil
	}
	return readCloser{Reader: newRateLimitedReader(c.ctx, f, c.limiter), Closer: f}, nil
}

// readPrefix returns the first prefixSize bytes of path.
func (c contentReader) readPrefix(path string) (PrefixKey, error) {
	f, err := c.open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, prefixSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("read prefix %s: %w", path, err)
	}
	return PrefixKey(buf[:n]), nil
}

// hashFile returns the digest of the full contents of path.
func (c contentReader) hashFile(path string, algo HashAlgorithm) (HashKey, error) {
	f, err := c.open(path)
	if err != nil {
		return HashKey{}, err
	}
	defer f.Close()

	h := algo.new()
	buf := make([]byte, hashBufSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return HashKey{}, fmt.Errorf("hash %s: %w", path, err)
	}

	var key HashKey
	copy(key[:], h.Sum(nil))
	return key, nil
}
