package ciphflow

import (
	"fmt"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/salsa20/salsa"
)

// StreamCipher is the minimal contract the pipeline drives a stream engine
// through: XORKeyStream behaves like cipher.Stream, so a StreamCipher is
// usable anywhere a cipher.Stream is.
type StreamCipher interface {
	XORKeyStream(dst, src []byte)
}

// NewStreamCipher builds the stream engine named by engine, keyed with key
// and nonce iv (8 bytes, per CipherDescription.Validate's stream-engine
// domain).
func NewStreamCipher(engine EngineType, key, iv []byte) (StreamCipher, error) {
	switch engine {
	case EngineChaCha:
		return newChaCha20Stream(key, iv)
	case EngineSalsa20:
		return newSalsa20Stream(key, iv)
	default:
		return nil, fmt.Errorf("%w: %s is not a stream engine", ErrInvalidArgument, engine)
	}
}

// chacha20Stream adapts golang.org/x/crypto/chacha20 to an 8-byte nonce by
// zero-extending it to the package's 12-byte IETF nonce. The keystream
// therefore uses the IETF layout (32-bit block counter, nonce words 13-15),
// not the original layout with a 64-bit block counter; the two agree only
// while the nonce is all zero.
type chacha20Stream struct {
	c *chacha20.Cipher
}

func newChaCha20Stream(key, iv []byte) (*chacha20Stream, error) {
	if len(iv) != 8 {
		return nil, fmt.Errorf("%w: chacha20 nonce must be 8 bytes, got %d", ErrInvalidArgument, len(iv))
	}
	nonce := make([]byte, chacha20.NonceSize)
	copy(nonce, iv)
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, err
	}
	return &chacha20Stream{c: c}, nil
}

func (s *chacha20Stream) XORKeyStream(dst, src []byte) { s.c.XORKeyStream(dst, src) }

// salsa20Stream adapts golang.org/x/crypto/salsa20/salsa's block function
// to a streaming XORKeyStream, buffering partial 64-byte blocks the way the
// package's own salsa20.XORKeyStream helper does internally, so repeated
// small Write-driven calls (as the pipeline makes) still produce the same
// keystream as one large call would.
type salsa20Stream struct {
	key     [32]byte
	nonce   [8]byte
	counter uint64
	buf     [64]byte
	bufLen  int
}

func newSalsa20Stream(key, iv []byte) (*salsa20Stream, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: salsa20 key must be 32 bytes, got %d", ErrInvalidArgument, len(key))
	}
	if len(iv) != 8 {
		return nil, fmt.Errorf("%w: salsa20 nonce must be 8 bytes, got %d", ErrInvalidArgument, len(iv))
	}
	s := &salsa20Stream{}
	copy(s.key[:], key)
	copy(s.nonce[:], iv)
	return s, nil
}

func (s *salsa20Stream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("ciphflow: salsa20 destination shorter than source")
	}
	n := len(src)
	for n > 0 {
		if s.bufLen == 0 {
			var counterBytes [16]byte
			copy(counterBytes[:8], s.nonce[:])
			for i := 0; i < 8; i++ {
				counterBytes[8+i] = byte(s.counter >> (8 * i))
			}
			// buf still holds the previous block's fully-consumed
			// keystream bytes; generate from a zeroed source so this
			// refill is the raw keystream, not XORed against stale data.
			var zero [64]byte
			salsa.XORKeyStream(s.buf[:], zero[:], &counterBytes, &s.key)
			s.bufLen = 64
			s.counter++
		}
		k := n
		if k > s.bufLen {
			k = s.bufLen
		}
		off := 64 - s.bufLen
		for i := 0; i < k; i++ {
			dst[i] = src[i] ^ s.buf[off+i]
		}
		dst = dst[k:]
		src = src[k:]
		n -= k
		s.bufLen -= k
	}
}
