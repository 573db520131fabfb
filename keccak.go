package ciphflow

import (
	"encoding/binary"
	"fmt"
)

// keccakRC holds the 24 round constants for Keccak-f[1600], derived from
// the standard 86540-bit LFSR.
var keccakRC = [24]uint64{
	0x0000000000000001, 0x0000000000008082, 0x800000000000808a, 0x8000000080008000,
	0x000000000000808b, 0x0000000080000001, 0x8000000080008081, 0x8000000000008009,
	0x000000000000008a, 0x0000000000000088, 0x0000000080008009, 0x000000008000000a,
	0x000000008000808b, 0x800000000000008b, 0x8000000000008089, 0x8000000000008003,
	0x8000000000008002, 0x8000000000000080, 0x000000000000800a, 0x800000008000000a,
	0x8000000080008081, 0x8000000000008080, 0x0000000080000001, 0x8000000080008008,
}

// keccakRotation holds rho offsets ((t+1)(t+2)/2 mod 64 walked around the
// 5x5 lane grid), indexed by lane = x + 5*y.
var keccakRotation = [25]uint{
	0, 1, 62, 28, 27,
	36, 44, 6, 55, 20,
	3, 10, 43, 25, 39,
	41, 45, 15, 21, 8,
	18, 2, 61, 56, 14,
}

func rotl64(x uint64, n uint) uint64 {
	if n == 0 {
		return x
	}
	return x<<n | x>>(64-n)
}

// keccakF1600 applies the 24-round Keccak-f[1600] permutation in place
// using the five step mappings Theta, Rho, Pi, Chi, Iota.
func keccakF1600(a *[25]uint64) {
	var c, d [5]uint64
	var b [25]uint64

	for round := 0; round < 24; round++ {
		// Theta
		for x := 0; x < 5; x++ {
			c[x] = a[x] ^ a[x+5] ^ a[x+10] ^ a[x+15] ^ a[x+20]
		}
		for x := 0; x < 5; x++ {
			d[x] = c[(x+4)%5] ^ rotl64(c[(x+1)%5], 1)
		}
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				a[x+5*y] ^= d[x]
			}
		}

		// Rho + Pi
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				nx := y
				ny := (2*x + 3*y) % 5
				b[nx+5*ny] = rotl64(a[x+5*y], keccakRotation[x+5*y])
			}
		}

		// Chi
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				a[x+5*y] = b[x+5*y] ^ (^b[(x+1)%5+5*y] & b[(x+2)%5+5*y])
			}
		}

		// Iota
		a[0] ^= keccakRC[round]
	}
}

// KeccakDigest implements the Keccak sponge construction (the original
// 10*1-padded construction, not NIST SHA-3's domain-separated variant) over
// a configurable rate/capacity split.
type KeccakDigest struct {
	state     [25]uint64
	rateBytes int
	digest    int // bytes
	queue     []byte
	fill      int
}

func newKeccak(rateBits, digestBits int) *KeccakDigest {
	d := &KeccakDigest{
		rateBytes: rateBits / 8,
		digest:    digestBits / 8,
	}
	d.queue = make([]byte, d.rateBytes)
	return d
}

// NewKeccak256 returns a Keccak digest with a 256-bit output (rate 1088,
// capacity 512).
func NewKeccak256() *KeccakDigest { return newKeccak(1088, 256) }

// NewKeccak512 returns a Keccak digest with a 512-bit output (rate 576,
// capacity 1024).
func NewKeccak512() *KeccakDigest { return newKeccak(576, 512) }

func (d *KeccakDigest) Reset() {
	for i := range d.state {
		d.state[i] = 0
	}
	d.fill = 0
}

func (d *KeccakDigest) Size() int      { return d.digest }
func (d *KeccakDigest) BlockSize() int { return d.rateBytes }

func (d *KeccakDigest) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		k := copy(d.queue[d.fill:], p)
		d.fill += k
		p = p[k:]
		if d.fill == d.rateBytes {
			d.absorbBlock(d.queue)
			d.fill = 0
		}
	}
	return n, nil
}

func (d *KeccakDigest) absorbBlock(block []byte) {
	for i := 0; i < d.rateBytes/8; i++ {
		d.state[i] ^= binary.LittleEndian.Uint64(block[i*8 : i*8+8])
	}
	keccakF1600(&d.state)
}

func (d *KeccakDigest) Finish(out []byte) (int, error) {
	if len(out) < d.digest {
		return 0, fmt.Errorf("%w: keccak digest needs %d bytes, got %d", ErrBufferTooShort, d.digest, len(out))
	}

	// pad10*1: first padding byte 0x01 at the current fill position, zero
	// to rate-1, then the final byte of the block gets its top bit set.
	pad := make([]byte, d.rateBytes-d.fill)
	pad[0] = 0x01
	pad[len(pad)-1] |= 0x80
	copy(d.queue[d.fill:], pad)
	d.absorbBlock(d.queue)

	// Squeeze.
	produced := 0
	for produced < d.digest {
		var block [200]byte
		for i := 0; i < d.rateBytes/8; i++ {
			binary.LittleEndian.PutUint64(block[i*8:i*8+8], d.state[i])
		}
		n := copy(out[produced:d.digest], block[:d.rateBytes])
		produced += n
		if produced < d.digest {
			keccakF1600(&d.state)
		}
	}

	d.Reset()
	return d.digest, nil
}

func (d *KeccakDigest) Sum(b []byte) []byte {
	save := *d
	save.queue = append([]byte(nil), d.queue...)
	out := make([]byte, d.digest)
	save.Finish(out)
	return append(b, out...)
}
