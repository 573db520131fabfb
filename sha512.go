package ciphflow

import (
	"encoding/binary"
	"fmt"
)

const (
	sha512BlockSize  = 128
	sha512DigestSize = 64
)

var sha512K = [80]uint64{
	0x428a2f98d728ae22, 0x7137449123ef65cd, 0xb5c0fbcfec4d3b2f, 0xe9b5dba58189dbbc,
	0x3956c25bf348b538, 0x59f111f1b605d019, 0x923f82a4af194f9b, 0xab1c5ed5da6d8118,
	0xd807aa98a3030242, 0x12835b0145706fbe, 0x243185be4ee4b28c, 0x550c7dc3d5ffb4e2,
	0x72be5d74f27b896f, 0x80deb1fe3b1696b1, 0x9bdc06a725c71235, 0xc19bf174cf692694,
	0xe49b69c19ef14ad2, 0xefbe4786384f25e3, 0x0fc19dc68b8cd5b5, 0x240ca1cc77ac9c65,
	0x2de92c6f592b0275, 0x4a7484aa6ea6e483, 0x5cb0a9dcbd41fbd4, 0x76f988da831153b5,
	0x983e5152ee66dfab, 0xa831c66d2db43210, 0xb00327c898fb213f, 0xbf597fc7beef0ee4,
	0xc6e00bf33da88fc2, 0xd5a79147930aa725, 0x06ca6351e003826f, 0x142929670a0e6e70,
	0x27b70a8546d22ffc, 0x2e1b21385c26c926, 0x4d2c6dfc5ac42aed, 0x53380d139d95b3df,
	0x650a73548baf63de, 0x766a0abb3c77b2a8, 0x81c2c92e47edaee6, 0x92722c851482353b,
	0xa2bfe8a14cf10364, 0xa81a664bbc423001, 0xc24b8b70d0f89791, 0xc76c51a30654be30,
	0xd192e819d6ef5218, 0xd69906245565a910, 0xf40e35855771202a, 0x106aa07032bbd1b8,
	0x19a4c116b8d2d0c8, 0x1e376c085141ab53, 0x2748774cdf8eeb99, 0x34b0bcb5e19b48a8,
	0x391c0cb3c5c95a63, 0x4ed8aa4ae3418acb, 0x5b9cca4f7763e373, 0x682e6ff3d6b2b8a3,
	0x748f82ee5defb2fc, 0x78a5636f43172f60, 0x84c87814a1f0ab72, 0x8cc702081a6439ec,
	0x90befffa23631e28, 0xa4506cebde82bde9, 0xbef9a3f7b2c67915, 0xc67178f2e372532b,
	0xca273eceea26619c, 0xd186b8c721c0c207, 0xeada7dd6cde0eb1e, 0xf57d4f7fee6ed178,
	0x06f067aa72176fba, 0x0a637dc5a2c898a6, 0x113f9804bef90dae, 0x1b710b35131c471b,
	0x28db77f523047d84, 0x32caab7b40c72493, 0x3c9ebe0a15c9bebc, 0x431d67c49c100d4c,
	0x4cc5d4becb3e42b6, 0x597f299cfc657e2a, 0x5fcb6fab3ad6faec, 0x6c44198c4a475817,
}

var sha512Init = [8]uint64{
	0x6a09e667f3bcc908, 0xbb67ae8584caa73b, 0x3c6ef372fe94f82b, 0xa54ff53a5f1d36f1,
	0x510e527fade682d1, 0x9b05688c2b3e6c1f, 0x1f83d9abfb41bd6b, 0x5be0cd19137e2179,
}

// SHA512Digest implements the SHA-512 compression function over a
// big-endian 1024-bit block.
type SHA512Digest struct {
	h      [8]uint64
	buf    [sha512BlockSize]byte
	fill   int
	lenLo  uint64
	lenHi  uint64
}

// NewSHA512 returns a SHA512Digest in its initial state.
func NewSHA512() *SHA512Digest {
	d := &SHA512Digest{}
	d.Reset()
	return d
}

func (d *SHA512Digest) Reset() {
	d.h = sha512Init
	d.fill = 0
	d.lenLo = 0
	d.lenHi = 0
}

func (d *SHA512Digest) Size() int      { return sha512DigestSize }
func (d *SHA512Digest) BlockSize() int { return sha512BlockSize }

func (d *SHA512Digest) Write(p []byte) (int, error) {
	n := len(p)
	d.addLength(uint64(n))

	if d.fill > 0 {
		k := copy(d.buf[d.fill:], p)
		d.fill += k
		p = p[k:]
		if d.fill == sha512BlockSize {
			d.block(d.buf[:])
			d.fill = 0
		}
	}

	for len(p) >= sha512BlockSize {
		d.block(p[:sha512BlockSize])
		p = p[sha512BlockSize:]
	}

	if len(p) > 0 {
		d.fill = copy(d.buf[:], p)
	}

	return n, nil
}

// addLength tracks the processed bit count across two 64-bit halves: the
// top carry from the low counter is shifted into the high counter via mask
// 0x1FFFFFFFFFFFFFFF to support > 2^61 bytes.
func (d *SHA512Digest) addLength(nBytes uint64) {
	bits := nBytes << 3
	old := d.lenLo
	d.lenLo += bits
	if d.lenLo < old {
		d.lenHi++
	}
	d.lenHi = (d.lenHi + (nBytes >> 61)) & 0x1FFFFFFFFFFFFFFF
}

func (d *SHA512Digest) Finish(out []byte) (int, error) {
	if len(out) < sha512DigestSize {
		return 0, fmt.Errorf("%w: sha512 digest needs %d bytes, got %d", ErrBufferTooShort, sha512DigestSize, len(out))
	}

	lenHi, lenLo := d.lenHi, d.lenLo

	// Append 0x80, then zero-pad to 112 mod 128, leaving room for the
	// 128-bit big-endian bit length.
	d.Write([]byte{0x80})
	for d.fill != 112 {
		d.Write([]byte{0x00})
	}

	var lenBuf [16]byte
	binary.BigEndian.PutUint64(lenBuf[0:8], lenHi)
	binary.BigEndian.PutUint64(lenBuf[8:16], lenLo)
	copy(d.buf[112:], lenBuf[:])
	d.block(d.buf[:sha512BlockSize])
	d.fill = 0

	for i, v := range d.h {
		binary.BigEndian.PutUint64(out[i*8:i*8+8], v)
	}

	d.Reset()
	return sha512DigestSize, nil
}

func (d *SHA512Digest) Sum(b []byte) []byte {
	save := *d
	var out [sha512DigestSize]byte
	save.finishNoReset(out[:])
	return append(b, out[:]...)
}

// finishNoReset is Finish without the final Reset. Sum runs it on a copy of
// the digest, so a caller can keep writing after Sum (hash.Hash contract).
func (d *SHA512Digest) finishNoReset(out []byte) {
	lenHi, lenLo := d.lenHi, d.lenLo
	d.Write([]byte{0x80})
	for d.fill != 112 {
		d.Write([]byte{0x00})
	}
	var lenBuf [16]byte
	binary.BigEndian.PutUint64(lenBuf[0:8], lenHi)
	binary.BigEndian.PutUint64(lenBuf[8:16], lenLo)
	copy(d.buf[112:], lenBuf[:])
	d.block(d.buf[:sha512BlockSize])
	for i, v := range d.h {
		binary.BigEndian.PutUint64(out[i*8:i*8+8], v)
	}
}

func rotr64(x uint64, n uint) uint64 { return x>>n | x<<(64-n) }

func (d *SHA512Digest) block(p []byte) {
	var w [80]uint64
	for i := 0; i < 16; i++ {
		w[i] = binary.BigEndian.Uint64(p[i*8 : i*8+8])
	}
	for i := 16; i < 80; i++ {
		s0 := rotr64(w[i-15], 1) ^ rotr64(w[i-15], 8) ^ (w[i-15] >> 7)
		s1 := rotr64(w[i-2], 19) ^ rotr64(w[i-2], 61) ^ (w[i-2] >> 6)
		w[i] = w[i-16] + s0 + w[i-7] + s1
	}

	a, b, c, dd, e, f, g, h := d.h[0], d.h[1], d.h[2], d.h[3], d.h[4], d.h[5], d.h[6], d.h[7]

	for i := 0; i < 80; i++ {
		S1 := rotr64(e, 14) ^ rotr64(e, 18) ^ rotr64(e, 41)
		ch := (e & f) ^ (^e & g)
		t1 := h + S1 + ch + sha512K[i] + w[i]
		S0 := rotr64(a, 28) ^ rotr64(a, 34) ^ rotr64(a, 39)
		maj := (a & b) ^ (a & c) ^ (b & c)
		t2 := S0 + maj

		h, g, f, e, dd, c, b, a = g, f, e, dd+t1, c, b, a, t1+t2
	}

	d.h[0] += a
	d.h[1] += b
	d.h[2] += c
	d.h[3] += dd
	d.h[4] += e
	d.h[5] += f
	d.h[6] += g
	d.h[7] += h
}
