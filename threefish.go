package ciphflow

import "encoding/binary"

// wordsToBytesLE packs little-endian 64-bit words into bytes.
func wordsToBytesLE(words []uint64) []byte {
	b := make([]byte, len(words)*8)
	for i, w := range words {
		binary.LittleEndian.PutUint64(b[i*8:i*8+8], w)
	}
	return b
}

// bytesToWordsLE unpacks little-endian bytes (padded with zero if short of
// a whole number of words) into 64-bit words.
func bytesToWordsLE(b []byte, numWords int) []uint64 {
	words := make([]uint64, numWords)
	padded := b
	if len(padded) < numWords*8 {
		padded = make([]byte, numWords*8)
		copy(padded, b)
	}
	for i := 0; i < numWords; i++ {
		words[i] = binary.LittleEndian.Uint64(padded[i*8 : i*8+8])
	}
	return words
}

// threefishKeyScheduleConst is the constant XORed into the fold of the key
// words to produce the extra key-schedule word.
const threefishKeyScheduleConst = 0x1bd11bdaa9fc1a22

// threefishParams holds the per-block-size rotation and permutation tables
// for the Threefish tweakable block cipher.
type threefishParams struct {
	words      int // Nw: state words (block size / 8)
	rounds     int
	rotation   [][]uint // 8 rows cycled across rounds, words/2 columns
	permute    []int    // output word i comes from mixed word permute[i]
}

var threefish256Params = threefishParams{
	words:  4,
	rounds: 72,
	rotation: [][]uint{
		{14, 16}, {52, 57}, {23, 40}, {5, 37},
		{25, 33}, {46, 12}, {58, 22}, {32, 32},
	},
	permute: []int{0, 3, 2, 1},
}

var threefish512Params = threefishParams{
	words:  8,
	rounds: 72,
	rotation: [][]uint{
		{46, 36, 19, 37}, {33, 27, 14, 42}, {17, 49, 36, 39}, {44, 9, 54, 56},
		{39, 30, 34, 24}, {13, 50, 10, 17}, {25, 29, 39, 43}, {8, 35, 56, 22},
	},
	permute: []int{2, 1, 4, 7, 6, 5, 0, 3},
}

var threefish1024Params = threefishParams{
	words:  16,
	rounds: 80,
	rotation: [][]uint{
		{24, 13, 8, 47, 8, 17, 22, 37},
		{38, 19, 10, 55, 49, 18, 23, 52},
		{33, 4, 51, 13, 34, 41, 59, 17},
		{5, 20, 48, 41, 47, 28, 16, 25},
		{41, 9, 37, 31, 12, 47, 44, 30},
		{16, 34, 56, 51, 4, 53, 42, 41},
		{31, 44, 47, 46, 19, 42, 44, 25},
		{9, 48, 35, 52, 23, 31, 37, 20},
	},
	permute: []int{0, 9, 2, 13, 6, 11, 4, 15, 10, 7, 12, 3, 14, 5, 8, 1},
}

// threefish is a Threefish tweakable block cipher instance for one of the
// three block sizes.
type threefish struct {
	p     threefishParams
	ks    []uint64 // words+1 expanded key words
	tweak [3]uint64
}

func newThreefish(p threefishParams) *threefish {
	return &threefish{p: p, ks: make([]uint64, p.words+1)}
}

// SetKey loads an already-byte-decoded key of p.words 64-bit words.
func (t *threefish) SetKey(key []uint64) {
	fold := uint64(threefishKeyScheduleConst)
	for i := 0; i < t.p.words; i++ {
		t.ks[i] = key[i]
		fold ^= key[i]
	}
	t.ks[t.p.words] = fold
}

// SetTweak loads the two UBI tweak words and derives the third
// (tweak[2] = tweak[0] XOR tweak[1]).
func (t *threefish) SetTweak(t0, t1 uint64) {
	t.tweak[0] = t0
	t.tweak[1] = t1
	t.tweak[2] = t0 ^ t1
}

func mix(x0, x1 uint64, r uint) (uint64, uint64) {
	x0 += x1
	x1 = rotl64(x1, r) ^ x0
	return x0, x1
}

func unmix(x0, x1 uint64, r uint) (uint64, uint64) {
	x1 = rotl64(x1^x0, 64-r)
	x0 -= x1
	return x0, x1
}

func (t *threefish) subkey(s int, out []uint64) {
	nw := t.p.words
	for i := 0; i < nw; i++ {
		out[i] = t.ks[(s+i)%(nw+1)]
	}
	out[nw-3] += t.tweak[s%3]
	out[nw-2] += t.tweak[(s+1)%3]
	out[nw-1] += uint64(s)
}

// Encrypt transforms the words-word plaintext block in into out.
func (t *threefish) Encrypt(in, out []uint64) {
	nw := t.p.words
	v := make([]uint64, nw)
	copy(v, in)

	sk := make([]uint64, nw)
	t.subkey(0, sk)
	for i := 0; i < nw; i++ {
		v[i] += sk[i]
	}

	mixed := make([]uint64, nw)
	for d := 0; d < t.p.rounds; d++ {
		rot := t.p.rotation[d%8]
		for pair := 0; pair < nw/2; pair++ {
			a, b := v[2*pair], v[2*pair+1]
			mixed[2*pair], mixed[2*pair+1] = mix(a, b, rot[pair])
		}
		for i := 0; i < nw; i++ {
			v[i] = mixed[t.p.permute[i]]
		}
		if (d+1)%4 == 0 {
			t.subkey((d+1)/4, sk)
			for i := 0; i < nw; i++ {
				v[i] += sk[i]
			}
		}
	}

	copy(out, v)
}

// Decrypt is the inverse of Encrypt.
func (t *threefish) Decrypt(in, out []uint64) {
	nw := t.p.words
	v := make([]uint64, nw)
	copy(v, in)

	inversePermute := make([]int, nw)
	for i, src := range t.p.permute {
		inversePermute[src] = i
	}

	sk := make([]uint64, nw)
	unmixed := make([]uint64, nw)

	for d := t.p.rounds - 1; d >= 0; d-- {
		if (d+1)%4 == 0 {
			t.subkey((d+1)/4, sk)
			for i := 0; i < nw; i++ {
				v[i] -= sk[i]
			}
		}
		for i := 0; i < nw; i++ {
			unmixed[i] = v[inversePermute[i]]
		}
		rot := t.p.rotation[d%8]
		for pair := 0; pair < nw/2; pair++ {
			a, b := unmixed[2*pair], unmixed[2*pair+1]
			v[2*pair], v[2*pair+1] = unmix(a, b, rot[pair])
		}
	}

	t.subkey(0, sk)
	for i := 0; i < nw; i++ {
		v[i] -= sk[i]
	}

	copy(out, v)
}
