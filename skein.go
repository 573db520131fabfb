package ciphflow

import "fmt"

// UBI block-type codes, per the Skein/UBI specification.
const (
	ubiTypeConfig  uint8 = 4
	ubiTypeMessage uint8 = 48
	ubiTypeOut     uint8 = 63
)

// DefaultSkeinOutputBits512 and DefaultSkeinOutputBits1024 are the natural
// output sizes for each Threefish block size (digest size == block size,
// the common Skein configuration).
const (
	DefaultSkeinOutputBits512  = 512
	DefaultSkeinOutputBits1024 = 1024
)

// UbiTweak is the per-UBI-call tweak. Word 1 packs the flags, tree level,
// and block type; word 0 is the running byte position. Word 2 (held
// implicitly by threefish.SetTweak) always equals word0 XOR word1.
type UbiTweak struct {
	BitsProcessed uint64
	BlockType     uint8
	First         bool
	Final         bool
	TreeLevel     uint8
}

func (t UbiTweak) words() (uint64, uint64) {
	var w1 uint64
	w1 |= uint64(t.TreeLevel) << 48
	w1 |= uint64(t.BlockType&0x3f) << 56
	if t.First {
		w1 |= 1 << 62
	}
	if t.Final {
		w1 |= 1 << 63
	}
	return t.BitsProcessed, w1
}

// skeinCore implements the Skein digest over a Threefish block size of
// either 512 or 1024 bits.
type skeinCore struct {
	params        threefishParams
	blockBytes    int
	blockWords    int
	outputBits    int
	digestBytes   int
	tf            *threefish
	cfgState      []uint64 // chaining value after the config UBI (init point for Reset)
	state         []uint64 // current message-phase chaining value
	buf           []byte   // buffered, not-yet-UBI'd message bytes (holds back the final block)
	bitsProcessed uint64
	started       bool
}

func newSkeinCore(p threefishParams, outputBits int) *skeinCore {
	s := &skeinCore{
		params:      p,
		blockBytes:  p.words * 8,
		blockWords:  p.words,
		outputBits:  outputBits,
		digestBytes: (outputBits + 7) / 8,
		tf:          newThreefish(p),
	}
	s.cfgState = s.computeConfigState()
	s.Reset()
	return s
}

// NewSkein512 returns a Skein digest built on Threefish-512.
func NewSkein512(outputBits int) *SkeinDigest {
	return &SkeinDigest{core: newSkeinCore(threefish512Params, outputBits)}
}

// NewSkein1024 returns a Skein digest built on Threefish-1024.
func NewSkein1024(outputBits int) *SkeinDigest {
	return &SkeinDigest{core: newSkeinCore(threefish1024Params, outputBits)}
}

// configBlock builds the 32-byte Skein configuration string (schema "SHA3",
// version 1, output size in bits), zero-padded to the cipher's block size.
func (s *skeinCore) configBlock() []byte {
	buf := make([]byte, s.blockBytes)
	const schemaID = uint64(0x33414853) // "SHA3" little-endian
	schemaVersion := schemaID | uint64(1)<<32
	words := []uint64{schemaVersion, uint64(s.outputBits), 0, 0}
	copy(buf, wordsToBytesLE(words))
	return buf
}

func (s *skeinCore) computeConfigState() []uint64 {
	zeroKey := make([]uint64, s.blockWords)
	s.tf.SetKey(zeroKey)
	tw := UbiTweak{BitsProcessed: uint64(s.blockBytes), BlockType: ubiTypeConfig, First: true, Final: true}
	t0, t1 := tw.words()
	s.tf.SetTweak(t0, t1)

	cfg := bytesToWordsLE(s.configBlock(), s.blockWords)
	ct := make([]uint64, s.blockWords)
	s.tf.Encrypt(cfg, ct)
	for i := range ct {
		ct[i] ^= cfg[i]
	}
	return ct
}

func (s *skeinCore) Reset() {
	s.state = append([]uint64(nil), s.cfgState...)
	s.buf = s.buf[:0]
	s.bitsProcessed = 0
	s.started = false
}

// ubiBlock runs one Matyas-Meyer-Oseas UBI step: key = current state,
// tweak = (bitsProcessed, blockType, first, final); state = E(block) XOR
// block.
func (s *skeinCore) ubiBlock(block []byte, final bool) {
	padded := block
	if len(padded) < s.blockBytes {
		padded = make([]byte, s.blockBytes)
		copy(padded, block)
	}
	s.bitsProcessed += uint64(len(block))

	s.tf.SetKey(s.state)
	tw := UbiTweak{BitsProcessed: s.bitsProcessed, BlockType: ubiTypeMessage, First: !s.started, Final: final}
	s.started = true
	t0, t1 := tw.words()
	s.tf.SetTweak(t0, t1)

	msg := bytesToWordsLE(padded, s.blockWords)
	ct := make([]uint64, s.blockWords)
	s.tf.Encrypt(msg, ct)
	for i := range ct {
		ct[i] ^= msg[i]
	}
	s.state = ct
}

func (s *skeinCore) Write(p []byte) (int, error) {
	n := len(p)
	s.buf = append(s.buf, p...)
	for len(s.buf) > s.blockBytes {
		s.ubiBlock(s.buf[:s.blockBytes], false)
		s.buf = s.buf[s.blockBytes:]
	}
	return n, nil
}

func (s *skeinCore) Finish(out []byte) (int, error) {
	if len(out) < s.digestBytes {
		return 0, fmt.Errorf("%w: skein digest needs %d bytes, got %d", ErrBufferTooShort, s.digestBytes, len(out))
	}

	s.ubiBlock(s.buf, true)

	produced := 0
	ctr := uint64(0)
	for produced < s.digestBytes {
		ctrBlock := make([]byte, s.blockBytes)
		ctrWords := bytesToWordsLE(ctrBlock, s.blockWords)
		ctrWords[0] = ctr

		s.tf.SetKey(s.state)
		tw := UbiTweak{BitsProcessed: 8, BlockType: ubiTypeOut, First: true, Final: true}
		t0, t1 := tw.words()
		s.tf.SetTweak(t0, t1)

		ct := make([]uint64, s.blockWords)
		s.tf.Encrypt(ctrWords, ct)
		for i := range ct {
			ct[i] ^= ctrWords[i]
		}

		outBytes := wordsToBytesLE(ct)
		n := copy(out[produced:s.digestBytes], outBytes)
		produced += n
		ctr++
	}

	s.Reset()
	return s.digestBytes, nil
}

// SkeinDigest adapts skeinCore to the Digest (hash.Hash-compatible)
// contract.
type SkeinDigest struct {
	core *skeinCore
}

func (d *SkeinDigest) Write(p []byte) (int, error) { return d.core.Write(p) }
func (d *SkeinDigest) Reset()                      { d.core.Reset() }
func (d *SkeinDigest) Size() int                    { return d.core.digestBytes }
func (d *SkeinDigest) BlockSize() int               { return d.core.blockBytes }
func (d *SkeinDigest) Finish(out []byte) (int, error) {
	return d.core.Finish(out)
}

func (d *SkeinDigest) Sum(b []byte) []byte {
	saveState := append([]uint64(nil), d.core.state...)
	saveBuf := append([]byte(nil), d.core.buf...)
	saveBits := d.core.bitsProcessed
	saveStarted := d.core.started

	out := make([]byte, d.core.digestBytes)
	d.core.Finish(out)

	d.core.state = saveState
	d.core.buf = saveBuf
	d.core.bitsProcessed = saveBits
	d.core.started = saveStarted

	return append(b, out...)
}
