package ciphflow

import (
	"crypto/cipher"
	"fmt"
)

// NewModeStream builds the sequential, whole-message stream/block-mode
// transformer for mode, keyed by block and iv. CBC returns a
// cipher.BlockMode; CFB/OFB/CTR return a cipher.Stream. Both satisfy an
// XORKeyStream-shaped contract close enough that mode.go's parallel helpers
// below reimplement only the per-block math modes need for out-of-order
// access, not the whole mode again.
func NewModeStream(mode ModeType, dir Direction, block cipher.Block, iv []byte) (interface{}, error) {
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("%w: iv length %d must equal block size %d", ErrInvalidArgument, len(iv), block.BlockSize())
	}

	switch mode {
	case ModeCBC:
		if dir == Encrypt {
			return cipher.NewCBCEncrypter(block, iv), nil
		}
		return cipher.NewCBCDecrypter(block, iv), nil

	case ModeCFB:
		if dir == Encrypt {
			return cipher.NewCFBEncrypter(block, iv), nil
		}
		return cipher.NewCFBDecrypter(block, iv), nil

	case ModeOFB:
		return cipher.NewOFB(block, iv), nil

	case ModeCTR:
		return cipher.NewCTR(block, iv), nil

	default:
		return nil, fmt.Errorf("%w: mode %s has no stream transformer", ErrInvalidArgument, mode)
	}
}

// ctrIVAt returns the IV that starts CTR keystream generation at
// blockIndex*blockSize bytes into the stream, by adding blockIndex to the
// big-endian integer formed by the whole IV (the conventional CTR counter
// layout: CTR is embarrassingly parallel, since sub-chunk N can start its
// counter at N*chunk_blocks).
func ctrIVAt(iv []byte, blockIndex uint64) []byte {
	out := make([]byte, len(iv))
	copy(out, iv)

	carry := blockIndex
	for i := len(out) - 1; i >= 0 && carry > 0; i-- {
		sum := uint64(out[i]) + carry&0xff
		out[i] = byte(sum)
		carry = carry>>8 + sum>>8
	}
	return out
}

// CTRStreamAt builds a CTR keystream positioned at sub-chunk blockIndex, for
// the parallel fan-out in parallel.go: every worker can independently seek
// to its assigned block range without processing the blocks before it.
func CTRStreamAt(block cipher.Block, iv []byte, blockIndex uint64) (cipher.Stream, error) {
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("%w: iv length %d must equal block size %d", ErrInvalidArgument, len(iv), block.BlockSize())
	}
	return cipher.NewCTR(block, ctrIVAt(iv, blockIndex)), nil
}

// CBCDecryptBlock decrypts a single CBC ciphertext block given the ciphertext
// block immediately preceding it (or the IV, for the first block). CBC
// decryption of block i depends only on ciphertext[i-1], never on any
// recovered plaintext, so a parallel decrypt worker can process any block
// once it has both ciphertext blocks in hand.
func CBCDecryptBlock(block cipher.Block, prevCiphertext, ciphertext, out []byte) {
	tmp := make([]byte, block.BlockSize())
	block.Decrypt(tmp, ciphertext)
	xorBlock(out, tmp, prevCiphertext)
}

// CFBDecryptBlock decrypts a single CFB ciphertext block given the
// ciphertext block immediately preceding it (or the IV, for the first
// block). Like CBC decrypt, CFB decrypt of block i needs only
// ciphertext[i-1] run through the block cipher's Encrypt direction, never
// any recovered plaintext.
func CFBDecryptBlock(block cipher.Block, prevCiphertext, ciphertext, out []byte) {
	tmp := make([]byte, block.BlockSize())
	block.Encrypt(tmp, prevCiphertext)
	xorBlock(out, tmp, ciphertext)
}
