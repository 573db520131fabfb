package ciphflow

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/twofish"
)

// NewBlockCipher builds the cipher.Block named by desc.Engine, keyed with
// key. Every block-cipher engine here satisfies the standard library's
// cipher.Block contract directly (BlockSize/Encrypt/Decrypt map 1:1 onto
// block_size_bytes/encrypt_block/decrypt_block), so the result plugs
// straight into the operating modes in mode.go.
func NewBlockCipher(engine EngineType, rounds int, kdfDigest DigestType, key []byte) (cipher.Block, error) {
	switch engine {
	case EngineRDX:
		return aes.NewCipher(key)
	case EngineSerpent:
		return NewSerpentCipher(key)
	case EngineTwofish:
		return twofish.NewCipher(key)
	case EngineRHX:
		return newHXCipher(EngineRDX, key, rounds, kdfDigest)
	case EngineSHX:
		return newHXCipher(EngineSerpent, key, rounds, kdfDigest)
	case EngineTHX:
		return newHXCipher(EngineTwofish, key, rounds, kdfDigest)
	case EngineRSM:
		return newHXCipher(EngineRDX, key, rounds, DigestSkein512)
	case EngineTSM:
		return newHXCipher(EngineTwofish, key, rounds, DigestSkein512)
	default:
		return nil, fmt.Errorf("%w: %s is not a block engine", ErrInvalidArgument, engine)
	}
}
