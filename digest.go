package ciphflow

import "hash"

// Digest is the contract every digest in the primitive layer implements. It
// embeds hash.Hash so a Digest can be passed directly to crypto/hmac, and
// adds Finish for "emit and reset" semantics that hash.Hash.Sum does not
// provide (Sum appends to, but does not clear, the running state).
type Digest interface {
	hash.Hash

	// Finish writes Size() bytes into out starting at offset 0 and resets
	// the digest to its initial state. It returns ErrBufferTooShort if out
	// is smaller than Size().
	Finish(out []byte) (int, error)
}

// NewDigest constructs the Digest for t.
func NewDigest(t DigestType) (Digest, error) {
	switch t {
	case DigestSHA512:
		return NewSHA512(), nil
	case DigestKeccak256:
		return newKeccak(1088, 256), nil
	case DigestKeccak512:
		return newKeccak(576, 512), nil
	case DigestSkein512:
		return NewSkein512(DefaultSkeinOutputBits512), nil
	case DigestSkein1024:
		return NewSkein1024(DefaultSkeinOutputBits1024), nil
	default:
		return nil, newValidationError("digest_type", t, "unsupported digest type")
	}
}
