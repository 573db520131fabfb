package ciphflow

import (
	"crypto/hmac"
	"fmt"
	"hash"
)

// NewMAC builds an HMAC keyed message authenticator over the digest named
// by engine, using crypto/hmac's generic construction. Any Digest qualifies
// as the underlying hash.Hash, including the package's own
// SHA512/Keccak/Skein implementations alongside anything crypto/hmac
// already knows about.
func NewMAC(engine DigestType, key []byte) (hash.Hash, error) {
	if engine == DigestNone {
		return nil, fmt.Errorf("%w: mac engine must not be None", ErrInvalidArgument)
	}
	if _, err := NewDigest(engine); err != nil {
		return nil, err
	}
	return hmac.New(func() hash.Hash {
		d, err := NewDigest(engine)
		if err != nil {
			// NewDigest already validated engine above; a later failure here
			// means the registry and this switch disagree, an internal bug.
			panic(err)
		}
		return d
	}, key), nil
}

// MACSize returns the tag size in bytes HMAC produces for engine, without
// needing a key.
func MACSize(engine DigestType) (int, error) {
	d, err := NewDigest(engine)
	if err != nil {
		return 0, err
	}
	return d.Size(), nil
}
