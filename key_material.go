package ciphflow

import "fmt"

// KeyMaterial is the resolved key bundle the external key store hands back
// for a fingerprint. It is owned by the caller and borrowed by the
// pipeline for the duration of a transform.
type KeyMaterial struct {
	Key    []byte
	IV     []byte
	MACKey []byte
}

// Validate checks the bundle against the sizes d requires.
func (k *KeyMaterial) Validate(d *CipherDescription) error {
	if k == nil {
		return newValidationError("key_material", nil, "key material is nil")
	}
	if len(k.Key) != d.KeySize {
		return newValidationError("key_material.key", len(k.Key),
			fmt.Sprintf("expected %d bytes, got %d", d.KeySize, len(k.Key)))
	}
	if len(k.IV) != d.IVSize {
		return newValidationError("key_material.iv", len(k.IV),
			fmt.Sprintf("expected %d bytes, got %d", d.IVSize, len(k.IV)))
	}
	if d.MACTagSize > 0 && len(k.MACKey) == 0 {
		return newValidationError("key_material.mac_key", len(k.MACKey),
			"mac key required when mac_tag_size_bytes > 0")
	}
	return nil
}

// Zero overwrites the key, IV, and MAC key with zero bytes. Call via defer
// as soon as a transform using this bundle completes.
func (k *KeyMaterial) Zero() {
	if k == nil {
		return
	}
	zeroAll(k.Key, k.IV, k.MACKey)
}

// Clone returns a deep copy of k, so a worker in a parallel fan-out can own
// a private, independently-zeroizable copy.
func (k *KeyMaterial) Clone() *KeyMaterial {
	c := &KeyMaterial{
		Key:    make([]byte, len(k.Key)),
		IV:     make([]byte, len(k.IV)),
		MACKey: make([]byte, len(k.MACKey)),
	}
	copy(c.Key, k.Key)
	copy(c.IV, k.IV)
	copy(c.MACKey, k.MACKey)
	return c
}
