package ciphflow

import "context"

// KeyStore is the external collaborator the pipeline calls out to for key
// material. It is deliberately small: ciphflow never persists or generates
// long-term keys itself, only asks for them by fingerprint and for a fresh
// one when starting a new message.
type KeyStore interface {
	// Resolve looks up the CipherDescription and KeyMaterial for
	// fingerprint, the 16-byte value carried in a MessageHeader. It returns
	// a KeyLookupError if fingerprint is unknown or access is denied.
	Resolve(ctx context.Context, fingerprint [16]byte) (*CipherDescription, *KeyMaterial, error)

	// NextSubkey returns the fingerprint, description, and key material to
	// use for a new outbound message, along with any opaque header
	// extension bytes the store wants round-tripped back to it on decrypt.
	// Implementations that don't rotate keys can return a fixed
	// fingerprint every time.
	NextSubkey(ctx context.Context) (fingerprint [16]byte, desc *CipherDescription, km *KeyMaterial, extension [16]byte, err error)
}
