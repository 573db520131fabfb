// Package ciphflow implements a configurable symmetric encryption pipeline:
// a cipher description picks an engine (AES, Serpent, Twofish, their
// digest-extended HX variants, or the ChaCha20/Salsa20 stream ciphers), an
// operating mode, a padding scheme, and an optional HMAC, and a Pipeline
// drives a full encrypt or decrypt pass over a stream using that
// description plus key material resolved from an external KeyStore.
//
// The primitive layer (SHA-512, Keccak, Threefish, Skein) is implemented
// from scratch rather than wrapping crypto/sha512 or a vendored sponge
// library; those four are the primitives CipherDescription's digest and
// HX-engine fields name. Everything downstream of that
// layer leans on crypto/aes, crypto/cipher, crypto/hmac, and
// golang.org/x/crypto's chacha20/salsa20/twofish/hkdf packages.
package ciphflow
