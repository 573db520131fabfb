// Package examplestore is a minimal, password-derived KeyStore standing in
// for real external key-package storage. It exists so the CLI and
// integration tests have something to resolve a fingerprint against; it is
// not a production key store (no rotation policy, no persistence, no
// access control beyond the password itself).
package examplestore

import (
	"context"
	"crypto/sha512"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"

	"github.com/heliosec/ciphflow"
)

// KDFKind selects which password-based KDF derives the subkey.
type KDFKind uint8

const (
	KDFArgon2id KDFKind = iota
	KDFPBKDF2
)

// Store derives every subkey it hands out from one password plus a
// per-fingerprint salt, using desc to size the derived key/IV/MAC-key
// bundle. It keeps only enough state (salts, by fingerprint) to reproduce
// the same KeyMaterial again on Resolve.
type Store struct {
	mu       sync.Mutex
	password []byte
	kdf      KDFKind
	desc     ciphflow.CipherDescription
	salts    map[[16]byte][]byte
}

// New builds a Store that derives keys for desc from password using kdf.
func New(password []byte, kdf KDFKind, desc ciphflow.CipherDescription) *Store {
	return &Store{
		password: append([]byte(nil), password...),
		kdf:      kdf,
		desc:     desc,
		salts:    make(map[[16]byte][]byte),
	}
}

func (s *Store) deriveKeyMaterial(salt []byte) (*ciphflow.KeyMaterial, error) {
	need := s.desc.KeySize + s.desc.IVSize + s.desc.MACTagSize
	var derived []byte
	switch s.kdf {
	case KDFArgon2id:
		derived = argon2.IDKey(s.password, salt, 3, 64*1024, 4, uint32(need))
	case KDFPBKDF2:
		derived = pbkdf2.Key(s.password, salt, 100_000, need, sha512.New)
	default:
		return nil, fmt.Errorf("examplestore: unknown kdf kind %d", s.kdf)
	}

	km := &ciphflow.KeyMaterial{
		Key: append([]byte(nil), derived[:s.desc.KeySize]...),
		IV:  append([]byte(nil), derived[s.desc.KeySize:s.desc.KeySize+s.desc.IVSize]...),
	}
	if s.desc.MACTagSize > 0 {
		km.MACKey = append([]byte(nil), derived[s.desc.KeySize+s.desc.IVSize:need]...)
	}
	return km, nil
}

// Resolve implements ciphflow.KeyStore.
func (s *Store) Resolve(_ context.Context, fingerprint [16]byte) (*ciphflow.CipherDescription, *ciphflow.KeyMaterial, error) {
	s.mu.Lock()
	salt, ok := s.salts[fingerprint]
	s.mu.Unlock()
	if !ok {
		return nil, nil, &ciphflow.KeyLookupError{Fingerprint: fingerprint, Message: "examplestore: unknown fingerprint"}
	}

	km, err := s.deriveKeyMaterial(salt)
	if err != nil {
		return nil, nil, err
	}
	desc := s.desc
	return &desc, km, nil
}

// NextSubkey implements ciphflow.KeyStore: it mints a fresh random salt,
// derives a fingerprint from it, and remembers the mapping so a later
// Resolve of that fingerprint reproduces the same KeyMaterial.
func (s *Store) NextSubkey(_ context.Context) ([16]byte, *ciphflow.CipherDescription, *ciphflow.KeyMaterial, [16]byte, error) {
	// uuid.New (a random, version-4 UUID) is the salt source: 16 bytes of
	// crypto/rand under the hood, already the shape a fingerprint basis
	// needs.
	id := uuid.New()
	salt := id[:]

	sum := sha512.Sum512(salt)
	var fingerprint [16]byte
	copy(fingerprint[:], sum[:16])

	s.mu.Lock()
	s.salts[fingerprint] = salt
	s.mu.Unlock()

	km, err := s.deriveKeyMaterial(salt)
	if err != nil {
		return [16]byte{}, nil, nil, [16]byte{}, err
	}
	desc := s.desc

	var extension [16]byte
	copy(extension[:], sum[16:32])

	return fingerprint, &desc, km, extension, nil
}
