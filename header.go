package ciphflow

import (
	"crypto/subtle"
	"fmt"
)

const (
	fingerprintSize = 16
	extensionSize   = 16
)

// MessageHeader is the fixed-layout prefix carried ahead of every encrypted
// message: a 16-byte key fingerprint, a 16-byte extension the key store can
// use for its own bookkeeping (rotation epoch, recipient hint, ...), and a
// MAC tag sized to the description's MAC engine. The ciphertext itself
// follows, sized to the message.
type MessageHeader struct {
	Fingerprint [16]byte
	Extension   [16]byte
	Tag         []byte
}

// obfuscationMask derives a 16-byte mask from fingerprint so Extension
// never appears as plain bytes on the wire. This is bit-hiding, not
// encryption: the mask is a public deterministic function of the
// fingerprint, which itself travels in the clear right next to it.
func obfuscationMask(fingerprint [16]byte) [16]byte {
	d := NewSHA512()
	d.Write(fingerprint[:])
	d.Write([]byte("ciphflow-header-extension-mask"))
	var full [64]byte
	d.Finish(full[:])
	var mask [16]byte
	copy(mask[:], full[:16])
	return mask
}

// NewMessageHeader builds a header with extension obfuscated against
// fingerprint.
func NewMessageHeader(fingerprint [16]byte, extension [16]byte, tagSize int) *MessageHeader {
	mask := obfuscationMask(fingerprint)
	var obf [16]byte
	xorBlock(obf[:], extension[:], mask[:])
	return &MessageHeader{Fingerprint: fingerprint, Extension: obf, Tag: make([]byte, tagSize)}
}

// PlainExtension reverses the obfuscation mask, recovering the extension
// bytes the key store originally supplied.
func (h *MessageHeader) PlainExtension() [16]byte {
	mask := obfuscationMask(h.Fingerprint)
	var out [16]byte
	xorBlock(out[:], h.Extension[:], mask[:])
	return out
}

// Size returns the header's on-wire length in bytes.
func (h *MessageHeader) Size() int {
	return fingerprintSize + extensionSize + len(h.Tag)
}

// MarshalBinary serializes the header as fingerprint || extension || tag.
func (h *MessageHeader) MarshalBinary() ([]byte, error) {
	out := make([]byte, h.Size())
	copy(out[0:16], h.Fingerprint[:])
	copy(out[16:32], h.Extension[:])
	copy(out[32:], h.Tag)
	return out, nil
}

// ParseMessageHeader reads a header of the given tag size from the front of
// data, returning the header and the number of bytes consumed.
func ParseMessageHeader(data []byte, tagSize int) (*MessageHeader, int, error) {
	total := fingerprintSize + extensionSize + tagSize
	if len(data) < total {
		return nil, 0, fmt.Errorf("%w: message header needs %d bytes, got %d", ErrBufferTooShort, total, len(data))
	}
	h := &MessageHeader{Tag: make([]byte, tagSize)}
	copy(h.Fingerprint[:], data[0:16])
	copy(h.Extension[:], data[16:32])
	copy(h.Tag, data[32:total])
	return h, total, nil
}

// VerifyTag reports whether computed matches h.Tag using a constant-time
// comparison, so a timing side channel cannot leak how many leading tag
// bytes an attacker-supplied ciphertext got right.
func (h *MessageHeader) VerifyTag(computed []byte) bool {
	return subtle.ConstantTimeCompare(h.Tag, computed) == 1
}
