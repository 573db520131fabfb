package ciphflow

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// DescriptionRecordSize is the fixed wire size of a serialized
// CipherDescription.
const DescriptionRecordSize = 16

// MarshalBinary encodes d into the fixed 16-byte little-endian record.
func (d *CipherDescription) MarshalBinary() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	rec := descriptionRecord{
		Engine:    uint8(d.Engine),
		KeySize:   uint16(d.KeySize),
		IVSize:    uint8(d.IVSize),
		BlockSize: uint8(d.BlockSize),
		Rounds:    uint8(d.Rounds),
		Mode:      uint8(d.Mode),
		Padding:   uint8(d.Padding),
		KDFDigest: uint8(d.KDFDigest),
		MACEngine: uint8(d.MACEngine),
		MACSize:   uint16(d.MACTagSize),
	}

	buf := new(bytes.Buffer)
	buf.Grow(DescriptionRecordSize)
	if err := binary.Write(buf, binary.LittleEndian, rec); err != nil {
		return nil, fmt.Errorf("%w: encode cipher description: %v", ErrInternalInvariant, err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a 16-byte little-endian record into d.
func (d *CipherDescription) UnmarshalBinary(data []byte) error {
	if len(data) < DescriptionRecordSize {
		return fmt.Errorf("%w: cipher description record needs %d bytes, got %d",
			ErrBufferTooShort, DescriptionRecordSize, len(data))
	}

	var rec descriptionRecord
	if err := binary.Read(bytes.NewReader(data[:DescriptionRecordSize]), binary.LittleEndian, &rec); err != nil {
		return fmt.Errorf("%w: decode cipher description: %v", ErrInvalidArgument, err)
	}

	*d = CipherDescription{
		Engine:     EngineType(rec.Engine),
		KeySize:    int(rec.KeySize),
		IVSize:     int(rec.IVSize),
		BlockSize:  int(rec.BlockSize),
		Rounds:     int(rec.Rounds),
		Mode:       ModeType(rec.Mode),
		Padding:    PaddingType(rec.Padding),
		KDFDigest:  DigestType(rec.KDFDigest),
		MACEngine:  DigestType(rec.MACEngine),
		MACTagSize: int(rec.MACSize),
	}
	return d.Validate()
}
