package ciphflow

import "testing"

func TestCipherDescriptionValidateBlockEngine(t *testing.T) {
	valid := CipherDescription{
		Engine:    EngineRDX,
		KeySize:   32,
		IVSize:    16,
		BlockSize: 16,
		Mode:      ModeCBC,
		Padding:   PaddingPKCS7,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected a valid description to pass, got %v", err)
	}

	missingMode := valid
	missingMode.Mode = ModeNone
	if err := missingMode.Validate(); err == nil {
		t.Errorf("expected a block engine with ModeNone to fail validation")
	}

	badBlockSize := valid
	badBlockSize.BlockSize = 24
	if err := badBlockSize.Validate(); err == nil {
		t.Errorf("expected an unsupported block size to fail validation")
	}

	mismatchedIV := valid
	mismatchedIV.IVSize = 8
	if err := mismatchedIV.Validate(); err == nil {
		t.Errorf("expected a mismatched IV size to fail validation")
	}
}

func TestCipherDescriptionValidateStreamEngine(t *testing.T) {
	valid := CipherDescription{
		Engine:  EngineChaCha,
		KeySize: 32,
		IVSize:  8,
		Mode:    ModeNone,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected a valid stream description to pass, got %v", err)
	}

	badMode := valid
	badMode.Mode = ModeCTR
	if err := badMode.Validate(); err == nil {
		t.Errorf("expected a stream engine with a non-None mode to fail validation")
	}

	badKeySize := valid
	badKeySize.KeySize = 20
	if err := badKeySize.Validate(); err == nil {
		t.Errorf("expected an unsupported stream key size to fail validation")
	}

	badIVSize := valid
	badIVSize.IVSize = 16
	if err := badIVSize.Validate(); err == nil {
		t.Errorf("expected a stream engine IV size other than 8 to fail validation")
	}
}

func TestCipherDescriptionValidateMACFields(t *testing.T) {
	base := CipherDescription{
		Engine:    EngineRDX,
		KeySize:   32,
		IVSize:    16,
		BlockSize: 16,
		Mode:      ModeCTR,
	}

	badTagSize := base
	badTagSize.MACTagSize = 48
	if err := badTagSize.Validate(); err == nil {
		t.Errorf("expected an unsupported mac tag size to fail validation")
	}

	missingEngine := base
	missingEngine.MACTagSize = 64
	if err := missingEngine.Validate(); err == nil {
		t.Errorf("expected a non-zero mac tag size with no mac engine to fail validation")
	}

	ok := base
	ok.MACTagSize = 64
	ok.MACEngine = DigestSHA512
	if err := ok.Validate(); err != nil {
		t.Errorf("expected a valid mac configuration to pass, got %v", err)
	}

	mismatched := base
	mismatched.MACTagSize = 128
	mismatched.MACEngine = DigestSHA512
	if err := mismatched.Validate(); err == nil {
		t.Errorf("expected a 128-byte tag paired with SHA512 (64-byte output) to fail validation")
	}

	skein1024 := base
	skein1024.MACTagSize = 128
	skein1024.MACEngine = DigestSkein1024
	if err := skein1024.Validate(); err != nil {
		t.Errorf("expected a 128-byte tag paired with Skein1024 to pass, got %v", err)
	}
}

func TestKeyMaterialValidate(t *testing.T) {
	desc := &CipherDescription{
		Engine:     EngineRDX,
		KeySize:    32,
		IVSize:     16,
		BlockSize:  16,
		Mode:       ModeCBC,
		Padding:    PaddingPKCS7,
		MACEngine:  DigestSHA512,
		MACTagSize: 64,
	}

	good := &KeyMaterial{Key: make([]byte, 32), IV: make([]byte, 16), MACKey: make([]byte, 32)}
	if err := good.Validate(desc); err != nil {
		t.Errorf("expected valid key material to pass, got %v", err)
	}

	wrongKeySize := &KeyMaterial{Key: make([]byte, 16), IV: make([]byte, 16), MACKey: make([]byte, 32)}
	if err := wrongKeySize.Validate(desc); err == nil {
		t.Errorf("expected a wrong key size to fail validation")
	}

	missingMACKey := &KeyMaterial{Key: make([]byte, 32), IV: make([]byte, 16)}
	if err := missingMACKey.Validate(desc); err == nil {
		t.Errorf("expected a missing mac key to fail validation when MACTagSize > 0")
	}
}

func TestKeyMaterialZeroClearsBytes(t *testing.T) {
	km := &KeyMaterial{Key: []byte{1, 2, 3}, IV: []byte{4, 5}, MACKey: []byte{6, 7, 8, 9}}
	km.Zero()
	for _, b := range km.Key {
		if b != 0 {
			t.Errorf("Key not zeroed: %v", km.Key)
			break
		}
	}
	for _, b := range km.IV {
		if b != 0 {
			t.Errorf("IV not zeroed: %v", km.IV)
			break
		}
	}
	for _, b := range km.MACKey {
		if b != 0 {
			t.Errorf("MACKey not zeroed: %v", km.MACKey)
			break
		}
	}
}

func TestKeyMaterialCloneIsIndependent(t *testing.T) {
	km := &KeyMaterial{Key: []byte{1, 2, 3}, IV: []byte{4, 5}, MACKey: []byte{6, 7}}
	clone := km.Clone()
	clone.Key[0] = 0xff
	if km.Key[0] == 0xff {
		t.Errorf("mutating the clone should not affect the original")
	}
}
