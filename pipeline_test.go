package ciphflow

import (
	"bytes"
	"context"
	"testing"
)

// fakeKeyStore is a minimal KeyStore backing the pipeline round-trip tests:
// a single fixed fingerprint/description/key-material tuple, no rotation.
type fakeKeyStore struct {
	fingerprint [16]byte
	extension   [16]byte
	desc        *CipherDescription
	km          *KeyMaterial
}

func (f *fakeKeyStore) Resolve(ctx context.Context, fingerprint [16]byte) (*CipherDescription, *KeyMaterial, error) {
	if fingerprint != f.fingerprint {
		return nil, nil, newKeyLookupError(fingerprint, "unknown fingerprint", nil)
	}
	return f.desc, f.km.Clone(), nil
}

func (f *fakeKeyStore) NextSubkey(ctx context.Context) ([16]byte, *CipherDescription, *KeyMaterial, [16]byte, error) {
	return f.fingerprint, f.desc, f.km, f.extension, nil
}

func aesCBCDescription() *CipherDescription {
	return &CipherDescription{
		Engine:     EngineRDX,
		KeySize:    32,
		IVSize:     16,
		BlockSize:  16,
		Mode:       ModeCBC,
		Padding:    PaddingPKCS7,
		MACEngine:  DigestSHA512,
		MACTagSize: 64,
	}
}

func aesCTRNoMACDescription() *CipherDescription {
	return &CipherDescription{
		Engine:    EngineRDX,
		KeySize:   32,
		IVSize:    16,
		BlockSize: 16,
		Mode:      ModeCTR,
		Padding:   PaddingNone,
	}
}

func newFakeStore(desc *CipherDescription) *fakeKeyStore {
	km := &KeyMaterial{
		Key:    make([]byte, desc.KeySize),
		IV:     make([]byte, desc.IVSize),
		MACKey: make([]byte, 32),
	}
	for i := range km.Key {
		km.Key[i] = byte(i*7 + 3)
	}
	for i := range km.IV {
		km.IV[i] = byte(i*3 + 1)
	}
	for i := range km.MACKey {
		km.MACKey[i] = byte(i + 11)
	}

	var fp, ext [16]byte
	for i := range fp {
		fp[i] = byte(i + 100)
		ext[i] = byte(i + 200)
	}

	return &fakeKeyStore{fingerprint: fp, extension: ext, desc: desc, km: km}
}

func encryptThenDecrypt(t *testing.T, store *fakeKeyStore, plaintext []byte) []byte {
	t.Helper()
	ctx := context.Background()

	fp, desc, km, ext, err := store.NextSubkey(ctx)
	if err != nil {
		t.Fatalf("NextSubkey: %v", err)
	}
	encKM := km.Clone()
	encPipe, err := NewEncryptPipeline(desc, encKM, fp, ext)
	if err != nil {
		t.Fatalf("NewEncryptPipeline: %v", err)
	}

	var wire bytes.Buffer
	if err := encPipe.Process(ctx, bytes.NewReader(plaintext), &wire); err != nil {
		t.Fatalf("encrypt Process: %v", err)
	}

	decPipe, err := NewDecryptPipeline(store)
	if err != nil {
		t.Fatalf("NewDecryptPipeline: %v", err)
	}
	var out bytes.Buffer
	if err := decPipe.Process(ctx, bytes.NewReader(wire.Bytes()), &out); err != nil {
		t.Fatalf("decrypt Process: %v", err)
	}
	return out.Bytes()
}

func TestPipelineRoundTripCBCWithMAC(t *testing.T) {
	store := newFakeStore(aesCBCDescription())
	plaintext := []byte("the quick brown fox jumps over the lazy dog, repeatedly, to fill more than one block")

	got := encryptThenDecrypt(t, store, plaintext)
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip = %q, want %q", got, plaintext)
	}
}

func TestPipelineRoundTripCBCEmptyAndShortInputs(t *testing.T) {
	store := newFakeStore(aesCBCDescription())
	for _, msg := range [][]byte{
		{},
		[]byte("a"),
		make([]byte, 16),
		make([]byte, 17),
	} {
		got := encryptThenDecrypt(t, store, msg)
		if !bytes.Equal(got, msg) {
			t.Fatalf("round trip of %d-byte input = %x, want %x", len(msg), got, msg)
		}
	}
}

func TestPipelineRoundTripCTRNoPadding(t *testing.T) {
	store := newFakeStore(aesCTRNoMACDescription())
	plaintext := bytes.Repeat([]byte("ciphflow"), 50) // not block-aligned-sensitive for CTR

	got := encryptThenDecrypt(t, store, plaintext)
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("CTR round trip mismatch")
	}
}

func TestPipelineDetectsTamperedCiphertext(t *testing.T) {
	store := newFakeStore(aesCBCDescription())
	ctx := context.Background()
	plaintext := []byte("authenticate me please")

	fp, desc, km, ext, err := store.NextSubkey(ctx)
	if err != nil {
		t.Fatalf("NextSubkey: %v", err)
	}
	encPipe, err := NewEncryptPipeline(desc, km.Clone(), fp, ext)
	if err != nil {
		t.Fatalf("NewEncryptPipeline: %v", err)
	}
	var wire bytes.Buffer
	if err := encPipe.Process(ctx, bytes.NewReader(plaintext), &wire); err != nil {
		t.Fatalf("encrypt Process: %v", err)
	}

	tampered := wire.Bytes()
	tampered[len(tampered)-1] ^= 0xff

	decPipe, err := NewDecryptPipeline(store)
	if err != nil {
		t.Fatalf("NewDecryptPipeline: %v", err)
	}
	var out bytes.Buffer
	err = decPipe.Process(ctx, bytes.NewReader(tampered), &out)
	if err == nil {
		t.Fatalf("expected tampered ciphertext to fail authentication")
	}
	if !IsAuthenticationError(err) {
		t.Errorf("expected an AuthenticationError, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("no plaintext should have been written on authentication failure, got %d bytes", out.Len())
	}
}

func TestPipelineCancellationViaProgressCallback(t *testing.T) {
	store := newFakeStore(aesCBCDescription())
	ctx := context.Background()
	plaintext := []byte("this message is long enough to span more than a single block of output data")

	fp, desc, km, ext, err := store.NextSubkey(ctx)
	if err != nil {
		t.Fatalf("NextSubkey: %v", err)
	}
	encPipe, err := NewEncryptPipeline(desc, km.Clone(), fp, ext)
	if err != nil {
		t.Fatalf("NewEncryptPipeline: %v", err)
	}
	encPipe.SetProgressCallback(func(done, total int64) ControlFlow {
		return Stop
	})

	var wire bytes.Buffer
	err = encPipe.Process(ctx, bytes.NewReader(plaintext), &wire)
	if err == nil {
		t.Fatalf("expected cancellation to produce an error")
	}
	if wire.Len() != 0 {
		t.Errorf("no output should have been written after cancellation, got %d bytes", wire.Len())
	}
}

func TestPipelineRejectsReuseAfterProcess(t *testing.T) {
	store := newFakeStore(aesCBCDescription())
	ctx := context.Background()

	fp, desc, km, ext, err := store.NextSubkey(ctx)
	if err != nil {
		t.Fatalf("NextSubkey: %v", err)
	}
	encPipe, err := NewEncryptPipeline(desc, km.Clone(), fp, ext)
	if err != nil {
		t.Fatalf("NewEncryptPipeline: %v", err)
	}

	var wire bytes.Buffer
	if err := encPipe.Process(ctx, bytes.NewReader([]byte("first")), &wire); err != nil {
		t.Fatalf("first Process: %v", err)
	}

	var again bytes.Buffer
	if err := encPipe.Process(ctx, bytes.NewReader([]byte("second")), &again); err == nil {
		t.Fatalf("expected a second Process call on the same pipeline to fail")
	}
}

func TestPipelineUnknownFingerprintFails(t *testing.T) {
	store := newFakeStore(aesCBCDescription())
	ctx := context.Background()

	// Build a wire message under one store, then try decrypting it with a
	// store that doesn't recognize that fingerprint.
	fp, desc, km, ext, err := store.NextSubkey(ctx)
	if err != nil {
		t.Fatalf("NextSubkey: %v", err)
	}
	encPipe, err := NewEncryptPipeline(desc, km.Clone(), fp, ext)
	if err != nil {
		t.Fatalf("NewEncryptPipeline: %v", err)
	}
	var wire bytes.Buffer
	if err := encPipe.Process(ctx, bytes.NewReader([]byte("hello")), &wire); err != nil {
		t.Fatalf("encrypt Process: %v", err)
	}

	other := newFakeStore(aesCBCDescription())
	decPipe, err := NewDecryptPipeline(other)
	if err != nil {
		t.Fatalf("NewDecryptPipeline: %v", err)
	}
	var out bytes.Buffer
	err = decPipe.Process(ctx, bytes.NewReader(wire.Bytes()), &out)
	if err == nil {
		t.Fatalf("expected an unknown fingerprint to fail resolution")
	}
	if !IsKeyLookupError(err) {
		t.Errorf("expected a KeyLookupError, got %v", err)
	}
}

func TestPipelineParallelCTRMatchesSequentialOutput(t *testing.T) {
	descSeq := aesCTRNoMACDescription()
	storeSeq := newFakeStore(descSeq)
	descPar := aesCTRNoMACDescription()
	storePar := &fakeKeyStore{
		fingerprint: storeSeq.fingerprint,
		extension:   storeSeq.extension,
		desc:        descPar,
		km:          storeSeq.km,
	}

	plaintext := bytes.Repeat([]byte{0x5c}, 16*500+7)
	ctx := context.Background()

	fp, desc, km, ext, _ := storeSeq.NextSubkey(ctx)
	seqPipe, err := NewEncryptPipeline(desc, km.Clone(), fp, ext)
	if err != nil {
		t.Fatalf("NewEncryptPipeline (sequential): %v", err)
	}
	var seqWire bytes.Buffer
	if err := seqPipe.Process(ctx, bytes.NewReader(plaintext), &seqWire); err != nil {
		t.Fatalf("sequential Process: %v", err)
	}

	fp2, desc2, km2, ext2, _ := storePar.NextSubkey(ctx)
	parPipe, err := NewEncryptPipeline(desc2, km2.Clone(), fp2, ext2)
	if err != nil {
		t.Fatalf("NewEncryptPipeline (parallel): %v", err)
	}
	parPipe.SetParallel(ParallelPolicy{Kind: ParallelSpeedProfile})
	var parWire bytes.Buffer
	if err := parPipe.Process(ctx, bytes.NewReader(plaintext), &parWire); err != nil {
		t.Fatalf("parallel Process: %v", err)
	}

	if !bytes.Equal(seqWire.Bytes(), parWire.Bytes()) {
		t.Fatalf("parallel CTR encrypt output diverges from sequential")
	}
}
