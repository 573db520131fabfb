package ciphflow

import "testing"

func TestPaddingRoundTrip(t *testing.T) {
	schemes := []PaddingType{PaddingPKCS7, PaddingX923, PaddingISO7816, PaddingTBC, PaddingZero}
	const blockSize = 16

	for _, scheme := range schemes {
		for n := 0; n < blockSize; n++ {
			msg := make([]byte, n)
			for i := range msg {
				msg[i] = byte(i + 1)
			}

			padded, err := PadBlock(scheme, msg, blockSize)
			if err != nil {
				t.Fatalf("%s: PadBlock(len %d): %v", scheme, n, err)
			}
			if len(padded) != blockSize {
				t.Fatalf("%s: padded length = %d, want %d", scheme, len(padded), blockSize)
			}

			got, err := UnpadBlock(scheme, padded)
			if err != nil {
				t.Fatalf("%s: UnpadBlock(len %d): %v", scheme, n, err)
			}
			if len(got) != len(msg) {
				t.Fatalf("%s: unpadded length = %d, want %d", scheme, len(got), len(msg))
			}
			for i := range msg {
				if got[i] != msg[i] {
					t.Fatalf("%s: byte %d = %x, want %x", scheme, i, got[i], msg[i])
				}
			}
		}
	}
}

func TestPKCS7RejectsBadPadding(t *testing.T) {
	block := make([]byte, 16)
	block[15] = 0 // padLen 0 is invalid
	if _, err := UnpadBlock(PaddingPKCS7, block); err == nil {
		t.Fatalf("expected ErrPaddingInvalid for zero padLen")
	}

	block2 := make([]byte, 16)
	for i := range block2 {
		block2[i] = 4
	}
	block2[13] = 9 // one padding byte corrupted
	if _, err := UnpadBlock(PaddingPKCS7, block2); err == nil {
		t.Fatalf("expected ErrPaddingInvalid for inconsistent padding bytes")
	}
}

func TestPadBlockRejectsFullBlockInput(t *testing.T) {
	full := make([]byte, 16)
	if _, err := PadBlock(PaddingPKCS7, full, 16); err == nil {
		t.Fatalf("expected an error padding an already-full block")
	}
}
