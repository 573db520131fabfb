package ciphflow

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestSHA512KnownAnswer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty",
			in:   "",
			want: "cf83e1357eefb8bdf1542850d66d8007d620e4050b5715dc83f4a921d36ce9ce47d0d13c5d85f2b0ff8318d2877eec2f63b931bd47417a81a538327af927da3e",
		},
		{
			name: "abc",
			in:   "abc",
			want: "ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewSHA512()
			d.Write([]byte(tt.in))
			out := make([]byte, d.Size())
			if _, err := d.Finish(out); err != nil {
				t.Fatalf("Finish: %v", err)
			}
			got := hex.EncodeToString(out)
			if got != tt.want {
				t.Errorf("sha512(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestSHA512SumDoesNotResetState(t *testing.T) {
	d := NewSHA512()
	d.Write([]byte("partial"))
	first := d.Sum(nil)

	d.Write([]byte(" more"))
	second := d.Sum(nil)

	if bytes.Equal(first, second) {
		t.Fatalf("Sum results should differ after writing more data")
	}

	fresh := NewSHA512()
	fresh.Write([]byte("partial more"))
	want := fresh.Sum(nil)
	if !bytes.Equal(second, want) {
		t.Errorf("Sum after incremental writes = %x, want %x", second, want)
	}
}

func TestSHA512LongMessageSpansBlocks(t *testing.T) {
	msg := bytes.Repeat([]byte("a"), 1000)
	d := NewSHA512()
	d.Write(msg)
	out := make([]byte, d.Size())
	d.Finish(out)

	d2 := NewSHA512()
	for i := 0; i < len(msg); i += 7 {
		end := i + 7
		if end > len(msg) {
			end = len(msg)
		}
		d2.Write(msg[i:end])
	}
	out2 := make([]byte, d2.Size())
	d2.Finish(out2)

	if !bytes.Equal(out, out2) {
		t.Errorf("chunked writes produced a different digest than one large write")
	}
}
