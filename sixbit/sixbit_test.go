package sixbit

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestCompressKnownVector(t *testing.T) {
	packed, err := Append(nil, "hello")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	want := []byte{5, 182, 172, 113, 208}
	if !bytes.Equal(packed, want) {
		t.Fatalf("expected %v, got %v", want, packed)
	}
}

func TestRoundTrip(t *testing.T) {
	names := []string{
		"",
		"a",
		"ab",
		"abc",
		"abcd",
		"node_name",
		"Data:0",
		Alphabet,
		strings.Repeat("z", MaxLen),
	}
	for _, name := range names {
		packed, err := Compress(name)
		if err != nil {
			t.Fatalf("compress %q: %v", name, err)
		}
		if len(packed) != PackedLen(len(name)) {
			t.Fatalf("expected %d packed bytes for %q, got %d", PackedLen(len(name)), name, len(packed))
		}
		got, err := Decompress(packed, len(name))
		if err != nil {
			t.Fatalf("decompress %q: %v", name, err)
		}
		if got != name {
			t.Fatalf("expected %q, got %q", name, got)
		}
	}
}

func TestCompressRejects(t *testing.T) {
	_, err := Compress("bad-name")
	if !errors.Is(err, ErrUnsupportedCharacter) {
		t.Fatalf("expected ErrUnsupportedCharacter, got %v", err)
	}
	var cerr *CharError
	if !errors.As(err, &cerr) || cerr.Char != '-' || cerr.Index != 3 {
		t.Fatalf("expected '-' at index 3, got %#v", err)
	}
	if _, err := Compress("名前"); !errors.Is(err, ErrUnsupportedCharacter) {
		t.Fatalf("expected ErrUnsupportedCharacter for non-ASCII, got %v", err)
	}
	if _, err := Compress(strings.Repeat("a", MaxLen+1)); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
}

func TestDecompressLengthMismatch(t *testing.T) {
	if _, err := Decompress([]byte{182, 172}, 5); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestValid(t *testing.T) {
	if !Valid("Node_01:x") {
		t.Fatalf("expected Node_01:x to be valid")
	}
	if Valid("a b") {
		t.Fatalf("expected space to be rejected")
	}
}
