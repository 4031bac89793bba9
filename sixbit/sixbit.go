// Package sixbit packs kbin node names into six bits per character.
package sixbit

import (
	"errors"
	"fmt"
)

// Alphabet maps six-bit codes to characters; the code is the index.
const Alphabet = "0123456789:ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

// MaxLen is the longest name a single length byte can describe.
const MaxLen = 255

var (
	ErrUnsupportedCharacter = errors.New("sixbit: unsupported character")
	ErrNameTooLong          = errors.New("sixbit: name too long")
	ErrLengthMismatch       = errors.New("sixbit: packed length mismatch")
)

// CharError reports the first character outside the alphabet.
type CharError struct {
	Char  rune
	Index int
}

func (e *CharError) Error() string {
	return fmt.Sprintf("sixbit: unsupported character %q at index %d", e.Char, e.Index)
}

func (e *CharError) Is(target error) bool {
	return target == ErrUnsupportedCharacter
}

var codes = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		idx[Alphabet[i]] = int8(i)
	}
	return idx
}()

// PackedLen is the number of bytes holding n packed characters.
func PackedLen(n int) int {
	return (n*6 + 7) / 8
}

// Valid reports whether every character of name is in the alphabet.
func Valid(name string) bool {
	for i := 0; i < len(name); i++ {
		if codes[name[i]] < 0 {
			return false
		}
	}
	return true
}

// Compress packs name MSB-first, zero padding the final byte.
func Compress(name string) ([]byte, error) {
	if len(name) > MaxLen {
		return nil, fmt.Errorf("%w: %d characters", ErrNameTooLong, len(name))
	}
	out := make([]byte, PackedLen(len(name)))
	var acc uint32
	bits := 0
	j := 0
	for i, r := range name {
		if r >= 0x80 || codes[r] < 0 {
			return nil, &CharError{Char: r, Index: i}
		}
		acc = acc<<6 | uint32(codes[r])
		bits += 6
		if bits >= 8 {
			bits -= 8
			out[j] = byte(acc >> bits)
			j++
			acc &= 1<<bits - 1
		}
	}
	if bits > 0 {
		out[j] = byte(acc << (8 - bits))
	}
	return out, nil
}

// Append writes the length byte and packed form of name to dst.
func Append(dst []byte, name string) ([]byte, error) {
	packed, err := Compress(name)
	if err != nil {
		return dst, err
	}
	dst = append(dst, byte(len(name)))
	return append(dst, packed...), nil
}

// Decompress unpacks length characters from data. Padding bits are ignored.
func Decompress(data []byte, length int) (string, error) {
	if length < 0 || length > MaxLen {
		return "", fmt.Errorf("%w: %d characters", ErrNameTooLong, length)
	}
	if len(data) != PackedLen(length) {
		return "", fmt.Errorf("%w: %d characters need %d bytes, got %d", ErrLengthMismatch, length, PackedLen(length), len(data))
	}
	out := make([]byte, length)
	var acc uint32
	bits := 0
	j := 0
	for i := 0; i < length; i++ {
		for bits < 6 {
			acc = acc<<8 | uint32(data[j])
			j++
			bits += 8
		}
		bits -= 6
		out[i] = Alphabet[(acc>>bits)&0x3f]
		acc &= 1<<bits - 1
	}
	return string(out), nil
}
