// Package charset maps kbin encoding ids to text encodings and transcodes
// between them and UTF-8.
package charset

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// Encoding is the charset id stored in the kbin header.
type Encoding uint8

const (
	None      Encoding = 0x00
	ASCII     Encoding = 0x20
	ISO8859_1 Encoding = 0x40
	EUCJP     Encoding = 0x60
	ShiftJIS  Encoding = 0x80
	UTF8      Encoding = 0xA0
)

var (
	ErrUnknownEncoding = errors.New("charset: unknown encoding")
	ErrEncodingDecode  = errors.New("charset: invalid bytes for encoding")
	ErrEncodingEncode  = errors.New("charset: text not representable in encoding")
)

var names = map[Encoding]string{
	None:      "none",
	ASCII:     "ASCII",
	ISO8859_1: "ISO-8859-1",
	EUCJP:     "EUC-JP",
	ShiftJIS:  "SHIFT_JIS",
	UTF8:      "UTF-8",
}

var labels = map[string]Encoding{
	"none":        None,
	"ascii":       ASCII,
	"us-ascii":    ASCII,
	"iso-8859-1":  ISO8859_1,
	"iso8859-1":   ISO8859_1,
	"latin1":      ISO8859_1,
	"euc-jp":      EUCJP,
	"eucjp":       EUCJP,
	"shift_jis":   ShiftJIS,
	"shift-jis":   ShiftJIS,
	"sjis":        ShiftJIS,
	"windows-31j": ShiftJIS,
	"cp932":       ShiftJIS,
	"utf-8":       UTF8,
	"utf8":        UTF8,
}

// FromByte validates a header encoding id.
func FromByte(b byte) (Encoding, error) {
	e := Encoding(b)
	if _, ok := names[e]; !ok {
		return None, fmt.Errorf("%w: 0x%02x", ErrUnknownEncoding, b)
	}
	return e, nil
}

// FromLabel resolves a charset label such as an XML prolog encoding.
func FromLabel(label string) (Encoding, error) {
	e, ok := labels[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return None, fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
	}
	return e, nil
}

func (e Encoding) Byte() byte {
	return byte(e)
}

// Name is the canonical label accepted by FromLabel.
func (e Encoding) Name() string {
	return names[e]
}

func (e Encoding) String() string {
	if name, ok := names[e]; ok {
		return name
	}
	return fmt.Sprintf("encoding(0x%02x)", byte(e))
}

func (e Encoding) codec() encoding.Encoding {
	switch e {
	case ISO8859_1:
		return charmap.ISO8859_1
	case EUCJP:
		return japanese.EUCJP
	case ShiftJIS:
		return japanese.ShiftJIS
	}
	return nil
}

// Decode transcodes document bytes to UTF-8. None passes bytes through.
// Multi-byte charsets are checked by re-encoding, so malformed sequences
// fail instead of turning into replacement characters.
func (e Encoding) Decode(b []byte) (string, error) {
	switch e {
	case None:
		return string(b), nil
	case ASCII:
		for i, c := range b {
			if c >= utf8.RuneSelf {
				return "", fmt.Errorf("%w: ASCII byte 0x%02x at %d", ErrEncodingDecode, c, i)
			}
		}
		return string(b), nil
	case UTF8:
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w: invalid UTF-8", ErrEncodingDecode)
		}
		return string(b), nil
	}

	codec := e.codec()
	if codec == nil {
		return "", fmt.Errorf("%w: 0x%02x", ErrUnknownEncoding, byte(e))
	}
	out, err := codec.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrEncodingDecode, e, err)
	}
	back, err := codec.NewEncoder().Bytes(out)
	if err != nil || !bytes.Equal(back, b) {
		return "", fmt.Errorf("%w: %s: malformed sequence", ErrEncodingDecode, e)
	}
	return string(out), nil
}

// Encode transcodes UTF-8 text to document bytes.
func (e Encoding) Encode(s string) ([]byte, error) {
	switch e {
	case None:
		return []byte(s), nil
	case ASCII:
		for i, r := range s {
			if r >= utf8.RuneSelf {
				return nil, fmt.Errorf("%w: %q at %d in ASCII", ErrEncodingEncode, r, i)
			}
		}
		return []byte(s), nil
	case UTF8:
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%w: invalid UTF-8", ErrEncodingEncode)
		}
		return []byte(s), nil
	}

	codec := e.codec()
	if codec == nil {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownEncoding, byte(e))
	}
	out, err := codec.NewEncoder().String(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncodingEncode, e, err)
	}
	return []byte(out), nil
}
