// Package kbin reads and writes the dual-stream binary XML format.
//
// A document is a five byte header followed by two length-prefixed
// buffers: the node buffer holds type tags and names in document order,
// the data buffer holds values, each entry aligned to four bytes.
package kbin

import (
	"fmt"
	"strings"

	"github.com/danmuck/kbinxml/charset"
)

const (
	Signature byte = 0xA0
	HeaderLen      = 5
	// ArrayFlag marks an array value in a node tag and the uncompressed
	// name length byte.
	ArrayFlag byte = 0x40
)

// Compression selects how node names are stored.
type Compression uint8

const (
	Compressed   Compression = 0x42
	Uncompressed Compression = 0x45
)

func CompressionFromByte(b byte) (Compression, error) {
	switch c := Compression(b); c {
	case Compressed, Uncompressed:
		return c, nil
	}
	return 0, fmt.Errorf("%w: 0x%02x", ErrUnknownCompression, b)
}

// ParseCompression accepts "compressed" or "uncompressed".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compressed":
		return Compressed, nil
	case "uncompressed":
		return Uncompressed, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
}

func (c Compression) String() string {
	switch c {
	case Compressed:
		return "compressed"
	case Uncompressed:
		return "uncompressed"
	}
	return fmt.Sprintf("compression(0x%02x)", byte(c))
}

// Options control how a tree is written.
type Options struct {
	Compression Compression
	Encoding    charset.Encoding
}

func DefaultOptions() Options {
	return Options{Compression: Compressed, Encoding: charset.ShiftJIS}
}

func (o Options) Validate() error {
	if _, err := CompressionFromByte(byte(o.Compression)); err != nil {
		return err
	}
	if _, err := charset.FromByte(o.Encoding.Byte()); err != nil {
		return err
	}
	return nil
}

// Header is the decoded fixed prefix of a document.
type Header struct {
	Compression Compression
	Encoding    charset.Encoding
}

// Append writes the signature, the compression marker and the encoding id,
// each value followed by its bitwise complement.
func (h Header) Append(dst []byte) []byte {
	c := byte(h.Compression)
	e := h.Encoding.Byte()
	return append(dst, Signature, c, ^c, e, ^e)
}

// IsBinary reports whether data starts with the binary signature. The
// signature byte is never the first byte of a UTF-8 text document.
func IsBinary(data []byte) bool {
	return len(data) > 0 && data[0] == Signature
}

// ReadHeader validates and decodes the header prefix of data.
func ReadHeader(data []byte) (Header, error) {
	if len(data) == 0 {
		return Header{}, fmt.Errorf("%w: empty input", ErrTruncatedInput)
	}
	if data[0] != Signature {
		return Header{}, fmt.Errorf("%w: 0x%02x", ErrInvalidSignature, data[0])
	}
	if len(data) < HeaderLen {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, got %d", ErrTruncatedInput, HeaderLen, len(data))
	}
	if data[1]^data[2] != 0xFF {
		return Header{}, fmt.Errorf("%w: compression 0x%02x/0x%02x", ErrHeaderChecksumMismatch, data[1], data[2])
	}
	if data[3]^data[4] != 0xFF {
		return Header{}, fmt.Errorf("%w: encoding 0x%02x/0x%02x", ErrHeaderChecksumMismatch, data[3], data[4])
	}
	compression, err := CompressionFromByte(data[1])
	if err != nil {
		return Header{}, err
	}
	encoding, err := charset.FromByte(data[3])
	if err != nil {
		return Header{}, err
	}
	return Header{Compression: compression, Encoding: encoding}, nil
}

// Sections is a document split into its header and buffers.
type Sections struct {
	Header Header
	Nodes  []byte
	Data   []byte
}

// Split reads the header and slices out the node and data buffers. Bytes
// after the data buffer are ignored.
func Split(data []byte) (Sections, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return Sections{}, err
	}
	file := &buffer{name: "file", buf: data, pos: HeaderLen}
	nodeLen, err := file.u32()
	if err != nil {
		return Sections{}, err
	}
	nodes, err := file.take(int(nodeLen))
	if err != nil {
		return Sections{}, err
	}
	dataLen, err := file.u32()
	if err != nil {
		return Sections{}, err
	}
	values, err := file.take(int(dataLen))
	if err != nil {
		return Sections{}, err
	}
	return Sections{Header: h, Nodes: nodes, Data: values}, nil
}
