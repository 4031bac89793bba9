package kbinxml

import (
	"github.com/danmuck/kbinxml/charset"
	"github.com/danmuck/kbinxml/internal/config"
	"github.com/danmuck/kbinxml/kbin"
	"github.com/danmuck/kbinxml/node"
	"github.com/danmuck/kbinxml/sixbit"
	"github.com/danmuck/kbinxml/textxml"
	"github.com/danmuck/kbinxml/types"
)

type (
	Collection  = node.Collection
	Definition  = node.Definition
	Encoding    = charset.Encoding
	Compression = kbin.Compression
	Options     = kbin.Options
	Type        = types.Type
)

const (
	Compressed   = kbin.Compressed
	Uncompressed = kbin.Uncompressed
)

var (
	ErrInvalidSignature       = kbin.ErrInvalidSignature
	ErrHeaderChecksumMismatch = kbin.ErrHeaderChecksumMismatch
	ErrUnknownCompression     = kbin.ErrUnknownCompression
	ErrTruncatedInput         = kbin.ErrTruncatedInput
	ErrUnexpectedNodeType     = kbin.ErrUnexpectedNodeType
	ErrUnknownEncoding        = charset.ErrUnknownEncoding
	ErrEncodingDecode         = charset.ErrEncodingDecode
	ErrEncodingEncode         = charset.ErrEncodingEncode
	ErrUnknownType            = types.ErrUnknownType
	ErrUnknownTypeName        = types.ErrUnknownTypeName
	ErrInvalidTypeLiteral     = types.ErrInvalidTypeLiteral
	ErrSizeMismatch           = types.ErrSizeMismatch
	ErrUnsupportedCharacter   = sixbit.ErrUnsupportedCharacter
	ErrNameTooLong            = sixbit.ErrNameTooLong
	ErrInvalidNode            = node.ErrInvalidNode
	ErrMalformedXML           = textxml.ErrMalformedXML
	ErrUnrepresentable        = textxml.ErrUnrepresentable
)

// DefaultOptions is compressed names with Shift_JIS text.
func DefaultOptions() Options {
	return kbin.DefaultOptions()
}

// LoadOptions reads writer options from a TOML profile.
func LoadOptions(path string) (Options, error) {
	p, err := config.LoadProfile(path)
	if err != nil {
		return Options{}, err
	}
	return p.Options()
}

// IsBinary reports whether data looks like a binary document.
func IsBinary(data []byte) bool {
	return kbin.IsBinary(data)
}

func Decode(data []byte) (*Collection, Encoding, error) {
	return DefaultCodec().Decode(data)
}

func DecodeBinary(data []byte) (*Collection, Encoding, error) {
	return DefaultCodec().DecodeBinary(data)
}

func DecodeText(data []byte) (*Collection, Encoding, error) {
	return DefaultCodec().DecodeText(data)
}

// EncodeBinary writes root with opts, ignoring the default codec's options.
func EncodeBinary(root *Collection, opts Options) ([]byte, error) {
	c := *DefaultCodec()
	c.Options = opts
	return c.EncodeBinary(root)
}

func EncodeText(root *Collection) ([]byte, error) {
	return DefaultCodec().EncodeText(root)
}
