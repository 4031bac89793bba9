package kbin

import (
	"errors"
	"fmt"

	"github.com/danmuck/kbinxml/sixbit"
)

var (
	ErrInvalidSignature       = errors.New("kbin: invalid signature")
	ErrHeaderChecksumMismatch = errors.New("kbin: header checksum mismatch")
	ErrUnknownCompression     = errors.New("kbin: unknown compression")
	ErrTruncatedInput         = errors.New("kbin: truncated input")
	ErrUnexpectedNodeType     = errors.New("kbin: unexpected node type")
	ErrNameTooLong            = sixbit.ErrNameTooLong
)

// OffsetError locates a decode failure inside one of the document buffers.
type OffsetError struct {
	Buffer string
	Offset int
	Err    error
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("kbin: %s offset %d: %v", e.Buffer, e.Offset, e.Err)
}

func (e *OffsetError) Unwrap() error {
	return e.Err
}
