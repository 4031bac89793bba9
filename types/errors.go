package types

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownType        = errors.New("types: unknown type id")
	ErrUnknownTypeName    = errors.New("types: unknown type name")
	ErrInvalidTypeLiteral = errors.New("types: invalid type literal")
	ErrSizeMismatch       = errors.New("types: value size mismatch")
	ErrKindMismatch       = errors.New("types: value kind mismatch")
	ErrValueOutOfRange    = errors.New("types: value out of range")
)

// ParseError reports a text literal that could not be parsed for a type.
// It matches ErrInvalidTypeLiteral with errors.Is and unwraps to the cause.
type ParseError struct {
	Type    Type
	Literal string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("types: invalid %s literal %q", e.Type, e.Literal)
	}
	return fmt.Sprintf("types: invalid %s literal %q: %v", e.Type, e.Literal, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidTypeLiteral
}

func sizeError(info Info, isArray bool, n int) error {
	if isArray {
		return fmt.Errorf("%w: %s array of %d bytes is not a multiple of %d", ErrSizeMismatch, info.Name, n, info.ValueSize())
	}
	return fmt.Errorf("%w: %s expects %d bytes, got %d", ErrSizeMismatch, info.Name, info.ValueSize(), n)
}
