// Package node holds the in-memory kbin document tree.
//
// Ownership boundary:
// - node definitions and collections
// - builders and lookups used by callers assembling documents
// - structural equality
package node

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/danmuck/kbinxml/types"
)

var ErrInvalidNode = errors.New("node: invalid node")

// Definition is one typed, keyed entry of a document: an element base, an
// attribute, or a structural marker. Keys are held as UTF-8; string and
// attribute values carry their payload plus one 0x00 terminator.
type Definition struct {
	Type    types.Type
	IsArray bool
	Key     string
	Value   []byte
}

// Info returns the registry entry of the definition's type.
func (d Definition) Info() (types.Info, error) {
	return d.Type.Info()
}

// Typed returns a checked typed view of the value.
func (d Definition) Typed() (types.Value, error) {
	return types.Decode(d.Type, d.IsArray, d.Value)
}

// Text renders the value in its text form.
func (d Definition) Text() (string, error) {
	return types.FormatText(d.Type, d.IsArray, d.Value)
}

// StringValue returns string payloads without their terminator.
func (d Definition) StringValue() string {
	return string(types.TrimTerminator(d.Value))
}

// Validate checks the key and that the value bytes fit the type.
func (d Definition) Validate() error {
	if d.Key == "" {
		return fmt.Errorf("%w: %s definition without key", ErrInvalidNode, d.Type)
	}
	if _, err := types.CheckSize(d.Type, d.IsArray, d.Value); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidNode, d.Key, err)
	}
	return nil
}

// Equal compares type, array flag, key and value bytes.
func (d Definition) Equal(o Definition) bool {
	return d.Type == o.Type &&
		d.IsArray == o.IsArray &&
		d.Key == o.Key &&
		bytes.Equal(d.Value, o.Value)
}

func (d Definition) String() string {
	text, err := d.Text()
	if err != nil {
		text = fmt.Sprintf("<%v>", err)
	}
	if d.IsArray {
		return fmt.Sprintf("%s[%s]=%q", d.Key, d.Type, text)
	}
	return fmt.Sprintf("%s(%s)=%q", d.Key, d.Type, text)
}
