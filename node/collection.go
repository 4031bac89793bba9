package node

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/danmuck/kbinxml/types"
)

var ErrNotFound = errors.New("node: not found")

// Collection is an element: its base definition, attributes in document
// order and child elements in document order. A nil Base marks a synthetic
// document root whose single child is the document element.
type Collection struct {
	Base       *Definition
	Attributes []Definition
	Children   []*Collection
}

// New wraps a copy of base in a collection.
func New(base Definition) *Collection {
	b := base
	return &Collection{Base: &b}
}

// NewDocument returns a synthetic root holding children.
func NewDocument(children ...*Collection) *Collection {
	return &Collection{Children: children}
}

// NewElement returns a void element.
func NewElement(key string) *Collection {
	return New(Definition{Type: types.Void, Key: key})
}

func NewString(key, s string) *Collection {
	return New(Definition{Type: types.String, Key: key, Value: types.Terminate(s)})
}

// NewValue builds a single value of type t from v. See types.Encode for the
// accepted Go values.
func NewValue(key string, t types.Type, v any) (*Collection, error) {
	return newTyped(key, t, false, v)
}

// NewArray builds an array of type t; v must hold a multiple of the type's
// component count.
func NewArray(key string, t types.Type, v any) (*Collection, error) {
	return newTyped(key, t, true, v)
}

func newTyped(key string, t types.Type, isArray bool, v any) (*Collection, error) {
	data, err := types.Encode(t, v)
	if err != nil {
		return nil, err
	}
	def := Definition{Type: t, IsArray: isArray, Key: key, Value: data}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return New(def), nil
}

// Key is the element name, empty for a synthetic root.
func (c *Collection) Key() string {
	if c == nil || c.Base == nil {
		return ""
	}
	return c.Base.Key
}

// Value returns the typed value of the base definition.
func (c *Collection) Value() (types.Value, error) {
	if c == nil || c.Base == nil {
		return types.Value{}, fmt.Errorf("%w: document root has no value", ErrInvalidNode)
	}
	return c.Base.Typed()
}

// SetAttribute replaces the value of key in place, or appends it.
func (c *Collection) SetAttribute(key, value string) *Collection {
	def := Definition{Type: types.Attribute, Key: key, Value: types.Terminate(value)}
	for i := range c.Attributes {
		if c.Attributes[i].Key == key {
			c.Attributes[i] = def
			return c
		}
	}
	c.Attributes = append(c.Attributes, def)
	return c
}

// Attribute returns the text of the first attribute named key.
func (c *Collection) Attribute(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, attr := range c.Attributes {
		if attr.Key == key {
			return attr.StringValue(), true
		}
	}
	return "", false
}

// TypedAttribute parses the attribute named key as a value of type t.
func (c *Collection) TypedAttribute(key string, t types.Type) (types.Value, error) {
	text, ok := c.Attribute(key)
	if !ok {
		return types.Value{}, fmt.Errorf("%w: attribute %q", ErrNotFound, key)
	}
	data, err := types.ParseText(t, false, text)
	if err != nil {
		return types.Value{}, err
	}
	return types.Value{Type: t, Data: data}, nil
}

func (c *Collection) AppendChild(children ...*Collection) *Collection {
	c.Children = append(c.Children, children...)
	return c
}

// Child returns the first child named key.
func (c *Collection) Child(key string) *Collection {
	if c == nil {
		return nil
	}
	for _, child := range c.Children {
		if child.Key() == key {
			return child
		}
	}
	return nil
}

func (c *Collection) ChildrenNamed(key string) []*Collection {
	if c == nil {
		return nil
	}
	var out []*Collection
	for _, child := range c.Children {
		if child.Key() == key {
			out = append(out, child)
		}
	}
	return out
}

// Pointer follows path from c. Decimal tokens index the children; any
// other token, including ones with a sign or leading zero, matches the
// first child with that key. Returns nil when a step does not resolve.
func (c *Collection) Pointer(path ...string) *Collection {
	cur := c
	for _, token := range path {
		if cur == nil {
			return nil
		}
		if idx, ok := childIndex(token); ok {
			if idx >= len(cur.Children) {
				return nil
			}
			cur = cur.Children[idx]
			continue
		}
		cur = cur.Child(token)
	}
	return cur
}

func childIndex(token string) (int, bool) {
	if token == "" || token[0] == '+' || (token[0] == '0' && len(token) > 1) {
		return 0, false
	}
	idx, err := strconv.Atoi(token)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// Document returns the document element: c itself, or the single child of
// a synthetic root.
func (c *Collection) Document() (*Collection, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil tree", ErrInvalidNode)
	}
	if c.Base != nil {
		return c, nil
	}
	if len(c.Children) != 1 {
		return nil, fmt.Errorf("%w: document root has %d children, want 1", ErrInvalidNode, len(c.Children))
	}
	return c.Children[0], nil
}

// Validate checks the tree below the document element: every element has a
// keyed value-bearing base, every attribute is an attr definition.
func (c *Collection) Validate() error {
	doc, err := c.Document()
	if err != nil {
		return err
	}
	return doc.validate()
}

func (c *Collection) validate() error {
	if c == nil || c.Base == nil {
		return fmt.Errorf("%w: nested element without base", ErrInvalidNode)
	}
	switch c.Base.Type {
	case types.Attribute, types.NodeEnd, types.FileEnd:
		return fmt.Errorf("%w: %q uses %s as element type", ErrInvalidNode, c.Base.Key, c.Base.Type)
	}
	if err := c.Base.Validate(); err != nil {
		return err
	}
	for _, attr := range c.Attributes {
		if attr.Type != types.Attribute || attr.IsArray {
			return fmt.Errorf("%w: attribute %q has type %s", ErrInvalidNode, attr.Key, attr.Type)
		}
		if err := attr.Validate(); err != nil {
			return err
		}
	}
	for _, child := range c.Children {
		if err := child.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports structural equality: bases, attribute order and values,
// and children in order.
func Equal(a, b *Collection) bool {
	if a == nil || b == nil {
		return a == b
	}
	if (a.Base == nil) != (b.Base == nil) {
		return false
	}
	if a.Base != nil && !a.Base.Equal(*b.Base) {
		return false
	}
	if len(a.Attributes) != len(b.Attributes) || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Attributes {
		if !a.Attributes[i].Equal(b.Attributes[i]) {
			return false
		}
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}
