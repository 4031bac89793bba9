// Package textxml renders document trees as text XML and parses them back.
//
// Value types travel in reserved attributes: __type names the registry
// type, __count marks an array with its element count and __size gives the
// byte length of bin values. Elements without __type are void when they
// have children or only whitespace, and strings otherwise.
package textxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/danmuck/kbinxml/node"
	"github.com/danmuck/kbinxml/types"
)

const (
	attrType  = "__type"
	attrCount = "__count"
	attrSize  = "__size"
)

var (
	ErrMalformedXML = errors.New("textxml: malformed xml")
	// ErrUnrepresentable is returned by Encode for trees that text XML
	// cannot carry unchanged.
	ErrUnrepresentable = errors.New("textxml: tree not representable as xml")
)

// Encode renders root as UTF-8 XML with two space indentation. A root
// without a base must hold exactly one child.
func Encode(root *node.Collection) ([]byte, error) {
	doc, err := root.Document()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := writeElement(enc, doc); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeElement(enc *xml.Encoder, c *node.Collection) error {
	if c == nil || c.Base == nil {
		return fmt.Errorf("%w: nested element without base", node.ErrInvalidNode)
	}
	base := c.Base
	switch base.Type {
	case types.Attribute, types.NodeEnd, types.FileEnd:
		return fmt.Errorf("%w: %q uses %s as element type", node.ErrInvalidNode, base.Key, base.Type)
	}
	if base.Key == "" {
		return fmt.Errorf("%w: element without key", node.ErrInvalidNode)
	}
	if !validName(base.Key) {
		return fmt.Errorf("%w: element name %q", ErrUnrepresentable, base.Key)
	}

	start := xml.StartElement{Name: xml.Name{Local: base.Key}}
	text := ""
	if base.Type != types.Void {
		info, err := types.CheckSize(base.Type, base.IsArray, base.Value)
		if err != nil {
			return fmt.Errorf("element %q: %w", base.Key, err)
		}
		if text, err = base.Text(); err != nil {
			return fmt.Errorf("element %q: %w", base.Key, err)
		}
		if err := checkChars(text); err != nil {
			return fmt.Errorf("%w: element %q: %v", ErrUnrepresentable, base.Key, err)
		}
		if base.IsArray {
			start.Attr = append(start.Attr, attr(attrCount, strconv.Itoa(len(base.Value)/info.ValueSize())))
		}
		if info.Kind == types.KindBinary {
			start.Attr = append(start.Attr, attr(attrSize, strconv.Itoa(len(base.Value))))
		}
		if base.Type != types.String || strings.TrimSpace(text) == "" || len(c.Children) > 0 {
			start.Attr = append(start.Attr, attr(attrType, info.Name))
		}
	}
	for _, a := range c.Attributes {
		if a.Type != types.Attribute {
			return fmt.Errorf("%w: attribute %q has type %s", node.ErrInvalidNode, a.Key, a.Type)
		}
		switch {
		case a.Key == attrType || a.Key == attrCount || a.Key == attrSize:
			return fmt.Errorf("%w: attribute %q on %q is reserved", ErrUnrepresentable, a.Key, base.Key)
		case !validName(a.Key):
			return fmt.Errorf("%w: attribute name %q on %q", ErrUnrepresentable, a.Key, base.Key)
		}
		value := a.StringValue()
		if err := checkChars(value); err != nil {
			return fmt.Errorf("%w: attribute %q on %q: %v", ErrUnrepresentable, a.Key, base.Key, err)
		}
		start.Attr = append(start.Attr, attr(a.Key, value))
	}

	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if text != "" {
		if err := enc.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
	}
	for _, child := range c.Children {
		if err := writeElement(enc, child); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// validName reports whether s is usable as an XML element or attribute name.
func validName(s string) bool {
	if s == "" || !utf8.ValidString(s) {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == ':' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}

// checkChars rejects text outside the XML Char production, which the
// encoder would otherwise replace.
func checkChars(s string) error {
	if !utf8.ValidString(s) {
		return errors.New("invalid UTF-8")
	}
	for i, r := range s {
		if !isXMLChar(r) {
			return fmt.Errorf("character %U at byte %d", r, i)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}
