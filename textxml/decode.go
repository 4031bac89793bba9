package textxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/danmuck/kbinxml/charset"
	"github.com/danmuck/kbinxml/node"
	"github.com/danmuck/kbinxml/types"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Decode parses UTF-8 XML into a tree. The returned encoding is the charset
// named in the XML declaration, UTF8 when absent or unrecognized; it does
// not change how the input is read.
func Decode(data []byte) (*node.Collection, charset.Encoding, error) {
	data = bytes.TrimPrefix(data, bom)
	if !utf8.Valid(data) {
		return nil, charset.None, fmt.Errorf("%w: text input is not UTF-8", charset.ErrEncodingDecode)
	}

	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = true
	d.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	declared := charset.UTF8
	var stack []*frame
	var root *node.Collection
	for {
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, charset.None, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}

		switch t := tok.(type) {
		case xml.ProcInst:
			if t.Target == "xml" {
				if label := declaredEncoding(t.Inst); label != "" {
					if e, err := charset.FromLabel(label); err == nil {
						declared = e
					}
				}
			}
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, charset.None, fmt.Errorf("%w: second root element <%s>", ErrMalformedXML, qualified(t.Name))
			}
			stack = append(stack, newFrame(t))
		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) != 0 {
					return nil, charset.None, fmt.Errorf("%w: text outside the root element", ErrMalformedXML)
				}
				continue
			}
			stack[len(stack)-1].text.Write(t)
		case xml.EndElement:
			name := qualified(t.Name)
			if len(stack) == 0 || stack[len(stack)-1].key != name {
				return nil, charset.None, fmt.Errorf("%w: unexpected </%s>", ErrMalformedXML, name)
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			c, err := top.finish()
			if err != nil {
				return nil, charset.None, err
			}
			if len(stack) == 0 {
				root = c
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, c)
			}
		}
	}

	if len(stack) != 0 {
		return nil, charset.None, fmt.Errorf("%w: unclosed <%s>", ErrMalformedXML, stack[len(stack)-1].key)
	}
	if root == nil {
		return nil, charset.None, fmt.Errorf("%w: no root element", ErrMalformedXML)
	}
	return root, declared, nil
}

type frame struct {
	key      string
	typeName string
	count    string
	size     string
	hasType  bool
	hasCount bool
	hasSize  bool
	attrs    []node.Definition
	children []*node.Collection
	text     strings.Builder
}

func newFrame(start xml.StartElement) *frame {
	f := &frame{key: qualified(start.Name)}
	for _, a := range start.Attr {
		name := qualified(a.Name)
		switch name {
		case attrType:
			f.typeName, f.hasType = a.Value, true
		case attrCount:
			f.count, f.hasCount = a.Value, true
		case attrSize:
			f.size, f.hasSize = a.Value, true
		default:
			f.attrs = append(f.attrs, node.Definition{
				Type:  types.Attribute,
				Key:   name,
				Value: types.Terminate(a.Value),
			})
		}
	}
	return f
}

func (f *frame) finish() (*node.Collection, error) {
	def, err := f.definition()
	if err != nil {
		return nil, fmt.Errorf("element <%s>: %w", f.key, err)
	}
	c := node.New(def)
	c.Attributes = f.attrs
	c.Children = f.children
	return c, nil
}

func (f *frame) definition() (node.Definition, error) {
	def := node.Definition{Key: f.key}
	text := f.text.String()
	hasChildren := len(f.children) > 0

	if !f.hasType {
		if hasChildren || strings.TrimSpace(text) == "" {
			def.Type = types.Void
			return def, nil
		}
		def.Type = types.String
		def.Value = types.Terminate(text)
		return def, nil
	}

	info, err := types.LookupName(f.typeName)
	if err != nil {
		return def, err
	}
	switch info.Type {
	case types.Attribute, types.NodeEnd, types.FileEnd:
		return def, fmt.Errorf("%w: %s is not an element type", node.ErrInvalidNode, info.Name)
	case types.Void:
		def.Type = types.Void
		return def, nil
	}
	def.Type = info.Type
	def.IsArray = f.hasCount

	if hasChildren || info.Kind != types.KindString {
		text = strings.TrimSpace(text)
	}
	if def.Value, err = types.ParseText(info.Type, def.IsArray, text); err != nil {
		return def, err
	}
	if f.hasCount {
		n, err := strconv.Atoi(strings.TrimSpace(f.count))
		if err != nil || n < 0 {
			return def, &types.ParseError{Type: info.Type, Literal: f.count, Err: errors.New("bad __count")}
		}
		if got := len(def.Value) / info.ValueSize(); got != n {
			return def, fmt.Errorf("%w: __count=%d but %d elements", types.ErrSizeMismatch, n, got)
		}
	}
	if f.hasSize && info.Kind == types.KindBinary {
		n, err := strconv.Atoi(strings.TrimSpace(f.size))
		if err != nil || n < 0 {
			return def, &types.ParseError{Type: info.Type, Literal: f.size, Err: errors.New("bad __size")}
		}
		if n != len(def.Value) {
			return def, fmt.Errorf("%w: __size=%d but %d bytes", types.ErrSizeMismatch, n, len(def.Value))
		}
	}
	return def, nil
}

func qualified(n xml.Name) string {
	if n.Space != "" {
		return n.Space + ":" + n.Local
	}
	return n.Local
}

// declaredEncoding extracts the encoding pseudo-attribute of an XML
// declaration.
func declaredEncoding(inst []byte) string {
	s := string(inst)
	idx := strings.Index(s, "encoding")
	if idx < 0 {
		return ""
	}
	s = strings.TrimLeft(s[idx+len("encoding"):], " \t\r\n")
	if !strings.HasPrefix(s, "=") {
		return ""
	}
	s = strings.TrimLeft(s[1:], " \t\r\n")
	if s == "" || (s[0] != '"' && s[0] != '\'') {
		return ""
	}
	quote := s[0]
	end := strings.IndexByte(s[1:], quote)
	if end < 0 {
		return ""
	}
	return s[1 : 1+end]
}
