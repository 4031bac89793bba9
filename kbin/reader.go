package kbin

import (
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/kbinxml/charset"
	"github.com/danmuck/kbinxml/node"
	"github.com/danmuck/kbinxml/sixbit"
	"github.com/danmuck/kbinxml/types"
	"github.com/rs/zerolog"
)

// Decoder rebuilds trees from binary documents.
type Decoder struct {
	Logger zerolog.Logger
}

func NewDecoder(logger zerolog.Logger) *Decoder {
	return &Decoder{Logger: logger}
}

// Decode parses a binary document into its document element and the
// charset declared in the header.
func Decode(data []byte) (*node.Collection, charset.Encoding, error) {
	return NewDecoder(zerolog.Nop()).Decode(data)
}

func (d *Decoder) Decode(data []byte) (*node.Collection, charset.Encoding, error) {
	s, err := open(data)
	if err != nil {
		d.Logger.Debug().Err(err).Msg("kbin header rejected")
		return nil, charset.None, err
	}
	d.Logger.Debug().
		Stringer("compression", s.header.Compression).
		Stringer("encoding", s.header.Encoding).
		Int("node_len", len(s.nodes.buf)).
		Int("data_len", len(s.values.buf)).
		Msg("kbin decode")

	root, err := d.build(s)
	if err != nil {
		d.Logger.Debug().Err(err).Msg("kbin decode failed")
		return nil, charset.None, err
	}
	return root, s.header.Encoding, nil
}

func (d *Decoder) build(s *stream) (*node.Collection, error) {
	var stack []*node.Collection
	var root *node.Collection
	for {
		def, err := s.next()
		if err != nil {
			return nil, err
		}
		d.Logger.Trace().
			Int("offset", s.last).
			Int("depth", len(stack)).
			Stringer("type", def.Type).
			Bool("array", def.IsArray).
			Str("key", def.Key).
			Msg("kbin node")

		switch def.Type {
		case types.NodeEnd:
			if len(stack) == 0 {
				return nil, s.unexpected("element end with no open element")
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				root = top
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, top)
			}
		case types.FileEnd:
			if len(stack) != 0 {
				return nil, s.unexpected(fmt.Sprintf("file end with %d open elements", len(stack)))
			}
			if root == nil {
				return nil, s.unexpected("file end before any element")
			}
			return root, nil
		case types.Attribute:
			if len(stack) == 0 {
				return nil, s.unexpected("attribute outside an element")
			}
			top := stack[len(stack)-1]
			top.Attributes = append(top.Attributes, def)
		default:
			if root != nil && len(stack) == 0 {
				return nil, s.unexpected("second document element")
			}
			stack = append(stack, node.New(def))
		}
	}
}

// Walk visits every definition of a binary document in node buffer order,
// passing the element depth it occurs at. Element ends are reported at the
// depth of the element they close. Walking stops after the file end marker
// or at the first error returned by fn.
func Walk(data []byte, fn func(depth int, def node.Definition) error) error {
	s, err := open(data)
	if err != nil {
		return err
	}
	depth := 0
	for {
		def, err := s.next()
		if err != nil {
			return err
		}
		if def.Type == types.NodeEnd {
			depth--
			if depth < 0 {
				return s.unexpected("element end with no open element")
			}
		}
		if err := fn(depth, def); err != nil {
			return err
		}
		switch def.Type {
		case types.FileEnd:
			return nil
		case types.NodeEnd, types.Attribute:
		default:
			depth++
		}
	}
}

// Dump writes one indented line per definition of a binary document.
func Dump(w io.Writer, data []byte) error {
	return Walk(data, func(depth int, def node.Definition) error {
		indent := strings.Repeat("  ", depth)
		var err error
		switch def.Type {
		case types.NodeEnd, types.FileEnd:
			_, err = fmt.Fprintf(w, "%s%s\n", indent, def.Type)
		case types.Void:
			_, err = fmt.Fprintf(w, "%s<%s>\n", indent, def.Key)
		case types.Attribute:
			_, err = fmt.Fprintf(w, "%s@%s=%q\n", indent, def.Key, def.StringValue())
		default:
			_, err = fmt.Fprintf(w, "%s%s\n", indent, def)
		}
		return err
	})
}

// stream reads definitions from a split document.
type stream struct {
	header Header
	nodes  *buffer
	values *buffer
	last   int
}

func open(data []byte) (*stream, error) {
	sec, err := Split(data)
	if err != nil {
		return nil, err
	}
	return &stream{
		header: sec.Header,
		nodes:  &buffer{name: "node buffer", buf: sec.Nodes},
		values: &buffer{name: "data buffer", buf: sec.Data},
	}, nil
}

func (s *stream) unexpected(msg string) error {
	return s.nodes.failAt(s.last, fmt.Errorf("%w: %s", ErrUnexpectedNodeType, msg))
}

func (s *stream) next() (node.Definition, error) {
	s.last = s.nodes.pos
	tag, err := s.nodes.readByte()
	if err != nil {
		return node.Definition{}, err
	}
	def := node.Definition{
		Type:    types.Type(tag &^ ArrayFlag),
		IsArray: tag&ArrayFlag != 0,
	}
	info, err := def.Type.Info()
	if err != nil {
		return node.Definition{}, s.nodes.failAt(s.last, err)
	}
	if def.Type == types.NodeEnd || def.Type == types.FileEnd {
		return def, nil
	}

	if def.Key, err = s.name(); err != nil {
		return node.Definition{}, err
	}
	if def.Type == types.Void {
		return def, nil
	}
	if def.Value, err = s.value(def, info); err != nil {
		return node.Definition{}, err
	}
	return def, nil
}

func (s *stream) name() (string, error) {
	at := s.nodes.pos
	lenByte, err := s.nodes.readByte()
	if err != nil {
		return "", err
	}
	if s.header.Compression == Compressed {
		n := int(lenByte)
		packed, err := s.nodes.take(sixbit.PackedLen(n))
		if err != nil {
			return "", err
		}
		name, err := sixbit.Decompress(packed, n)
		if err != nil {
			return "", s.nodes.failAt(at, err)
		}
		return name, nil
	}
	raw, err := s.nodes.take(int(lenByte&^ArrayFlag) + 1)
	if err != nil {
		return "", err
	}
	name, err := s.header.Encoding.Decode(raw)
	if err != nil {
		return "", s.nodes.failAt(at, err)
	}
	return name, nil
}

func (s *stream) value(def node.Definition, info types.Info) ([]byte, error) {
	at := s.values.pos
	switch {
	case info.Kind == types.KindString:
		if def.IsArray {
			return nil, s.nodes.failAt(s.last, fmt.Errorf("%w: %s array", types.ErrKindMismatch, def.Type))
		}
		raw, err := s.values.sized()
		if err != nil {
			return nil, err
		}
		text, err := s.header.Encoding.Decode(types.TrimTerminator(raw))
		if err != nil {
			return nil, s.values.failAt(at, err)
		}
		return types.Terminate(text), nil
	case info.Kind == types.KindBinary:
		if def.IsArray {
			return nil, s.nodes.failAt(s.last, fmt.Errorf("%w: %s array", types.ErrKindMismatch, def.Type))
		}
		raw, err := s.values.sized()
		if err != nil {
			return nil, err
		}
		return clone(raw), nil
	case def.IsArray:
		raw, err := s.values.sized()
		if err != nil {
			return nil, err
		}
		if len(raw)%info.ValueSize() != 0 {
			return nil, s.values.failAt(at, fmt.Errorf("%w: %s array of %d bytes", types.ErrSizeMismatch, def.Type, len(raw)))
		}
		return clone(raw), nil
	default:
		raw, err := s.values.fixed(info.ValueSize())
		if err != nil {
			return nil, err
		}
		return clone(raw), nil
	}
}

func clone(p []byte) []byte {
	out := make([]byte, len(p))
	copy(out, p)
	return out
}
