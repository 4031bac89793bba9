package kbin

import (
	"encoding/binary"
	"fmt"

	"github.com/danmuck/kbinxml/node"
	"github.com/danmuck/kbinxml/sixbit"
	"github.com/danmuck/kbinxml/types"
	"github.com/rs/zerolog"
)

// maxRawName is the longest uncompressed name: the length byte keeps
// len-1 in its low six bits.
const maxRawName = 64

// Encoder writes trees as binary documents.
type Encoder struct {
	Options Options
	Logger  zerolog.Logger
}

func NewEncoder(opts Options, logger zerolog.Logger) *Encoder {
	return &Encoder{Options: opts, Logger: logger}
}

// Encode writes root with opts. A root without a base must hold exactly one
// child, which becomes the document element.
func Encode(root *node.Collection, opts Options) ([]byte, error) {
	return NewEncoder(opts, zerolog.Nop()).Encode(root)
}

func (e *Encoder) Encode(root *node.Collection) ([]byte, error) {
	if err := e.Options.Validate(); err != nil {
		return nil, err
	}
	doc, err := root.Document()
	if err != nil {
		return nil, err
	}

	w := &writer{opts: e.Options}
	if err := w.element(doc); err != nil {
		e.Logger.Debug().Err(err).Msg("kbin encode failed")
		return nil, err
	}
	w.nodes = append(w.nodes, byte(types.FileEnd)|ArrayFlag)
	w.nodes = pad4(w.nodes)

	out := make([]byte, 0, HeaderLen+8+len(w.nodes)+len(w.data))
	out = Header{Compression: e.Options.Compression, Encoding: e.Options.Encoding}.Append(out)
	out = binary.BigEndian.AppendUint32(out, uint32(len(w.nodes)))
	out = append(out, w.nodes...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(w.data)))
	out = append(out, w.data...)

	e.Logger.Debug().
		Stringer("compression", e.Options.Compression).
		Stringer("encoding", e.Options.Encoding).
		Int("node_len", len(w.nodes)).
		Int("data_len", len(w.data)).
		Msg("kbin encode")
	return out, nil
}

type writer struct {
	opts  Options
	nodes []byte
	data  []byte
}

func (w *writer) element(c *node.Collection) error {
	if c == nil || c.Base == nil {
		return fmt.Errorf("%w: nested element without base", node.ErrInvalidNode)
	}
	base := c.Base
	switch base.Type {
	case types.Attribute, types.NodeEnd, types.FileEnd:
		return fmt.Errorf("%w: %q uses %s as element type", node.ErrInvalidNode, base.Key, base.Type)
	}
	info, err := base.Type.Info()
	if err != nil {
		return err
	}

	tag := byte(base.Type)
	if base.IsArray {
		tag |= ArrayFlag
	}
	w.nodes = append(w.nodes, tag)
	if err := w.name(base.Key); err != nil {
		return err
	}
	if base.Type == types.Void {
		if len(base.Value) != 0 {
			return fmt.Errorf("%w: void element %q carries a value", node.ErrInvalidNode, base.Key)
		}
	} else if err := w.value(*base, info); err != nil {
		return err
	}

	for _, attr := range c.Attributes {
		if attr.Type != types.Attribute || attr.IsArray {
			return fmt.Errorf("%w: attribute %q has type %s", node.ErrInvalidNode, attr.Key, attr.Type)
		}
		if err := w.text(attr.Value); err != nil {
			return err
		}
		w.nodes = append(w.nodes, byte(types.Attribute))
		if err := w.name(attr.Key); err != nil {
			return err
		}
	}
	for _, child := range c.Children {
		if err := w.element(child); err != nil {
			return err
		}
	}
	w.nodes = append(w.nodes, byte(types.NodeEnd)|ArrayFlag)
	return nil
}

func (w *writer) name(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty name", node.ErrInvalidNode)
	}
	if w.opts.Compression == Compressed {
		var err error
		w.nodes, err = sixbit.Append(w.nodes, key)
		return err
	}
	raw, err := w.opts.Encoding.Encode(key)
	if err != nil {
		return err
	}
	if len(raw) > maxRawName {
		return fmt.Errorf("%w: %d bytes uncompressed", ErrNameTooLong, len(raw))
	}
	w.nodes = append(w.nodes, byte(len(raw)-1)|ArrayFlag)
	w.nodes = append(w.nodes, raw...)
	return nil
}

func (w *writer) value(def node.Definition, info types.Info) error {
	switch {
	case info.Kind == types.KindString:
		if def.IsArray {
			return fmt.Errorf("%w: %q: %s cannot be an array", node.ErrInvalidNode, def.Key, def.Type)
		}
		return w.text(def.Value)
	case info.Kind == types.KindBinary:
		if def.IsArray {
			return fmt.Errorf("%w: %q: %s cannot be an array", node.ErrInvalidNode, def.Key, def.Type)
		}
		w.data = appendSized(w.data, def.Value)
	case def.IsArray:
		if len(def.Value)%info.ValueSize() != 0 {
			return fmt.Errorf("%w: %q: %s array of %d bytes", types.ErrSizeMismatch, def.Key, def.Type, len(def.Value))
		}
		w.data = appendSized(w.data, def.Value)
	default:
		if len(def.Value) != info.ValueSize() {
			return fmt.Errorf("%w: %q: %s expects %d bytes, got %d", types.ErrSizeMismatch, def.Key, def.Type, info.ValueSize(), len(def.Value))
		}
		w.data = pad4(append(w.data, def.Value...))
	}
	return nil
}

// text writes a string payload in the document charset with exactly one
// terminator.
func (w *writer) text(value []byte) error {
	encoded, err := w.opts.Encoding.Encode(string(types.TrimTerminator(value)))
	if err != nil {
		return err
	}
	w.data = appendSized(w.data, append(encoded, 0))
	return nil
}
