package kbinxml

import (
	"time"

	"github.com/danmuck/kbinxml/internal/logging"
	"github.com/danmuck/kbinxml/internal/observability"
	"github.com/danmuck/kbinxml/kbin"
	"github.com/danmuck/kbinxml/textxml"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Metrics holds the codec's prometheus collectors.
type Metrics = observability.CodecMetrics

// NewMetrics builds codec metrics and registers them with reg; nil leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	return observability.NewCodecMetrics(reg)
}

// Codec converts documents. Options apply to binary encoding only. A Codec
// is safe for concurrent use once configured.
type Codec struct {
	Options Options
	Logger  zerolog.Logger
	Metrics *Metrics
}

// NewCodec returns a codec with a disabled logger and no metrics.
func NewCodec(opts Options) *Codec {
	return &Codec{Options: opts, Logger: zerolog.Nop()}
}

// DefaultCodec returns a fresh codec with DefaultOptions.
func DefaultCodec() *Codec {
	return NewCodec(DefaultOptions())
}

// RuntimeLogger configures process logging from the KBINXML_LOG_*
// environment and returns a logger suitable for Codec.Logger.
func RuntimeLogger() zerolog.Logger {
	logging.ConfigureRuntime()
	return log.Logger.With().Str("component", "codec").Logger()
}

// Decode reads either format, choosing binary when data starts with the
// binary signature byte.
func (c *Codec) Decode(data []byte) (*Collection, Encoding, error) {
	if kbin.IsBinary(data) {
		return c.DecodeBinary(data)
	}
	return c.DecodeText(data)
}

func (c *Codec) DecodeBinary(data []byte) (*Collection, Encoding, error) {
	start := time.Now()
	root, enc, err := kbin.NewDecoder(c.Logger).Decode(data)
	c.observe("decode", "binary", len(data), start, err)
	return root, enc, err
}

// DecodeText parses UTF-8 XML. The returned encoding is the one declared
// in the XML prolog.
func (c *Codec) DecodeText(data []byte) (*Collection, Encoding, error) {
	start := time.Now()
	root, enc, err := textxml.Decode(data)
	c.observe("decode", "text", len(data), start, err)
	return root, enc, err
}

func (c *Codec) EncodeBinary(root *Collection) ([]byte, error) {
	start := time.Now()
	out, err := kbin.NewEncoder(c.Options, c.Logger).Encode(root)
	c.observe("encode", "binary", len(out), start, err)
	return out, err
}

func (c *Codec) EncodeText(root *Collection) ([]byte, error) {
	start := time.Now()
	out, err := textxml.Encode(root)
	c.observe("encode", "text", len(out), start, err)
	return out, err
}

// Convert decodes data and re-encodes it in the other format.
func (c *Codec) Convert(data []byte) ([]byte, error) {
	if kbin.IsBinary(data) {
		root, _, err := c.DecodeBinary(data)
		if err != nil {
			return nil, err
		}
		return c.EncodeText(root)
	}
	root, _, err := c.DecodeText(data)
	if err != nil {
		return nil, err
	}
	return c.EncodeBinary(root)
}

func (c *Codec) observe(name, format string, size int, start time.Time, err error) {
	op := observability.Operation{
		Name:     name,
		Format:   format,
		Bytes:    size,
		Duration: time.Since(start),
		Err:      err,
	}
	observability.LogOperation(c.Logger, op)
	c.Metrics.Record(op)
}
