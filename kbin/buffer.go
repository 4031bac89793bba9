package kbin

import (
	"encoding/binary"
	"fmt"
)

// buffer is a read cursor over one section of a document.
type buffer struct {
	name string
	buf  []byte
	pos  int
}

func (b *buffer) failAt(offset int, err error) error {
	return &OffsetError{Buffer: b.name, Offset: offset, Err: err}
}

func (b *buffer) take(n int) ([]byte, error) {
	if n < 0 || b.pos+n > len(b.buf) {
		return nil, b.failAt(b.pos, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedInput, n, max(len(b.buf)-b.pos, 0)))
	}
	out := b.buf[b.pos : b.pos+n]
	b.pos += n
	return out, nil
}

func (b *buffer) readByte() (byte, error) {
	p, err := b.take(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (b *buffer) u32() (uint32, error) {
	p, err := b.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p), nil
}

func (b *buffer) align() {
	b.pos = align4(b.pos)
}

// sized reads a u32 length prefixed entry and realigns.
func (b *buffer) sized() ([]byte, error) {
	n, err := b.u32()
	if err != nil {
		return nil, err
	}
	p, err := b.take(int(n))
	if err != nil {
		return nil, err
	}
	b.align()
	return p, nil
}

// fixed reads n raw bytes and realigns.
func (b *buffer) fixed(n int) ([]byte, error) {
	p, err := b.take(n)
	if err != nil {
		return nil, err
	}
	b.align()
	return p, nil
}

func align4(n int) int {
	return (n + 3) &^ 3
}

func pad4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func appendSized(dst, p []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(p)))
	dst = append(dst, p...)
	return pad4(dst)
}
