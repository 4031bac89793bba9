package types

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/netip"
	"strconv"
	"strings"
)

// CheckSize validates that data is a legal payload for t.
func CheckSize(t Type, isArray bool, data []byte) (Info, error) {
	info, err := Lookup(uint8(t))
	if err != nil {
		return Info{}, err
	}
	switch {
	case info.Structural():
		if len(data) != 0 {
			return info, fmt.Errorf("%w: %s carries no value, got %d bytes", ErrSizeMismatch, info.Name, len(data))
		}
	case !info.Fixed():
		if isArray {
			return info, fmt.Errorf("%w: %s cannot be an array", ErrKindMismatch, info.Name)
		}
	case isArray:
		if len(data)%info.ValueSize() != 0 {
			return info, sizeError(info, true, len(data))
		}
	default:
		if len(data) != info.ValueSize() {
			return info, sizeError(info, false, len(data))
		}
	}
	return info, nil
}

// TrimTerminator drops the trailing NUL bytes of a string payload.
func TrimTerminator(data []byte) []byte {
	end := len(data)
	for end > 0 && data[end-1] == 0 {
		end--
	}
	return data[:end]
}

// Terminate returns s as a string payload with exactly one NUL terminator.
func Terminate(s string) []byte {
	s = strings.TrimRight(s, "\x00")
	out := make([]byte, len(s)+1)
	copy(out, s)
	return out
}

// FormatText renders a value payload in its text form: decimal integers,
// shortest round-trip floats, space separated components, lowercase hex for
// bin, dotted quads for ip4 and the raw text for strings.
func FormatText(t Type, isArray bool, data []byte) (string, error) {
	info, err := CheckSize(t, isArray, data)
	if err != nil {
		return "", err
	}
	switch info.Kind {
	case KindStructural:
		return "", nil
	case KindString:
		return string(TrimTerminator(data)), nil
	case KindBinary:
		return hex.EncodeToString(data), nil
	}

	var b strings.Builder
	for off := 0; off < len(data); off += info.Size {
		if off > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(formatComponent(info, data[off:off+info.Size]))
	}
	return b.String(), nil
}

// ParseText is the inverse of FormatText. Integers accept a 0x prefix for
// hex; bools accept 0, 1, true, false or any u8 where non-zero is true.
// Arrays accept any multiple of the type's component count.
func ParseText(t Type, isArray bool, text string) ([]byte, error) {
	info, err := Lookup(uint8(t))
	if err != nil {
		return nil, err
	}
	if isArray && !info.Fixed() {
		return nil, fmt.Errorf("%w: %s cannot be an array", ErrKindMismatch, info.Name)
	}

	switch info.Kind {
	case KindStructural:
		if strings.TrimSpace(text) != "" {
			return nil, &ParseError{Type: t, Literal: text, Err: errors.New("type carries no value")}
		}
		return nil, nil
	case KindString:
		return Terminate(text), nil
	case KindBinary:
		out, err := hex.DecodeString(strings.Join(strings.Fields(text), ""))
		if err != nil {
			return nil, &ParseError{Type: t, Literal: text, Err: err}
		}
		return out, nil
	}

	fields := strings.Fields(text)
	if (!isArray && len(fields) != info.Count) || (isArray && len(fields)%info.Count != 0) {
		return nil, &ParseError{
			Type:    t,
			Literal: text,
			Err:     fmt.Errorf("expected %d components, got %d", info.Count, len(fields)),
		}
	}
	out := make([]byte, len(fields)*info.Size)
	for i, field := range fields {
		if err := parseComponent(info, field, out[i*info.Size:(i+1)*info.Size]); err != nil {
			return nil, &ParseError{Type: t, Literal: field, Err: err}
		}
	}
	return out, nil
}

func formatComponent(info Info, b []byte) string {
	switch info.Kind {
	case KindInt:
		return strconv.FormatInt(getInt(b), 10)
	case KindUint:
		return strconv.FormatUint(getUint(b), 10)
	case KindBool:
		if b[0] != 0 {
			return "1"
		}
		return "0"
	case KindFloat:
		return formatFloat(b)
	case KindIP4:
		return netip.AddrFrom4([4]byte(b)).String()
	}
	return ""
}

func parseComponent(info Info, s string, dst []byte) error {
	bits := info.Size * 8
	switch info.Kind {
	case KindInt:
		var v int64
		var err error
		if h, ok := strings.CutPrefix(s, "0x"); ok {
			v, err = strconv.ParseInt(h, 16, bits)
		} else {
			v, err = strconv.ParseInt(s, 10, bits)
		}
		if err != nil {
			return err
		}
		putUint(dst, uint64(v))
	case KindUint:
		var v uint64
		var err error
		if h, ok := strings.CutPrefix(s, "0x"); ok {
			v, err = strconv.ParseUint(h, 16, bits)
		} else {
			v, err = strconv.ParseUint(s, 10, bits)
		}
		if err != nil {
			return err
		}
		putUint(dst, v)
	case KindBool:
		switch s {
		case "true":
			dst[0] = 1
		case "false":
			dst[0] = 0
		default:
			v, err := strconv.ParseUint(s, 10, 8)
			if err != nil {
				return err
			}
			dst[0] = boolByte(v > 0)
		}
	case KindFloat:
		if h, ok := strings.CutPrefix(s, "0x"); ok && !strings.ContainsAny(h, "pP") {
			v, err := strconv.ParseUint(h, 16, bits)
			if err != nil {
				return err
			}
			putUint(dst, v)
			break
		}
		v, err := strconv.ParseFloat(s, bits)
		if err != nil {
			return err
		}
		if math.IsNaN(v) {
			putUint(dst, canonicalNaN(info.Size))
			break
		}
		putFloat(dst, v)
	case KindIP4:
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return err
		}
		if !addr.Is4() {
			return errors.New("not an IPv4 address")
		}
		a4 := addr.As4()
		copy(dst, a4[:])
	default:
		return fmt.Errorf("%w: %s has no components", ErrKindMismatch, info.Name)
	}
	return nil
}

// canonicalNaN is the quiet NaN that renders as "NaN".
func canonicalNaN(size int) uint64 {
	if size == 4 {
		return 0x7fc00000
	}
	return 0x7ff8000000000001
}

// formatFloat writes the shortest decimal that parses back to the same
// value. Any other NaN is written as its raw bits in hex.
func formatFloat(b []byte) string {
	v := getFloat(b)
	if !math.IsNaN(v) {
		return strconv.FormatFloat(v, 'f', -1, len(b)*8)
	}
	if bits := getUint(b); bits != canonicalNaN(len(b)) {
		return fmt.Sprintf("0x%0*x", len(b)*2, bits)
	}
	return "NaN"
}

func getUint(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.BigEndian.Uint16(b))
	case 4:
		return uint64(binary.BigEndian.Uint32(b))
	default:
		return binary.BigEndian.Uint64(b)
	}
}

func getInt(b []byte) int64 {
	switch len(b) {
	case 1:
		return int64(int8(b[0]))
	case 2:
		return int64(int16(binary.BigEndian.Uint16(b)))
	case 4:
		return int64(int32(binary.BigEndian.Uint32(b)))
	default:
		return int64(binary.BigEndian.Uint64(b))
	}
}

func getFloat(b []byte) float64 {
	if len(b) == 4 {
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func putUint(dst []byte, v uint64) {
	switch len(dst) {
	case 1:
		dst[0] = byte(v)
	case 2:
		binary.BigEndian.PutUint16(dst, uint16(v))
	case 4:
		binary.BigEndian.PutUint32(dst, uint32(v))
	default:
		binary.BigEndian.PutUint64(dst, v)
	}
}

func putFloat(dst []byte, v float64) {
	if len(dst) == 4 {
		binary.BigEndian.PutUint32(dst, math.Float32bits(float32(v)))
		return
	}
	binary.BigEndian.PutUint64(dst, math.Float64bits(v))
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
