package types

import (
	"fmt"
	"math"
	"net"
	"net/netip"
)

// Value is a type-checked view over a value payload.
type Value struct {
	Type    Type
	IsArray bool
	Data    []byte
}

// Decode checks data against t and returns a typed view over it.
func Decode(t Type, isArray bool, data []byte) (Value, error) {
	if _, err := CheckSize(t, isArray, data); err != nil {
		return Value{}, err
	}
	return Value{Type: t, IsArray: isArray, Data: data}, nil
}

// Len is the number of values held: elements for arrays, 1 for a single
// value and 0 for structural types.
func (v Value) Len() int {
	info, err := v.Type.Info()
	if err != nil || info.Structural() {
		return 0
	}
	if !info.Fixed() || !v.IsArray {
		return 1
	}
	return len(v.Data) / info.ValueSize()
}

// Text is the FormatText rendering of the value.
func (v Value) Text() (string, error) {
	return FormatText(v.Type, v.IsArray, v.Data)
}

func (v Value) String() string {
	s, err := v.Text()
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return s
}

// Bytes returns the payload; string payloads lose their terminator.
func (v Value) Bytes() []byte {
	if v.Type == String || v.Type == Attribute {
		return TrimTerminator(v.Data)
	}
	return v.Data
}

func (v Value) components(kind Kind) (Info, error) {
	info, err := CheckSize(v.Type, v.IsArray, v.Data)
	if err != nil {
		return info, err
	}
	if info.Kind != kind {
		return info, fmt.Errorf("%w: %s is not a %s value", ErrKindMismatch, info.Name, kindName(kind))
	}
	return info, nil
}

// Ints returns every component of a signed integer value.
func (v Value) Ints() ([]int64, error) {
	info, err := v.components(KindInt)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(v.Data)/info.Size)
	for off := 0; off < len(v.Data); off += info.Size {
		out = append(out, getInt(v.Data[off:off+info.Size]))
	}
	return out, nil
}

// Uints returns every component of an unsigned integer or time value.
func (v Value) Uints() ([]uint64, error) {
	info, err := v.components(KindUint)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(v.Data)/info.Size)
	for off := 0; off < len(v.Data); off += info.Size {
		out = append(out, getUint(v.Data[off:off+info.Size]))
	}
	return out, nil
}

func (v Value) Floats() ([]float64, error) {
	info, err := v.components(KindFloat)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(v.Data)/info.Size)
	for off := 0; off < len(v.Data); off += info.Size {
		out = append(out, getFloat(v.Data[off:off+info.Size]))
	}
	return out, nil
}

func (v Value) Bools() ([]bool, error) {
	if _, err := v.components(KindBool); err != nil {
		return nil, err
	}
	out := make([]bool, len(v.Data))
	for i, b := range v.Data {
		out[i] = b != 0
	}
	return out, nil
}

func (v Value) IPs() ([]netip.Addr, error) {
	if _, err := v.components(KindIP4); err != nil {
		return nil, err
	}
	out := make([]netip.Addr, 0, len(v.Data)/4)
	for off := 0; off < len(v.Data); off += 4 {
		out = append(out, netip.AddrFrom4([4]byte(v.Data[off:off+4])))
	}
	return out, nil
}

// Int returns the first component of a signed integer value.
func (v Value) Int() (int64, error) {
	xs, err := v.Ints()
	if err != nil {
		return 0, err
	}
	if len(xs) == 0 {
		return 0, fmt.Errorf("%w: empty %s array", ErrSizeMismatch, v.Type)
	}
	return xs[0], nil
}

func (v Value) Uint() (uint64, error) {
	xs, err := v.Uints()
	if err != nil {
		return 0, err
	}
	if len(xs) == 0 {
		return 0, fmt.Errorf("%w: empty %s array", ErrSizeMismatch, v.Type)
	}
	return xs[0], nil
}

func (v Value) Float() (float64, error) {
	xs, err := v.Floats()
	if err != nil {
		return 0, err
	}
	if len(xs) == 0 {
		return 0, fmt.Errorf("%w: empty %s array", ErrSizeMismatch, v.Type)
	}
	return xs[0], nil
}

func (v Value) Bool() (bool, error) {
	xs, err := v.Bools()
	if err != nil {
		return false, err
	}
	if len(xs) == 0 {
		return false, fmt.Errorf("%w: empty %s array", ErrSizeMismatch, v.Type)
	}
	return xs[0], nil
}

func (v Value) IP() (netip.Addr, error) {
	xs, err := v.IPs()
	if err != nil {
		return netip.Addr{}, err
	}
	if len(xs) == 0 {
		return netip.Addr{}, fmt.Errorf("%w: empty %s array", ErrSizeMismatch, v.Type)
	}
	return xs[0], nil
}

// Encode packs a Go value into payload bytes for t. Scalars and slices of
// scalars are packed component by component, strings are parsed with
// ParseText for non-string types. The caller decides whether the result is
// a single value or an array.
func Encode(t Type, v any) ([]byte, error) {
	info, err := Lookup(uint8(t))
	if err != nil {
		return nil, err
	}
	switch info.Kind {
	case KindStructural:
		if v != nil {
			return nil, fmt.Errorf("%w: %s carries no value", ErrKindMismatch, info.Name)
		}
		return nil, nil
	case KindString:
		switch x := v.(type) {
		case string:
			return Terminate(x), nil
		case []byte:
			return Terminate(string(x)), nil
		}
		return nil, fmt.Errorf("%w: %s needs a string, got %T", ErrKindMismatch, info.Name, v)
	case KindBinary:
		switch x := v.(type) {
		case []byte:
			return append([]byte(nil), x...), nil
		case string:
			return ParseText(t, false, x)
		}
		return nil, fmt.Errorf("%w: %s needs bytes, got %T", ErrKindMismatch, info.Name, v)
	}

	switch x := v.(type) {
	case string:
		return ParseText(t, true, x)
	case int:
		return packInts(info, []int64{int64(x)})
	case int8:
		return packInts(info, []int64{int64(x)})
	case int16:
		return packInts(info, []int64{int64(x)})
	case int32:
		return packInts(info, []int64{int64(x)})
	case int64:
		return packInts(info, []int64{x})
	case uint:
		return packUints(info, []uint64{uint64(x)})
	case uint8:
		return packUints(info, []uint64{uint64(x)})
	case uint16:
		return packUints(info, []uint64{uint64(x)})
	case uint32:
		return packUints(info, []uint64{uint64(x)})
	case uint64:
		return packUints(info, []uint64{x})
	case float32:
		return packFloats(info, []float64{float64(x)})
	case float64:
		return packFloats(info, []float64{x})
	case bool:
		return packBools(info, []bool{x})
	case netip.Addr:
		return packAddrs(info, []netip.Addr{x})
	case net.IP:
		addr, ok := netip.AddrFromSlice(x.To4())
		if !ok {
			return nil, fmt.Errorf("%w: %v is not IPv4", ErrValueOutOfRange, x)
		}
		return packAddrs(info, []netip.Addr{addr})
	case []int:
		return packInts(info, widenInts(x))
	case []int8:
		return packInts(info, widenInts(x))
	case []int16:
		return packInts(info, widenInts(x))
	case []int32:
		return packInts(info, widenInts(x))
	case []int64:
		return packInts(info, x)
	case []uint:
		return packUints(info, widenUints(x))
	case []uint8:
		return packUints(info, widenUints(x))
	case []uint16:
		return packUints(info, widenUints(x))
	case []uint32:
		return packUints(info, widenUints(x))
	case []uint64:
		return packUints(info, x)
	case []float32:
		out := make([]float64, len(x))
		for i, f := range x {
			out[i] = float64(f)
		}
		return packFloats(info, out)
	case []float64:
		return packFloats(info, x)
	case []bool:
		return packBools(info, x)
	case []netip.Addr:
		return packAddrs(info, x)
	}
	return nil, fmt.Errorf("%w: cannot encode %T as %s", ErrKindMismatch, v, info.Name)
}

func widenInts[T ~int | ~int8 | ~int16 | ~int32](xs []T) []int64 {
	out := make([]int64, len(xs))
	for i, x := range xs {
		out[i] = int64(x)
	}
	return out
}

func widenUints[T ~uint | ~uint8 | ~uint16 | ~uint32](xs []T) []uint64 {
	out := make([]uint64, len(xs))
	for i, x := range xs {
		out[i] = uint64(x)
	}
	return out
}

func packInts(info Info, xs []int64) ([]byte, error) {
	out := make([]byte, len(xs)*info.Size)
	for i, x := range xs {
		dst := out[i*info.Size : (i+1)*info.Size]
		switch info.Kind {
		case KindInt:
			if !fitsInt(x, info.Size) {
				return nil, fmt.Errorf("%w: %d for %s", ErrValueOutOfRange, x, info.Name)
			}
			putUint(dst, uint64(x))
		case KindUint:
			if x < 0 || !fitsUint(uint64(x), info.Size) {
				return nil, fmt.Errorf("%w: %d for %s", ErrValueOutOfRange, x, info.Name)
			}
			putUint(dst, uint64(x))
		case KindFloat:
			putFloat(dst, float64(x))
		case KindBool:
			dst[0] = boolByte(x != 0)
		default:
			return nil, fmt.Errorf("%w: integers cannot encode %s", ErrKindMismatch, info.Name)
		}
	}
	return out, nil
}

func packUints(info Info, xs []uint64) ([]byte, error) {
	out := make([]byte, len(xs)*info.Size)
	for i, x := range xs {
		dst := out[i*info.Size : (i+1)*info.Size]
		switch info.Kind {
		case KindUint:
			if !fitsUint(x, info.Size) {
				return nil, fmt.Errorf("%w: %d for %s", ErrValueOutOfRange, x, info.Name)
			}
			putUint(dst, x)
		case KindInt:
			if x > math.MaxInt64 || !fitsInt(int64(x), info.Size) {
				return nil, fmt.Errorf("%w: %d for %s", ErrValueOutOfRange, x, info.Name)
			}
			putUint(dst, x)
		case KindFloat:
			putFloat(dst, float64(x))
		case KindBool:
			dst[0] = boolByte(x != 0)
		default:
			return nil, fmt.Errorf("%w: integers cannot encode %s", ErrKindMismatch, info.Name)
		}
	}
	return out, nil
}

func packFloats(info Info, xs []float64) ([]byte, error) {
	if info.Kind != KindFloat {
		return nil, fmt.Errorf("%w: floats cannot encode %s", ErrKindMismatch, info.Name)
	}
	out := make([]byte, len(xs)*info.Size)
	for i, x := range xs {
		putFloat(out[i*info.Size:(i+1)*info.Size], x)
	}
	return out, nil
}

func packBools(info Info, xs []bool) ([]byte, error) {
	if info.Kind != KindBool {
		return nil, fmt.Errorf("%w: bools cannot encode %s", ErrKindMismatch, info.Name)
	}
	out := make([]byte, len(xs))
	for i, x := range xs {
		out[i] = boolByte(x)
	}
	return out, nil
}

func packAddrs(info Info, xs []netip.Addr) ([]byte, error) {
	if info.Kind != KindIP4 {
		return nil, fmt.Errorf("%w: addresses cannot encode %s", ErrKindMismatch, info.Name)
	}
	out := make([]byte, 0, len(xs)*4)
	for _, addr := range xs {
		if !addr.Is4() {
			return nil, fmt.Errorf("%w: %v is not IPv4", ErrValueOutOfRange, addr)
		}
		a4 := addr.As4()
		out = append(out, a4[:]...)
	}
	return out, nil
}

func fitsInt(x int64, size int) bool {
	bits := uint(size * 8)
	if bits >= 64 {
		return true
	}
	return x >= -(1<<(bits-1)) && x <= 1<<(bits-1)-1
}

func fitsUint(x uint64, size int) bool {
	bits := uint(size * 8)
	if bits >= 64 {
		return true
	}
	return x < 1<<bits
}

func kindName(k Kind) string {
	switch k {
	case KindInt:
		return "signed integer"
	case KindUint:
		return "unsigned integer"
	case KindFloat:
		return "floating-point"
	case KindBool:
		return "boolean"
	case KindIP4:
		return "ip4"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	default:
		return "structural"
	}
}
