// Package types owns the closed kbin type registry.
//
// Ownership boundary:
// - binary tag ids and their text names
// - fixed value sizes and component counts
// - text formatting/parsing of value payloads
package types

import (
	"fmt"
	"strings"
)

// Type is a kbin node type tag as stored in the node buffer, without the
// array flag.
type Type uint8

// Type tags from the kbin contract.
const (
	Void    Type = 1
	S8      Type = 2
	U8      Type = 3
	S16     Type = 4
	U16     Type = 5
	S32     Type = 6
	U32     Type = 7
	S64     Type = 8
	U64     Type = 9
	Binary  Type = 10
	String  Type = 11
	IP4     Type = 12
	Time    Type = 13
	Float   Type = 14
	Double  Type = 15
	S8x2    Type = 16
	U8x2    Type = 17
	S16x2   Type = 18
	U16x2   Type = 19
	S32x2   Type = 20
	U32x2   Type = 21
	S64x2   Type = 22
	U64x2   Type = 23
	Float2  Type = 24
	Double2 Type = 25
	S8x3    Type = 26
	U8x3    Type = 27
	S16x3   Type = 28
	U16x3   Type = 29
	S32x3   Type = 30
	U32x3   Type = 31
	S64x3   Type = 32
	U64x3   Type = 33
	Float3  Type = 34
	Double3 Type = 35
	S8x4    Type = 36
	U8x4    Type = 37
	S16x4   Type = 38
	U16x4   Type = 39
	S32x4   Type = 40
	U32x4   Type = 41
	S64x4   Type = 42
	U64x4   Type = 43
	Float4  Type = 44
	Double4 Type = 45

	Attribute Type = 46

	VS8   Type = 48
	VU8   Type = 49
	VS16  Type = 50
	VU16  Type = 51
	Bool  Type = 52
	Bool2 Type = 53
	Bool3 Type = 54
	Bool4 Type = 55
	VB    Type = 56

	NodeEnd Type = 190
	FileEnd Type = 191
)

// Kind groups types that share one component codec.
type Kind uint8

const (
	KindStructural Kind = iota
	KindInt
	KindUint
	KindFloat
	KindBool
	KindIP4
	KindString
	KindBinary
)

// Info is one registry entry.
type Info struct {
	Type    Type
	Name    string
	Aliases []string
	// Size is the byte width of a single component.
	Size int
	// Count is the number of components in one value.
	Count int
	Kind  Kind
}

// ValueSize is the byte length of one non-array value.
func (i Info) ValueSize() int {
	return i.Size * i.Count
}

// Fixed reports whether values of this type have a fixed byte length.
func (i Info) Fixed() bool {
	switch i.Kind {
	case KindStructural, KindString, KindBinary:
		return false
	default:
		return true
	}
}

// Structural reports whether the type marks tree structure rather than
// carrying a value.
func (i Info) Structural() bool {
	return i.Kind == KindStructural
}

func entry(t Type, name string, size, count int, kind Kind, aliases ...string) Info {
	return Info{Type: t, Name: name, Aliases: aliases, Size: size, Count: count, Kind: kind}
}

var registry = []Info{
	entry(Void, "void", 0, 0, KindStructural),
	entry(S8, "s8", 1, 1, KindInt),
	entry(U8, "u8", 1, 1, KindUint),
	entry(S16, "s16", 2, 1, KindInt),
	entry(U16, "u16", 2, 1, KindUint),
	entry(S32, "s32", 4, 1, KindInt),
	entry(U32, "u32", 4, 1, KindUint),
	entry(S64, "s64", 8, 1, KindInt),
	entry(U64, "u64", 8, 1, KindUint),
	entry(Binary, "bin", 1, 0, KindBinary, "binary"),
	entry(String, "str", 1, 0, KindString, "string"),
	entry(IP4, "ip4", 4, 1, KindIP4),
	entry(Time, "time", 4, 1, KindUint),
	entry(Float, "float", 4, 1, KindFloat, "f"),
	entry(Double, "double", 8, 1, KindFloat, "d"),
	entry(S8x2, "2s8", 1, 2, KindInt),
	entry(U8x2, "2u8", 1, 2, KindUint),
	entry(S16x2, "2s16", 2, 2, KindInt),
	entry(U16x2, "2u16", 2, 2, KindUint),
	entry(S32x2, "2s32", 4, 2, KindInt),
	entry(U32x2, "2u32", 4, 2, KindUint),
	entry(S64x2, "2s64", 8, 2, KindInt, "vs64"),
	entry(U64x2, "2u64", 8, 2, KindUint, "vu64"),
	entry(Float2, "2f", 4, 2, KindFloat),
	entry(Double2, "2d", 8, 2, KindFloat, "vd"),
	entry(S8x3, "3s8", 1, 3, KindInt),
	entry(U8x3, "3u8", 1, 3, KindUint),
	entry(S16x3, "3s16", 2, 3, KindInt),
	entry(U16x3, "3u16", 2, 3, KindUint),
	entry(S32x3, "3s32", 4, 3, KindInt),
	entry(U32x3, "3u32", 4, 3, KindUint),
	entry(S64x3, "3s64", 8, 3, KindInt),
	entry(U64x3, "3u64", 8, 3, KindUint),
	entry(Float3, "3f", 4, 3, KindFloat),
	entry(Double3, "3d", 8, 3, KindFloat),
	entry(S8x4, "4s8", 1, 4, KindInt),
	entry(U8x4, "4u8", 1, 4, KindUint),
	entry(S16x4, "4s16", 2, 4, KindInt),
	entry(U16x4, "4u16", 2, 4, KindUint),
	entry(S32x4, "4s32", 4, 4, KindInt, "vs32"),
	entry(U32x4, "4u32", 4, 4, KindUint, "vu32"),
	entry(S64x4, "4s64", 8, 4, KindInt),
	entry(U64x4, "4u64", 8, 4, KindUint),
	entry(Float4, "4f", 4, 4, KindFloat, "vf"),
	entry(Double4, "4d", 8, 4, KindFloat),
	entry(Attribute, "attr", 0, 0, KindString),
	entry(VS8, "vs8", 1, 16, KindInt),
	entry(VU8, "vu8", 1, 16, KindUint),
	entry(VS16, "vs16", 2, 8, KindInt),
	entry(VU16, "vu16", 2, 8, KindUint),
	entry(Bool, "bool", 1, 1, KindBool, "b"),
	entry(Bool2, "2b", 1, 2, KindBool),
	entry(Bool3, "3b", 1, 3, KindBool),
	entry(Bool4, "4b", 1, 4, KindBool),
	entry(VB, "vb", 1, 16, KindBool),
	entry(NodeEnd, "nodeEnd", 0, 0, KindStructural),
	entry(FileEnd, "fileEnd", 0, 0, KindStructural),
}

var byID = func() [256]*Info {
	var idx [256]*Info
	for i := range registry {
		idx[registry[i].Type] = &registry[i]
	}
	return idx
}()

var byName = func() map[string]*Info {
	idx := make(map[string]*Info, len(registry)*2)
	for i := range registry {
		info := &registry[i]
		idx[info.Name] = info
		for _, alias := range info.Aliases {
			idx[alias] = info
		}
	}
	return idx
}()

// Lookup returns the registry entry for a binary tag id.
func Lookup(id uint8) (Info, error) {
	info := byID[id]
	if info == nil {
		return Info{}, fmt.Errorf("%w: %d", ErrUnknownType, id)
	}
	return *info, nil
}

// LookupName returns the registry entry for a text type name or alias.
func LookupName(name string) (Info, error) {
	info, ok := byName[strings.TrimSpace(name)]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrUnknownTypeName, name)
	}
	return *info, nil
}

// All returns a copy of every registry entry in tag order.
func All() []Info {
	out := make([]Info, 0, len(registry))
	for _, info := range byID {
		if info != nil {
			out = append(out, *info)
		}
	}
	return out
}

// Info returns the registry entry for t.
func (t Type) Info() (Info, error) {
	return Lookup(uint8(t))
}

// Valid reports whether t is a registered tag.
func (t Type) Valid() bool {
	return byID[t] != nil
}

func (t Type) String() string {
	if info := byID[t]; info != nil {
		return info.Name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}
