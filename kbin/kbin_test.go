package kbin

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/danmuck/kbinxml/charset"
	"github.com/danmuck/kbinxml/internal/testutil/testlog"
	"github.com/danmuck/kbinxml/node"
	"github.com/danmuck/kbinxml/sixbit"
	"github.com/danmuck/kbinxml/types"
)

var helloDoc = []byte{
	0xa0, 0x42, 0xbd, 0xa0, 0x5f,
	0x00, 0x00, 0x00, 0x10,
	0x0b, 0x05, 0xb6, 0xac, 0x71, 0xd0, 0x2e, 0x04, 0x9b, 0x9e, 0x77, 0xfe, 0xff, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x18,
	0x00, 0x00, 0x00, 0x06, 0x77, 0x6f, 0x72, 0x6c, 0x64, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x06, 0x76, 0x61, 0x6c, 0x75, 0x65, 0x00, 0x00, 0x00,
}

func helloTree() *node.Collection {
	return node.NewString("hello", "world").SetAttribute("attr", "value")
}

func utf8Options() Options {
	return Options{Compression: Compressed, Encoding: charset.UTF8}
}

func rawDoc(nodes, data []byte) []byte {
	out := Header{Compression: Compressed, Encoding: charset.UTF8}.Append(nil)
	out = binary.BigEndian.AppendUint32(out, uint32(len(nodes)))
	out = append(out, nodes...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(data)))
	return append(out, data...)
}

func mustName(t *testing.T, name string) []byte {
	t.Helper()
	b, err := sixbit.Append(nil, name)
	if err != nil {
		t.Fatalf("pack %q: %v", name, err)
	}
	return b
}

func TestEncodeKnownDocument(t *testing.T) {
	testlog.Start(t)

	got, err := Encode(helloTree(), utf8Options())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(got, helloDoc) {
		t.Fatalf("expected\n% x\ngot\n% x", helloDoc, got)
	}
}

func TestDecodeKnownDocument(t *testing.T) {
	testlog.Start(t)

	root, enc, err := Decode(helloDoc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if enc != charset.UTF8 {
		t.Fatalf("expected UTF-8, got %s", enc)
	}
	if root.Key() != "hello" || root.Base.Type != types.String {
		t.Fatalf("expected hello str root, got %s", root.Base)
	}
	if root.Base.StringValue() != "world" {
		t.Fatalf("expected world, got %q", root.Base.StringValue())
	}
	if v, ok := root.Attribute("attr"); !ok || v != "value" {
		t.Fatalf("expected attr=value, got %q (%v)", v, ok)
	}
	if !node.Equal(root, helloTree()) {
		t.Fatalf("expected decoded tree to equal the built tree")
	}
}

func TestDecodeEntriesWithTypedAttributes(t *testing.T) {
	testlog.Start(t)

	root := node.NewElement("entries")
	for i := 0; i < 6; i++ {
		entry := node.NewString("entry", fmt.Sprintf("entry %d", i))
		entry.SetAttribute("id", fmt.Sprint(i))
		root.AppendChild(entry)
	}
	data, err := Encode(root, DefaultOptions())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, enc, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if enc != charset.ShiftJIS {
		t.Fatalf("expected SHIFT_JIS, got %s", enc)
	}
	entries := got.ChildrenNamed("entry")
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(entries))
	}
	for i, entry := range entries {
		id, err := entry.TypedAttribute("id", types.U8)
		if err != nil {
			t.Fatalf("entry %d id: %v", i, err)
		}
		n, err := id.Uint()
		if err != nil || n != uint64(i) {
			t.Fatalf("expected id %d, got %d (%v)", i, n, err)
		}
		if entry.Base.StringValue() != fmt.Sprintf("entry %d", i) {
			t.Fatalf("expected entry text, got %q", entry.Base.StringValue())
		}
	}
}

func richTree(t *testing.T) *node.Collection {
	t.Helper()
	must := func(c *node.Collection, err error) *node.Collection {
		t.Helper()
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		return c
	}
	root := node.NewElement("root").SetAttribute("ver", "2")
	stats := node.NewElement("stats")
	stats.AppendChild(
		must(node.NewValue("s8", types.S8, int8(-5))),
		must(node.NewValue("u16", types.U16, uint16(65535))),
		must(node.NewValue("s64", types.S64, int64(-1)<<40)),
		must(node.NewValue("ratio", types.Float, float32(0.25))),
		must(node.NewValue("pos", types.Double3, []float64{1, -2.5, 3})),
		must(node.NewValue("flag", types.Bool, true)),
		must(node.NewValue("addr", types.IP4, "192.168.0.1")),
		must(node.NewValue("stamp", types.Time, uint32(1700000000))),
		must(node.NewValue("blob", types.Binary, []byte{0, 1, 2, 3, 4})),
		must(node.NewArray("list", types.U8, []uint8{1, 2, 3, 4, 5})),
		must(node.NewArray("empty", types.S32, []int32{})),
		must(node.NewArray("matrix", types.Float4, make([]float32, 16))),
		must(node.NewValue("vec", types.VU16, make([]uint16, 8))),
	)
	root.AppendChild(stats, node.NewString("blank", ""), node.NewString("name", "kbin"))
	return root
}

func TestRoundTripAllOptions(t *testing.T) {
	testlog.Start(t)

	encodings := []charset.Encoding{charset.None, charset.ASCII, charset.ISO8859_1, charset.EUCJP, charset.ShiftJIS, charset.UTF8}
	for _, compression := range []Compression{Compressed, Uncompressed} {
		for _, enc := range encodings {
			t.Run(fmt.Sprintf("%s/%s", compression, enc), func(t *testing.T) {
				tree := richTree(t)
				data, err := Encode(tree, Options{Compression: compression, Encoding: enc})
				if err != nil {
					t.Fatalf("encode: %v", err)
				}
				got, gotEnc, err := Decode(data)
				if err != nil {
					t.Fatalf("decode: %v", err)
				}
				if gotEnc != enc {
					t.Fatalf("expected %s, got %s", enc, gotEnc)
				}
				if !node.Equal(got, tree) {
					t.Fatalf("expected decoded tree to equal input")
				}
				again, err := Encode(got, Options{Compression: compression, Encoding: enc})
				if err != nil {
					t.Fatalf("re-encode: %v", err)
				}
				if !bytes.Equal(again, data) {
					t.Fatalf("expected byte-identical re-encode")
				}
			})
		}
	}
}

func TestShiftJISText(t *testing.T) {
	tree := node.NewElement("データ").AppendChild(node.NewString("名前", "こんにちは"))
	data, err := Encode(tree, Options{Compression: Uncompressed, Encoding: charset.ShiftJIS})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, _, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !node.Equal(got, tree) {
		t.Fatalf("expected Shift_JIS names and values to round trip")
	}

	if _, err := Encode(tree, DefaultOptions()); !errors.Is(err, sixbit.ErrUnsupportedCharacter) {
		t.Fatalf("expected ErrUnsupportedCharacter for compressed non-ASCII name, got %v", err)
	}
}

func TestSyntheticRoot(t *testing.T) {
	data, err := Encode(node.NewDocument(helloTree()), utf8Options())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(data, helloDoc) {
		t.Fatalf("expected synthetic root to encode its single child")
	}
	if _, err := Encode(node.NewDocument(), utf8Options()); !errors.Is(err, node.ErrInvalidNode) {
		t.Fatalf("expected ErrInvalidNode for empty document, got %v", err)
	}
	if _, err := Encode(node.NewDocument(helloTree(), helloTree()), utf8Options()); !errors.Is(err, node.ErrInvalidNode) {
		t.Fatalf("expected ErrInvalidNode for two document elements, got %v", err)
	}
}

func TestHeaderBitFlips(t *testing.T) {
	for i := 1; i < HeaderLen; i++ {
		for bit := 0; bit < 8; bit++ {
			data := bytes.Clone(helloDoc)
			data[i] ^= 1 << bit
			_, _, err := Decode(data)
			if !errors.Is(err, ErrHeaderChecksumMismatch) {
				t.Fatalf("byte %d bit %d: expected ErrHeaderChecksumMismatch, got %v", i, bit, err)
			}
		}
	}
}

func TestHeaderErrors(t *testing.T) {
	bad := bytes.Clone(helloDoc)
	bad[0] = 0xA1
	if _, _, err := Decode(bad); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	bad = bytes.Clone(helloDoc)
	bad[1], bad[2] = 0x43, 0xBC
	if _, _, err := Decode(bad); !errors.Is(err, ErrUnknownCompression) {
		t.Fatalf("expected ErrUnknownCompression, got %v", err)
	}

	bad = bytes.Clone(helloDoc)
	bad[3], bad[4] = 0x10, 0xEF
	if _, _, err := Decode(bad); !errors.Is(err, charset.ErrUnknownEncoding) {
		t.Fatalf("expected ErrUnknownEncoding, got %v", err)
	}
}

func TestTruncatedInput(t *testing.T) {
	for n := 0; n < len(helloDoc); n++ {
		_, _, err := Decode(helloDoc[:n])
		if !errors.Is(err, ErrTruncatedInput) {
			t.Fatalf("prefix %d: expected ErrTruncatedInput, got %v", n, err)
		}
	}
}

func TestDataBufferTooShort(t *testing.T) {
	nodes := append([]byte{byte(types.U32)}, mustName(t, "n")...)
	nodes = append(nodes, 0xFE, 0xFF)
	_, _, err := Decode(rawDoc(pad4(nodes), []byte{0, 0}))
	if !errors.Is(err, ErrTruncatedInput) {
		t.Fatalf("expected ErrTruncatedInput, got %v", err)
	}
	var oerr *OffsetError
	if !errors.As(err, &oerr) || oerr.Buffer != "data buffer" {
		t.Fatalf("expected data buffer OffsetError, got %#v", err)
	}
}

func TestUnexpectedNodeTypes(t *testing.T) {
	elem := append([]byte{byte(types.Void)}, mustName(t, "a")...)
	attr := append([]byte{byte(types.Attribute)}, mustName(t, "x")...)
	attrData := appendSized(nil, []byte("v\x00"))
	cases := []struct {
		name  string
		nodes []byte
		data  []byte
	}{
		{"end before start", []byte{0xFE, 0xFF}, nil},
		{"file end with open element", append(bytes.Clone(elem), 0xFF), nil},
		{"empty document", []byte{0xFF}, nil},
		{"attribute outside element", append(bytes.Clone(attr), 0xFF), attrData},
		{"two document elements", append(append(append(bytes.Clone(elem), 0xFE), elem...), 0xFE, 0xFF), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Decode(rawDoc(pad4(bytes.Clone(tc.nodes)), tc.data))
			if !errors.Is(err, ErrUnexpectedNodeType) {
				t.Fatalf("expected ErrUnexpectedNodeType, got %v", err)
			}
		})
	}
}

func TestNodeBufferWithoutFileEnd(t *testing.T) {
	nodes := append([]byte{byte(types.Void)}, mustName(t, "a")...)
	nodes = append(nodes, 0xFE)
	_, _, err := Decode(rawDoc(nodes, nil))
	if !errors.Is(err, ErrTruncatedInput) {
		t.Fatalf("expected ErrTruncatedInput, got %v", err)
	}
}

func TestUnknownTag(t *testing.T) {
	_, _, err := Decode(rawDoc([]byte{47, 0xFF, 0, 0}, nil))
	if !errors.Is(err, types.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestInvalidStringBytes(t *testing.T) {
	nodes := append([]byte{byte(types.String)}, mustName(t, "s")...)
	nodes = append(nodes, 0xFE, 0xFF)
	data := appendSized(nil, []byte{0xff, 0xfe, 0})
	_, _, err := Decode(rawDoc(pad4(nodes), data))
	if !errors.Is(err, charset.ErrEncodingDecode) {
		t.Fatalf("expected ErrEncodingDecode, got %v", err)
	}
}

func TestEncodeRejects(t *testing.T) {
	short := node.New(node.Definition{Type: types.U32, Key: "n", Value: []byte{1, 2}})
	if _, err := Encode(short, utf8Options()); !errors.Is(err, types.ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}

	attrBase := node.New(node.Definition{Type: types.Attribute, Key: "a", Value: []byte("x\x00")})
	if _, err := Encode(attrBase, utf8Options()); !errors.Is(err, node.ErrInvalidNode) {
		t.Fatalf("expected ErrInvalidNode, got %v", err)
	}

	long := node.NewElement(strings.Repeat("a", maxRawName+1))
	if _, err := Encode(long, Options{Compression: Uncompressed, Encoding: charset.UTF8}); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}

	if _, err := Encode(helloTree(), Options{Compression: 0x10, Encoding: charset.UTF8}); !errors.Is(err, ErrUnknownCompression) {
		t.Fatalf("expected ErrUnknownCompression, got %v", err)
	}

	latin := node.NewString("s", "日本")
	if _, err := Encode(latin, Options{Compression: Compressed, Encoding: charset.ISO8859_1}); !errors.Is(err, charset.ErrEncodingEncode) {
		t.Fatalf("expected ErrEncodingEncode, got %v", err)
	}
}

func TestStringTerminatorNormalized(t *testing.T) {
	bare := node.New(node.Definition{Type: types.String, Key: "s", Value: []byte("abc")})
	data, err := Encode(bare, utf8Options())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, _, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got.Base.Value) != "abc\x00" {
		t.Fatalf("expected one terminator, got %q", got.Base.Value)
	}
}

func TestIsBinary(t *testing.T) {
	if !IsBinary(helloDoc) {
		t.Fatalf("expected binary document to be detected")
	}
	for _, data := range [][]byte{nil, []byte("<?xml version=\"1.0\"?><a/>"), []byte("\xef\xbb\xbf<a/>")} {
		if IsBinary(data) {
			t.Fatalf("expected %q not to be binary", data)
		}
	}
}

func TestDump(t *testing.T) {
	var out strings.Builder
	if err := Dump(&out, helloDoc); err != nil {
		t.Fatalf("dump: %v", err)
	}
	want := "hello(str)=\"world\"\n  @attr=\"value\"\nnodeEnd\nfileEnd\n"
	if out.String() != want {
		t.Fatalf("expected\n%s\ngot\n%s", want, out.String())
	}
}

func TestWalkStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	seen := 0
	err := Walk(helloDoc, func(depth int, def node.Definition) error {
		seen++
		return stop
	})
	if !errors.Is(err, stop) || seen != 1 {
		t.Fatalf("expected walk to stop after first callback, got %v after %d", err, seen)
	}
}

func TestSmallValuesTakeWholeSlots(t *testing.T) {
	a, err := node.NewValue("a", types.U8, uint8(1))
	if err != nil {
		t.Fatalf("a: %v", err)
	}
	b, err := node.NewValue("b", types.S16, int16(-2))
	if err != nil {
		t.Fatalf("b: %v", err)
	}
	c, err := node.NewValue("c", types.U8, uint8(3))
	if err != nil {
		t.Fatalf("c: %v", err)
	}
	root := node.NewElement("r").AppendChild(a, b, c)

	out, err := Encode(root, DefaultOptions())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	sec, err := Split(out)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	want := []byte{
		0x01, 0x00, 0x00, 0x00,
		0xff, 0xfe, 0x00, 0x00,
		0x03, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(sec.Data, want) {
		t.Fatalf("expected data buffer % x, got % x", want, sec.Data)
	}
}
