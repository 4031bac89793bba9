package textxml

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/kbinxml/charset"
	"github.com/danmuck/kbinxml/internal/testutil/testlog"
	"github.com/danmuck/kbinxml/node"
	"github.com/danmuck/kbinxml/types"
)

func build(t *testing.T, key string, typ types.Type, isArray bool, v any) *node.Collection {
	t.Helper()
	var c *node.Collection
	var err error
	if isArray {
		c, err = node.NewArray(key, typ, v)
	} else {
		c, err = node.NewValue(key, typ, v)
	}
	if err != nil {
		t.Fatalf("build %s: %v", key, err)
	}
	return c
}

func TestEncodeLayout(t *testing.T) {
	testlog.Start(t)

	root := node.NewElement("root").SetAttribute("ver", "2")
	root.AppendChild(
		build(t, "n", types.U8, false, uint8(5)),
		node.NewString("s", "hi"),
		build(t, "list", types.S16, true, []int16{-1, 2}),
		build(t, "blob", types.Binary, false, []byte{0xca, 0xfe}),
		node.NewString("blank", ""),
		node.NewElement("empty"),
	)
	got, err := Encode(root)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := strings.Join([]string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<root ver="2">`,
		`  <n __type="u8">5</n>`,
		`  <s>hi</s>`,
		`  <list __count="2" __type="s16">-1 2</list>`,
		`  <blob __size="2" __type="bin">cafe</blob>`,
		`  <blank __type="str"></blank>`,
		`  <empty></empty>`,
		`</root>`,
		``,
	}, "\n")
	if string(got) != want {
		t.Fatalf("expected\n%s\ngot\n%s", want, got)
	}
}

func TestRoundTrip(t *testing.T) {
	testlog.Start(t)

	root := node.NewElement("root").SetAttribute("ver", "2").SetAttribute("note", `a "quoted" <value> & more`)
	stats := node.NewElement("stats")
	stats.AppendChild(
		build(t, "s8", types.S8, false, int8(-5)),
		build(t, "u64", types.U64, false, uint64(1)<<63),
		build(t, "ratio", types.Float, false, float32(0.1)),
		build(t, "pos", types.Double3, false, []float64{1, -2.5, 1e-9}),
		build(t, "flags", types.Bool4, false, []bool{true, false, true, true}),
		build(t, "addr", types.IP4, false, "10.1.2.3"),
		build(t, "stamp", types.Time, false, uint32(1700000000)),
		build(t, "blob", types.Binary, false, []byte{}),
		build(t, "list", types.U8, true, []uint8{1, 2, 3}),
		build(t, "none", types.S32, true, []int32{}),
		build(t, "matrix", types.Float4, true, make([]float32, 16)),
	)
	root.AppendChild(
		stats,
		node.NewString("spaces", "  "),
		node.NewString("multi", "line one\nline two\r\n\tindented"),
		node.NewString("jp", "こんにちは"),
	)
	withValueAndChildren := build(t, "parent", types.U32, false, uint32(7))
	withValueAndChildren.AppendChild(node.NewString("child", "x"))
	root.AppendChild(withValueAndChildren)

	data, err := Encode(root)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, enc, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v\n%s", err, data)
	}
	if enc != charset.UTF8 {
		t.Fatalf("expected UTF-8, got %s", enc)
	}
	if !node.Equal(got, root) {
		again, _ := Encode(got)
		t.Fatalf("expected round trip to preserve the tree\nin:\n%s\nout:\n%s", data, again)
	}
}

func TestDecodeUntypedElements(t *testing.T) {
	doc := `<?xml version="1.0"?>
<root>
  <!-- dropped -->
  <blank>   </blank>
  <text>hello &amp; bye</text>
  <nest><leaf>v</leaf></nest>
  <self/>
</root>`
	root, _, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if root.Base.Type != types.Void {
		t.Fatalf("expected root to be void, got %s", root.Base.Type)
	}
	cases := []struct {
		path []string
		typ  types.Type
		text string
	}{
		{[]string{"blank"}, types.Void, ""},
		{[]string{"text"}, types.String, "hello & bye"},
		{[]string{"nest"}, types.Void, ""},
		{[]string{"nest", "leaf"}, types.String, "v"},
		{[]string{"self"}, types.Void, ""},
	}
	for _, tc := range cases {
		c := root.Pointer(tc.path...)
		if c == nil {
			t.Fatalf("expected element at %v", tc.path)
		}
		if c.Base.Type != tc.typ {
			t.Fatalf("expected %v to be %s, got %s", tc.path, tc.typ, c.Base.Type)
		}
		if c.Base.StringValue() != tc.text {
			t.Fatalf("expected %v text %q, got %q", tc.path, tc.text, c.Base.StringValue())
		}
	}
	if len(root.Children) != 4 {
		t.Fatalf("expected comment to be dropped, got %d children", len(root.Children))
	}
}

func TestDecodeTypedValues(t *testing.T) {
	doc := `<a><id __type="u8">0x10</id><ok __type="b">true</ok><v __type="vu32"> 1 2 3 4 </v></a>`
	root, _, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	id, err := root.Child("id").Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if n, err := id.Uint(); err != nil || n != 16 {
		t.Fatalf("expected 16, got %d (%v)", n, err)
	}
	if b, err := root.Pointer("ok").Base.Typed(); err != nil || b.String() != "1" {
		t.Fatalf("expected bool 1, got %v (%v)", b, err)
	}
	if v := root.Child("v").Base; v.Type != types.U32x4 {
		t.Fatalf("expected alias vu32 to resolve to 4u32, got %s", v.Type)
	}
}

func TestDecodeDeclaredEncoding(t *testing.T) {
	_, enc, err := Decode([]byte(`<?xml version="1.0" encoding='Shift_JIS'?><a>x</a>`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if enc != charset.ShiftJIS {
		t.Fatalf("expected SHIFT_JIS, got %s", enc)
	}
	_, enc, err = Decode([]byte(`<?xml version="1.0" encoding="x-unknown"?><a>x</a>`))
	if err != nil || enc != charset.UTF8 {
		t.Fatalf("expected unknown label to fall back to UTF-8, got %s (%v)", enc, err)
	}
}

func TestDecodeByteOrderMark(t *testing.T) {
	root, _, err := Decode([]byte("\xef\xbb\xbf<a>x</a>"))
	if err != nil || root.Key() != "a" {
		t.Fatalf("expected BOM to be skipped, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want error
	}{
		{"invalid utf8", "<a>\xff</a>", charset.ErrEncodingDecode},
		{"mismatched tags", "<a><b></a>", ErrMalformedXML},
		{"unclosed", "<a>", ErrMalformedXML},
		{"empty", "", ErrMalformedXML},
		{"two roots", "<a/><b/>", ErrMalformedXML},
		{"text outside root", "<a/>junk", ErrMalformedXML},
		{"unknown type", `<a __type="u128">1</a>`, types.ErrUnknownTypeName},
		{"bad literal", `<a __type="u8">300</a>`, types.ErrInvalidTypeLiteral},
		{"count mismatch", `<a __type="u8" __count="3">1 2</a>`, types.ErrSizeMismatch},
		{"size mismatch", `<a __type="bin" __size="3">abcd</a>`, types.ErrSizeMismatch},
		{"bad count", `<a __type="u8" __count="x">1</a>`, types.ErrInvalidTypeLiteral},
		{"structural type", `<a __type="attr">1</a>`, node.ErrInvalidNode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tc.doc))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEncodeRejectsInvalidTrees(t *testing.T) {
	if _, err := Encode(node.NewDocument()); !errors.Is(err, node.ErrInvalidNode) {
		t.Fatalf("expected ErrInvalidNode, got %v", err)
	}
	bad := node.New(node.Definition{Type: types.U16, Key: "n", Value: []byte{1}})
	if _, err := Encode(bad); !errors.Is(err, types.ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}

	cases := []struct {
		name string
		tree *node.Collection
	}{
		{"control char in text", node.NewString("s", "a\x01b")},
		{"invalid utf-8 in text", node.NewString("s", "a\xffb")},
		{"control char in attribute", node.NewElement("root").SetAttribute("note", "x\x00y")},
		{"reserved type attribute", node.NewElement("root").SetAttribute("__type", "u8")},
		{"reserved count attribute", node.NewElement("root").SetAttribute("__count", "3")},
		{"reserved size attribute", node.NewString("root", "v").SetAttribute("__size", "1")},
		{"element name with space", node.NewElement("bad name")},
		{"element name with leading digit", node.NewElement("1st")},
		{"attribute name with quote", node.NewElement("root").SetAttribute("a\"b", "v")},
		{"nested bad text", node.NewElement("root").AppendChild(node.NewString("child", "\x1b[0m"))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Encode(tc.tree)
			if !errors.Is(err, ErrUnrepresentable) {
				t.Fatalf("expected ErrUnrepresentable, got %v", err)
			}
			if out != nil {
				t.Fatalf("expected no output, got %q", out)
			}
		})
	}
}

func TestEncodeKeepsEscapableCharacters(t *testing.T) {
	root := node.NewElement("root").
		SetAttribute("note", "tab\there\r\nnext <&> \"q\"").
		AppendChild(
			node.NewString("text", "line\r\n\t<tag> & 'q' \U0001F600"),
			node.NewString("a-b.c_1", "punct"),
		)
	out, err := Encode(root)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, _, err := Decode(out)
	if err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if !node.Equal(back, root) {
		t.Fatalf("expected tree to survive text encoding, got\n%s", out)
	}
}
