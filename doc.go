// Package kbinxml converts between kbin binary XML documents and text XML.
//
// Both formats decode to the same tree (node.Collection). Decode detects
// the format from the first byte; EncodeBinary and EncodeText write a tree
// in either format. A Codec carries writer options, a zerolog logger and
// optional prometheus metrics; the package-level functions use
// DefaultCodec.
package kbinxml
