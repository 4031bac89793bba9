package main

import (
	"fmt"

	"github.com/danmuck/kbinxml/kbin"
)

type mismatch struct {
	Index   int
	Section string
	Offset  int
	Left    byte
	Right   byte
}

func (m mismatch) String() string {
	return fmt.Sprintf("index %d (%s, offset %d): left 0x%02x, right 0x%02x", m.Index, m.Section, m.Offset, m.Left, m.Right)
}

// diffDocuments compares two binary documents byte by byte over their
// common length. Positions are located using the layout of left.
func diffDocuments(left, right []byte) ([]mismatch, error) {
	sec, err := kbin.Split(left)
	if err != nil {
		return nil, err
	}
	nodeStart := kbin.HeaderLen + 4
	nodeEnd := nodeStart + len(sec.Nodes)
	dataStart := nodeEnd + 4

	var out []mismatch
	for i := 0; i < min(len(left), len(right)); i++ {
		if left[i] == right[i] {
			continue
		}
		m := mismatch{Index: i, Left: left[i], Right: right[i]}
		switch {
		case i < kbin.HeaderLen:
			m.Section, m.Offset = "header", i
		case i < nodeStart:
			m.Section, m.Offset = "node length", i-kbin.HeaderLen
		case i < nodeEnd:
			m.Section, m.Offset = "node buffer", i-nodeStart
		case i < dataStart:
			m.Section, m.Offset = "data length", i-nodeEnd
		default:
			m.Section, m.Offset = "data buffer", i-dataStart
		}
		out = append(out, m)
	}
	return out, nil
}
