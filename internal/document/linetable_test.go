package document_test

import (
	"testing"
	"unicode/utf8"

	"github.com/swiftlang/sourcekit-lsp-core/internal/document"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
)

func TestLineTableRoundTrip(t *testing.T) {
	text := "let x = 1\nlet 名前 = \"emoji 😀 here\"\nlast line"
	lt := document.NewLineTable([]byte(text))

	for offset := 0; offset <= len(text); offset++ {
		// Only offsets on a rune boundary name a UTF-16 position of their
		// own; an offset inside a multi-byte rune cannot round-trip.
		if offset < len(text) && !utf8.RuneStart(text[offset]) {
			continue
		}
		pos, err := lt.PositionOf(offset)
		if err != nil {
			t.Fatalf("PositionOf(%d): %v", offset, err)
		}
		back, err := lt.Utf8OffsetOf(pos)
		if err != nil {
			t.Fatalf("Utf8OffsetOf(%v) for offset %d: %v", pos, offset, err)
		}
		if back != offset {
			t.Fatalf("round-trip offset %d -> %v -> %d", offset, pos, back)
		}
	}
}

func TestLineTableLineCount(t *testing.T) {
	lt := document.NewLineTable([]byte("a\nb\nc"))
	if got := lt.LineCount(); got != 3 {
		t.Fatalf("LineCount() = %d, want 3", got)
	}
}

func TestLineTableSurrogatePair(t *testing.T) {
	// "😀" is one rune outside the BMP, encoded as a UTF-16 surrogate
	// pair (2 code units) but 4 UTF-8 bytes.
	text := "x😀y"
	lt := document.NewLineTable([]byte(text))

	offset, err := lt.Utf8OffsetOf(protocol.Position{Line: 0, Character: 3})
	if err != nil {
		t.Fatalf("Utf8OffsetOf: %v", err)
	}
	if got, want := text[offset:], "y"; got != want {
		t.Fatalf("offset for char 3 = %d, text there = %q, want %q", offset, got, want)
	}
}
