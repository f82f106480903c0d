package coordinate_test

import (
	"testing"

	"github.com/swiftlang/sourcekit-lsp-core/internal/coordinate"
	"github.com/swiftlang/sourcekit-lsp-core/internal/document"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
	"github.com/swiftlang/sourcekit-lsp-core/internal/syntax"
)

func TestAdjustAfterIdentifier(t *testing.T) {
	text := "let foo = 1"
	m := document.NewManager(nil)
	uri := protocol.URIFromPath("/tmp/foo.swift")
	snap, err := m.Open(uri, "swift", 1, []byte(text))
	if err != nil {
		t.Fatal(err)
	}
	tree := syntax.Parse([]byte(text))

	// Column immediately after "foo" (0-based char 7).
	pos := protocol.Position{Line: 0, Character: 7}
	got, err := coordinate.AdjustToStartOfIdentifier(tree, snap, pos)
	if err != nil {
		t.Fatal(err)
	}
	if want := (protocol.Position{Line: 0, Character: 4}); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAdjustOnPunctuationUnchanged(t *testing.T) {
	text := "let foo = 1"
	m := document.NewManager(nil)
	uri := protocol.URIFromPath("/tmp/foo.swift")
	snap, _ := m.Open(uri, "swift", 1, []byte(text))
	tree := syntax.Parse([]byte(text))

	// Column at "=" (char 8).
	pos := protocol.Position{Line: 0, Character: 8}
	got, err := coordinate.AdjustToStartOfIdentifier(tree, snap, pos)
	if err != nil {
		t.Fatal(err)
	}
	if got != pos {
		t.Fatalf("got %v, want unchanged %v", got, pos)
	}
}
