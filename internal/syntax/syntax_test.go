package syntax_test

import (
	"testing"

	"github.com/swiftlang/sourcekit-lsp-core/internal/syntax"
)

func TestParseNoErrorOnCompleteAssignment(t *testing.T) {
	tree := syntax.Parse([]byte("let x = 1"))
	if len(tree.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", tree.Diagnostics)
	}
}

func TestParseDanglingAssignment(t *testing.T) {
	src := "let x = "
	tree := syntax.Parse([]byte(src))
	if len(tree.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(tree.Diagnostics), tree.Diagnostics)
	}
	if got, want := tree.Diagnostics[0].Start, len(src); got != want {
		t.Fatalf("diagnostic at offset %d, want %d", got, want)
	}
}

func TestParseUnbalancedBraces(t *testing.T) {
	tree := syntax.Parse([]byte("func f() {"))
	if len(tree.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(tree.Diagnostics), tree.Diagnostics)
	}
}

func TestTokenKinds(t *testing.T) {
	tree := syntax.Parse([]byte("let foo = 1"))
	var kinds []syntax.Kind
	for _, tok := range tree.Tokens {
		kinds = append(kinds, tok.Kind)
	}
	want := []syntax.Kind{syntax.Keyword, syntax.Identifier, syntax.Operator, syntax.NumberLiteral, syntax.EOF}
	if len(kinds) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(kinds), len(want), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("token %d kind = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestReparseMatchesFullParse(t *testing.T) {
	pre := []byte("let foo = 1\nlet bar = 2\n")
	post := []byte("let foo = 1\nlet baz = 2\n")

	prevTree := syntax.Parse(pre)
	// The edit replaces "bar" (offset 16..19) with "baz".
	incremental := syntax.Reparse(prevTree, post, []syntax.EditSpan{{Start: 16, End: 19}})
	full := syntax.Parse(post)

	if len(incremental.Tokens) != len(full.Tokens) {
		t.Fatalf("token count mismatch: incremental=%d full=%d", len(incremental.Tokens), len(full.Tokens))
	}
	for i := range full.Tokens {
		if incremental.Tokens[i] != full.Tokens[i] {
			t.Fatalf("token %d mismatch: incremental=%+v full=%+v", i, incremental.Tokens[i], full.Tokens[i])
		}
	}
}

func TestReparseAppendAtIdentifierEnd(t *testing.T) {
	pre := []byte("foo")
	post := []byte("food")

	prevTree := syntax.Parse(pre)
	// The edit inserts "d" right at "foo"'s end offset (3..3): a
	// trailing-boundary edit that extends the preceding identifier rather
	// than starting a new token.
	incremental := syntax.Reparse(prevTree, post, []syntax.EditSpan{{Start: 3, End: 3}})
	full := syntax.Parse(post)

	if len(incremental.Tokens) != len(full.Tokens) {
		t.Fatalf("token count mismatch: incremental=%d (%+v) full=%d (%+v)",
			len(incremental.Tokens), incremental.Tokens, len(full.Tokens), full.Tokens)
	}
	for i := range full.Tokens {
		if incremental.Tokens[i] != full.Tokens[i] {
			t.Fatalf("token %d mismatch: incremental=%+v full=%+v", i, incremental.Tokens[i], full.Tokens[i])
		}
	}
}

func TestTokenEndingAt(t *testing.T) {
	tree := syntax.Parse([]byte("let foo = 1"))
	tok, ok := tree.TokenEndingAt(7) // "foo" spans [4,7)
	if !ok || tok.Text != "foo" {
		t.Fatalf("TokenEndingAt(7) = %+v, %v", tok, ok)
	}
}
