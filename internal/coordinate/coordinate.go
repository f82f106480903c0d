// Package coordinate implements CoordinateAdjuster (spec.md §4.7): snapping
// an editor-supplied cursor position onto the start of the identifier or
// keyword token it falls within or immediately follows, since the analysis
// daemon only recognizes identifiers at their start.
package coordinate

import (
	"github.com/swiftlang/sourcekit-lsp-core/internal/document"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
	"github.com/swiftlang/sourcekit-lsp-core/internal/syntax"
)

// AdjustToStartOfIdentifier returns the position of the start of the
// identifier/keyword token containing or immediately preceding pos, or pos
// unchanged if pos is not within or immediately after such a token (e.g.
// it sits on punctuation, or at end-of-file).
func AdjustToStartOfIdentifier(tree *syntax.Tree, snap *document.Snapshot, pos protocol.Position) (protocol.Position, error) {
	offset, err := snap.LineTable().Utf8OffsetOf(pos)
	if err != nil {
		return pos, err
	}

	// Case 1: pos is within a token's span.
	if tok, ok := tree.TokenContaining(offset); ok && tok.Kind.IsIdentifierLike() {
		return snap.LineTable().PositionOf(tok.Start)
	}

	// Case 2: pos sits immediately after a token (e.g. after double-click
	// selection, which editors commonly place at the identifier's end).
	if tok, ok := tree.TokenEndingAt(offset); ok && tok.Kind.IsIdentifierLike() {
		return snap.LineTable().PositionOf(tok.Start)
	}

	return pos, nil
}
