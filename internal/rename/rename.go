// Package rename implements RenameEngine (spec.md §4.8): compound-name
// parsing and a piece-kind-driven edit table over the analysis daemon's
// related-identifiers and find-syntactic-rename-ranges requests.
//
// Grounded on spec.md §4.8 entirely -- gopls's golang/rename.go does
// whole-program go/types-based renaming with no compound-name/piece
// concept, so there is no teacher analogue for the algorithm itself; its
// protocol.WorkspaceEdit/TextEdit output shape is reused.
package rename

import (
	"context"
	"strings"

	"github.com/swiftlang/sourcekit-lsp-core/internal/buildsettings"
	"github.com/swiftlang/sourcekit-lsp-core/internal/daemon"
	"github.com/swiftlang/sourcekit-lsp-core/internal/document"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
)

// Engine issues the two-request rename protocol against the analysis
// daemon and turns its classified piece ranges into a WorkspaceEdit.
type Engine struct {
	conn *daemon.Conn
}

// New creates an Engine bound to conn.
func New(conn *daemon.Conn) *Engine {
	return &Engine{conn: conn}
}

// Rename computes the workspace edit for renaming the identifier at pos
// to newName (spec.md §4.8).
func (e *Engine) Rename(ctx context.Context, snap *document.Snapshot, pos protocol.Position, newName string, settings buildsettings.Settings) (*protocol.WorkspaceEdit, error) {
	offset, err := snap.LineTable().Utf8OffsetOf(pos)
	if err != nil {
		return nil, err
	}

	var related daemon.RelatedIdentifiersResult
	if err := e.conn.Call(ctx, daemon.MethodRelatedIdentifiers, daemon.RelatedIdentifiersParams{
		Offset:                      offset,
		SourceFile:                  string(snap.URI()),
		CompilerArgs:                settings.CompilerArgs,
		IncludeNonEditableBaseNames: false,
	}, &related); err != nil {
		return nil, err
	}

	oldName, err := ParseName(related.BaseName)
	if err != nil {
		return nil, err
	}
	newParsed, err := ParseName(newName)
	if err != nil {
		return nil, err
	}

	var syntactic daemon.FindSyntacticRenameRangesResult
	if err := e.conn.Call(ctx, daemon.MethodFindSyntacticRenameRanges, daemon.FindSyntacticRenameRangesParams{
		SourceFile:      string(snap.URI()),
		SourceText:      string(snap.Text()),
		RenameLocations: related.Occurrences,
	}, &syntactic); err != nil {
		return nil, err
	}

	var edits []protocol.TextEdit
	for _, group := range syntactic.Ranges {
		edits = append(edits, editsForGroup(snap, group, oldName, newParsed)...)
	}

	return &protocol.WorkspaceEdit{Changes: map[protocol.DocumentURI][]protocol.TextEdit{snap.URI(): edits}}, nil
}

// DocumentHighlight answers document_highlight(uri, position) (spec.md
// §6: "ranges derived from related-identifier response"), reusing the
// same related-identifiers request Rename issues but skipping the
// syntactic-rename-ranges step, since highlighting needs only the
// occurrence locations, not a rewrite plan.
func (e *Engine) DocumentHighlight(ctx context.Context, snap *document.Snapshot, pos protocol.Position, settings buildsettings.Settings) ([]protocol.Range, error) {
	offset, err := snap.LineTable().Utf8OffsetOf(pos)
	if err != nil {
		return nil, err
	}

	var related daemon.RelatedIdentifiersResult
	if err := e.conn.Call(ctx, daemon.MethodRelatedIdentifiers, daemon.RelatedIdentifiersParams{
		Offset:                      offset,
		SourceFile:                  string(snap.URI()),
		CompilerArgs:                settings.CompilerArgs,
		IncludeNonEditableBaseNames: true,
	}, &related); err != nil {
		return nil, err
	}

	ranges := make([]protocol.Range, 0, len(related.Occurrences))
	for _, loc := range related.Occurrences {
		rng, err := rangeOf(snap, loc)
		if err != nil {
			continue
		}
		ranges = append(ranges, rng)
	}
	return ranges, nil
}

// categoryProducesEdits implements spec.md §4.8 step 5: only active_code,
// inactive_code, and selector pieces ever produce an edit.
func categoryProducesEdits(category string) bool {
	switch category {
	case "active_code", "inactive_code", "selector":
		return true
	default:
		return false
	}
}

// slotMarker reports whether piece kind starts a new argument slot,
// advancing the running argument index used to align old/new parameters.
func slotMarker(pieceKind string) bool {
	switch pieceKind {
	case "decl_argument_label", "call_argument_label", "call_argument_combined", "selector_argument_label":
		return true
	default:
		return false
	}
}

func editsForGroup(snap *document.Snapshot, pieces []daemon.RenameRange, oldName, newName Name) []protocol.TextEdit {
	var edits []protocol.TextEdit
	argIndex := -1

	for _, piece := range pieces {
		if slotMarker(piece.PieceKind) {
			argIndex++
		}
		if !categoryProducesEdits(piece.Category) {
			continue
		}
		if edit, ok := editForPiece(snap, piece, argIndex, oldName, newName); ok {
			edits = append(edits, edit)
		}
	}
	return edits
}

func editForPiece(snap *document.Snapshot, piece daemon.RenameRange, argIndex int, oldName, newName Name) (protocol.TextEdit, bool) {
	rng, err := rangeOf(snap, piece.Location)
	if err != nil {
		return protocol.TextEdit{}, false
	}

	// Rule 6 (spec.md §4.8): if new_name has fewer parameter slots than
	// old_name, pieces beyond the common prefix are left untouched.
	inBounds := argIndex >= 0 && argIndex < len(newName.Parameters)
	var newParam Parameter
	if inBounds {
		newParam = newName.Parameters[argIndex]
	}

	switch piece.PieceKind {
	case "base_name":
		return protocol.TextEdit{Range: rng, NewText: newName.BaseName}, true

	case "keyword_base_name", "noncollapsible_parameter_name":
		return protocol.TextEdit{}, false

	case "parameter_name":
		if !inBounds {
			return protocol.TextEdit{}, false
		}
		oldLabelled := argIndex < len(oldName.Parameters) && !oldName.Parameters[argIndex].Wildcard
		if newParam.Wildcard && rng.IsEmpty() && oldLabelled {
			return protocol.TextEdit{Range: rng, NewText: " " + oldName.Parameters[argIndex].Label}, true
		}
		current := strings.TrimSpace(currentText(snap, piece.Location))
		if !newParam.Wildcard && current == newParam.Label {
			return protocol.TextEdit{Range: rng, NewText: ""}, true
		}
		return protocol.TextEdit{}, false

	case "decl_argument_label":
		if !inBounds {
			return protocol.TextEdit{}, false
		}
		label := labelOrWildcard(newParam)
		if rng.IsEmpty() {
			return protocol.TextEdit{Range: rng, NewText: label + " "}, true
		}
		return protocol.TextEdit{Range: rng, NewText: label}, true

	case "call_argument_label":
		if !inBounds {
			return protocol.TextEdit{}, false
		}
		label := ""
		if !newParam.Wildcard {
			label = newParam.Label
		}
		return protocol.TextEdit{Range: rng, NewText: label}, true

	case "call_argument_colon":
		if !inBounds {
			return protocol.TextEdit{}, false
		}
		if newParam.Wildcard {
			return protocol.TextEdit{Range: rng, NewText: ""}, true
		}
		return protocol.TextEdit{}, false

	case "call_argument_combined":
		if !inBounds || newParam.Wildcard {
			return protocol.TextEdit{}, false
		}
		return protocol.TextEdit{Range: rng, NewText: newParam.Label + ": "}, true

	case "selector_argument_label":
		if !inBounds {
			return protocol.TextEdit{}, false
		}
		return protocol.TextEdit{Range: rng, NewText: labelOrWildcard(newParam)}, true

	default:
		return protocol.TextEdit{}, false
	}
}

func labelOrWildcard(p Parameter) string {
	if p.Wildcard {
		return "_"
	}
	return p.Label
}

func rangeOf(snap *document.Snapshot, loc daemon.Location) (protocol.Range, error) {
	start, err := snap.LineTable().PositionOf(loc.Offset)
	if err != nil {
		return protocol.Range{}, err
	}
	end, err := snap.LineTable().PositionOf(loc.Offset + loc.Length)
	if err != nil {
		end = start
	}
	return protocol.Range{Start: start, End: end}, nil
}

func currentText(snap *document.Snapshot, loc daemon.Location) string {
	text := snap.Text()
	if loc.Offset < 0 || loc.Offset+loc.Length > len(text) {
		return ""
	}
	return string(text[loc.Offset : loc.Offset+loc.Length])
}
