package completion

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/swiftlang/sourcekit-lsp-core/internal/daemon"
	"github.com/swiftlang/sourcekit-lsp-core/internal/document"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
	"github.com/swiftlang/sourcekit-lsp-core/internal/snippet"
)

// fold case-folds a string for Unicode-aware case-insensitive comparison
// (spec.md's fallback filter tie-break).
var fold = cases.Fold()

// Item is one editor-facing completion candidate (spec.md §4.4's result
// mapping).
type Item struct {
	Label            string
	Kind             protocol.CompletionItemKind
	InsertText       string
	InsertTextFormat protocol.InsertTextFormat
	FilterText       string
	TextEdit         protocol.TextEdit
	NotRecommended   bool
}

// List is the full answer to one completion_list call.
type List struct {
	Items        []Item
	IsIncomplete bool
}

func mapResult(snap *document.Snapshot, completionPos protocol.Position, result daemon.CodeCompleteResult, clientSnippetSupport bool, filterText string) *List {
	items := make([]Item, 0, len(result.Items))
	for _, di := range result.Items {
		items = append(items, mapItem(snap, completionPos, di, clientSnippetSupport))
	}
	return &List{Items: fallbackFilter(items, filterText), IsIncomplete: result.IsIncomplete}
}

// fallbackFilter re-filters items by filterText when the daemon's own
// (case-sensitive) filtering already narrowed the set to nothing useful
// case-insensitively; it is a tie-break, not a replacement, so it only
// activates when every item fails a plain case-sensitive prefix check but
// at least one would match case-insensitively.
func fallbackFilter(items []Item, filterText string) []Item {
	if filterText == "" || len(items) == 0 {
		return items
	}
	for _, it := range items {
		if strings.HasPrefix(it.FilterText, filterText) {
			return items // the primary, case-sensitive filter already matches.
		}
	}

	folded := fold.String(filterText)
	var out []Item
	for _, it := range items {
		if strings.HasPrefix(fold.String(it.FilterText), folded) {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return items // no case-insensitive match either; leave the daemon's set untouched.
	}
	return out
}

func mapItem(snap *document.Snapshot, completionPos protocol.Position, di daemon.CompletionItem, clientSnippetSupport bool) Item {
	insertText, changed := snippet.Rewrite(di.SourceText, clientSnippetSupport)

	format := protocol.PlainTextFormat
	if changed && clientSnippetSupport {
		format = protocol.SnippetFormat
	}

	eraseRange, erased := eraseRangeFor(snap, completionPos, di.NumBytesToErase)

	filterText := di.Name
	if erased != "" {
		filterText = erased + di.Name
	}

	return Item{
		Label:            di.Description,
		Kind:             mapKind(di.Kind),
		InsertText:       insertText,
		InsertTextFormat: format,
		FilterText:       filterText,
		TextEdit:         protocol.TextEdit{Range: eraseRange, NewText: insertText},
		NotRecommended:   di.NotRecommended,
	}
}

// eraseRangeFor computes the text_edit deletion range for a completion
// item per spec.md §4.4's utf8_code_units_to_erase rules, and returns the
// exact source text it would erase (used to extend filter_text so
// client-side prefix matching keeps working).
func eraseRangeFor(snap *document.Snapshot, completionPos protocol.Position, eraseCount int) (protocol.Range, string) {
	empty := protocol.Range{Start: completionPos, End: completionPos}
	if eraseCount <= 0 {
		return empty, ""
	}

	lt := snap.LineTable()
	offset, err := lt.Utf8OffsetOf(completionPos)
	if err != nil {
		return empty, ""
	}

	if eraseCount == 1 {
		// Single-UTF-16-unit deletion one code unit before completion_pos;
		// falls back to no erase if that would cross a line boundary
		// (spec.md §8: "erase of 1 UTF-8 unit at column 0 collapses to
		// no-erase").
		if completionPos.Character == 0 {
			return empty, ""
		}
		startPos := protocol.Position{Line: completionPos.Line, Character: completionPos.Character - 1}
		startOffset, err := lt.Utf8OffsetOf(startPos)
		if err != nil || startOffset >= offset {
			return empty, ""
		}
		return protocol.Range{Start: startPos, End: completionPos}, string(snap.Text()[startOffset:offset])
	}

	// eraseCount > 1: compute the UTF-8-offset-based deletion start.
	startOffset := offset - eraseCount
	if startOffset < 0 {
		startOffset = 0
	}
	startPos, err := lt.PositionOf(startOffset)
	if err != nil || startPos.Line != completionPos.Line {
		return empty, ""
	}
	return protocol.Range{Start: startPos, End: completionPos}, string(snap.Text()[startOffset:offset])
}

// mapKind translates the daemon's item-kind dictionary into LSP's
// CompletionItemKind (spec.md §4.4). Unrecognized kinds fall back to
// KindText, matching editors' own tolerant handling of unknown kinds.
func mapKind(daemonKind string) protocol.CompletionItemKind {
	switch daemonKind {
	case "function", "method.free", "method.instance", "method.static":
		return protocol.KindFunction
	case "constructor":
		return protocol.KindConstructor
	case "variable.local", "variable.global", "variable.parameter":
		return protocol.KindVariable
	case "property.instance", "property.static":
		return protocol.KindProperty
	case "class":
		return protocol.KindClass
	case "struct":
		return protocol.KindStruct
	case "enum":
		return protocol.KindEnum
	case "enumelement":
		return protocol.KindEnumMember
	case "protocol":
		return protocol.KindInterface
	case "module":
		return protocol.KindModule
	case "keyword":
		return protocol.KindKeyword
	case "typealias", "associatedtype":
		return protocol.KindTypeParameter
	default:
		return protocol.KindText
	}
}
