// Package macro implements MacroExpansionCache (spec.md §4.5): an LRU
// cache of macro-expansion edits keyed by (snapshot id, range, build
// settings), backed by the analysis daemon's semantic-refactoring request,
// and the construction of macro-expansion reference-document URIs from
// those edits for the macro_expansion(uri, range) external operation
// (spec.md §6).
//
// Grounded on internal/diagnostics's Engine (same cache-key shape, same
// daemon.Conn.Call plumbing) and on internal/refdoc for the virtual-URI
// side of the result.
package macro

import (
	"context"

	"github.com/swiftlang/sourcekit-lsp-core/internal/buildsettings"
	"github.com/swiftlang/sourcekit-lsp-core/internal/daemon"
	"github.com/swiftlang/sourcekit-lsp-core/internal/document"
	"github.com/swiftlang/sourcekit-lsp-core/internal/lru"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
	"github.com/swiftlang/sourcekit-lsp-core/internal/refdoc"
	"github.com/swiftlang/sourcekit-lsp-core/internal/telemetry"
)

// Capacity is the cache's fixed size (spec.md §4.5: "chosen to accommodate
// deep nested expansions without thrashing").
const Capacity = 10

// actionExpandMacro is the analysis daemon's semantic-refactoring action
// identifier for macro expansion.
const actionExpandMacro = "source.refactoring.kind.expand.macro"

// RefactoringEdit is one replacement produced by expanding a macro
// (spec.md §3's MacroExpansionCache entry).
type RefactoringEdit struct {
	Range   protocol.Range
	NewText string

	// BufferName names the synthesized buffer this edit's text belongs to.
	// Empty if the daemon reported no buffer name for it.
	BufferName string
}

type key struct {
	id       document.ID
	rng      protocol.Range
	settings string
}

// Cache is the per-process macro-expansion edit cache.
type Cache struct {
	conn  *daemon.Conn
	cache *lru.Cache[key, []RefactoringEdit]
}

// New creates a Cache bound to conn.
func New(conn *daemon.Conn) *Cache {
	return &Cache{conn: conn, cache: lru.New[key, []RefactoringEdit](Capacity)}
}

// ExpansionsFor returns the edits produced by expanding the macro covering
// rng in snap (spec.md §4.5's expansions_for operation), consulting the
// cache before issuing a new daemon request.
func (c *Cache) ExpansionsFor(ctx context.Context, snap *document.Snapshot, rng protocol.Range, settings buildsettings.Settings) ([]RefactoringEdit, error) {
	k := key{id: snap.ID(), rng: rng, settings: settings.Key()}
	if edits, ok := c.cache.Get(k); ok {
		return edits, nil
	}

	lt := snap.LineTable()
	startOffset, err := lt.Utf8OffsetOf(rng.Start)
	if err != nil {
		return nil, err
	}
	endOffset, err := lt.Utf8OffsetOf(rng.End)
	if err != nil {
		return nil, err
	}

	var result daemon.SemanticRefactoringResult
	err = c.conn.Call(ctx, daemon.MethodSemanticRefactoring, daemon.SemanticRefactoringParams{
		ActionUID:    actionExpandMacro,
		Offset:       startOffset,
		Length:       endOffset - startOffset,
		CompilerArgs: settings.CompilerArgs,
		SourceFile:   string(snap.URI()),
	}, &result)
	if err != nil {
		return nil, err
	}

	edits := make([]RefactoringEdit, 0, len(result.Edits))
	for _, e := range result.Edits {
		if e.BufferName == "" {
			telemetry.Error(ctx, "macro expansion edit missing buffer name, skipping", nil,
				telemetry.Of("uri", string(snap.URI())), telemetry.Of("offset", e.Offset))
			continue
		}
		startPos, err := lt.PositionOf(e.Offset)
		if err != nil {
			continue
		}
		endPos, err := lt.PositionOf(e.Offset + e.Length)
		if err != nil {
			endPos = startPos
		}
		edits = append(edits, RefactoringEdit{
			Range:      protocol.Range{Start: startPos, End: endPos},
			NewText:    e.Text,
			BufferName: e.BufferName,
		})
	}

	c.cache.Set(k, edits, 1)
	return edits, nil
}

// ContentOf returns the expansion text for bufferName within snap's
// already-cached expansion of selection under settings, satisfying
// get_reference_document(uri) (spec.md §6) once the caller has decoded a
// macro-expansion URI via internal/refdoc into its selection range and
// buffer name. It never issues a daemon request: a reference document can
// only be opened after macro_expansion(uri, range) produced its URI, so
// the expansion is always already cached.
func (c *Cache) ContentOf(snap *document.Snapshot, selection protocol.Range, settings buildsettings.Settings, bufferName string) (string, bool) {
	k := key{id: snap.ID(), rng: selection, settings: settings.Key()}
	edits, ok := c.cache.Get(k)
	if !ok {
		return "", false
	}
	for _, e := range edits {
		if e.BufferName == bufferName {
			return e.NewText, true
		}
	}
	return "", false
}

// VirtualURIs encodes edits as macro-expansion reference-document URIs
// under scheme, satisfying the macro_expansion(uri, range) external
// operation's "list of virtual-document URIs" result (spec.md §6). parent
// is the uri the expansion was requested against.
func VirtualURIs(scheme string, parent protocol.DocumentURI, selection protocol.Range, edits []RefactoringEdit) []protocol.DocumentURI {
	uris := make([]protocol.DocumentURI, 0, len(edits))
	for _, e := range edits {
		uris = append(uris, refdoc.EncodeMacroExpansion(scheme, refdoc.MacroExpansionRef{
			Display: refdoc.OneBasedRange{
				StartLine:   e.Range.Start.Line + 1,
				StartColumn: e.Range.Start.Character + 1,
				EndLine:     e.Range.End.Line + 1,
				EndColumn:   e.Range.End.Character + 1,
			},
			Extension:  "swift",
			Selection:  selection,
			BufferName: e.BufferName,
			Parent:     parent,
		}))
	}
	return uris
}
