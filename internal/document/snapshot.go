package document

import (
	"fmt"

	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
)

// ID uniquely identifies a Snapshot: a (uri, version) pair, totally
// ordered by version (spec.md §3).
type ID struct {
	URI     protocol.DocumentURI
	Version int32
}

func (id ID) String() string { return fmt.Sprintf("%s@%d", id.URI, id.Version) }

// Less reports whether id strictly precedes other: same uri, smaller version.
func (id ID) Less(other ID) bool {
	return id.URI == other.URI && id.Version < other.Version
}

// Snapshot is an immutable (uri, language, version, text, lineTable) tuple.
// Snapshots are shared freely between readers; nothing ever mutates one in
// place (spec.md §3).
type Snapshot struct {
	uri       protocol.DocumentURI
	language  string
	version   int32
	text      []byte
	lineTable *LineTable
}

func newSnapshot(uri protocol.DocumentURI, language string, version int32, text []byte) *Snapshot {
	return &Snapshot{
		uri:       uri,
		language:  language,
		version:   version,
		text:      text,
		lineTable: NewLineTable(text),
	}
}

func (s *Snapshot) URI() protocol.DocumentURI { return s.uri }
func (s *Snapshot) Language() string          { return s.language }
func (s *Snapshot) Version() int32            { return s.version }
func (s *Snapshot) Text() []byte              { return s.text }
func (s *Snapshot) LineTable() *LineTable     { return s.lineTable }

// ID returns this snapshot's totally-ordered identifier.
func (s *Snapshot) ID() ID { return ID{URI: s.uri, Version: s.version} }

// Edit describes a single replacement, expressed as byte offsets into the
// text as it stood just before this edit was applied. For a batch of
// several changes, each edit's offsets include the effect of the earlier
// edits in the batch; the offsets are not normalized to the pre-snapshot
// text, so edits must be replayed in order.
type Edit struct {
	Start, End int // byte offsets into the text before this edit
	NewText    []byte
}

// Change is a single document modification request: either a full-text
// replacement, or a (range, replacement) within the current text.
type Change struct {
	Range       *protocol.Range // nil means full-text replacement
	Replacement string
}
