// Package protocol defines the small set of LSP wire types this core
// produces and consumes (positions, ranges, edits, URIs). It deliberately
// does not implement LSP transport or JSON-RPC framing: spec.md §1 excludes
// "LSP transport and JSON codec" from this core's scope. These types exist
// only so operations can build and return well-formed LSP values.
package protocol

import (
	"fmt"
	"net/url"
	"strings"
)

// DocumentURI is the URI of a document, file-backed or virtual. It is
// modeled on gopls's protocol.DocumentURI: an opaque string, normalized at
// construction, with a Path accessor for file-backed URIs.
type DocumentURI string

// Scheme returns the URI scheme, e.g. "file" or a reference-document scheme.
func (u DocumentURI) Scheme() string {
	if i := strings.Index(string(u), "://"); i >= 0 {
		return string(u)[:i]
	}
	return ""
}

// IsFile reports whether u uses the file scheme.
func (u DocumentURI) IsFile() bool { return u.Scheme() == "file" }

// Path returns the filesystem path for a file-scheme URI, or "" otherwise.
func (u DocumentURI) Path() string {
	if !u.IsFile() {
		return ""
	}
	parsed, err := url.Parse(string(u))
	if err != nil {
		return ""
	}
	return parsed.Path
}

// URIFromPath builds a file-scheme DocumentURI from a filesystem path.
func URIFromPath(path string) DocumentURI {
	if path == "" {
		return ""
	}
	u := url.URL{Scheme: "file", Path: path}
	return DocumentURI(u.String())
}

func (u DocumentURI) String() string { return string(u) }

// Position is a zero-based (line, UTF-16 character) pair, per the LSP spec.
type Position struct {
	Line      uint32
	Character uint32
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Character) }

// Range is a half-open [Start, End) span of Positions.
type Range struct {
	Start Position
	End   Position
}

// IsEmpty reports whether the range spans zero characters.
func (r Range) IsEmpty() bool { return r.Start == r.End }

// Location pairs a URI with a Range within it.
type Location struct {
	URI   DocumentURI
	Range Range
}

// TextEdit replaces the text within Range with NewText.
type TextEdit struct {
	Range   Range
	NewText string
}

// WorkspaceEdit groups TextEdits by the document URI they apply to.
type WorkspaceEdit struct {
	Changes map[DocumentURI][]TextEdit
}

// InsertTextFormat distinguishes plain-text completion inserts from LSP
// snippet syntax.
type InsertTextFormat int

const (
	PlainTextFormat InsertTextFormat = 1
	SnippetFormat   InsertTextFormat = 2
)

// CompletionItemKind mirrors the small subset of LSP's CompletionItemKind
// enumeration that the analysis daemon's item kinds are mapped onto.
type CompletionItemKind int

const (
	KindText CompletionItemKind = iota + 1
	KindMethod
	KindFunction
	KindConstructor
	KindField
	KindVariable
	KindClass
	KindInterface
	KindModule
	KindProperty
	KindEnum
	KindKeyword
	KindSnippet
	KindValue
	KindEnumMember
	KindStruct
	KindOperator
	KindTypeParameter
)
