// Package refdoc implements the virtual reference-document URI grammar
// (spec.md §4.5, §6) and primary-file resolution: encoding/decoding
// macro-expansion and generated-interface URIs, and walking a virtual
// URI's parent chain back to its first file ancestor.
//
// Grounded on spec.md §6's two grammars directly -- there is no gopls
// analogue, since gopls has no virtual/synthesized document concept --
// and on spec.md §9's directive to represent the parent field as a tagged
// sum terminating in a file URI, with the chain length bounded to reject
// cycles.
package refdoc

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/swiftlang/sourcekit-lsp-core/internal/corerr"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
)

// DocumentType is the virtual-uri authority segment identifying which
// grammar a reference document follows.
type DocumentType string

const (
	TypeFile               DocumentType = ""
	TypeMacroExpansion     DocumentType = "macro-expansion"
	TypeGeneratedInterface DocumentType = "generated-interface"
)

// maxParentChainLength bounds primary_file's parent-chain walk so a
// malformed or cyclic chain of virtual uris fails instead of looping
// forever (spec.md §9).
const maxParentChainLength = 32

// TypeOf returns uri's document-type: TypeFile for an ordinary file uri,
// or the virtual-uri authority segment otherwise.
func TypeOf(uri protocol.DocumentURI) DocumentType {
	if uri.IsFile() {
		return TypeFile
	}
	u, err := url.Parse(string(uri))
	if err != nil {
		return TypeFile
	}
	return DocumentType(u.Host)
}

// OneBasedRange is the 1-based line/column range encoded into a
// macro-expansion uri's display-name path segment.
type OneBasedRange struct {
	StartLine, StartColumn int
	EndLine, EndColumn     int
}

// MacroExpansionRef is the decoded form of a
// `<scheme>://macro-expansion/...` uri.
type MacroExpansionRef struct {
	Display   OneBasedRange
	Extension string

	// Selection is the zero-based parent selection range that produced
	// this expansion.
	Selection protocol.Range
	// BufferName is the daemon's internal buffer name for this expansion,
	// empty if the daemon never reported one (spec.md §8: "a
	// macro-expansion whose buffer-name is missing is logged and skipped
	// but does not abort the request" -- that's internal/macro's concern;
	// here an empty BufferName simply round-trips as an empty query
	// value).
	BufferName string
	Parent     protocol.DocumentURI
}

// EncodeMacroExpansion builds a macro-expansion reference-document uri.
// parent is placed as the final query parameter so naive query-string
// splitters do not mistake the parent uri's own query for the outer uri's
// (spec.md §6).
func EncodeMacroExpansion(scheme string, ref MacroExpansionRef) protocol.DocumentURI {
	display := fmt.Sprintf("L%dC%d-L%dC%d.%s", ref.Display.StartLine, ref.Display.StartColumn, ref.Display.EndLine, ref.Display.EndColumn, ref.Extension)
	raw := fmt.Sprintf("%s://macro-expansion/%s?fromLine=%d&fromColumn=%d&toLine=%d&toColumn=%d&bufferName=%s&parent=%s",
		scheme,
		url.PathEscape(display),
		ref.Selection.Start.Line, ref.Selection.Start.Character,
		ref.Selection.End.Line, ref.Selection.End.Character,
		url.QueryEscape(ref.BufferName),
		url.QueryEscape(string(ref.Parent)),
	)
	return protocol.DocumentURI(raw)
}

// DecodeMacroExpansion parses a macro-expansion reference-document uri.
func DecodeMacroExpansion(uri protocol.DocumentURI) (MacroExpansionRef, error) {
	u, err := url.Parse(string(uri))
	if err != nil {
		return MacroExpansionRef{}, corerr.Wrap(corerr.Internal, err, "parsing macro-expansion uri %s", uri)
	}
	if DocumentType(u.Host) != TypeMacroExpansion {
		return MacroExpansionRef{}, corerr.New(corerr.Internal, "not a macro-expansion uri: %s", uri)
	}

	var display OneBasedRange
	var ext string
	path := u.Path
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	if _, err := fmt.Sscanf(path, "L%dC%d-L%dC%d.%s", &display.StartLine, &display.StartColumn, &display.EndLine, &display.EndColumn, &ext); err != nil {
		return MacroExpansionRef{}, corerr.Wrap(corerr.Internal, err, "parsing macro-expansion display range %q", path)
	}

	q := u.Query()
	ref := MacroExpansionRef{
		Display:   display,
		Extension: ext,
		Selection: protocol.Range{
			Start: protocol.Position{Line: queryUint32(q, "fromLine"), Character: queryUint32(q, "fromColumn")},
			End:   protocol.Position{Line: queryUint32(q, "toLine"), Character: queryUint32(q, "toColumn")},
		},
		BufferName: q.Get("bufferName"),
		Parent:     protocol.DocumentURI(q.Get("parent")),
	}
	return ref, nil
}

func queryUint32(q url.Values, key string) uint32 {
	n, _ := strconv.ParseUint(q.Get(key), 10, 32)
	return uint32(n)
}

// GeneratedInterfaceRef is the decoded form of a
// `<scheme>://generated-interface/...` uri.
type GeneratedInterfaceRef struct {
	DisplayName string
	ModuleName  string
	GroupName   string
	PrimaryFile protocol.DocumentURI
}

// EncodeGeneratedInterface builds a generated-interface reference-document
// uri.
func EncodeGeneratedInterface(scheme string, ref GeneratedInterfaceRef) protocol.DocumentURI {
	raw := fmt.Sprintf("%s://generated-interface/%s?module=%s&group=%s&primaryFile=%s",
		scheme,
		url.PathEscape(ref.DisplayName),
		url.QueryEscape(ref.ModuleName),
		url.QueryEscape(ref.GroupName),
		url.QueryEscape(string(ref.PrimaryFile)),
	)
	return protocol.DocumentURI(raw)
}

// DecodeGeneratedInterface parses a generated-interface reference-document
// uri.
func DecodeGeneratedInterface(uri protocol.DocumentURI) (GeneratedInterfaceRef, error) {
	u, err := url.Parse(string(uri))
	if err != nil {
		return GeneratedInterfaceRef{}, corerr.Wrap(corerr.Internal, err, "parsing generated-interface uri %s", uri)
	}
	if DocumentType(u.Host) != TypeGeneratedInterface {
		return GeneratedInterfaceRef{}, corerr.New(corerr.Internal, "not a generated-interface uri: %s", uri)
	}
	path := u.Path
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	displayName, err := url.PathUnescape(path)
	if err != nil {
		displayName = path
	}

	q := u.Query()
	return GeneratedInterfaceRef{
		DisplayName: displayName,
		ModuleName:  q.Get("module"),
		GroupName:   q.Get("group"),
		PrimaryFile: protocol.DocumentURI(q.Get("primaryFile")),
	}, nil
}

// ParentOf returns uri's immediate parent uri, or ok=false if uri is an
// ordinary file uri (the base case for primary-file resolution).
func ParentOf(uri protocol.DocumentURI) (parent protocol.DocumentURI, ok bool, err error) {
	switch TypeOf(uri) {
	case TypeMacroExpansion:
		ref, err := DecodeMacroExpansion(uri)
		if err != nil {
			return "", false, err
		}
		return ref.Parent, true, nil
	case TypeGeneratedInterface:
		ref, err := DecodeGeneratedInterface(uri)
		if err != nil {
			return "", false, err
		}
		return ref.PrimaryFile, true, nil
	default:
		return "", false, nil
	}
}

// PrimaryFile returns the first non-virtual ancestor of uri by following
// parent links (spec.md §4.5), bounding the walk to reject cyclic chains.
func PrimaryFile(uri protocol.DocumentURI) (protocol.DocumentURI, error) {
	cur := uri
	for i := 0; i < maxParentChainLength; i++ {
		if TypeOf(cur) == TypeFile {
			return cur, nil
		}
		parent, ok, err := ParentOf(cur)
		if err != nil {
			return "", err
		}
		if !ok {
			return cur, nil
		}
		if parent == "" {
			return "", corerr.New(corerr.Internal, "virtual uri %s has no parent", cur)
		}
		cur = parent
	}
	return "", corerr.New(corerr.Internal, "virtual uri parent chain exceeded %d links starting at %s", maxParentChainLength, uri)
}
