// Package hover implements the hover(uri, position) external operation
// (spec.md §6): rendering the analysis daemon's doc-comment markup to
// HTML-safe markdown via goldmark, with bare URLs in the source comment
// auto-linked first.
//
// Grounded on gopls/internal/server/link.go's xurls-based link discovery
// (same library, same "compile once, reuse the regexp" idiom) and on
// gopls's vendoring of goldmark for doc-comment rendering.
package hover

import (
	"bytes"
	"context"

	"github.com/yuin/goldmark"
	"mvdan.cc/xurls/v2"

	"github.com/swiftlang/sourcekit-lsp-core/internal/buildsettings"
	"github.com/swiftlang/sourcekit-lsp-core/internal/daemon"
	"github.com/swiftlang/sourcekit-lsp-core/internal/document"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
)

// urlPattern recognizes bare URLs in doc comments so they can be turned
// into markdown links before rendering (compiled once, like xurls.Relaxed
// is in gopls's own link.go).
var urlPattern = xurls.Relaxed()

// Info is the rendered answer to one hover request.
type Info struct {
	Markdown string
	HTML     string
	Range    protocol.Range
}

// Provider issues cursor-info requests and renders the result's doc
// comment.
type Provider struct {
	conn *daemon.Conn
}

// New creates a Provider bound to conn.
func New(conn *daemon.Conn) *Provider {
	return &Provider{conn: conn}
}

// HoverAt answers hover(uri, position) for the identifier at pos in snap.
func (p *Provider) HoverAt(ctx context.Context, snap *document.Snapshot, pos protocol.Position, settings buildsettings.Settings) (*Info, error) {
	offset, err := snap.LineTable().Utf8OffsetOf(pos)
	if err != nil {
		return nil, err
	}

	var result daemon.CursorInfoResult
	if err := p.conn.Call(ctx, daemon.MethodCursorInfo, daemon.CursorInfoParams{
		Offset:       offset,
		CompilerArgs: settings.CompilerArgs,
		SourceFile:   string(snap.URI()),
	}, &result); err != nil {
		return nil, err
	}
	if result.DocComment == "" {
		return nil, nil
	}

	rng := protocol.Range{Start: pos, End: pos}
	if result.DeclarationLoc != nil {
		if start, err := snap.LineTable().PositionOf(result.DeclarationLoc.Offset); err == nil {
			end, err := snap.LineTable().PositionOf(result.DeclarationLoc.Offset + result.DeclarationLoc.Length)
			if err != nil {
				end = start
			}
			rng = protocol.Range{Start: start, End: end}
		}
	}

	md := autolink(result.DocComment)
	html, err := render(md)
	if err != nil {
		return nil, err
	}
	return &Info{Markdown: md, HTML: html, Range: rng}, nil
}

// autolink wraps bare URLs found in text in markdown link syntax.
func autolink(text string) string {
	matches := urlPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	var b bytes.Buffer
	prev := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		b.WriteString(text[prev:start])
		b.WriteString("[")
		b.WriteString(text[start:end])
		b.WriteString("](")
		b.WriteString(text[start:end])
		b.WriteString(")")
		prev = end
	}
	b.WriteString(text[prev:])
	return b.String()
}

func render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
