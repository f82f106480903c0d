// Package completion implements CompletionSession (spec.md §4.4): a
// single-slot closed/open state machine per analysis daemon, serialized
// onto one logical dialogue, producing CompletionItems from the daemon's
// code-complete open/update/close triad.
//
// Grounded directly on spec.md §4.4 -- gopls has no persistent
// server-side completion session, since it recomputes completions
// statelessly from go/types on every request -- with serialization
// modeled on the teacher's pervasive golang.org/x/sync usage, realized
// here as a semaphore.Weighted(1) gate (spec.md §4.4: "executes on a
// serial queue per daemon").
package completion

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/swiftlang/sourcekit-lsp-core/internal/buildsettings"
	"github.com/swiftlang/sourcekit-lsp-core/internal/corerr"
	"github.com/swiftlang/sourcekit-lsp-core/internal/daemon"
	"github.com/swiftlang/sourcekit-lsp-core/internal/document"
	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
)

// State is a Session's lifecycle state.
type State int

const (
	Closed State = iota
	Open
)

// Key identifies a completion dialogue: two requests sharing the same Key
// are refinements of the same session (spec.md §4.4's "compatibility
// check").
type Key struct {
	URI                  protocol.DocumentURI
	Utf8Start            int
	CompletionPos        protocol.Position
	CompileKey           string
	ClientSnippetSupport bool
}

// Session is the single optional completion dialogue held per analysis
// daemon (spec.md §3: "a single optional slot").
type Session struct {
	conn *daemon.Conn
	sem  *semaphore.Weighted

	state State
	key   Key
}

// NewSession creates a closed Session bound to conn.
func NewSession(conn *daemon.Conn) *Session {
	return &Session{conn: conn, sem: semaphore.NewWeighted(1)}
}

// CompletionList runs one completion request through the session state
// machine (spec.md §4.4's transition table) and maps the daemon's result
// into editor-facing items.
func (s *Session) CompletionList(
	ctx context.Context,
	snap *document.Snapshot,
	completionPos, cursorPos protocol.Position,
	settings buildsettings.Settings,
	filterText string,
	clientSnippetSupport bool,
	mustReuse bool,
) (*List, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, corerr.Daemon(corerr.DaemonCancelled, err)
	}
	defer s.sem.Release(1)

	utf8Start, err := snap.LineTable().Utf8OffsetOf(completionPos)
	if err != nil {
		return nil, err
	}
	key := Key{
		URI:                  snap.URI(),
		Utf8Start:            utf8Start,
		CompletionPos:        completionPos,
		CompileKey:           settings.Key(),
		ClientSnippetSupport: clientSnippetSupport,
	}

	switch {
	case s.state == Closed && mustReuse:
		return nil, corerr.Daemon(corerr.DaemonCancelled, fmt.Errorf("completion: must_reuse requested with no open session"))

	case s.state == Open && key == s.key:
		return s.update(ctx, snap, key, filterText, clientSnippetSupport)

	case s.state == Open && mustReuse:
		return nil, corerr.Daemon(corerr.DaemonCancelled, fmt.Errorf("completion: must_reuse requested but session key changed"))

	case s.state == Open:
		if err := s.closeSession(ctx, snap.URI()); err != nil {
			return nil, err
		}
		return s.open(ctx, snap, key, settings, filterText, clientSnippetSupport)

	default: // Closed && !mustReuse
		return s.open(ctx, snap, key, settings, filterText, clientSnippetSupport)
	}
}

func (s *Session) open(ctx context.Context, snap *document.Snapshot, key Key, settings buildsettings.Settings, filterText string, clientSnippetSupport bool) (*List, error) {
	var result daemon.CodeCompleteResult
	err := s.conn.Call(ctx, daemon.MethodCodeCompleteOpen, daemon.CodeCompleteOpenParams{
		Offset:       key.Utf8Start,
		Name:         string(key.URI),
		SourceFile:   string(key.URI),
		SourceText:   string(snap.Text()),
		CompilerArgs: settings.CompilerArgs,
		FilterText:   filterText,
	}, &result)
	if err != nil {
		return nil, err
	}
	s.state = Open
	s.key = key
	return mapResult(snap, key.CompletionPos, result, clientSnippetSupport, filterText), nil
}

func (s *Session) update(ctx context.Context, snap *document.Snapshot, key Key, filterText string, clientSnippetSupport bool) (*List, error) {
	var result daemon.CodeCompleteResult
	err := s.conn.Call(ctx, daemon.MethodCodeCompleteUpdate, daemon.CodeCompleteUpdateParams{
		Name:       string(key.URI),
		Offset:     key.Utf8Start,
		FilterText: filterText,
	}, &result)
	if err != nil {
		return nil, err
	}
	return mapResult(snap, key.CompletionPos, result, clientSnippetSupport, filterText), nil
}

func (s *Session) closeSession(ctx context.Context, uri protocol.DocumentURI) error {
	err := s.conn.Call(ctx, daemon.MethodCodeCompleteClose, daemon.CodeCompleteCloseParams{
		Name:   string(uri),
		Offset: s.key.Utf8Start,
	}, nil)
	s.state = Closed
	return err
}
