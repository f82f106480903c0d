// Package daemon implements the connection to the out-of-process analysis
// daemon: a Call/Notify RPC client, its connection-state machine, and
// notification dispatch (spec.md §3, §6). The wire byte layout is
// explicitly out of scope (spec.md §1); Conn is built against a Transport
// interface so the concrete framing (internal/daemon/wire.go, modeled on
// golang.org/x/tools/internal/jsonrpc2) is swappable without touching
// calling code.
package daemon

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/swiftlang/sourcekit-lsp-core/internal/corerr"
	"github.com/swiftlang/sourcekit-lsp-core/internal/telemetry"
)

// State is the connection's lifecycle state (spec.md's "Supplemented
// features": an explicit state machine rather than a single interrupted
// flag).
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Interrupted
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Request method names, matching the key categories named in spec.md §6.
// Byte layout of params/results is this package's concern, not the wire
// protocol's (which is out of scope).
const (
	MethodEditorOpen                = "editor-open"
	MethodEditorClose               = "editor-close"
	MethodEditorReplaceText         = "editor-replace-text"
	MethodCursorInfo                = "cursor-info"
	MethodCodeCompleteOpen          = "code-complete-open"
	MethodCodeCompleteUpdate        = "code-complete-update"
	MethodCodeCompleteClose         = "code-complete-close"
	MethodRelatedIdentifiers        = "related-identifiers"
	MethodFindSyntacticRenameRanges = "find-syntactic-rename-ranges"
	MethodSemanticRefactoring       = "semantic-refactoring"
	MethodEditorOpenInterface       = "editor-open-interface"
	MethodEditorFindUSR             = "editor-find-usr"
	MethodDiagnostics               = "diagnostics"
)

// Notification method names sent by the daemon (spec.md §6).
const (
	NotificationDocumentUpdate      = "document-update"
	NotificationSemanticEnabled     = "semantic-enabled"
	NotificationConnectionInterrupt = "connection-interrupted"
)

// Transport sends a call and waits for its response, or sends a
// fire-and-forget notification. A concrete Transport (internal/daemon/
// wire.go) owns the actual byte framing.
type Transport interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
	Notify(ctx context.Context, method string, params any) error
	Close() error
}

// NotificationHandler processes an unsolicited message from the daemon.
type NotificationHandler func(ctx context.Context, params json.RawMessage)

// ReopenAllFunc is invoked when the connection transitions to Interrupted,
// asking the outer shell to reopen every document (spec.md §6).
type ReopenAllFunc func(ctx context.Context)

// Conn is the process-global, shared-by-reference connection to the
// analysis daemon (spec.md §3). Its notifications are dispatched
// single-threaded, in the order received.
type Conn struct {
	transport Transport
	reopenAll ReopenAllFunc

	mu     sync.Mutex
	state  State
	nhs    map[string][]NotificationHandler
	stateL []func(State)
}

// New wraps transport in a Conn, initially Disconnected.
func New(transport Transport, reopenAll ReopenAllFunc) *Conn {
	c := &Conn{
		transport: transport,
		reopenAll: reopenAll,
		nhs:       make(map[string][]NotificationHandler),
	}
	return c
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnNotification registers handler for the named notification method.
// Multiple handlers for the same method run in registration order.
func (c *Conn) OnNotification(method string, handler NotificationHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nhs[method] = append(c.nhs[method], handler)
}

// OnStateChange registers a listener invoked whenever State() transitions.
func (c *Conn) OnStateChange(l func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateL = append(c.stateL, l)
}

func (c *Conn) setState(ctx context.Context, s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	listeners := append([]func(State){}, c.stateL...)
	c.mu.Unlock()
	if prev != s {
		telemetry.Log(ctx, "daemon connection state changed", telemetry.Of("from", prev.String()), telemetry.Of("to", s.String()))
		for _, l := range listeners {
			l(s)
		}
	}
}

// MarkConnecting transitions the connection to Connecting.
func (c *Conn) MarkConnecting(ctx context.Context) { c.setState(ctx, Connecting) }

// MarkConnected transitions the connection to Connected.
func (c *Conn) MarkConnected(ctx context.Context) { c.setState(ctx, Connected) }

// Dispatch handles a single incoming notification, single-threaded (spec.md
// §3). It is the integration point a transport's read loop calls into.
func (c *Conn) Dispatch(ctx context.Context, method string, params json.RawMessage) {
	if method == NotificationConnectionInterrupt {
		c.setState(ctx, Interrupted)
		if c.reopenAll != nil {
			c.reopenAll(ctx)
		}
		return
	}
	if method == NotificationSemanticEnabled {
		c.setState(ctx, Connected)
	}

	c.mu.Lock()
	handlers := append([]NotificationHandler{}, c.nhs[method]...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(ctx, params)
	}
}

// Call issues a request to the daemon and decodes its result into result
// (a pointer), or returns a corerr DaemonError on failure or cancellation.
func (c *Conn) Call(ctx context.Context, method string, params, result any) error {
	raw, err := c.transport.Call(ctx, method, params)
	if err != nil {
		if ctx.Err() != nil {
			return corerr.Daemon(corerr.DaemonCancelled, err)
		}
		return corerr.Daemon(corerr.DaemonFailed, err)
	}
	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return corerr.Daemon(corerr.DaemonFailed, err)
		}
	}
	return nil
}

// Notify sends a fire-and-forget request.
func (c *Conn) Notify(ctx context.Context, method string, params any) error {
	if err := c.transport.Notify(ctx, method, params); err != nil {
		return corerr.Daemon(corerr.DaemonFailed, err)
	}
	return nil
}

// Close shuts down the underlying transport.
func (c *Conn) Close() error { return c.transport.Close() }
