package daemon_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/swiftlang/sourcekit-lsp-core/internal/corerr"
	"github.com/swiftlang/sourcekit-lsp-core/internal/daemon"
)

// newLineReader, readContentLength and writeFrame implement just enough of
// the header-framed wire format (Content-Length: N\r\n\r\n<N bytes>) for
// the fakeDaemon server side of these tests to speak it without depending
// on HeaderTransport's own framing code.

func newLineReader(r io.Reader) *bufio.Reader { return bufio.NewReader(r) }

func readContentLength(t *testing.T, br *bufio.Reader) int {
	t.Helper()
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("reading header: %v", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			t.Fatal("missing Content-Length header")
		}
		if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				t.Fatalf("invalid Content-Length: %v", err)
			}
			// consume the blank line terminating the header block
			if blank, err := br.ReadString('\n'); err != nil || strings.TrimRight(blank, "\r\n") != "" {
				t.Fatalf("expected blank line after Content-Length, got %q (err=%v)", blank, err)
			}
			return n
		}
	}
}

func writeFrame(t *testing.T, w io.Writer, payload []byte) {
	t.Helper()
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
		t.Fatalf("writing header: %v", err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("writing payload: %v", err)
	}
}

// fakeDaemon serves one HeaderTransport connection, answering a single
// call with either a canned cursor-info result (serveOneEcho) or an error
// (serveOneError).
type fakeDaemon struct {
	t    *testing.T
	conn net.Conn
}

func startFakeDaemon(t *testing.T) (client net.Conn, srv *fakeDaemon) {
	t.Helper()
	c1, c2 := net.Pipe()
	srv = &fakeDaemon{t: t, conn: c2}
	return c1, srv
}

func TestCallRoundTrip(t *testing.T) {
	client, srv := startFakeDaemon(t)
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.serveOneEcho()
	}()

	transport := daemon.NewHeaderTransport(client, nil)
	conn := daemon.New(transport, nil)

	var result daemon.CursorInfoResult
	err := conn.Call(context.Background(), daemon.MethodCursorInfo, daemon.CursorInfoParams{
		Offset:     4,
		SourceFile: "/tmp/foo.swift",
	}, &result)
	if err != nil {
		t.Fatal(err)
	}
	if result.Name != "foo" {
		t.Fatalf("got name %q, want foo", result.Name)
	}
	<-done
}

// serveOneEcho reads one framed request off the wire and replies with a
// canned CursorInfoResult, using the same header framing the client uses
// (this test deliberately avoids depending on HeaderTransport internals
// for the server side, to exercise the wire format honestly).
func (f *fakeDaemon) serveOneEcho() {
	br := newLineReader(f.conn)
	length := readContentLength(f.t, br)
	buf := make([]byte, length)
	if _, err := io.ReadFull(br, buf); err != nil {
		f.t.Errorf("reading request body: %v", err)
		return
	}
	var req struct {
		ID     int64           `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(buf, &req); err != nil {
		f.t.Errorf("unmarshal request: %v", err)
		return
	}

	result, _ := json.Marshal(daemon.CursorInfoResult{Name: "foo", Kind: "identifier"})
	resp, _ := json.Marshal(struct {
		ID     int64           `json:"id"`
		Result json.RawMessage `json:"result"`
	}{ID: req.ID, Result: result})

	writeFrame(f.t, f.conn, resp)
}

func TestDispatchConnectionInterrupted(t *testing.T) {
	client, _ := startFakeDaemon(t)
	defer client.Close()

	transport := daemon.NewHeaderTransport(client, nil)
	reopened := make(chan struct{}, 1)
	conn := daemon.New(transport, func(ctx context.Context) { reopened <- struct{}{} })

	conn.Dispatch(context.Background(), daemon.NotificationConnectionInterrupt, nil)
	if conn.State() != daemon.Interrupted {
		t.Fatalf("state = %v, want Interrupted", conn.State())
	}
	select {
	case <-reopened:
	case <-time.After(time.Second):
		t.Fatal("reopenAll was not invoked")
	}
}

func TestCallErrorMapsToDaemonError(t *testing.T) {
	client, srv := startFakeDaemon(t)
	defer client.Close()

	go srv.serveOneError()

	transport := daemon.NewHeaderTransport(client, nil)
	conn := daemon.New(transport, nil)

	err := conn.Call(context.Background(), daemon.MethodCursorInfo, daemon.CursorInfoParams{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !corerr.IsDaemonSub(err, corerr.DaemonFailed) {
		t.Fatalf("got %v, want a DaemonFailed corerr.Error", err)
	}
}

func (f *fakeDaemon) serveOneError() {
	br := newLineReader(f.conn)
	length := readContentLength(f.t, br)
	buf := make([]byte, length)
	io.ReadFull(br, buf)

	var req struct {
		ID int64 `json:"id"`
	}
	json.Unmarshal(buf, &req)

	resp, _ := json.Marshal(struct {
		ID    int64 `json:"id"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}{ID: req.ID, Error: struct {
		Message string `json:"message"`
	}{Message: "boom"}})
	writeFrame(f.t, f.conn, resp)
}
