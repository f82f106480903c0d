package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/xerrors"
)

// wireMessage is the on-the-wire envelope. Grounded on
// golang.org/x/tools/internal/jsonrpc2's wireRequest/wireResponse pair,
// collapsed into one struct since this package always knows from context
// whether it is encoding a call or a notification.
type wireMessage struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *wireError      `json:"error,omitempty"`
}

type wireError struct {
	Message string `json:"message"`
}

func (e *wireError) Error() string { return e.Message }

// HeaderTransport frames messages the way
// golang.org/x/tools/internal/jsonrpc2_v2's HeaderFramer does:
// "Content-Length: <n>\r\n\r\n<payload>", with no other headers required.
// It multiplexes concurrent Call requests over a single connection using
// an incrementing id and a pending-reply map, mirroring jsonrpc2.Conn.
type HeaderTransport struct {
	w       *bufio.Writer
	writeMu sync.Mutex

	nextID int64

	mu      sync.Mutex
	pending map[int64]chan wireMessage
	closed  bool

	rc io.ReadCloser
}

// NewHeaderTransport wraps rwc, starting a background goroutine that reads
// framed messages and routes them either to a pending Call's reply channel
// or to dispatch, for anything that is a request/notification rather than
// a response (i.e. has a non-empty Method).
func NewHeaderTransport(rwc io.ReadWriteCloser, dispatch func(ctx context.Context, method string, params json.RawMessage)) *HeaderTransport {
	t := &HeaderTransport{
		w:       bufio.NewWriter(rwc),
		pending: make(map[int64]chan wireMessage),
		rc:      rwc,
	}
	go t.readLoop(rwc, dispatch)
	return t
}

func (t *HeaderTransport) readLoop(r io.Reader, dispatch func(ctx context.Context, method string, params json.RawMessage)) {
	br := bufio.NewReader(r)
	for {
		msg, err := readFrame(br)
		if err != nil {
			t.mu.Lock()
			for id, ch := range t.pending {
				close(ch)
				delete(t.pending, id)
			}
			t.closed = true
			t.mu.Unlock()
			return
		}
		if msg.Method != "" {
			if dispatch != nil {
				dispatch(context.Background(), msg.Method, msg.Params)
			}
			continue
		}

		t.mu.Lock()
		ch, ok := t.pending[msg.ID]
		if ok {
			delete(t.pending, msg.ID)
		}
		t.mu.Unlock()
		if ok {
			ch <- msg
			close(ch)
		}
	}
}

// readFrame parses a single "Content-Length: N\r\n\r\n<N bytes>" frame,
// per internal/jsonrpc2_v2/frame.go's HeaderFramer.
func readFrame(br *bufio.Reader) (wireMessage, error) {
	var length int64 = -1
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return wireMessage{}, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return wireMessage{}, xerrors.Errorf("invalid Content-Length: %w", err)
			}
			length = n
		}
	}
	if length < 0 {
		return wireMessage{}, xerrors.New("missing Content-Length header")
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(br, buf); err != nil {
		return wireMessage{}, err
	}
	var msg wireMessage
	if err := json.Unmarshal(buf, &msg); err != nil {
		return wireMessage{}, xerrors.Errorf("decoding frame: %w", err)
	}
	return msg, nil
}

func (t *HeaderTransport) writeFrame(msg wireMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := fmt.Fprintf(t.w, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := t.w.Write(data); err != nil {
		return err
	}
	return t.w.Flush()
}

// Call sends method/params and blocks until the daemon replies or ctx is
// done.
func (t *HeaderTransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	id := atomic.AddInt64(&t.nextID, 1)
	reply := make(chan wireMessage, 1)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, xerrors.New("daemon transport closed")
	}
	t.pending[id] = reply
	t.mu.Unlock()

	if err := t.writeFrame(wireMessage{ID: id, Method: method, Params: raw}); err != nil {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		return nil, err
	}

	select {
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		return nil, ctx.Err()
	case msg, ok := <-reply:
		if !ok {
			return nil, xerrors.New("daemon transport closed before reply")
		}
		if msg.Error != nil {
			return nil, msg.Error
		}
		return msg.Result, nil
	}
}

// Notify sends a fire-and-forget message (no id, no reply expected).
func (t *HeaderTransport) Notify(ctx context.Context, method string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return t.writeFrame(wireMessage{Method: method, Params: raw})
}

// Close closes the underlying connection.
func (t *HeaderTransport) Close() error { return t.rc.Close() }
