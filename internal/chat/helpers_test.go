package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

// fakeConn is a channel-backed Conn. Frames written by the server land in out.
type fakeConn struct {
	addr     string
	in       chan []byte
	out      chan []byte
	closed   chan struct{}
	once     sync.Once
	failSend bool
}

func newFakeConn(addr string) *fakeConn {
	return &fakeConn{
		addr:   addr,
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrame() ([]byte, error) {
	select {
	case <-c.closed:
		return nil, ErrConnectionClosed
	default:
	}
	select {
	case frame := <-c.in:
		return frame, nil
	case <-c.closed:
		return nil, ErrConnectionClosed
	}
}

func (c *fakeConn) WriteFrame(frame []byte) error {
	if c.failSend {
		return errors.New("broken pipe")
	}
	select {
	case <-c.closed:
		return ErrConnectionClosed
	default:
	}
	c.out <- frame
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) RemoteAddr() string { return c.addr }

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// sendJSON queues a client frame.
func (c *fakeConn) sendJSON(t *testing.T, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal client frame: %v", err)
	}
	c.in <- raw
}

// next returns the next server frame or fails after a timeout.
func (c *fakeConn) next(t *testing.T) Frame {
	t.Helper()
	select {
	case raw := <-c.out:
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("decode server frame %s: %v", raw, err)
		}
		return f
	case <-time.After(time.Second):
		t.Fatalf("%s: timed out waiting for a frame", c.addr)
		return Frame{}
	}
}

// expect reads the next frame and checks its type and message.
func (c *fakeConn) expect(t *testing.T, typ, msg string) Frame {
	t.Helper()
	f := c.next(t)
	if f.Type != typ || f.Message != msg {
		t.Fatalf("%s: got frame {%s %q}, want {%s %q}", c.addr, f.Type, f.Message, typ, msg)
	}
	return f
}

// expectNone fails if a frame arrives within wait.
func (c *fakeConn) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case raw := <-c.out:
		t.Fatalf("%s: unexpected frame %s", c.addr, raw)
	case <-time.After(wait):
	}
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingSink collects stored records.
type recordingSink struct {
	mu      sync.Mutex
	records []ChatRecord
	err     error
}

func (s *recordingSink) Store(_ context.Context, rec ChatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

func (s *recordingSink) Records() []ChatRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatRecord(nil), s.records...)
}

func quietLogger() log.FieldLogger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

// testHub wires a Hub with a fake clock and a recording history sink.
type testHub struct {
	*Hub
	clock *fakeClock
	sink  *recordingSink
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()
	clock := newFakeClock()
	sink := &recordingSink{}
	hub := NewHub(Options{
		MessageInterval: time.Second,
		History:         HistorySinkFunc(sink.Store),
		Logger:          quietLogger(),
		Now:             clock.Now,
	})
	t.Cleanup(func() {
		if err := hub.Shutdown(2 * time.Second); err != nil {
			t.Errorf("hub shutdown: %v", err)
		}
	})
	return &testHub{Hub: hub, clock: clock, sink: sink}
}

// join connects a fake client, registers name and drains the welcome sequence.
func (h *testHub) join(t *testing.T, name string, others ...*fakeConn) *fakeConn {
	t.Helper()
	conn := newFakeConn(name)
	go h.Serve(context.Background(), conn, nil)

	conn.expect(t, FrameInfo, promptUsername)
	conn.sendJSON(t, map[string]string{"message": name})
	conn.expect(t, FrameSuccess, "Welcome "+name+"!")
	conn.expect(t, FrameInfo, name+" has joined the chat.")
	if f := conn.next(t); f.Type != FrameUserList {
		t.Fatalf("got frame type %s, want %s", f.Type, FrameUserList)
	}
	for _, other := range others {
		other.expect(t, FrameInfo, name+" has joined the chat.")
	}
	return conn
}
