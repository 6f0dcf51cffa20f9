package server_test

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/chatroom/internal/chat"
	"github.com/Tyrowin/chatroom/internal/history"
	"github.com/Tyrowin/chatroom/internal/server"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const testOrigin = "http://localhost:8765"

// testEnv is a running chat server backed by a temporary history database.
type testEnv struct {
	server *httptest.Server
	hub    *chat.Hub
	store  *history.Store
	wsURL  string
}

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestEnv starts an httptest server. mutate may adjust the configuration
// before the server is built.
func newTestEnv(t *testing.T, mutate func(cfg *server.Config)) *testEnv {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{testOrigin}
	if mutate != nil {
		mutate(cfg)
	}

	store, err := history.Open(filepath.Join(t.TempDir(), "chat_history.db"))
	if err != nil {
		t.Fatalf("Failed to open history store: %v", err)
	}

	logger := quietLogger()
	hub := chat.NewHub(chat.Options{
		MessageInterval: cfg.MessageInterval,
		History:         store,
		Logger:          logger,
	})
	srv := server.New(cfg, hub, logger)
	testServer := httptest.NewServer(server.SetupRoutes(srv))

	t.Cleanup(func() {
		if err := hub.Shutdown(2 * time.Second); err != nil {
			t.Errorf("Hub shutdown failed: %v", err)
		}
		testServer.Close()
		if err := store.Close(); err != nil {
			t.Errorf("Failed to close history store: %v", err)
		}
	})

	return &testEnv{
		server: testServer,
		hub:    hub,
		store:  store,
		wsURL:  "ws" + strings.TrimPrefix(testServer.URL, "http") + "/ws",
	}
}

func newOriginHeader(origin string) http.Header {
	header := http.Header{}
	header.Set("Origin", origin)
	return header
}

// dial opens a WebSocket connection and reads the username prompt.
func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(e.wsURL, newOriginHeader(testOrigin))
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	expectFrame(t, conn, chat.FrameInfo, "Enter your username:")
	return conn
}

// join dials, registers name and consumes the welcome sequence on every
// connection involved.
func (e *testEnv) join(t *testing.T, name string, others ...*websocket.Conn) *websocket.Conn {
	t.Helper()
	conn := e.dial(t)
	sendJSON(t, conn, map[string]string{"message": name})

	expectFrame(t, conn, chat.FrameSuccess, "Welcome "+name+"!")
	expectFrame(t, conn, chat.FrameInfo, name+" has joined the chat.")
	if f := readFrame(t, conn); f.Type != chat.FrameUserList {
		t.Fatalf("Expected user_list frame, got %s", f.Type)
	}
	for _, other := range others {
		expectFrame(t, other, chat.FrameInfo, name+" has joined the chat.")
	}
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("Failed to send frame: %v", err)
	}
}

// readFrame reads one server frame with a two second deadline.
func readFrame(t *testing.T, conn *websocket.Conn) chat.Frame {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	var f chat.Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("Failed to decode frame %s: %v", raw, err)
	}
	return f
}

func expectFrame(t *testing.T, conn *websocket.Conn, typ, msg string) chat.Frame {
	t.Helper()
	f := readFrame(t, conn)
	if f.Type != typ || f.Message != msg {
		t.Fatalf("Expected {%s %q}, got {%s %q}", typ, msg, f.Type, f.Message)
	}
	return f
}

// expectNoFrame asserts that nothing arrives within timeout. A timed-out
// gorilla connection cannot be read again, so call this last.
func expectNoFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no frame, got %s", raw)
	}
}

// expectClosed asserts that the server closes the connection.
func expectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	for {
		_, raw, err := conn.ReadMessage()
		if err == nil {
			t.Logf("Frame before close: %s", raw)
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatal("Connection was not closed by the server")
		}
		return
	}
}
