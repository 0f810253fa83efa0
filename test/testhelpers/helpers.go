// Package testhelpers provides common utilities and helper functions for testing the Huddle server.
//
// This package contains reusable test utilities that are shared across unit and integration tests.
// It provides functions for creating test servers, establishing room sessions, and asserting on
// received envelopes to reduce code duplication in test files.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/huddlechat/huddle-server/internal/server"
)

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// AllowOrigin configures the server to accept WebSocket upgrades from the
// given origin and restores the default configuration when the test ends.
func AllowOrigin(t *testing.T, origin string) {
	t.Helper()
	cfg := server.NewConfig()
	cfg.AllowedOrigins = append([]string{origin}, cfg.AllowedOrigins...)
	server.SetConfig(cfg)
	t.Cleanup(func() {
		server.SetConfig(nil)
	})
}

// SessionURL builds the WebSocket URL for joining the given room with the
// given display name against a httptest server base URL.
func SessionURL(t *testing.T, baseURL, roomCode, displayName string) string {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/ws/" + roomCode + "/" + displayName
	return u.String()
}

// DialSession opens a session against the room endpoint, sending the test
// server's own URL as the Origin header.
func DialSession(t *testing.T, baseURL, roomCode, displayName string) *websocket.Conn {
	t.Helper()
	conn, err := TryDialSession(baseURL, roomCode, displayName)
	if err != nil {
		t.Fatalf("Failed to open session for %q in room %q: %v", displayName, roomCode, err)
	}
	return conn
}

// TryDialSession is DialSession without the fatal error handling, for tests
// that expect the handshake itself to fail.
func TryDialSession(baseURL, roomCode, displayName string) (*websocket.Conn, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	u.Scheme = "ws"
	u.Path = "/ws/" + roomCode + "/" + displayName

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	headers.Set("Origin", baseURL)

	conn, resp, err := dialer.Dial(u.String(), headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendChat sends a client chat frame carrying the given text.
func SendChat(conn *websocket.Conn, text string) error {
	frame := map[string]string{"type": "message", "message": text}
	return conn.WriteJSON(frame)
}

// readResult carries the outcome of a background read started by
// ExpectNoEnvelope so a later ReceiveEnvelope on the same connection can
// consume it instead of racing a second concurrent read.
type readResult struct {
	payload []byte
	err     error
}

// pendingReads maps a *websocket.Conn to the channel of its in-flight
// background read, if any.
var pendingReads sync.Map

// pendingReadChan returns the connection's in-flight background read,
// starting one if none exists. The read runs without a deadline so a quiet
// window never errors (and thus never poisons) the connection.
func pendingReadChan(t *testing.T, conn *websocket.Conn) chan readResult {
	t.Helper()
	if v, ok := pendingReads.Load(conn); ok {
		return v.(chan readResult)
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		t.Fatalf("Failed to clear read deadline: %v", err)
	}
	ch := make(chan readResult, 1)
	pendingReads.Store(conn, ch)
	go func() {
		_, payload, err := conn.ReadMessage()
		ch <- readResult{payload: payload, err: err}
	}()
	return ch
}

// ReceiveEnvelope reads one server envelope, failing after the timeout.
func ReceiveEnvelope(t *testing.T, conn *websocket.Conn, timeout time.Duration) server.Envelope {
	t.Helper()
	if v, ok := pendingReads.Load(conn); ok {
		select {
		case res := <-v.(chan readResult):
			pendingReads.Delete(conn)
			if res.err != nil {
				t.Fatalf("Failed to read envelope: %v", res.err)
			}
			return DecodeEnvelope(t, res.payload)
		case <-time.After(timeout):
			t.Fatalf("Failed to read envelope: timed out after %v", timeout)
		}
	}
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	var env server.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("Failed to read envelope: %v", err)
	}
	return env
}

// ExpectEnvelope reads one envelope and asserts its type, name, and message.
func ExpectEnvelope(t *testing.T, conn *websocket.Conn, wantType, wantName, wantMessage string) {
	t.Helper()
	env := ReceiveEnvelope(t, conn, 2*time.Second)
	if env.Type != wantType {
		t.Errorf("Expected envelope type %q, got %q (message %q)", wantType, env.Type, env.Message)
	}
	if env.Name != wantName {
		t.Errorf("Expected envelope name %q, got %q", wantName, env.Name)
	}
	if env.Message != wantMessage {
		t.Errorf("Expected envelope message %q, got %q", wantMessage, env.Message)
	}
}

// ExpectNoEnvelope asserts that nothing arrives on the connection within the
// timeout. A clean close while waiting also satisfies the expectation.
//
// The read happens in a background goroutine with no deadline: a deadline
// timeout would permanently error a gorilla connection, breaking every later
// read. If the quiet window passes, the read is left pending for the next
// ReceiveEnvelope on the same connection to consume.
func ExpectNoEnvelope(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	select {
	case res := <-pendingReadChan(t, conn):
		pendingReads.Delete(conn)
		if res.err == nil {
			t.Fatalf("Expected no envelope, but received: %s", res.payload)
		}
		if websocket.IsCloseError(res.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return
		}
		t.Fatalf("Unexpected error while waiting for absence of envelope: %v", res.err)
	case <-time.After(timeout):
	}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// WaitFor polls cond until it reports true or the deadline passes.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

// DecodeEnvelope unmarshals a raw payload into an Envelope.
func DecodeEnvelope(t *testing.T, payload []byte) server.Envelope {
	t.Helper()
	var env server.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("Failed to decode envelope %s: %v", payload, err)
	}
	return env
}
