package unit

import (
	"testing"
	"time"

	"github.com/huddlechat/huddle-server/internal/server"
)

// TestNewSessionStartsConnecting tests that a freshly created session sits in
// the Connecting state with a usable identity and buffer.
func TestNewSessionStartsConnecting(t *testing.T) {
	reg := server.NewRegistry()

	sess := server.NewSession(nil, reg, "482913", "Alice", "127.0.0.1:12345")
	if sess == nil {
		t.Fatal("NewSession returned nil")
	}
	if got := sess.State(); got != server.StateConnecting {
		t.Errorf("Expected state %s, got %s", server.StateConnecting, got)
	}
	if sess.ID() == "" {
		t.Error("Session has empty connection identity")
	}
	if !sess.Enqueue([]byte(`{"type":"system","message":"x"}`)) {
		t.Error("Enqueue failed on a fresh session")
	}
}

// TestSessionIdentitiesAreUnique tests that two sessions never share a
// connection identity, even with identical display names.
func TestSessionIdentitiesAreUnique(t *testing.T) {
	reg := server.NewRegistry()

	first := server.NewSession(nil, reg, "482913", "Alice", "127.0.0.1:1")
	second := server.NewSession(nil, reg, "482913", "Alice", "127.0.0.1:2")

	if first.ID() == second.ID() {
		t.Errorf("Two sessions share identity %q", first.ID())
	}
}

// TestSessionRejectedJoinClosesDirectly tests the Connecting to Closed
// transition: a session whose admission fails never becomes Active and never
// touches the registry.
func TestSessionRejectedJoinClosesDirectly(t *testing.T) {
	reg := server.NewRegistry()

	sess := server.NewSession(nil, reg, "482913", "   ", "127.0.0.1:12345")
	sess.Start()

	deadline := time.Now().Add(time.Second)
	for sess.State() != server.StateClosed && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if got := sess.State(); got != server.StateClosed {
		t.Fatalf("Expected rejected session to reach %s, got %s", server.StateClosed, got)
	}
	if got := reg.RoomCount(); got != 0 {
		t.Errorf("Rejected session created %d rooms", got)
	}
}

// TestSessionStateString tests the state names used in logs.
func TestSessionStateString(t *testing.T) {
	states := map[server.SessionState]string{
		server.StateConnecting: "connecting",
		server.StateActive:     "active",
		server.StateClosed:     "closed",
	}
	for state, want := range states {
		if got := state.String(); got != want {
			t.Errorf("State %d renders %q, want %q", state, got, want)
		}
	}
}
