// Package integration contains integration tests for the Huddle server.
//
// These tests verify that multiple components work together correctly by
// testing the complete system behavior with real HTTP servers, WebSocket
// connections, and end-to-end room sessions. Integration tests ensure that
// the system works as expected when all components are assembled together.
package integration

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/huddlechat/huddle-server/internal/server"
	"github.com/huddlechat/huddle-server/test/testhelpers"
)

func newTestDeployment(t *testing.T) (*server.Registry, *httptest.Server) {
	t.Helper()
	registry := server.NewRegistry()
	testServer := testhelpers.CreateTestServer(server.SetupRoutes(registry))
	t.Cleanup(testServer.Close)
	testhelpers.AllowOrigin(t, testServer.URL)
	return registry, testServer
}

// TestRoomSessionLifecycle walks the full protocol scenario: Alice creates a
// room, Bob joins it, they exchange a message, and the room disappears once
// both have left.
func TestRoomSessionLifecycle(t *testing.T) {
	registry, testServer := newTestDeployment(t)
	const code = "482913"

	alice := testhelpers.DialSession(t, testServer.URL, code, "Alice")
	defer func() { _ = alice.Close() }()

	testhelpers.WaitFor(t, 2*time.Second, func() bool {
		return registry.ParticipantCount(code) == 1
	}, "Alice to be admitted")

	bob := testhelpers.DialSession(t, testServer.URL, code, "Bob")
	defer func() { _ = bob.Close() }()

	// Alice hears about Bob; Bob gets no replay of Alice's prior presence.
	testhelpers.ExpectEnvelope(t, alice, server.TypeSystem, "", "Bob joined the room")
	testhelpers.ExpectNoEnvelope(t, bob, 300*time.Millisecond)

	// Bob talks; both members receive the attributed chat envelope.
	if err := testhelpers.SendChat(bob, "hi"); err != nil {
		t.Fatalf("Failed to send chat: %v", err)
	}
	testhelpers.ExpectEnvelope(t, alice, server.TypeChat, "Bob", "hi")
	testhelpers.ExpectEnvelope(t, bob, server.TypeChat, "Bob", "hi")

	// Bob disconnects; Alice gets the leave notice.
	if err := testhelpers.CloseWebSocket(bob); err != nil {
		t.Fatalf("Failed to close Bob's session: %v", err)
	}
	testhelpers.ExpectEnvelope(t, alice, server.TypeSystem, "", "Bob left the room")

	// Alice disconnects; the room vanishes from the registry.
	if err := testhelpers.CloseWebSocket(alice); err != nil {
		t.Fatalf("Failed to close Alice's session: %v", err)
	}
	testhelpers.WaitFor(t, 2*time.Second, func() bool {
		return registry.RoomCount() == 0
	}, "room teardown after last leave")
}

// TestSenderReceivesOwnMessage tests self-delivery: a broadcast comes back to
// its sender with the sender's own name attached.
func TestSenderReceivesOwnMessage(t *testing.T) {
	_, testServer := newTestDeployment(t)

	alice := testhelpers.DialSession(t, testServer.URL, "111111", "Alice")
	defer func() { _ = alice.Close() }()

	if err := testhelpers.SendChat(alice, "talking to myself"); err != nil {
		t.Fatalf("Failed to send chat: %v", err)
	}
	testhelpers.ExpectEnvelope(t, alice, server.TypeChat, "Alice", "talking to myself")
}

// TestWhitespaceMessagesAreDropped tests that whitespace-only chat text emits
// nothing, not even to the sender.
func TestWhitespaceMessagesAreDropped(t *testing.T) {
	_, testServer := newTestDeployment(t)

	alice := testhelpers.DialSession(t, testServer.URL, "111111", "Alice")
	defer func() { _ = alice.Close() }()

	for _, text := range []string{"", "   ", "\t"} {
		if err := testhelpers.SendChat(alice, text); err != nil {
			t.Fatalf("Failed to send chat: %v", err)
		}
	}
	testhelpers.ExpectNoEnvelope(t, alice, 300*time.Millisecond)
}

// TestUnknownFrameTypesAreIgnored tests the forward-compatibility policy:
// inbound frames of unsupported types neither close the session nor produce
// output.
func TestUnknownFrameTypesAreIgnored(t *testing.T) {
	_, testServer := newTestDeployment(t)

	alice := testhelpers.DialSession(t, testServer.URL, "111111", "Alice")
	defer func() { _ = alice.Close() }()

	if err := alice.WriteJSON(map[string]string{"type": "typing", "message": "..."}); err != nil {
		t.Fatalf("Failed to send frame: %v", err)
	}
	testhelpers.ExpectNoEnvelope(t, alice, 300*time.Millisecond)

	// The session is still alive and chatting.
	if err := testhelpers.SendChat(alice, "still here"); err != nil {
		t.Fatalf("Failed to send chat after unknown frame: %v", err)
	}
	testhelpers.ExpectEnvelope(t, alice, server.TypeChat, "Alice", "still here")
}

// TestDisplayNameArrivesDecoded tests that URL-encoded display names reach
// the room decoded.
func TestDisplayNameArrivesDecoded(t *testing.T) {
	_, testServer := newTestDeployment(t)

	alice := testhelpers.DialSession(t, testServer.URL, "111111", "Alice Smith")
	defer func() { _ = alice.Close() }()

	bob := testhelpers.DialSession(t, testServer.URL, "111111", "Bob")
	defer func() { _ = bob.Close() }()

	testhelpers.ExpectEnvelope(t, alice, server.TypeSystem, "", "Bob joined the room")

	if err := testhelpers.SendChat(alice, "hello"); err != nil {
		t.Fatalf("Failed to send chat: %v", err)
	}
	testhelpers.ExpectEnvelope(t, bob, server.TypeChat, "Alice Smith", "hello")
}
