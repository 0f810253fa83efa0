// Package unit contains unit tests for individual components of the Huddle server.
//
// These tests focus on testing specific functions and methods in isolation,
// using fakes where necessary to avoid dependencies on real network
// connections. Unit tests ensure that each component behaves correctly under
// various conditions.
package unit

import (
	"fmt"
	"sync"
	"testing"

	"github.com/huddlechat/huddle-server/internal/server"
	"github.com/huddlechat/huddle-server/test/testhelpers"
)

var linkSeq int

// fakeLink is an in-memory stand-in for a session transport. It records
// every enqueued payload and every forced shutdown.
type fakeLink struct {
	id string

	mu        sync.Mutex
	payloads  [][]byte
	full      bool
	shutdowns int
}

func newFakeLink() *fakeLink {
	linkSeq++
	return &fakeLink{id: fmt.Sprintf("link-%d", linkSeq)}
}

func (f *fakeLink) ID() string { return f.id }

func (f *fakeLink) Enqueue(payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.payloads = append(f.payloads, append([]byte(nil), payload...))
	return true
}

func (f *fakeLink) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
}

func (f *fakeLink) shutdownCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdowns
}

// envelopes decodes everything delivered to the link so far.
func (f *fakeLink) envelopes(t *testing.T) []server.Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	decoded := make([]server.Envelope, len(f.payloads))
	for i, payload := range f.payloads {
		decoded[i] = testhelpers.DecodeEnvelope(t, payload)
	}
	return decoded
}
