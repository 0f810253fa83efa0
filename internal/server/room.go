// Package server implements Rooms: the live participant sets keyed by room
// code, with join/leave notices and chat fan-out.
package server

import (
	"log"
	"slices"
	"strings"
	"sync"
)

// Link is the transport-facing surface a Room needs from a session. Enqueue
// must never block; it reports false when the payload could not be buffered.
// Shutdown force-closes the underlying transport, after which the session
// runs its own leave path.
type Link interface {
	ID() string
	Enqueue(payload []byte) bool
	Shutdown()
}

// Participant is one admitted member of a Room. It is owned exclusively by
// its Room and removed when its session closes for any reason.
type Participant struct {
	id   string
	name string
	link Link
}

// ID returns the participant's connection identity, unique per session.
func (p *Participant) ID() string { return p.id }

// DisplayName returns the name the participant joined with. Display names are
// not unique within a room.
func (p *Participant) DisplayName() string { return p.name }

// Room holds the connected participants for one code and fans messages out to
// them. A Room exists in the Registry iff it has at least one participant.
// All participant-set mutations happen under the room's own mutex; two
// different rooms never coordinate.
type Room struct {
	code     string
	registry *Registry

	mu           sync.Mutex
	participants []*Participant
}

func newRoom(code string, registry *Registry) *Room {
	return &Room{code: code, registry: registry}
}

// Code returns the 6-digit code addressing this room.
func (r *Room) Code() string { return r.code }

// ParticipantNames returns the current display names in join order.
func (r *Room) ParticipantNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.participants))
	for i, p := range r.participants {
		names[i] = p.name
	}
	return names
}

func (r *Room) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants) == 0
}

// participantCount returns the current number of members.
func (r *Room) participantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

// admit appends a new participant and notifies the existing members. The
// caller (Registry.Join) holds the registry mutex, so admission can never
// interleave with the room being torn down.
func (r *Room) admit(name string, link Link) *Participant {
	p := &Participant{id: link.ID(), name: name, link: link}

	r.mu.Lock()
	r.participants = append(r.participants, p)
	count := len(r.participants)
	failed := r.deliverLocked(SystemEnvelope(name+" joined the room"), p)
	r.mu.Unlock()

	log.Printf("Participant %q joined room %s. Room size: %d", name, r.code, count)
	r.kick(failed)
	return p
}

// Leave removes the participant, notifies the remaining members, and tears
// the room down if it is now empty. Calling Leave for a participant that has
// already left is a no-op.
func (r *Room) Leave(p *Participant) {
	r.mu.Lock()
	idx := slices.Index(r.participants, p)
	if idx < 0 {
		r.mu.Unlock()
		return
	}
	r.participants = slices.Delete(r.participants, idx, idx+1)
	count := len(r.participants)
	failed := r.deliverLocked(SystemEnvelope(p.name+" left the room"), nil)
	r.mu.Unlock()

	log.Printf("Participant %q left room %s. Room size: %d", p.name, r.code, count)
	r.kick(failed)
	r.registry.RemoveIfEmpty(r.code)
}

// Broadcast wraps text in a chat envelope attributed to the sender and
// delivers it to every participant, the sender included. Whitespace-only text
// is silently dropped. Delivery to each participant is an independent
// non-blocking enqueue, so a slow participant never stalls the others; each
// recipient still observes any one sender's messages in sending order.
func (r *Room) Broadcast(sender *Participant, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	env := ChatEnvelope(sender.name, text)

	r.mu.Lock()
	failed := r.deliverLocked(env, nil)
	r.mu.Unlock()

	r.kick(failed)
}

// deliverLocked enqueues the envelope to every participant except skip and
// returns the participants whose buffers could not accept it. Callers hold
// r.mu.
func (r *Room) deliverLocked(env Envelope, skip *Participant) []*Participant {
	payload := env.encode()

	var failed []*Participant
	for _, p := range r.participants {
		if p == skip {
			continue
		}
		if !p.link.Enqueue(payload) {
			failed = append(failed, p)
		}
	}
	return failed
}

// kick force-closes the transports of participants that failed delivery.
// Each one then runs its own leave path; the failure never reaches the
// sender or the rest of the room.
func (r *Room) kick(failed []*Participant) {
	for _, p := range failed {
		log.Printf("Dropping participant %q from room %s: send buffer full", p.name, r.code)
		go p.link.Shutdown()
	}
}
