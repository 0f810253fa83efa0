// Package server implements the Registry: the process-wide map from room code
// to live Room, created lazily on first join and torn down when empty.
package server

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

// Registry owns every live Room in the process. It is constructed at startup
// and passed to whatever accepts connections; there is no package-level
// instance. Join and RemoveIfEmpty are mutually exclusive across all codes so
// that a session can never observe a torn-down room it just joined.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	wg    sync.WaitGroup
}

// NewRegistry creates an empty Registry ready to accept joins.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Join validates the admission request and, on success, atomically
// materializes the Room for code (if needed) and appends a new Participant.
// Existing members are notified before Join returns, so the notice is ordered
// ahead of anything the new participant sends.
//
// Validation order is fixed: display name first, then room code shape. The
// first failing check wins and is returned as ErrInvalidName or
// ErrInvalidRoomCode; no Room is created for a rejected join.
func (reg *Registry) Join(code, displayName string, link Link) (*Room, *Participant, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return nil, nil, ErrInvalidName
	}
	if !validRoomCode(code) {
		return nil, nil, ErrInvalidRoomCode
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[code]
	if !ok {
		room = newRoom(code, reg)
		reg.rooms[code] = room
		log.Printf("Room %s created", code)
	}
	p := room.admit(name, link)
	return room, p, nil
}

// RemoveIfEmpty deletes the Room for code if its participant set is empty.
// It is called after every leave.
func (reg *Registry) RemoveIfEmpty(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[code]
	if ok && room.empty() {
		delete(reg.rooms, code)
		log.Printf("Room %s removed", code)
	}
}

// Room returns the live Room for code, if any.
func (reg *Registry) Room(code string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[code]
	return room, ok
}

// RoomCount returns the number of live rooms.
func (reg *Registry) RoomCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// ParticipantCount returns the number of participants in the Room for code,
// or zero when no such room exists.
func (reg *Registry) ParticipantCount(code string) int {
	reg.mu.Lock()
	room, ok := reg.rooms[code]
	reg.mu.Unlock()
	if !ok {
		return 0
	}
	return room.participantCount()
}

// track runs a session task and accounts for it until it fully finishes, so
// Shutdown can wait for per-connection goroutines.
func (reg *Registry) track(task func()) {
	reg.wg.Add(1)
	go func() {
		defer reg.wg.Done()
		task()
	}()
}

// Shutdown force-closes every live session transport and waits for all
// per-connection goroutines to finish, or until the timeout is reached.
func (reg *Registry) Shutdown(timeout time.Duration) error {
	log.Println("Shutting down room registry...")

	reg.mu.Lock()
	var links []Link
	for _, room := range reg.rooms {
		room.mu.Lock()
		for _, p := range room.participants {
			links = append(links, p.link)
		}
		room.mu.Unlock()
	}
	reg.mu.Unlock()

	for _, link := range links {
		link.Shutdown()
	}

	done := make(chan struct{})
	go func() {
		reg.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("Room registry shutdown completed (%d sessions closed)", len(links))
		return nil
	case <-time.After(timeout):
		log.Println("Room registry shutdown timeout reached, some sessions may still be draining")
		return context.DeadlineExceeded
	}
}
