// Package server implements the Session Connection: the per-participant state
// machine and the read/write pumps binding one WebSocket to one Room.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds every write to the peer.
	writeWait = 10 * time.Second
	// pongWait is how long a connection may stay silent before it is
	// considered dead; pings go out at pingPeriod to keep it fed.
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	// sendBufferSize is the per-session outbound queue; a room drops the
	// session when the queue overflows.
	sendBufferSize = 256
)

// SessionState is the lifecycle position of a Session Connection.
type SessionState int32

// Session lifecycle. Closed is terminal; Connecting may move straight to
// Closed when admission is rejected.
const (
	StateConnecting SessionState = iota
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session binds one WebSocket connection to at most one Room for the
// connection's lifetime. It owns the connection's read and write goroutines
// and guarantees Room.Leave runs exactly once however the connection ends.
type Session struct {
	id          string
	conn        *websocket.Conn
	registry    *Registry
	roomCode    string
	displayName string
	addr        string

	send      chan []byte
	state     atomic.Int32
	closeOnce sync.Once

	room        *Room
	participant *Participant

	limiter        *rateLimiter
	rateLimit      RateLimitConfig
	maxMessageSize int64
}

// NewSession creates a Session in the Connecting state for the given
// connection and join target. The session is not admitted to any room until
// Start runs.
func NewSession(conn *websocket.Conn, registry *Registry, roomCode, displayName, addr string) *Session {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	s := &Session{
		id:             uuid.New().String(),
		conn:           conn,
		registry:       registry,
		roomCode:       roomCode,
		displayName:    displayName,
		addr:           addr,
		send:           make(chan []byte, sendBufferSize),
		limiter:        newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
		maxMessageSize: cfg.MaxMessageSize,
	}
	s.state.Store(int32(StateConnecting))
	return s
}

// ID returns the session's connection identity, distinct from its display
// name and unique for the process lifetime.
func (s *Session) ID() string { return s.id }

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Enqueue buffers an outbound payload without blocking. It reports false for
// a closed session or a full buffer; the owning Room treats false as a
// delivery failure for this session only.
func (s *Session) Enqueue(payload []byte) bool {
	if s.State() == StateClosed {
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// Shutdown force-closes the underlying transport. The read pump then unwinds
// through the normal leave path, so room bookkeeping stays consistent.
func (s *Session) Shutdown() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// Start runs the session task: admission, then the read and write pumps,
// until the connection closes. It returns immediately; the registry tracks
// the task for shutdown.
func (s *Session) Start() {
	s.registry.track(s.run)
}

func (s *Session) run() {
	room, participant, err := s.registry.Join(s.roomCode, s.displayName, s)
	if err != nil {
		s.reject(err)
		return
	}
	s.room = room
	s.participant = participant
	s.state.Store(int32(StateActive))
	log.Printf("Session %s active: %q in room %s (%s)", s.id, participant.DisplayName(), room.Code(), s.addr)

	go s.writePump()
	s.readPump()
}

// reject delivers a single error envelope and closes the connection. The
// session was never a participant, so there is no room state to unwind.
func (s *Session) reject(reason error) {
	s.state.Store(int32(StateClosed))
	log.Printf("Session %s rejected (%s): %v", s.id, s.addr, reason)

	if s.conn == nil {
		return
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err == nil {
		_ = s.conn.WriteMessage(websocket.TextMessage, ErrorEnvelope(reason.Error()).encode())
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason.Error()))
	}
	_ = s.conn.Close()
}

// finalize moves the session to Closed, removes it from its room exactly
// once, and releases the write pump. Safe to reach from any failure path.
func (s *Session) finalize() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		if s.participant != nil {
			s.room.Leave(s.participant)
		}
		// Leave has removed the participant under the room mutex, so no
		// further Enqueue can race this close.
		close(s.send)
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

func (s *Session) readPump() {
	defer s.finalize()

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", s.addr, err)
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.logReadError(err)
			return
		}
		if s.limiter != nil && !s.limiter.allow() {
			log.Printf("Rate limit exceeded for %s (%d messages per %s); discarding frame",
				s.addr, s.rateLimit.Burst, s.rateLimit.RefillInterval)
			continue
		}
		s.handleFrame(raw)
	}
}

// handleFrame forwards inbound chat frames to the room. Frames of any other
// type are ignored rather than treated as fatal, so clients can speak newer
// protocol revisions against this server.
func (s *Session) handleFrame(raw []byte) {
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("Invalid frame from %s: %v", s.addr, err)
		return
	}
	if frame.Type != TypeChat {
		return
	}
	s.room.Broadcast(s.participant, frame.Message)
}

// logReadError classifies the terminal read error for diagnostics. Every read
// error ends the session; only the log line differs.
func (s *Session) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("Frame from %s exceeded maximum size of %d bytes", s.addr, s.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("Session %s disconnected: %v", s.id, err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		log.Printf("Session %s connection closed: %v", s.id, err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		log.Printf("Unexpected WebSocket error from %s: %v", s.addr, err)
	default:
		log.Printf("WebSocket read error from %s: %v", s.addr, err)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection in write pump: %v", err)
		}
	}()

	for {
		select {
		case payload, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Error setting write deadline for %s: %v", s.addr, err)
				return
			}
			if !ok {
				// finalize closed the queue; say goodbye properly.
				if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
					log.Printf("Error writing close message to %s: %v", s.addr, err)
				}
				return
			}
			if !s.writeFrame(payload) {
				return
			}
		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Error setting write deadline for ping to %s: %v", s.addr, err)
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeFrame writes one envelope and drains any others already queued, each
// as its own text frame so per-sender ordering stays visible to the client.
func (s *Session) writeFrame(payload []byte) bool {
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing frame to %s: %v", s.addr, err)
		}
		return false
	}

	n := len(s.send)
	for i := 0; i < n; i++ {
		queued, ok := <-s.send
		if !ok {
			return false
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, queued); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error writing queued frame to %s: %v", s.addr, err)
			}
			return false
		}
	}
	return true
}
