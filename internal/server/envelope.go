// Package server defines the wire protocol envelopes exchanged between the
// Huddle server and its clients.
package server

import "encoding/json"

// Envelope types sent from the server to clients. Clients only ever send
// TypeChat frames; anything else inbound is ignored.
const (
	// TypeChat carries user chat text, tagged with the sender's display name.
	TypeChat = "message"
	// TypeSystem carries a server-generated room notice (joins and leaves).
	TypeSystem = "system"
	// TypeError carries a terminal notice sent immediately before the server
	// closes the connection.
	TypeError = "error"
)

// Envelope is the single JSON frame format delivered to clients. Name is only
// populated for TypeChat frames. Envelopes are immutable once constructed and
// never reference a connection, only a display name.
type Envelope struct {
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

// ChatEnvelope builds a chat frame attributed to the given display name.
func ChatEnvelope(name, text string) Envelope {
	return Envelope{Type: TypeChat, Name: name, Message: text}
}

// SystemEnvelope builds a room notice frame.
func SystemEnvelope(text string) Envelope {
	return Envelope{Type: TypeSystem, Message: text}
}

// ErrorEnvelope builds a terminal error frame.
func ErrorEnvelope(text string) Envelope {
	return Envelope{Type: TypeError, Message: text}
}

func (e Envelope) encode() []byte {
	payload, err := json.Marshal(e)
	if err != nil {
		// Envelope only holds strings; Marshal cannot fail on it.
		panic("server: envelope marshal: " + err.Error())
	}
	return payload
}

// clientFrame is the inbound frame format. Clients carry only text; the
// server attributes the sender's name on fan-out.
type clientFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
