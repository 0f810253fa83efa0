// Package server defines the admission error taxonomy surfaced to clients as
// error envelopes during join rejection.
package server

import (
	"errors"
	"strings"
)

// Admission errors. Both are terminal for the attempting connection: the
// server sends one error envelope with the error text and closes the socket.
// The client may immediately retry on a new connection.
var (
	// ErrInvalidName rejects a join whose display name is empty after
	// trimming surrounding whitespace.
	ErrInvalidName = errors.New("display name must not be empty")

	// ErrInvalidRoomCode rejects a join whose room code is not exactly six
	// decimal digits.
	ErrInvalidRoomCode = errors.New("room code must be a 6-digit number")
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
