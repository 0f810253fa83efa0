// Package server provides room code generation and validation helpers.
package server

import (
	"math/rand/v2"
	"strconv"
)

// Room codes are 6-digit decimal strings in [100000, 999999]. Codes are
// normally generated client-side; the server only checks the shape at join
// time and never checks a fresh code for collision with a live room. Two
// creators generating the same code are merged into one room.
const (
	roomCodeLen = 6
	roomCodeMin = 100000
	roomCodeMax = 999999
)

// NewRoomCode returns a uniformly random 6-digit room code. It mirrors the
// generator clients use and exists server-side for the test page and tests.
func NewRoomCode() string {
	return strconv.Itoa(roomCodeMin + rand.IntN(roomCodeMax-roomCodeMin+1))
}

// validRoomCode reports whether code is exactly six ASCII digits.
func validRoomCode(code string) bool {
	if len(code) != roomCodeLen {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
