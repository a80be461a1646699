// Package utils holds small helpers shared by the services and transports.
package utils

import (
	"github.com/google/uuid"
)

// NewConnectionID names a live WebSocket connection in the subscription
// registry. IDs must be unique across instances that share the registry,
// so they are random rather than counters.
//
// Go Learning Note — "github.com/google/uuid":
// uuid.NewString() returns a random (v4) UUID such as
// "550e8400-e29b-41d4-a716-446655440000". Any number of processes can mint
// them without coordinating; a collision needs around 2^61 IDs.
func NewConnectionID() string {
	return uuid.NewString()
}

// NewRequestID tags one HTTP request in the logs.
func NewRequestID() string {
	return uuid.NewString()
}

// ValidRequestID reports whether a client-supplied request ID is safe to
// echo and log: non-empty, at most 64 bytes, printable ASCII without spaces.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
