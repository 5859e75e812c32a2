// Package session provides the runtime character layer: connected players,
// their notification bridges, and the registry the combat engine and
// matchmaking queue resolve characters through.
package session

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/arena/internal/game/combat"
)

// BridgeEntity routes notification payloads to a Go channel, bridging the
// character layer to whatever transport streams events to the client.
type BridgeEntity struct {
	uid    string
	events chan combat.Payload
	mu     sync.Mutex
	closed bool
}

// NewBridgeEntity creates a BridgeEntity for the given character UID.
//
// Precondition: uid must be non-empty.
// Postcondition: Returns a BridgeEntity with an open events channel.
func NewBridgeEntity(uid string, bufferSize int) *BridgeEntity {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &BridgeEntity{
		uid:    uid,
		events: make(chan combat.Payload, bufferSize),
	}
}

// UID returns the character's unique identifier.
func (e *BridgeEntity) UID() string {
	return e.uid
}

// Push enqueues a payload to the events channel.
//
// Postcondition: The payload is enqueued, or an error if the entity is closed
// or the buffer is full.
func (e *BridgeEntity) Push(payload combat.Payload) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("entity %s is closed", e.uid)
	}
	select {
	case e.events <- payload:
		return nil
	default:
		return fmt.Errorf("entity %s event buffer full", e.uid)
	}
}

// Events returns the read-only events channel. The transport goroutine reads
// from this channel to serialize and send client events.
func (e *BridgeEntity) Events() <-chan combat.Payload {
	return e.events
}

// Close marks the entity as closed and closes the events channel.
//
// Postcondition: The events channel is closed. Further Push calls return an error.
func (e *BridgeEntity) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed {
		e.closed = true
		close(e.events)
	}
	return nil
}

// IsClosed reports whether the entity has been closed.
func (e *BridgeEntity) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
