// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for readiness-driven IO reactors
// used to multiplex connections on a single event loop.

package api

// EventType is a bitmask of readiness conditions.
type EventType uint8

const (
	EventRead EventType = 1 << iota
	EventWrite
	EventError
)

// Has reports whether all bits of t are set.
func (e EventType) Has(t EventType) bool { return e&t == t }

// Event encapsulates one OS-level readiness notification.
type Event struct {
	Token uint64    // opaque value supplied at registration
	Type  EventType // readiness bits reported by the kernel
}

// Reactor defines the common interface for an event loop backend.
type Reactor interface {
	// Register associates fd with token and starts edge-triggered notifications.
	Register(fd uintptr, token uint64, events EventType) error

	// Unregister stops notifications for fd.
	Unregister(fd uintptr) error

	// Wait blocks up to timeoutMs (negative = forever) and fills events.
	// It returns early with n == 0 after Wake.
	Wait(events []Event, timeoutMs int) (n int, err error)

	// Wake interrupts a blocked Wait. Safe to call from any goroutine.
	Wake() error

	// Close releases the backend.
	Close() error
}
