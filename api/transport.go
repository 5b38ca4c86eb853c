// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the non-blocking socket abstraction (NetConn) shared by the
// event loop, the connection state machine and test doubles.

package api

// NetConn abstracts a non-blocking, full-duplex stream socket.
//
// Read and Write never suspend the caller: when no progress is possible they
// return ErrWouldBlock. Read returns (0, nil) when the peer closed its side.
type NetConn interface {
	// Read reads into a preallocated buffer
	Read(p []byte) (n int, err error)

	// Write writes buffer contents into the connection
	Write(p []byte) (n int, err error)

	// Close shuts down the connection and releases the descriptor
	Close() error

	// RawFD returns the underlying OS-level file descriptor
	RawFD() uintptr
}
