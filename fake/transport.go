// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the non-blocking socket contract.

package fake

import (
	"sync"

	"github.com/momentics/hioload-fs/api"
)

// Socket is a scripted api.NetConn.
//
// Inbound data is delivered one queued chunk per Read; an empty queue yields
// api.ErrWouldBlock, or EOF once the peer is marked closed. Writes are
// accepted until the window is exhausted, then api.ErrWouldBlock is returned
// until Drain opens the window again.
type Socket struct {
	mu        sync.Mutex
	inbound   [][]byte
	peerEOF   bool
	written   []byte
	window    int // bytes accepted before backpressure, <0 means unlimited
	zeroWrite bool
	readErr   error
	writeErr  error
	closed    bool
	closeErr  error
	fd        uintptr
}

var _ api.NetConn = (*Socket)(nil)

// NewSocket creates a fake socket with an unlimited write window.
func NewSocket() *Socket {
	return &Socket{window: -1, fd: 42}
}

// Feed queues data for the next Read calls.
func (s *Socket) Feed(chunks ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.inbound = append(s.inbound, []byte(c))
	}
}

// CloseRemote makes Read report EOF once queued data is consumed.
func (s *Socket) CloseRemote() {
	s.mu.Lock()
	s.peerEOF = true
	s.mu.Unlock()
}

// SetWindow limits how many bytes Write accepts before blocking.
func (s *Socket) SetWindow(n int) {
	s.mu.Lock()
	s.window = n
	s.mu.Unlock()
}

// Drain re-opens the write window by n bytes.
func (s *Socket) Drain(n int) {
	s.mu.Lock()
	if s.window >= 0 {
		s.window += n
	}
	s.mu.Unlock()
}

// SetZeroWrite makes Write report success with zero bytes.
func (s *Socket) SetZeroWrite(v bool) {
	s.mu.Lock()
	s.zeroWrite = v
	s.mu.Unlock()
}

// SetReadError injects a read failure.
func (s *Socket) SetReadError(err error) {
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

// SetWriteError injects a write failure.
func (s *Socket) SetWriteError(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// SetCloseError injects a Close failure.
func (s *Socket) SetCloseError(err error) {
	s.mu.Lock()
	s.closeErr = err
	s.mu.Unlock()
}

// Written returns a copy of everything accepted by Write.
func (s *Socket) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.written))
	copy(out, s.written)
	return out
}

// Closed reports whether Close was called.
func (s *Socket) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Read implements api.NetConn.Read.
func (s *Socket) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readErr != nil {
		return 0, s.readErr
	}
	if len(s.inbound) == 0 {
		if s.peerEOF {
			return 0, nil
		}
		return 0, api.ErrWouldBlock
	}
	n := copy(p, s.inbound[0])
	if n == len(s.inbound[0]) {
		s.inbound = s.inbound[1:]
	} else {
		s.inbound[0] = s.inbound[0][n:]
	}
	return n, nil
}

// Write implements api.NetConn.Write.
func (s *Socket) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return 0, s.writeErr
	}
	if s.zeroWrite {
		return 0, nil
	}
	n := len(p)
	if s.window >= 0 {
		if s.window == 0 {
			return 0, api.ErrWouldBlock
		}
		if n > s.window {
			n = s.window
		}
		s.window -= n
	}
	s.written = append(s.written, p[:n]...)
	return n, nil
}

// Close implements api.NetConn.Close.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.closeErr
}

// RawFD implements api.NetConn.RawFD.
func (s *Socket) RawFD() uintptr { return s.fd }
