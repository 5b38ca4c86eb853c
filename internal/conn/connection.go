// File: internal/conn/connection.go
// Package conn implements the per-socket state machine of the file server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Connection owns one non-blocking socket, an inbound accumulator, an
// outbound accumulator and at most one attached file streamer. It is driven
// exclusively by the event loop goroutine and is not safe for concurrent use.

package conn

import (
	"errors"
	"fmt"
	"net"

	"github.com/momentics/hioload-fs/api"
	"github.com/momentics/hioload-fs/internal/stream"
	"github.com/momentics/hioload-fs/protocol"
	"go.uber.org/multierr"
)

// ErrBusy is returned by Attach while a transfer is still in flight.
var ErrBusy = errors.New("transfer already in progress")

const readChunk = 4096

// Transfer summarizes a finished GET response.
type Transfer struct {
	Name      string
	Size      int64
	Digest    string
	Truncated bool
}

// Option customizes a Connection.
type Option func(*Connection)

// WithTransferDone registers a callback invoked when a streamer is detached
// after its last byte reached the kernel.
func WithTransferDone(fn func(*Connection, Transfer)) Option {
	return func(c *Connection) {
		c.onDone = fn
	}
}

// WithHighWater stops body production while more than n bytes are queued.
// Zero keeps production unconditional on every writable pass.
func WithHighWater(n int) Option {
	return func(c *Connection) {
		c.highWater = n
	}
}

// Connection is the state of one accepted client.
type Connection struct {
	token    uint64
	sock     api.NetConn
	peer     net.Addr
	inbound  []byte
	outbound []byte
	scratch  []byte

	streamer *stream.Streamer
	fileName string
	blocked  bool
	written  int64
	closed   bool
	onDone   func(*Connection, Transfer)

	highWater int
}

// New wraps an accepted socket.
func New(token uint64, sock api.NetConn, peer net.Addr, opts ...Option) *Connection {
	c := &Connection{
		token:   token,
		sock:    sock,
		peer:    peer,
		inbound: make([]byte, 0, readChunk),
		scratch: make([]byte, readChunk),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Token is the identity of the connection in the server table.
func (c *Connection) Token() uint64 { return c.token }

// Peer returns the remote address as a string.
func (c *Connection) Peer() string {
	if c.peer == nil {
		return ""
	}
	return c.peer.String()
}

// RawFD returns the socket descriptor.
func (c *Connection) RawFD() uintptr { return c.sock.RawFD() }

// Busy reports whether a streamer is attached.
func (c *Connection) Busy() bool { return c.streamer != nil }

// Blocked reports whether the last flush stopped on backpressure.
func (c *Connection) Blocked() bool { return c.blocked }

// WantsWrite reports whether output is pending or still to be produced.
func (c *Connection) WantsWrite() bool { return c.streamer != nil || len(c.outbound) > 0 }

// Pending returns the number of queued outbound bytes.
func (c *Connection) Pending() int { return len(c.outbound) }

// BytesWritten is the total number of bytes accepted by the kernel.
func (c *Connection) BytesWritten() int64 { return c.written }

// OnReadable drains the socket into the inbound accumulator and returns the
// next command line if the connection is idle. A zero-length read fails with
// api.ErrConnectionClosed.
func (c *Connection) OnReadable() (string, bool, error) {
	for {
		n, err := c.sock.Read(c.scratch)
		if errors.Is(err, api.ErrWouldBlock) {
			break
		}
		if err != nil {
			return "", false, err
		}
		if n == 0 {
			return "", false, api.ErrConnectionClosed
		}
		c.inbound = append(c.inbound, c.scratch[:n]...)
	}
	line, ok := c.NextCommand()
	return line, ok, nil
}

// NextCommand removes one complete command line from the inbound
// accumulator. Nothing is extracted while a transfer is attached, so later
// commands wait in arrival order until the response has been flushed.
func (c *Connection) NextCommand() (string, bool) {
	if c.streamer != nil {
		return "", false
	}
	line, n, ok := protocol.NextLine(c.inbound)
	if n > 0 {
		c.inbound = c.inbound[:copy(c.inbound, c.inbound[n:])]
	}
	return line, ok
}

// Reply queues bytes for transmission.
func (c *Connection) Reply(p []byte) {
	c.outbound = append(c.outbound, p...)
}

// Attach hands a streamer to the connection; bytes are produced lazily on
// the following OnWritable calls.
func (c *Connection) Attach(name string, s *stream.Streamer) error {
	if c.streamer != nil {
		return ErrBusy
	}
	c.streamer = s
	c.fileName = name
	return nil
}

// OnWritable produces the next bytes of an attached transfer, then flushes
// the outbound accumulator until it is empty or the socket pushes back.
func (c *Connection) OnWritable() error {
	if c.streamer != nil && (c.highWater <= 0 || len(c.outbound) < c.highWater) {
		var err error
		c.outbound, err = c.streamer.Produce(c.outbound)
		if err != nil {
			return fmt.Errorf("stream %s: %w", c.fileName, err)
		}
	}

	c.blocked = false
	for len(c.outbound) > 0 {
		n, err := c.sock.Write(c.outbound)
		if errors.Is(err, api.ErrWouldBlock) {
			c.blocked = true
			break
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return api.ErrWriteZero
		}
		c.written += int64(n)
		c.outbound = c.outbound[:copy(c.outbound, c.outbound[n:])]
	}

	if c.streamer != nil && c.streamer.Done() && len(c.outbound) == 0 {
		return c.detach()
	}
	return nil
}

func (c *Connection) detach() error {
	s := c.streamer
	t := Transfer{
		Name:      c.fileName,
		Size:      s.Size(),
		Digest:    s.Digest(),
		Truncated: s.Truncated(),
	}
	c.streamer = nil
	c.fileName = ""
	if err := s.Close(); err != nil {
		return fmt.Errorf("release %s: %w", t.Name, err)
	}
	if c.onDone != nil {
		c.onDone(c, t)
	}
	return nil
}

// Close releases the socket and any open file. It is idempotent.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	var err error
	if c.streamer != nil {
		err = multierr.Append(err, c.streamer.Close())
		c.streamer = nil
	}
	err = multierr.Append(err, c.sock.Close())
	return err
}
