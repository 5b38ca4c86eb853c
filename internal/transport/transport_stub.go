//go:build !linux

// Package transport
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package transport

import (
	"fmt"
	"net"

	"github.com/momentics/hioload-fs/api"
)

// Listener is unavailable on this platform.
type Listener struct{}

// Socket is unavailable on this platform.
type Socket struct{}

// Listen always fails on unsupported platforms.
func Listen(addr string, backlog int) (*Listener, error) {
	if _, err := resolve(addr); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("transport: %w on this platform", api.ErrNotSupported)
}

func (l *Listener) Accept() (*Socket, net.Addr, error) { return nil, nil, api.ErrNotSupported }
func (l *Listener) Addr() net.Addr                     { return &net.TCPAddr{} }
func (l *Listener) RawFD() uintptr                     { return 0 }
func (l *Listener) Close() error                       { return nil }

func (s *Socket) Read(p []byte) (int, error)  { return 0, api.ErrNotSupported }
func (s *Socket) Write(p []byte) (int, error) { return 0, api.ErrNotSupported }
func (s *Socket) Close() error                { return nil }
func (s *Socket) RawFD() uintptr              { return 0 }
