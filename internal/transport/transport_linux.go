// internal/transport/transport_linux.go
//go:build linux
// +build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux non-blocking listener and stream socket on top of raw descriptors.

package transport

import (
	"fmt"
	"net"

	"github.com/momentics/hioload-fs/api"
	"golang.org/x/sys/unix"
)

// Listener is a non-blocking listening TCP socket.
type Listener struct {
	fd   int
	addr *net.TCPAddr
}

// Listen creates, binds and listens on a non-blocking TCP socket.
func Listen(addr string, backlog int) (*Listener, error) {
	tcpAddr, err := resolve(addr)
	if err != nil {
		return nil, err
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}

	family, sa := sockaddr(tcpAddr)
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)

	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("getsockname: %w", err)
	}
	return &Listener{fd: fd, addr: tcpAddrOf(bound)}, nil
}

// Accept takes one pending connection. It returns api.ErrWouldBlock when the
// accept queue is empty.
func (l *Listener) Accept() (*Socket, net.Addr, error) {
	for {
		nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch err {
		case nil:
			_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
			return &Socket{fd: nfd}, tcpAddrOf(sa), nil
		case unix.EINTR, unix.ECONNABORTED:
			continue
		case unix.EAGAIN:
			return nil, nil, api.ErrWouldBlock
		default:
			return nil, nil, fmt.Errorf("accept: %w", err)
		}
	}
}

// Addr returns the bound local address.
func (l *Listener) Addr() net.Addr { return l.addr }

// RawFD returns the listening descriptor.
func (l *Listener) RawFD() uintptr { return uintptr(l.fd) }

// Close closes the listening socket.
func (l *Listener) Close() error {
	if l.fd < 0 {
		return nil
	}
	fd := l.fd
	l.fd = -1
	return unix.Close(fd)
}

// Socket is a connected non-blocking stream socket implementing api.NetConn.
type Socket struct {
	fd int
}

var _ api.NetConn = (*Socket)(nil)

// Read reads what is currently available. A return of (0, nil) means EOF.
func (s *Socket) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(s.fd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, api.ErrWouldBlock
		default:
			return 0, fmt.Errorf("read: %w", err)
		}
	}
}

// Write sends as much of p as the kernel accepts without blocking.
func (s *Socket) Write(p []byte) (int, error) {
	for {
		n, err := unix.SendmsgN(s.fd, p, nil, nil, unix.MSG_NOSIGNAL)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, api.ErrWouldBlock
		default:
			return 0, fmt.Errorf("write: %w", err)
		}
	}
}

// Close closes the socket; subsequent calls are no-ops.
func (s *Socket) Close() error {
	if s.fd < 0 {
		return nil
	}
	fd := s.fd
	s.fd = -1
	return unix.Close(fd)
}

// RawFD returns the socket descriptor.
func (s *Socket) RawFD() uintptr { return uintptr(s.fd) }

func sockaddr(a *net.TCPAddr) (int, unix.Sockaddr) {
	if ip4 := a.IP.To4(); ip4 != nil || a.IP == nil {
		sa := &unix.SockaddrInet4{Port: a.Port}
		if ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		return unix.AF_INET, sa
	}
	sa := &unix.SockaddrInet6{Port: a.Port}
	copy(sa.Addr[:], a.IP.To16())
	return unix.AF_INET6, sa
}

func tcpAddrOf(sa unix.Sockaddr) *net.TCPAddr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), v.Addr[:]...)), Port: v.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), v.Addr[:]...)), Port: v.Port}
	}
	return &net.TCPAddr{}
}
