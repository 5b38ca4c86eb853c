// Package transport
// Author: momentics <momentics@gmail.com>
//
// Platform-independent helpers shared by the socket implementations.

package transport

import (
	"fmt"
	"net"
)

// DefaultBacklog is the listen(2) backlog used when none is configured.
const DefaultBacklog = 1024

// resolve parses a host:port listen address.
func resolve(addr string) (*net.TCPAddr, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", addr, err)
	}
	return tcpAddr, nil
}
