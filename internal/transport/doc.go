// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking TCP sockets for the readiness-driven event loop. Every call
// returns immediately; api.ErrWouldBlock signals that the caller must wait
// for the next readiness event. Linux only, other platforms get a stub.

package transport
