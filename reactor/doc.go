// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the poll-mode readiness reactor used by the file
// server event loop. Linux is backed by edge-triggered epoll(7) with an
// eventfd for cross-goroutine wakeups; other platforms get a stub.
package reactor
