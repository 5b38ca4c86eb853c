// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"

	"github.com/momentics/hioload-fs/control"
)

// Option customizes server initialization.
type Option func(*Server)

// WithLogger sets the logger for the loop and the dispatcher.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithChunkSize overrides the body chunk size.
func WithChunkSize(n int) Option {
	return func(s *Server) {
		s.cfg.ChunkSize = n
	}
}

// WithWriteBudget overrides the per-connection write budget.
func WithWriteBudget(n int) Option {
	return func(s *Server) {
		s.cfg.WriteBudget = n
	}
}

// WithMaxEvents overrides the poll batch size.
func WithMaxEvents(n int) Option {
	return func(s *Server) {
		s.cfg.MaxEvents = n
	}
}

// WithHighWater bounds queued outbound bytes per connection.
func WithHighWater(n int) Option {
	return func(s *Server) {
		s.cfg.HighWater = n
	}
}

// WithCPU pins the event loop thread to one CPU.
func WithCPU(cpu int) Option {
	return func(s *Server) {
		s.cfg.CPU = cpu
	}
}

// WithMetrics shares an existing registry.
func WithMetrics(m *control.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}
