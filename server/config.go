// File: server/config.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"fmt"

	"github.com/momentics/hioload-fs/api"
	"github.com/momentics/hioload-fs/internal/transport"
	"github.com/momentics/hioload-fs/pool"
	"github.com/momentics/hioload-fs/reactor"
)

// Config holds all server-side configuration parameters.
type Config struct {
	ListenAddr  string // TCP bind address, e.g. "127.0.0.1:4000"; port 0 picks a free port
	Root        string // served directory
	ChunkSize   int    // body bytes read per production step
	WriteBudget int    // OnWritable calls per connection before yielding to others
	MaxEvents   int    // readiness events fetched per poll
	Backlog     int    // listen backlog
	HighWater   int    // pause body production above this many queued bytes (0 = never)
	CPU         int    // pin the loop thread to this CPU (-1 = no pinning)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:  "127.0.0.1:4000",
		Root:        ".",
		ChunkSize:   pool.DefaultChunkSize,
		WriteBudget: 16,
		MaxEvents:   reactor.DefaultMaxEvents,
		Backlog:     transport.DefaultBacklog,
		HighWater:   0,
		CPU:         -1,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return fmt.Errorf("listen address is empty: %w", api.ErrInvalidArgument)
	case c.Root == "":
		return fmt.Errorf("served directory is empty: %w", api.ErrInvalidArgument)
	case c.ChunkSize <= 0:
		return fmt.Errorf("chunk size %d: %w", c.ChunkSize, api.ErrInvalidArgument)
	case c.WriteBudget <= 0:
		return fmt.Errorf("write budget %d: %w", c.WriteBudget, api.ErrInvalidArgument)
	case c.MaxEvents <= 0:
		return fmt.Errorf("max events %d: %w", c.MaxEvents, api.ErrInvalidArgument)
	case c.Backlog <= 0:
		return fmt.Errorf("backlog %d: %w", c.Backlog, api.ErrInvalidArgument)
	case c.HighWater < 0:
		return fmt.Errorf("high water %d: %w", c.HighWater, api.ErrInvalidArgument)
	case c.CPU < -1:
		return fmt.Errorf("cpu %d: %w", c.CPU, api.ErrInvalidArgument)
	}
	return nil
}
