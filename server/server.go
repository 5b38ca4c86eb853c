// File: server/server.go
// Package server runs the single-threaded, readiness-driven file server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One goroutine owns the listener, the reactor and every connection. Only
// Shutdown, Stats and the debug probes may be used from other goroutines.

package server

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-fs/api"
	"github.com/momentics/hioload-fs/control"
	"github.com/momentics/hioload-fs/internal/conn"
	"github.com/momentics/hioload-fs/internal/dispatch"
	"github.com/momentics/hioload-fs/internal/transport"
	"github.com/momentics/hioload-fs/pool"
	"github.com/momentics/hioload-fs/reactor"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// listenerToken identifies the listening socket; connections start at 1.
const listenerToken uint64 = 0

// Metric names published by the server.
const (
	MetricAccepted           = "connections.accepted"
	MetricActive             = "connections.active"
	MetricClosed             = "connections.closed"
	MetricFailed             = "connections.failed"
	MetricCommands           = "commands"
	MetricTransfersStarted   = "transfers.started"
	MetricTransfersCompleted = "transfers.completed"
	MetricTransfersTruncated = "transfers.truncated"
	MetricBytesWritten       = "bytes.written"
	MetricOutboundPeak       = "outbound.peak"
)

// Stats is a point-in-time copy of the server counters.
type Stats struct {
	Accepted           int64
	Active             int64
	Closed             int64
	Failed             int64
	Commands           int64
	TransfersStarted   int64
	TransfersCompleted int64
	TransfersTruncated int64
	BytesWritten       int64
	OutboundPeak       int64
}

type counters struct {
	accepted, active, closed, failed *atomic.Int64
	commands                         *atomic.Int64
	started, completed, truncated    *atomic.Int64
	written, peak                    *atomic.Int64
}

// Server is a file server bound to one address and one directory.
type Server struct {
	cfg        *Config
	log        *slog.Logger
	metrics    *control.Metrics
	probes     *control.DebugProbes
	dispatcher *dispatch.Dispatcher
	listener   *transport.Listener
	reactor    api.Reactor
	c          counters

	// Owned by the loop goroutine.
	conns     map[uint64]*conn.Connection
	nextToken uint64
	ready     *queue.Queue
	queued    map[uint64]struct{}
	events    []api.Event

	closing atomic.Bool
	mu      sync.Mutex
	running bool
	torn    bool
	done    chan struct{}
}

// NewServer validates cfg, binds the listener and creates the reactor.
// cfg is copied; options apply to the copy.
func NewServer(cfg *Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	s := &Server{
		cfg:    &c,
		log:    slog.Default(),
		probes: control.NewDebugProbes(),
		conns:  make(map[uint64]*conn.Connection),
		ready:  queue.New(),
		queued: make(map[uint64]struct{}),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if s.metrics == nil {
		s.metrics = control.NewMetrics()
	}
	s.bindCounters()

	d, err := dispatch.New(s.cfg.Root,
		dispatch.WithChunkSize(s.cfg.ChunkSize),
		dispatch.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	s.dispatcher = d

	r, err := reactor.New()
	if err != nil {
		return nil, fmt.Errorf("create reactor: %w", err)
	}
	ln, err := transport.Listen(s.cfg.ListenAddr, s.cfg.Backlog)
	if err != nil {
		return nil, multierr.Append(err, r.Close())
	}
	if err := r.Register(ln.RawFD(), listenerToken, api.EventRead); err != nil {
		return nil, multierr.Combine(fmt.Errorf("register listener: %w", err), ln.Close(), r.Close())
	}
	s.reactor = r
	s.listener = ln
	s.events = make([]api.Event, s.cfg.MaxEvents)
	s.registerProbes()

	s.log.Info("file server listening", "addr", ln.Addr().String(), "root", d.Root())
	return s, nil
}

func (s *Server) bindCounters() {
	m := s.metrics
	s.c = counters{
		accepted:  m.Counter(MetricAccepted),
		active:    m.Counter(MetricActive),
		closed:    m.Counter(MetricClosed),
		failed:    m.Counter(MetricFailed),
		commands:  m.Counter(MetricCommands),
		started:   m.Counter(MetricTransfersStarted),
		completed: m.Counter(MetricTransfersCompleted),
		truncated: m.Counter(MetricTransfersTruncated),
		written:   m.Counter(MetricBytesWritten),
		peak:      m.Counter(MetricOutboundPeak),
	}
}

func (s *Server) registerProbes() {
	control.RegisterPlatformProbes(s.probes)
	addr := s.Addr().String()
	root := s.dispatcher.Root()
	s.probes.RegisterProbe("server.addr", func() any { return addr })
	s.probes.RegisterProbe("server.root", func() any { return root })
	s.probes.RegisterProbe("server.uptime", func() any { return s.metrics.Uptime().String() })
	s.probes.RegisterProbe("server.metrics", func() any { return s.metrics.GetSnapshot() })
	chunks := pool.ForSize(s.cfg.ChunkSize)
	s.probes.RegisterProbe("pool.chunks", func() any { return chunks.Stats() })
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Root returns the absolute served directory.
func (s *Server) Root() string { return s.dispatcher.Root() }

// Metrics exposes the counter registry.
func (s *Server) Metrics() *control.Metrics { return s.metrics }

// Probes exposes the debug probe registry.
func (s *Server) Probes() api.Debug { return s.probes }

// Stats returns a snapshot of the server counters.
func (s *Server) Stats() Stats {
	return Stats{
		Accepted:           s.c.accepted.Load(),
		Active:             s.c.active.Load(),
		Closed:             s.c.closed.Load(),
		Failed:             s.c.failed.Load(),
		Commands:           s.c.commands.Load(),
		TransfersStarted:   s.c.started.Load(),
		TransfersCompleted: s.c.completed.Load(),
		TransfersTruncated: s.c.truncated.Load(),
		BytesWritten:       s.c.written.Load(),
		OutboundPeak:       s.c.peak.Load(),
	}
}

// Done is closed when Run has released every resource.
func (s *Server) Done() <-chan struct{} { return s.done }

// Shutdown asks Run to stop. It is safe from any goroutine and may be
// called more than once. A server that never ran releases its listener here.
func (s *Server) Shutdown() {
	s.closing.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.torn {
		return
	}
	if s.running {
		if err := s.reactor.Wake(); err != nil {
			s.log.Warn("wake reactor", "error", err)
		}
		return
	}
	s.torn = true
	if err := multierr.Combine(s.listener.Close(), s.reactor.Close()); err != nil {
		s.log.Warn("release listener", "error", err)
	}
	close(s.done)
}
