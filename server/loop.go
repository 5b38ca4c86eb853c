// File: server/loop.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event loop: accept, read, dispatch and the budgeted write pass.

package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/momentics/hioload-fs/affinity"
	"github.com/momentics/hioload-fs/api"
	"github.com/momentics/hioload-fs/internal/conn"
	"go.uber.org/multierr"
)

// Run drives the event loop until Shutdown is called or ctx is cancelled.
// It returns api.ErrServerClosed after a requested shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.torn:
		s.mu.Unlock()
		return api.ErrServerClosed
	case s.running:
		s.mu.Unlock()
		return api.ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	if s.cfg.CPU >= 0 {
		release, err := affinity.Pin(s.cfg.CPU)
		if err != nil {
			s.teardown()
			return fmt.Errorf("pin event loop: %w", err)
		}
		defer release()
		s.log.Debug("event loop pinned", "cpu", s.cfg.CPU)
	}

	stop := context.AfterFunc(ctx, s.Shutdown)
	defer stop()

	for {
		if s.closing.Load() {
			s.teardown()
			return api.ErrServerClosed
		}
		timeout := -1
		if s.ready.Length() > 0 {
			timeout = 0
		}
		n, err := s.reactor.Wait(s.events, timeout)
		if err != nil {
			s.teardown()
			return fmt.Errorf("reactor wait: %w", err)
		}
		for _, ev := range s.events[:n] {
			if ev.Token == listenerToken {
				s.acceptAll()
				continue
			}
			s.handle(ev)
		}
		s.serviceReady()
	}
}

func (s *Server) teardown() {
	s.mu.Lock()
	s.torn = true
	s.mu.Unlock()

	var err error
	for token, c := range s.conns {
		err = multierr.Append(err, c.Close())
		delete(s.conns, token)
	}
	s.c.active.Store(0)
	err = multierr.Append(err, s.listener.Close())
	err = multierr.Append(err, s.reactor.Close())
	if err != nil {
		s.log.Warn("teardown", "error", err)
	}
	s.log.Info("file server stopped", "accepted", s.c.accepted.Load())
	close(s.done)
}

// acceptAll drains the accept queue; edge-triggered readiness fires once.
func (s *Server) acceptAll() {
	for {
		sock, peer, err := s.listener.Accept()
		if errors.Is(err, api.ErrWouldBlock) {
			return
		}
		if err != nil {
			s.log.Warn("accept failed", "error", err)
			return
		}
		s.nextToken++
		token := s.nextToken
		c := conn.New(token, sock, peer,
			conn.WithTransferDone(s.transferDone),
			conn.WithHighWater(s.cfg.HighWater))
		if err := s.reactor.Register(c.RawFD(), token, api.EventRead|api.EventWrite); err != nil {
			s.log.Error("register connection", "token", token, "peer", c.Peer(), "error", err)
			_ = c.Close()
			continue
		}
		s.conns[token] = c
		s.c.accepted.Inc()
		s.c.active.Store(int64(len(s.conns)))
		s.log.Debug("connection accepted", "token", token, "peer", c.Peer())
	}
}

func (s *Server) handle(ev api.Event) {
	c, ok := s.conns[ev.Token]
	if !ok {
		// Stale event for a connection dropped earlier in this batch.
		return
	}
	if ev.Type.Has(api.EventError) {
		s.drop(c, api.ErrConnectionClosed)
		return
	}
	if ev.Type.Has(api.EventRead) {
		line, ok, err := c.OnReadable()
		if err != nil {
			s.drop(c, err)
			return
		}
		if ok {
			if err := s.dispatch(c, line); err != nil {
				s.drop(c, err)
				return
			}
		}
	}
	if c.Blocked() && !ev.Type.Has(api.EventWrite) {
		// Wait for the writable edge; reads must not grow the backlog.
		return
	}
	s.serve(c)
}

func (s *Server) dispatch(c *conn.Connection, line string) error {
	s.c.commands.Inc()
	busy := c.Busy()
	if err := s.dispatcher.Dispatch(line, c); err != nil {
		return err
	}
	if !busy && c.Busy() {
		s.c.started.Inc()
	}
	return nil
}

// serve dispatches queued commands and runs OnWritable until the connection
// blocks, has nothing left to send, or spends its write budget. A connection
// that spends its budget is queued for the next iteration.
func (s *Server) serve(c *conn.Connection) {
	budget := s.cfg.WriteBudget
	for {
		for !c.Busy() {
			line, ok := c.NextCommand()
			if !ok {
				break
			}
			if err := s.dispatch(c, line); err != nil {
				s.drop(c, err)
				return
			}
		}
		if !c.WantsWrite() {
			return
		}
		if budget == 0 {
			s.enqueue(c.Token())
			return
		}
		budget--

		before := c.BytesWritten()
		err := c.OnWritable()
		s.c.written.Add(c.BytesWritten() - before)
		if p := int64(c.Pending()); p > s.c.peak.Load() {
			s.c.peak.Store(p)
		}
		if err != nil {
			s.drop(c, err)
			return
		}
		if c.Blocked() {
			return
		}
	}
}

func (s *Server) enqueue(token uint64) {
	if _, ok := s.queued[token]; ok {
		return
	}
	s.queued[token] = struct{}{}
	s.ready.Add(token)
}

// serviceReady gives every connection queued before this call one more
// budget. Connections queued again wait for the next iteration.
func (s *Server) serviceReady() {
	for n := s.ready.Length(); n > 0; n-- {
		token := s.ready.Remove().(uint64)
		delete(s.queued, token)
		if c, ok := s.conns[token]; ok {
			s.serve(c)
		}
	}
}

func (s *Server) transferDone(c *conn.Connection, t conn.Transfer) {
	s.c.completed.Inc()
	if t.Truncated {
		s.c.truncated.Inc()
		s.log.Warn("file shrank during transfer",
			"token", c.Token(), "peer", c.Peer(), "file", t.Name, "announced", t.Size)
		return
	}
	s.log.Debug("transfer complete",
		"token", c.Token(), "file", t.Name, "size", t.Size, "md5", t.Digest)
}

func (s *Server) drop(c *conn.Connection, cause error) {
	token := c.Token()
	delete(s.conns, token)
	if err := s.reactor.Unregister(c.RawFD()); err != nil {
		s.log.Debug("unregister connection", "token", token, "error", err)
	}
	if errors.Is(cause, api.ErrConnectionClosed) {
		s.c.closed.Inc()
		s.log.Debug("connection closed", "token", token, "peer", c.Peer())
	} else {
		s.c.failed.Inc()
		s.log.Warn("connection dropped", "token", token, "peer", c.Peer(), "error", cause)
	}
	if err := c.Close(); err != nil {
		s.log.Warn("close connection", "token", token, "error", err)
	}
	s.c.active.Store(int64(len(s.conns)))
}
