// File: internal/dispatch/dispatcher.go
// Package dispatch
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Command dispatcher: turns a framed command line into a queued reply or an
// attached file streamer on the target connection.

package dispatch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/momentics/hioload-fs/api"
	"github.com/momentics/hioload-fs/internal/stream"
	"github.com/momentics/hioload-fs/pool"
	"github.com/momentics/hioload-fs/protocol"
)

// Target is the connection-side surface the dispatcher mutates.
type Target interface {
	Reply(p []byte)
	Attach(name string, s *stream.Streamer) error
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithChunkSize sets the body chunk size of created streamers.
func WithChunkSize(n int) Option {
	return func(d *Dispatcher) {
		d.bufs = pool.ForSize(n)
	}
}

// WithLogger sets the logger used for per-command diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// Dispatcher serves commands against one directory.
type Dispatcher struct {
	root string
	bufs *pool.BytePool
	log  *slog.Logger
}

// New validates root and returns a dispatcher serving it.
func New(root string, opts ...Option) (*Dispatcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("served directory: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("served directory %s: not a directory: %w", abs, api.ErrInvalidArgument)
	}
	d := &Dispatcher{
		root: abs,
		bufs: pool.ForSize(pool.DefaultChunkSize),
		log:  slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Root returns the absolute served directory.
func (d *Dispatcher) Root() string { return d.root }

// Dispatch executes one command line. Protocol errors are answered with an
// ERR line and return nil; any returned error is fatal for the connection.
func (d *Dispatcher) Dispatch(line string, t Target) error {
	cmd := protocol.ParseCommand(line)
	var err error
	switch cmd.Kind {
	case protocol.KindList:
		err = d.list(t)
	case protocol.KindGet:
		err = d.get(cmd.Name, t)
	default:
		err = api.NewError(api.ErrCodeUnknownCommand, protocol.ReasonUnknownCommand).
			WithContext("keyword", cmd.Keyword)
	}

	if pe, ok := api.AsProtocolError(err); ok {
		d.log.Debug("command rejected", "command", cmd.Kind.String(), "reason", pe.Message, "error", pe)
		t.Reply(protocol.AppendError(nil, pe.Message))
		return nil
	}
	return err
}

func (d *Dispatcher) list(t Target) error {
	names, err := d.List()
	if err != nil {
		return err
	}
	t.Reply(protocol.AppendListing(nil, names))
	return nil
}

func (d *Dispatcher) get(name string, t Target) error {
	if name == "" {
		return api.NewError(api.ErrCodeMissingArgument, protocol.ReasonMissingFilename)
	}
	safe := Sanitize(name)
	path := filepath.Join(d.root, safe)
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return api.NewError(api.ErrCodeNotFound, protocol.ReasonFileNotFound).
			WithContext("name", name)
	}

	s, err := stream.Open(path, d.bufs)
	if err != nil {
		return err
	}
	if err := t.Attach(safe, s); err != nil {
		_ = s.Close()
		return fmt.Errorf("attach %s: %w", safe, err)
	}
	d.log.Debug("transfer attached", "file", safe, "size", s.Size())
	return nil
}

// List returns the names of regular files directly inside the served
// directory, sorted by name. Symlinks count when they resolve to a regular file.
func (d *Dispatcher) List() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", d.root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.Type().IsRegular():
			names = append(names, e.Name())
		case e.Type()&fs.ModeSymlink != 0:
			if fi, err := os.Stat(filepath.Join(d.root, e.Name())); err == nil && fi.Mode().IsRegular() {
				names = append(names, e.Name())
			}
		}
	}
	return names, nil
}

// Sanitize strips path separators and every parent-directory token from a
// requested name. The result is a single path element, possibly empty.
// Symlinks inside the served directory are still followed.
func Sanitize(name string) string {
	name = strings.NewReplacer("/", "", "\\", "").Replace(name)
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", "")
	}
	return name
}
