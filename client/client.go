// File: client/client.go
// Package client speaks the file server wire protocol.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Client owns one TCP connection and issues LIST and GET requests in order.
// Bodies are hashed while they stream so integrity is checked without
// buffering the whole file. A Client is not safe for concurrent use.

package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/momentics/hioload-fs/internal/stream"
	"github.com/momentics/hioload-fs/pool"
	"github.com/momentics/hioload-fs/protocol"
	"go.uber.org/multierr"
)

// ErrDigestMismatch is returned when the received body does not hash to the
// digest announced by the server.
var ErrDigestMismatch = errors.New("md5 digest mismatch")

// RemoteError is an ERR reply from the server.
type RemoteError = protocol.RemoteError

// Config holds client-side parameters.
type Config struct {
	DialTimeout time.Duration // zero means no timeout beyond ctx
	ChunkSize   int           // body read size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DialTimeout: 10 * time.Second,
		ChunkSize:   pool.DefaultChunkSize,
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithConfig replaces the client configuration.
func WithConfig(cfg Config) Option {
	return func(c *Client) {
		c.cfg = cfg
	}
}

// WithProgress registers a callback invoked after every body chunk with the
// bytes received so far and the announced size.
func WithProgress(fn func(name string, done, total int64)) Option {
	return func(c *Client) {
		c.progress = fn
	}
}

// Transfer describes a completed GET.
type Transfer struct {
	Name   string
	Size   int64
	Digest string
	Path   string // set by Fetch
}

// Client is one protocol session.
type Client struct {
	cfg      Config
	conn     net.Conn
	r        *bufio.Reader
	bufs     *pool.BytePool
	progress func(name string, done, total int64)
}

// Dial connects to a file server.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	c := &Client{cfg: DefaultConfig()}
	for _, o := range opts {
		o(c)
	}
	if c.cfg.ChunkSize <= 0 {
		c.cfg.ChunkSize = pool.DefaultChunkSize
	}
	d := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c.conn = conn
	c.r = bufio.NewReaderSize(conn, c.cfg.ChunkSize)
	c.bufs = pool.ForSize(c.cfg.ChunkSize)
	return c, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// RemoteAddr reports the server address.
func (c *Client) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// watch applies ctx to blocking socket calls until the returned func is called.
func (c *Client) watch(ctx context.Context) func() {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	return func() {
		stop()
		_ = c.conn.SetDeadline(time.Time{})
	}
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w: %w", cerr, err)
	}
	return err
}

// List returns the regular files the server offers.
func (c *Client) List(ctx context.Context) ([]string, error) {
	defer c.watch(ctx)()
	if _, err := c.conn.Write(protocol.AppendList(nil)); err != nil {
		return nil, c.ctxErr(ctx, fmt.Errorf("send LIST: %w", err))
	}
	line, err := c.r.ReadString(protocol.LineDelimiter)
	if err != nil {
		return nil, c.ctxErr(ctx, fmt.Errorf("read listing: %w", err))
	}
	return protocol.ParseListing(line)
}

// Get streams name into w and verifies its digest. A *RemoteError or
// ErrDigestMismatch leaves the session usable. After any other error the
// stream position is undefined and the Client should be closed.
func (c *Client) Get(ctx context.Context, name string, w io.Writer) (*Transfer, error) {
	defer c.watch(ctx)()
	if _, err := c.conn.Write(protocol.AppendGet(nil, name)); err != nil {
		return nil, c.ctxErr(ctx, fmt.Errorf("send GET: %w", err))
	}
	header, err := c.r.ReadString(protocol.LineDelimiter)
	if err != nil {
		return nil, c.ctxErr(ctx, fmt.Errorf("read header: %w", err))
	}
	size, err := protocol.ParseFileHeader(header)
	if err != nil {
		return nil, err
	}

	h := stream.NewHasher()
	buf := c.bufs.GetBuffer()
	defer c.bufs.PutBuffer(buf)
	var done int64
	for done < size {
		want := int64(len(buf))
		if left := size - done; left < want {
			want = left
		}
		n, err := io.ReadFull(c.r, buf[:want])
		if n > 0 {
			h.Consume(buf[:n])
			if _, werr := w.Write(buf[:n]); werr != nil {
				return nil, fmt.Errorf("write %s: %w", name, werr)
			}
			done += int64(n)
			if c.progress != nil {
				c.progress(name, done, size)
			}
		}
		if err != nil {
			return nil, c.ctxErr(ctx, fmt.Errorf("read body (%d/%d bytes): %w", done, size, err))
		}
	}

	if b, err := c.r.ReadByte(); err != nil || b != protocol.LineDelimiter {
		return nil, c.ctxErr(ctx, fmt.Errorf("body terminator: %w", multierr.Append(err, protocol.ErrMalformedLine)))
	}
	line, err := c.r.ReadString(protocol.LineDelimiter)
	if err != nil {
		return nil, c.ctxErr(ctx, fmt.Errorf("read digest: %w", err))
	}
	remote, err := protocol.ParseDigestLine(line)
	if err != nil {
		return nil, err
	}
	t := &Transfer{Name: name, Size: size, Digest: remote}
	if local := h.Finalize(); local != remote {
		return t, fmt.Errorf("%s: server %s, local %s: %w", name, remote, local, ErrDigestMismatch)
	}
	return t, nil
}

// Fetch downloads name into outDir, keeping only its base name. The partial
// file is removed when the transfer fails.
func (c *Client) Fetch(ctx context.Context, name, outDir string) (t *Transfer, err error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return nil, fmt.Errorf("fetch %q: no file name", name)
	}
	path := filepath.Join(outDir, base)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
		if err != nil {
			_ = os.Remove(path)
			return
		}
		t.Path = path
	}()
	return c.Get(ctx, name, f)
}
