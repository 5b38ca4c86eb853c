// File: internal/stream/streamer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Staged producer of a GET response: header line, raw body in bounded
// chunks hashed on the fly, then the trailing newline and digest line.

package stream

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/momentics/hioload-fs/pool"
	"github.com/momentics/hioload-fs/protocol"
)

// File is the handle a Streamer reads from.
type File interface {
	io.Reader
	io.Seeker
	io.Closer
}

// Streamer turns one open file into protocol bytes over many Produce calls.
type Streamer struct {
	file      File
	size      int64
	remaining int64
	stage     Stage
	hasher    *Hasher
	digest    string
	truncated bool

	bufs    *pool.BytePool
	scratch []byte
	closed  bool
}

// Open opens path for sequential reads and wraps it in a Streamer.
func Open(path string, bufs *pool.BytePool) (*Streamer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s, err := New(f, bufs)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// New captures the size of f by seeking to its end and back to the start.
// The Streamer takes ownership of f.
func New(f File, bufs *pool.BytePool) (*Streamer, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seek end: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek start: %w", err)
	}
	if bufs == nil {
		bufs = pool.ForSize(pool.DefaultChunkSize)
	}
	return &Streamer{
		file:      f,
		size:      size,
		remaining: size,
		stage:     StageHeader,
		hasher:    NewHasher(),
		bufs:      bufs,
	}, nil
}

// Size is the byte count announced in the header.
func (s *Streamer) Size() int64 { return s.size }

// Remaining is the number of body bytes not yet read.
func (s *Streamer) Remaining() int64 { return s.remaining }

// Stage returns the current stage.
func (s *Streamer) Stage() Stage { return s.stage }

// Done reports whether every response byte has been produced.
func (s *Streamer) Done() bool { return s.stage == StageDone }

// Digest is the hex checksum of the streamed body, empty until the body ends.
func (s *Streamer) Digest() string { return s.digest }

// Truncated reports that the file ended before the announced size.
// The body and digest then cover only the bytes actually read.
func (s *Streamer) Truncated() bool { return s.truncated }

// advance moves exactly one stage forward.
func (s *Streamer) advance() {
	if s.stage < StageDone {
		s.stage++
	}
}

// Produce appends the next available response bytes to dst. One call falls
// through consecutive stages but reads at most one chunk of the body.
func (s *Streamer) Produce(dst []byte) ([]byte, error) {
	if s.stage == StageHeader {
		dst = protocol.AppendFileHeader(dst, s.size)
		s.advance()
	}

	if s.stage == StageBody {
		var err error
		if dst, err = s.readChunk(dst); err != nil {
			return dst, err
		}
		if s.remaining == 0 {
			s.digest = s.hasher.Finalize()
			s.advance()
		}
	}

	if s.stage == StageTrailing {
		dst = protocol.AppendTrailer(dst, s.digest)
		s.advance()
	}
	return dst, nil
}

func (s *Streamer) readChunk(dst []byte) ([]byte, error) {
	if s.remaining == 0 {
		return dst, nil
	}
	if s.scratch == nil {
		s.scratch = s.bufs.GetBuffer()
	}
	want := int64(len(s.scratch))
	if s.remaining < want {
		want = s.remaining
	}

	n, err := s.file.Read(s.scratch[:want])
	if n > 0 {
		chunk := s.scratch[:n]
		s.hasher.Consume(chunk)
		dst = append(dst, chunk...)
		s.remaining -= int64(n)
	}
	switch {
	case err == nil && n > 0:
		return dst, nil
	case err == nil, errors.Is(err, io.EOF):
		if n == 0 && s.remaining > 0 {
			s.remaining = 0
			s.truncated = true
		}
		return dst, nil
	default:
		return dst, fmt.Errorf("read body: %w", err)
	}
}

// Close releases the file and the scratch buffer. It is idempotent.
func (s *Streamer) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.scratch != nil {
		s.bufs.PutBuffer(s.scratch)
		s.scratch = nil
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}
