// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "sync"

// DefaultChunkSize is the scratch size used by file streamers.
const DefaultChunkSize = 64 * 1024

// BytePool hands out fixed-size byte slices backed by a SyncPool.
type BytePool struct {
	pool *SyncPool[*[]byte]
	size int
}

// NewBytePool creates a pool of buffers of exactly size bytes.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &BytePool{
		pool: NewSyncPool(func() *[]byte {
			b := make([]byte, size)
			return &b
		}, nil),
		size: size,
	}
}

// Size returns the length of every buffer handed out.
func (b *BytePool) Size() int { return b.size }

// GetBuffer returns a buffer of Size() bytes.
func (b *BytePool) GetBuffer() []byte {
	return (*b.pool.Get())[:b.size]
}

// PutBuffer returns a buffer to the pool. Foreign-sized buffers are dropped.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) < b.size {
		return
	}
	buf = buf[:b.size]
	b.pool.Put(&buf)
}

// Stats reports pool traffic.
func (b *BytePool) Stats() Stats { return b.pool.Stats() }

var (
	defaultMu    sync.Mutex
	defaultPools = map[int]*BytePool{}
)

// ForSize returns a process-wide pool for the given buffer size.
func ForSize(size int) *BytePool {
	if size <= 0 {
		size = DefaultChunkSize
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	p, ok := defaultPools[size]
	if !ok {
		p = NewBytePool(size)
		defaultPools[size] = p
	}
	return p
}
