// File: pool/objpool.go
// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package pool

import (
	"sync"

	"go.uber.org/atomic"
)

// ObjectPool is a generic object pool.
type ObjectPool[T any] interface {
	Get() T
	Put(T)
}

var _ ObjectPool[*[]byte] = (*SyncPool[*[]byte])(nil)

// Stats counts pool traffic. Allocated grows only when the pool was empty.
type Stats struct {
	Gets      int64
	Puts      int64
	Allocated int64
}

// SyncPool wraps sync.Pool for generic usage and counts its traffic.
type SyncPool[T any] struct {
	pool  sync.Pool
	reset func(T) T
	gets  atomic.Int64
	puts  atomic.Int64
	news  atomic.Int64
}

// NewSyncPool creates a SyncPool. reset, if not nil, runs on every Put.
func NewSyncPool[T any](creator func() T, reset func(T) T) *SyncPool[T] {
	sp := &SyncPool[T]{reset: reset}
	sp.pool.New = func() any {
		sp.news.Inc()
		return creator()
	}
	return sp
}

func (sp *SyncPool[T]) Get() T {
	sp.gets.Inc()
	return sp.pool.Get().(T)
}

func (sp *SyncPool[T]) Put(obj T) {
	if sp.reset != nil {
		obj = sp.reset(obj)
	}
	sp.puts.Inc()
	sp.pool.Put(obj)
}

// Stats returns the traffic counters.
func (sp *SyncPool[T]) Stats() Stats {
	return Stats{Gets: sp.gets.Load(), Puts: sp.puts.Load(), Allocated: sp.news.Load()}
}
