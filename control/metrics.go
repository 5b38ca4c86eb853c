// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for server-level monitoring.
// Counters are registered by name and updated lock-free once resolved.

package control

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Metrics holds named int64 counters.
type Metrics struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
	started  time.Time
}

// NewMetrics creates an empty registry.
func NewMetrics() *Metrics {
	return &Metrics{
		counters: make(map[string]*atomic.Int64),
		started:  time.Now(),
	}
}

// Counter returns the counter registered under name, creating it on first use.
// Callers on hot paths keep the returned pointer.
func (m *Metrics) Counter(name string) *atomic.Int64 {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if ok {
		return c
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.counters[name]; !ok {
		c = atomic.NewInt64(0)
		m.counters[name] = c
	}
	return c
}

// Add increments name by delta.
func (m *Metrics) Add(name string, delta int64) {
	m.Counter(name).Add(delta)
}

// Set stores value under name.
func (m *Metrics) Set(name string, value int64) {
	m.Counter(name).Store(value)
}

// Get returns the current value of name, zero if unregistered.
func (m *Metrics) Get(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.counters[name]; ok {
		return c.Load()
	}
	return 0
}

// Uptime reports the time since the registry was created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.started)
}

// GetSnapshot returns the latest values of every counter.
func (m *Metrics) GetSnapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v.Load()
	}
	return out
}

// Names returns registered counter names in sorted order.
func (m *Metrics) Names() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.counters))
	for k := range m.counters {
		names = append(names, k)
	}
	m.mu.RUnlock()
	sort.Strings(names)
	return names
}
