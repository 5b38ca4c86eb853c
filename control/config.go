// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe runtime settings store with reload propagation.

package control

import (
	"reflect"
	"sync"
)

// ConfigStore is a dynamic key/value map with snapshot reads and listeners.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func(map[string]any)
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config: make(map[string]any),
	}
}

// Get returns a single value.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.snapshotLocked()
}

func (cs *ConfigStore) snapshotLocked() map[string]any {
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// SetConfig merges new values. Listeners run synchronously, outside the lock,
// and only when at least one value changed. It reports whether anything changed.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) bool {
	cs.mu.Lock()
	changed := false
	for k, v := range newCfg {
		if old, ok := cs.config[k]; !ok || !reflect.DeepEqual(old, v) {
			cs.config[k] = v
			changed = true
		}
	}
	snap := cs.snapshotLocked()
	listeners := make([]func(map[string]any), len(cs.listeners))
	copy(listeners, cs.listeners)
	cs.mu.Unlock()

	if !changed {
		return false
	}
	for _, fn := range listeners {
		fn(snap)
	}
	return true
}

// OnReload registers a listener called with the merged settings on change.
func (cs *ConfigStore) OnReload(fn func(map[string]any)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
