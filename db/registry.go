package db

import (
	"path/filepath"
	"sync"
)

// primaryRegistry tracks primary handles opened by this process, keyed by
// absolute path, so a secondary can bind to a primary that already holds the
// backend's exclusive file lock.
type primaryRegistry[T comparable] struct {
	mu   sync.Mutex
	open map[string]T
}

func newPrimaryRegistry[T comparable]() *primaryRegistry[T] {
	return &primaryRegistry[T]{open: make(map[string]T)}
}

func registryKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func (r *primaryRegistry[T]) register(path string, handle T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open[registryKey(path)] = handle
}

// unregister removes path only if it still maps to handle
func (r *primaryRegistry[T]) unregister(path string, handle T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey(path)
	if current, ok := r.open[key]; ok && current == handle {
		delete(r.open, key)
	}
}

func (r *primaryRegistry[T]) lookup(path string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	handle, ok := r.open[registryKey(path)]
	return handle, ok
}
