package vulkan

import (
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// registry maps the opaque handles given to the renderer onto driver objects.
type registry[T any] struct {
	mu    sync.RWMutex
	next  *atomic.Uint64
	items map[metadata.Handle]T
}

func newRegistry[T any](counter *atomic.Uint64) *registry[T] {
	return &registry[T]{
		next:  counter,
		items: make(map[metadata.Handle]T),
	}
}

func (r *registry[T]) add(v T) metadata.Handle {
	h := metadata.Handle(r.next.Add(1))
	r.mu.Lock()
	r.items[h] = v
	r.mu.Unlock()
	return h
}

func (r *registry[T]) get(h metadata.Handle) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[h]
	return v, ok
}

// must returns the object behind h or the zero value for unknown handles.
func (r *registry[T]) must(h metadata.Handle) T {
	v, _ := r.get(h)
	return v
}

func (r *registry[T]) remove(h metadata.Handle) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[h]
	if ok {
		delete(r.items, h)
	}
	return v, ok
}

// removeWhere drops every entry matching fn and returns them.
func (r *registry[T]) removeWhere(fn func(T) bool) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []T
	for h, v := range r.items {
		if fn(v) {
			out = append(out, v)
			delete(r.items, h)
		}
	}
	return out
}

func (r *registry[T]) drain() []T {
	return r.removeWhere(func(T) bool { return true })
}

func (r *registry[T]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
