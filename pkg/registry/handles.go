package registry

import (
	"reflect"
	"sort"
	"sync"
)

// identity is what makes two exposed values "the same object".
type identity struct {
	typ reflect.Type
	ptr uintptr
	val any
}

// identify derives the identity of v. Reference kinds are identified by address,
// comparable values by value. Values with neither (functions, structs holding slices)
// get a fresh key on every exposure.
func identify(v any) (identity, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return identity{}, true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return identity{typ: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Slice:
		// Slices alias when they share the backing array and length.
		return identity{typ: rv.Type(), ptr: rv.Pointer(), val: rv.Len()}, true
	case reflect.Func:
		return identity{}, false
	}
	if rv.Comparable() {
		return identity{typ: rv.Type(), val: v}, true
	}
	return identity{}, false
}

type entry struct {
	value any
	id    identity
	keyed bool
}

// Handles retains host values exposed to the engine as opaque addresses.
// A value stays alive until its key is explicitly released.
type Handles struct {
	mu      sync.RWMutex
	next    int64
	entries map[int64]entry
	keys    map[identity]int64
}

// NewHandles creates an empty handle registry.
func NewHandles() *Handles {
	return &Handles{
		next:    1,
		entries: make(map[int64]entry),
		keys:    make(map[identity]int64),
	}
}

// Expose retains v and returns its key.
// Exposing the same object again returns the key it already holds.
func (h *Handles) Expose(v any) int64 {
	id, ok := identify(v)

	h.mu.Lock()
	defer h.mu.Unlock()

	if ok {
		if key, found := h.keys[id]; found {
			return key
		}
	}

	key := h.next
	h.next++
	h.entries[key] = entry{value: v, id: id, keyed: ok}
	if ok {
		h.keys[id] = key
	}
	return key
}

// Resolve returns the value retained under key.
func (h *Handles) Resolve(key int64) (any, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.entries[key]
	return e.value, ok
}

// Release drops the value retained under key. It reports whether key was present.
func (h *Handles) Release(key int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[key]
	if !ok {
		return false
	}
	delete(h.entries, key)
	if e.keyed {
		delete(h.keys, e.id)
	}
	return true
}

// Len returns the number of retained values.
func (h *Handles) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Keys returns the retained keys in ascending order.
func (h *Handles) Keys() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := make([]int64, 0, len(h.entries))
	for k := range h.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clear releases every retained value.
func (h *Handles) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = make(map[int64]entry)
	h.keys = make(map[identity]int64)
}
