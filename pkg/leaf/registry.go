package leaf

import (
	"context"
	"sync"

	"github.com/matzehuels/tensorplan/pkg/expr"
)

// Registry is an in-memory table of leaf values. It is safe for concurrent
// use.
//
// Lookups try the full descriptor [Key] first and then the bare tensor
// label, so a single value can serve every space combination of a label
// when that is what the caller wants.
type Registry[T any] struct {
	mu     sync.RWMutex
	values map[string]T
}

// NewRegistry returns an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{values: make(map[string]T)}
}

// Put registers v under key, replacing any previous value.
func (r *Registry[T]) Put(key string, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = v
}

// PutTensor registers v under the descriptor of t.
func (r *Registry[T]) PutTensor(t *expr.Tensor, v T) {
	r.Put(Key(t), v)
}

// Len returns the number of registered values.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}

// Yield implements Yielder.
func (r *Registry[T]) Yield(_ context.Context, t *expr.Tensor) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.values[Key(t)]; ok {
		return v, nil
	}
	if v, ok := r.values[t.Label]; ok {
		return v, nil
	}
	var zero T
	return zero, Missing(t)
}
