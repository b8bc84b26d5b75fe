package connector

import "fmt"

// Registry holds the live connectors of one kind, keyed by exchange
// identifier (feed handlers) or exchange:instance composite (order placers).
// Keys are unique and iteration follows registration order, so startup is
// deterministic. Populated once during startup, read-only afterward.
type Registry[T any] struct {
	keys  []string
	items map[string]T
}

// NewRegistry creates an empty Registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{items: make(map[string]T)}
}

// Register inserts item under key, failing if the key already exists.
func (r *Registry[T]) Register(key string, item T) error {
	if _, exists := r.items[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	r.items[key] = item
	r.keys = append(r.keys, key)
	return nil
}

// Get returns the connector registered under key.
func (r *Registry[T]) Get(key string) (T, error) {
	item, ok := r.items[key]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return item, nil
}

// All returns every registered connector in registration order.
func (r *Registry[T]) All() []T {
	items := make([]T, 0, len(r.keys))
	for _, key := range r.keys {
		items = append(items, r.items[key])
	}
	return items
}

// Keys returns the registered keys in registration order.
func (r *Registry[T]) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Len reports the number of registered connectors.
func (r *Registry[T]) Len() int {
	return len(r.keys)
}
