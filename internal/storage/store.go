package storage

import (
	"sort"
	"sync"
)

// PortStore is a thread-safe map of port numbers to values.
type PortStore[T any] struct {
	mu    sync.RWMutex
	items map[int]T
}

// NewPortStore creates an empty PortStore.
func NewPortStore[T any]() *PortStore[T] {
	return &PortStore[T]{
		items: make(map[int]T),
	}
}

// Get retrieves the value stored for port.
func (s *PortStore[T]) Get(port int) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[port]
	return v, ok
}

// Put stores v under port. It returns false without storing if the port
// is already occupied, so concurrent claims on the same port resolve to
// a single winner.
func (s *PortStore[T]) Put(port int, v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[port]; exists {
		return false
	}
	s.items[port] = v
	return true
}

// Delete removes the value stored for port and returns it.
func (s *PortStore[T]) Delete(port int) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[port]
	if ok {
		delete(s.items, port)
	}
	return v, ok
}

// Exists reports whether a value is stored for port.
func (s *PortStore[T]) Exists(port int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[port]
	return ok
}

// Count returns the number of stored values.
func (s *PortStore[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Ports returns all occupied ports in ascending order.
func (s *PortStore[T]) Ports() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ports := make([]int, 0, len(s.items))
	for p := range s.items {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports
}

// List returns all stored values in ascending port order.
func (s *PortStore[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ports := make([]int, 0, len(s.items))
	for p := range s.items {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	result := make([]T, 0, len(ports))
	for _, p := range ports {
		result = append(result, s.items[p])
	}
	return result
}

// Clear removes all values and returns them in ascending port order.
func (s *PortStore[T]) Clear() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	ports := make([]int, 0, len(s.items))
	for p := range s.items {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	removed := make([]T, 0, len(ports))
	for _, p := range ports {
		removed = append(removed, s.items[p])
	}
	s.items = make(map[int]T)
	return removed
}
