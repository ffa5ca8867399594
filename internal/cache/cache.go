package cache

import (
	"sync"
	"time"
)

// Store is an in-memory TTL store used to keep finished analysis
// artifacts around until the caller fetches them.
type Store[T any] struct {
	mu       sync.RWMutex
	items    map[string]*item[T]
	ttl      time.Duration
	stopChan chan struct{}
}

type item[T any] struct {
	value      T
	expiration time.Time
}

// New creates a store with the specified TTL and starts its cleanup loop
func New[T any](ttl time.Duration) *Store[T] {
	s := &Store[T]{
		items:    make(map[string]*item[T]),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}

	go s.cleanup()

	return s
}

// Get retrieves a value from the store
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	it, exists := s.items[key]
	if !exists {
		return zero, false
	}
	if time.Now().After(it.expiration) {
		return zero, false
	}
	return it.value, true
}

// Set stores a value with the default TTL
func (s *Store[T]) Set(key string, value T) {
	s.SetWithTTL(key, value, s.ttl)
}

// SetWithTTL stores a value with a custom TTL
func (s *Store[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = &item[T]{
		value:      value,
		expiration: time.Now().Add(ttl),
	}
}

// Delete removes a value from the store
func (s *Store[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Len returns the number of live entries
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	count := 0
	for _, it := range s.items {
		if now.Before(it.expiration) {
			count++
		}
	}
	return count
}

// Stop ends the cleanup goroutine
func (s *Store[T]) Stop() {
	close(s.stopChan)
}

func (s *Store[T]) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for key, it := range s.items {
				if now.After(it.expiration) {
					delete(s.items, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopChan:
			return
		}
	}
}
