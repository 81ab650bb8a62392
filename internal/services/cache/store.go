package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

type entry struct {
	value     any
	seq       uint64
	fetchedAt time.Time
	stale     bool
}

// Store holds the most recently issued response per resource.
//
// Every fetch takes a sequence number from Begin before the request is sent;
// Commit keeps a response only when its sequence is newer than the stored one,
// so a slow response can never overwrite the result of a later request.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]*entry
	wake    map[Key]chan struct{}
	seq     atomic.Uint64
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[Key]*entry),
		wake:    make(map[Key]chan struct{}),
		now:     time.Now,
	}
}

// Begin issues the sequence number for a fetch that is about to start.
func (s *Store) Begin(Key) uint64 {
	return s.seq.Add(1)
}

// Commit stores value under key if seq is newer than the stored response.
// It reports whether the value was kept.
func (s *Store) Commit(key Key, seq uint64, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.entries[key]; ok && cur.seq >= seq {
		return false
	}

	s.entries[key] = &entry{value: value, seq: seq, fetchedAt: s.now()}
	return true
}

// Set stores value unconditionally as the newest response.
func (s *Store) Set(key Key, value any) {
	s.Commit(key, s.Begin(key), value)
}

// Invalidate marks entries stale and wakes the pollers watching them.
// Stale values stay readable until the refetch completes.
func (s *Store) Invalidate(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		if e, ok := s.entries[key]; ok {
			e.stale = true
		}
		if ch, ok := s.wake[key]; ok {
			select {
			case ch <- struct{}{}:
			default:
				// refetch already pending
			}
		}
	}
}

// Fresh reports whether key holds a value that is neither invalidated nor older than ttl.
// A zero ttl never expires.
func (s *Store) Fresh(key Key, ttl time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || e.stale {
		return false
	}
	if ttl > 0 && s.now().After(e.fetchedAt.Add(ttl)) {
		return false
	}
	return true
}

// FetchedAt returns when the stored value was received.
func (s *Store) FetchedAt(key Key) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.fetchedAt, true
}

// Watch returns the wake-up channel of key, creating it on first use.
func (s *Store) Watch(key Key) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.wake[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.wake[key] = ch
	}
	return ch
}

func (s *Store) get(key Key) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Get returns the cached value of key typed as T.
func Get[T any](s *Store, key Key) (T, bool) {
	var zero T
	v, ok := s.get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
