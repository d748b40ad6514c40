package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt int64 // unix milliseconds
}

// MemoryStore keeps counters in process memory. Counters are created on a
// key's first request and never evicted, so memory grows with the number of
// distinct keys seen over the process lifetime.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window)}
}

func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time, d time.Duration) (Counter, error) {
	nowMs := now.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || w.resetAt <= nowMs {
		w = &window{resetAt: nowMs + d.Milliseconds()}
		s.windows[key] = w
	}
	w.count++

	return Counter{
		Count:   w.count,
		ResetAt: time.UnixMilli(w.resetAt),
	}, nil
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
