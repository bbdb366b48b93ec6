package store

import (
	"context"
	"sync"
	"time"

	"github.com/fluxdna/timegate/internal/core"
)

var _ core.KV = (*Memory)(nil)

// Memory is an in-process store for tests and single-node development.
// It is NOT a valid production backend: its contents are per-process, which
// breaks the shared-source-of-truth requirement the moment a second
// instance runs. Expiry is lazy; expired entries read as absent.
type Memory struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	now  func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock injects the clock, for tests that need to move time.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		data: make(map[string]memoryEntry),
		now:  now,
	}
}

func (s *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// live returns the entry if present and unexpired. Caller holds mu.
func (s *Memory) live(key string) (memoryEntry, bool) {
	e, ok := s.data[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.data, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return nil, core.ErrNotFoundOrExpired
	}
	return append([]byte(nil), e.value...), nil
}

func (s *Memory) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return 0, core.ErrNotFoundOrExpired
	}
	return e.expiresAt.Sub(s.now()), nil
}

func (s *Memory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

func (s *Memory) Update(_ context.Context, key string, fn core.UpdateFunc) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return nil, core.ErrNotFoundOrExpired
	}

	next, capTTL, err := fn(append([]byte(nil), e.value...))
	if err != nil {
		return nil, err
	}

	expiresAt := e.expiresAt
	if capTTL > 0 {
		if capped := s.now().Add(capTTL); capped.Before(expiresAt) {
			expiresAt = capped
		}
	}
	s.data[key] = memoryEntry{
		value:     append([]byte(nil), next...),
		expiresAt: expiresAt,
	}
	return next, nil
}

func (s *Memory) Ping(context.Context) error { return nil }

func (s *Memory) Close() error { return nil }
