package token

import (
	"sync"
	"time"
)

// Token is a short-lived credential for the direct path.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Fresh reports whether t can still be used at now with the refresh margin applied.
func (t Token) Fresh(now time.Time, margin time.Duration) bool {
	if t.Value == "" || t.ExpiresAt.IsZero() {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-margin))
}

// Store holds the cached token. Implementations must be safe for concurrent use.
type Store interface {
	Load() (Token, bool)
	Save(Token)
	Clear()
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	token Token
	ok    bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.ok
}

func (s *MemoryStore) Save(t Token) {
	s.mu.Lock()
	s.token, s.ok = t, true
	s.mu.Unlock()
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.token, s.ok = Token{}, false
	s.mu.Unlock()
}
