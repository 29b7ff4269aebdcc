package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/GrupoTcc462/StudyMate/core"
)

type inmemEntry struct {
	val       []byte
	expiresAt time.Time // zero = no expiry
}

func (e inmemEntry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// InmemStore is a map-backed SessionStore for tests and local development.
type InmemStore struct {
	mutex sync.RWMutex
	table map[string]inmemEntry
}

var _ core.SessionStore = (*InmemStore)(nil) // interface compliance check

func NewInmemStore() *InmemStore {
	return &InmemStore{table: make(map[string]inmemEntry)}
}

func (s *InmemStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mutex.RLock()
	entry, ok := s.table[key]
	s.mutex.RUnlock()

	if !ok {
		return nil, core.ErrKeyNotFound
	}
	if entry.expired() {
		s.mutex.Lock()
		delete(s.table, key)
		s.mutex.Unlock()
		return nil, core.ErrKeyNotFound
	}
	return entry.val, nil
}

func (s *InmemStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	entry := inmemEntry{val: val}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.mutex.Lock()
	s.table[key] = entry
	s.mutex.Unlock()
	return nil
}

func (s *InmemStore) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	delete(s.table, key)
	s.mutex.Unlock()
	return nil
}

func (s *InmemStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	keys := make([]string, 0, len(s.table))
	for key, entry := range s.table {
		if strings.HasPrefix(key, prefix) && !entry.expired() {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Expire force-expires a key; test helper.
func (s *InmemStore) Expire(key string) {
	s.mutex.Lock()
	delete(s.table, key)
	s.mutex.Unlock()
}
