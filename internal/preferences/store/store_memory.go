package store

import (
	"context"
	"sync"

	"procura/internal/preferences"
	id "procura/pkg/domain"
)

type InMemoryStore struct {
	mu    sync.Mutex
	prefs map[id.UserID]*preferences.Preferences
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{prefs: make(map[id.UserID]*preferences.Preferences)}
}

func (s *InMemoryStore) GetOrCreate(_ context.Context, defaults *preferences.Preferences) (*preferences.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.loadLocked(defaults)
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) Update(_ context.Context, defaults *preferences.Preferences, mutate func(*preferences.Preferences)) (*preferences.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.loadLocked(defaults)
	mutate(p)
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) loadLocked(defaults *preferences.Preferences) *preferences.Preferences {
	if p, ok := s.prefs[defaults.UserID]; ok {
		return p
	}
	cp := *defaults
	s.prefs[defaults.UserID] = &cp
	return &cp
}
