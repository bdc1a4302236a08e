package state

import (
	"context"
	"strings"
	"sync"
)

// MemoryCarryStore is a process-local CarryStore for the CLI and tests.
type MemoryCarryStore struct {
	mu      sync.Mutex
	carries map[string]Carry
}

func NewMemoryCarryStore() *MemoryCarryStore {
	return &MemoryCarryStore{carries: make(map[string]Carry)}
}

func (s *MemoryCarryStore) Load(_ context.Context, sessionID string) (Carry, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Carry{}, ErrInvalidSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	carry, ok := s.carries[sessionID]
	if !ok || !carry.Awaiting() {
		return Carry{}, ErrStateNotFound
	}
	c := *carry.Clarification
	return Carry{Clarification: &c}, nil
}

func (s *MemoryCarryStore) Save(_ context.Context, sessionID string, carry Carry) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !carry.Awaiting() {
		delete(s.carries, sessionID)
		return nil
	}
	c := *carry.Clarification
	s.carries[sessionID] = Carry{Clarification: &c}
	return nil
}

func (s *MemoryCarryStore) Delete(_ context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carries, sessionID)
	return nil
}
