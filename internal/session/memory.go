package session

import (
	"context"
	"sync"
)

type memorySession struct {
	mu      sync.Mutex
	turns   []Turn
	lastSQL string
	hasSQL  bool
}

// MemoryStore keeps sessions in a process-local map. Entries are created
// lazily and never evicted; state is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memorySession)}
}

func (s *MemoryStore) session(id string) *memorySession {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok = s.sessions[id]; ok {
		return entry
	}
	entry = &memorySession{}
	s.sessions[id] = entry
	return entry
}

func (s *MemoryStore) GetOrCreate(_ context.Context, sessionID string) (*Snapshot, error) {
	entry := s.session(sessionID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	turns := make([]Turn, len(entry.turns))
	copy(turns, entry.turns)
	return &Snapshot{
		SessionID: sessionID,
		Turns:     turns,
		LastSQL:   entry.lastSQL,
		HasSQL:    entry.hasSQL,
	}, nil
}

func (s *MemoryStore) RecordTurn(_ context.Context, sessionID string, role Role, text string) error {
	entry := s.session(sessionID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.turns = append(entry.turns, Turn{Role: role, Text: text})
	return nil
}

func (s *MemoryStore) LastSQL(_ context.Context, sessionID string) (string, bool, error) {
	entry := s.session(sessionID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.lastSQL, entry.hasSQL, nil
}

func (s *MemoryStore) SetLastSQL(_ context.Context, sessionID string, sql string) error {
	entry := s.session(sessionID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.lastSQL = sql
	entry.hasSQL = true
	return nil
}

var _ Store = (*MemoryStore)(nil)
