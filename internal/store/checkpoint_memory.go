package store

import (
	"context"
	"sync"

	"github.com/eldtechnologies/faqbot/internal/models"
)

// MemoryCheckpoints is an in-process CheckpointStore keyed by thread id,
// with no expiry. The reference behavior, used in tests and development;
// production runs on RedisCheckpoints.
type MemoryCheckpoints struct {
	mu      sync.RWMutex
	threads map[string]*models.ThreadState
}

// NewMemoryCheckpoints creates an empty in-memory checkpoint store.
func NewMemoryCheckpoints() *MemoryCheckpoints {
	return &MemoryCheckpoints{threads: make(map[string]*models.ThreadState)}
}

// LoadThread returns a copy of the stored state, or a fresh empty state
// for a thread that has not been seen before.
func (s *MemoryCheckpoints) LoadThread(ctx context.Context, threadID string) (*models.ThreadState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.threads[threadID]
	if !ok {
		return models.NewThreadState(threadID), nil
	}
	return state.Clone(), nil
}

// SaveThread replaces the stored state for the thread.
func (s *MemoryCheckpoints) SaveThread(ctx context.Context, state *models.ThreadState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads[state.ThreadID] = state.Clone()
	return nil
}
