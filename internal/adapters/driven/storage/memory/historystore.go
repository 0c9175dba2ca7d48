// Package memory provides in-memory implementations of driven port
// interfaces, used in tests and for runs without persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
)

// Ensure HistoryStore implements the interface.
var _ driven.HistoryStore = (*HistoryStore)(nil)

// HistoryStore is an in-memory implementation of driven.HistoryStore.
type HistoryStore struct {
	mu   sync.RWMutex
	runs map[string]domain.RunRecord
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		runs: make(map[string]domain.RunRecord),
	}
}

// SaveRun stores a finished run, replacing any run with the same ID.
func (s *HistoryStore) SaveRun(_ context.Context, run *domain.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

// GetRun retrieves a run by ID.
func (s *HistoryStore) GetRun(_ context.Context, id string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

// ListRuns returns stored runs, most recent first.
func (s *HistoryStore) ListRuns(_ context.Context) ([]domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]domain.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

// Close is a no-op for the in-memory store.
func (s *HistoryStore) Close() error {
	return nil
}
