// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryStore keeps run history in a map. Not durable; intended for
// tests and for daemons running without a data directory.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Run)}
}

func (s *MemoryStore) PutRun(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return errors.New("store: run id is required")
	}
	// Copy so later caller mutations do not leak into the store.
	clone := *run
	s.mu.Lock()
	if s.runs == nil {
		s.mu.Unlock()
		return errors.New("store: closed")
	}
	s.runs[run.ID] = &clone
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	clone := *run
	return &clone, nil
}

func (s *MemoryStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	s.mu.RLock()
	list := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		clone := *run
		list = append(list, &clone)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].StartedAt.After(list[j].StartedAt)
		}
		return list[i].ID < list[j].ID
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.runs = nil
	s.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
