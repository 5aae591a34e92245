package infra

import (
	"context"
	"sync"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

// MemState is an in-memory plugin.StateStore: per-execution, per-node
// scratch state, adapted from the teacher's memState (which kept both
// keys as plain strings) onto model.ID for the node key.
type MemState struct {
	mu sync.RWMutex
	m  map[string]map[model.ID]map[string]any
}

func NewMemState() *MemState { return &MemState{m: map[string]map[model.ID]map[string]any{}} }

func (s *MemState) SaveNodeState(ctx context.Context, execID string, nodeID model.ID, state map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[execID]; !ok {
		s.m[execID] = map[model.ID]map[string]any{}
	}
	s.m[execID][nodeID] = state
	return nil
}

func (s *MemState) LoadNodeState(ctx context.Context, execID string, nodeID model.ID) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.m[execID]; ok {
		if st, ok := e[nodeID]; ok {
			return st, nil
		}
	}
	return map[string]any{}, nil
}

var _ plugin.StateStore = (*MemState)(nil)
