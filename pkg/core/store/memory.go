package store

import (
	"context"
	"sync"

	"scenario_engine/pkg/core/scenario"
	"scenario_engine/pkg/core/variable"
)

// MemoryStore keeps everything in process. Values are copied in and out.
type MemoryStore struct {
	mu        sync.RWMutex
	variables map[string]variable.Definitions
	scenarios map[string]map[string]scenario.Scenario
	closed    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		variables: make(map[string]variable.Definitions),
		scenarios: make(map[string]map[string]scenario.Scenario),
	}
}

func (m *MemoryStore) LoadVariables(ctx context.Context, planID string) (variable.Definitions, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.variables[planID].Clone(), nil
}

func (m *MemoryStore) SaveVariables(ctx context.Context, planID string, defs variable.Definitions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.variables[planID] = defs.Clone()
	return nil
}

func (m *MemoryStore) LoadScenarios(ctx context.Context, planID string) ([]scenario.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]scenario.Scenario, 0, len(m.scenarios[planID]))
	for _, s := range m.scenarios[planID] {
		out = append(out, s.Clone())
	}
	sortScenarios(out)
	return out, nil
}

func (m *MemoryStore) SaveScenario(ctx context.Context, planID string, s scenario.Scenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.scenarios[planID] == nil {
		m.scenarios[planID] = make(map[string]scenario.Scenario)
	}
	m.scenarios[planID][s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) DeleteScenario(ctx context.Context, planID, scenarioID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.scenarios[planID], scenarioID)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
