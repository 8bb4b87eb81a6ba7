// Package store persists plan variable definitions and scenarios. Every backend
// stores the same JSON documents; a plan that was never saved loads as empty.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"scenario_engine/pkg/core/scenario"
	"scenario_engine/pkg/core/variable"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store is the variable/scenario persistence boundary.
type Store interface {
	LoadVariables(ctx context.Context, planID string) (variable.Definitions, error)
	SaveVariables(ctx context.Context, planID string, defs variable.Definitions) error
	LoadScenarios(ctx context.Context, planID string) ([]scenario.Scenario, error)
	SaveScenario(ctx context.Context, planID string, s scenario.Scenario) error
	DeleteScenario(ctx context.Context, planID, scenarioID string) error
	Close() error
}

// Hydrate fills plan's variables and scenarios from st. Stored variables replace
// the plan's only when some were saved.
func Hydrate(ctx context.Context, st Store, plan *scenario.Plan) (*scenario.Plan, error) {
	defs, err := st.LoadVariables(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("load variables for %s: %w", plan.ID, err)
	}
	scenarios, err := st.LoadScenarios(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("load scenarios for %s: %w", plan.ID, err)
	}

	out := plan.Clone()
	if len(defs) > 0 {
		out = out.WithVariables(defs)
	}
	for _, s := range scenarios {
		out = out.WithScenario(s)
	}
	return out, nil
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	return data, nil
}

func decodeVariables(data []byte) (variable.Definitions, error) {
	var defs variable.Definitions
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
	}
	return defs, nil
}

func decodeScenario(data []byte) (scenario.Scenario, error) {
	var s scenario.Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return scenario.Scenario{}, fmt.Errorf("failed to unmarshal scenario: %w", err)
	}
	return s, nil
}

// sortScenarios orders by creation time, then id.
func sortScenarios(list []scenario.Scenario) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
