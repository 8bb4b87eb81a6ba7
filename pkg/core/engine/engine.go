// Package engine runs the full scenario pipeline over a plan: compose each
// section for the scenario, roll the sections up into derived facts, resolve
// inputs by priority and evaluate the variable graph.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"scenario_engine/pkg/core/compose"
	"scenario_engine/pkg/core/decision"
	"scenario_engine/pkg/core/derive"
	"scenario_engine/pkg/core/formula"
	"scenario_engine/pkg/core/scenario"
	"scenario_engine/pkg/core/scope"
	"scenario_engine/pkg/core/variable"
)

// ErrUnknownScenario is returned for a scenario id the plan does not contain.
var ErrUnknownScenario = errors.New("unknown scenario")

// Options configures an Engine. The zero value is usable.
type Options struct {
	Parser             formula.Parser
	CloseCallThreshold *float64 // nil selects decision.DefaultCloseCallThreshold
	Logger             *slog.Logger
}

// Engine evaluates scenarios. It holds no per-plan state.
type Engine struct {
	evaluator *variable.Evaluator
	resolver  *scope.Resolver
	scorer    *decision.Scorer
	logger    *slog.Logger
}

// ScenarioResult is everything computed for one scenario.
type ScenarioResult struct {
	ScenarioID        string                     `json:"scenario_id,omitempty"`
	Name              string                     `json:"name"`
	EffectiveSections map[string]compose.Content `json:"effective_sections,omitempty"`
	Derived           derive.Inputs              `json:"derived"`
	Resolution        scope.Resolution           `json:"resolution"`
	Warnings          []string                   `json:"warnings,omitempty"`
}

// Values is shorthand for the resolved value map.
func (r *ScenarioResult) Values() map[string]float64 {
	return r.Resolution.Values
}

// Degraded reports whether any part of the evaluation fell back.
func (r *ScenarioResult) Degraded() bool {
	return len(r.Warnings) > 0
}

// Comparison is the outcome of scoring several scenarios.
type Comparison struct {
	Results  []*ScenarioResult `json:"results"`
	Decision *decision.Result  `json:"decision"`
}

// New creates an Engine.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	evaluator := variable.NewEvaluator(opts.Parser, logger)
	scorer := decision.NewScorer(logger)
	if opts.CloseCallThreshold != nil {
		scorer.CloseCallThreshold = *opts.CloseCallThreshold
	}
	return &Engine{
		evaluator: evaluator,
		resolver:  scope.NewResolver(evaluator, logger),
		scorer:    scorer,
		logger:    logger,
	}
}

// Evaluator exposes the variable evaluator for formula validation.
func (e *Engine) Evaluator() *variable.Evaluator {
	return e.evaluator
}

// EvaluateScenario runs the pipeline for scenarioID. An empty id evaluates the
// base plan: base sections and stored values, no overrides.
func (e *Engine) EvaluateScenario(plan *scenario.Plan, scenarioID string) (*ScenarioResult, error) {
	var sc scenario.Scenario
	if scenarioID != "" {
		found, ok := plan.Scenario(scenarioID)
		if !ok {
			return nil, fmt.Errorf("plan %s: %w '%s'", plan.ID, ErrUnknownScenario, scenarioID)
		}
		sc = found
	} else {
		sc.Name = "Base plan"
	}
	return e.evaluate(plan, sc), nil
}

func (e *Engine) evaluate(plan *scenario.Plan, sc scenario.Scenario) *ScenarioResult {
	result := &ScenarioResult{ScenarioID: sc.ID, Name: sc.Name}

	// 1. Compose
	composer := compose.NewComposer(plan, e.logger)
	result.EffectiveSections = composer.ResolveSections(plan.Sections, sc.Refs())
	slugs := make([]string, 0, len(sc.VariantRefs))
	for slug := range sc.VariantRefs {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	for _, slug := range slugs {
		id := sc.VariantRefs[slug]
		if _, ok := plan.Variant(slug, id); !ok && id != "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Variant Error: %s: variant '%s' not found, using base content", slug, id))
		}
	}

	// 2. Derive
	sections, err := derive.DecodeSections(result.EffectiveSections)
	if err != nil {
		e.logger.Warn("section content could not be decoded, derived facts unavailable",
			"plan", plan.ID, "scenario", sc.ID, "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("Section Error: %v", err))
	} else {
		result.Derived = sections.Derive()
	}

	// 3. Resolve and evaluate
	derived := result.Derived.Scope()
	result.Resolution = e.resolver.Resolve(plan.Variables, sc.Overrides, derived)

	if cycle := result.Resolution.Degraded; cycle != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Formula Error: %v", cycle))
	}
	for _, f := range result.Resolution.Failures {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Formula Error: %s: %v", f.VariableID, f.Err))
	}
	return result
}

// Compare evaluates each scenario and scores them. Empty scenarioIDs means
// every scenario in the plan; nil criteria means the plan's criteria.
func (e *Engine) Compare(plan *scenario.Plan, scenarioIDs []string, criteria []decision.Criterion) (*Comparison, error) {
	if len(scenarioIDs) == 0 {
		for _, s := range plan.Scenarios {
			scenarioIDs = append(scenarioIDs, s.ID)
		}
	}
	if criteria == nil {
		criteria = plan.Criteria
	}
	if len(scenarioIDs) < 2 {
		return nil, decision.ErrNotEnoughScenarios
	}

	results := make([]*ScenarioResult, 0, len(scenarioIDs))
	candidates := make([]decision.Candidate, 0, len(scenarioIDs))
	for _, id := range scenarioIDs {
		sc, ok := plan.Scenario(id)
		if !ok {
			return nil, fmt.Errorf("plan %s: %w '%s'", plan.ID, ErrUnknownScenario, id)
		}
		res := e.evaluate(plan, sc)
		results = append(results, res)
		candidates = append(candidates, decision.Candidate{
			ScenarioID:   sc.ID,
			Name:         sc.Name,
			Values:       res.Values(),
			ManualScores: sc.ManualScores,
		})
	}

	scored, err := e.scorer.Score(candidates, criteria)
	if err != nil {
		return nil, err
	}
	return &Comparison{Results: results, Decision: scored}, nil
}
