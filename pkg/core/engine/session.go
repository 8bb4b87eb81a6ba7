package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scenario_engine/pkg/core/scenario"
	"scenario_engine/pkg/core/store"
	"scenario_engine/pkg/core/variable"
)

// ErrNoActiveScenario is returned by scenario edits while the base plan is
// active.
var ErrNoActiveScenario = errors.New("no active scenario")

// Session is a recompute-on-write editing loop over one plan. Every edit
// replaces the plan with a new value, re-evaluates the active scenario and
// schedules persistence. A Session is not safe for concurrent use.
type Session struct {
	engine *Engine
	writer *store.Debouncer
	logger *slog.Logger

	plan   *scenario.Plan
	result *ScenarioResult
}

// NewSession starts editing plan. writer may be nil for an unpersisted session.
func NewSession(engine *Engine, plan *scenario.Plan, writer *store.Debouncer, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{engine: engine, writer: writer, logger: logger}
	if err := s.commit(plan.Clone()); err != nil {
		return nil, err
	}
	return s, nil
}

// Plan returns the current plan value. Callers must not mutate it.
func (s *Session) Plan() *scenario.Plan { return s.plan }

// Result returns the evaluation of the active scenario.
func (s *Session) Result() *ScenarioResult { return s.result }

func (s *Session) commit(next *scenario.Plan) error {
	res, err := s.engine.EvaluateScenario(next, next.ActiveScenarioID)
	if err != nil {
		return err
	}
	s.plan = next
	s.result = res
	for _, w := range res.Warnings {
		s.logger.Debug("evaluation warning", "plan", next.ID, "scenario", next.ActiveScenarioID, "warning", w)
	}
	return nil
}

func (s *Session) active() (scenario.Scenario, error) {
	if s.plan.ActiveScenarioID == "" {
		return scenario.Scenario{}, ErrNoActiveScenario
	}
	sc, ok := s.plan.Scenario(s.plan.ActiveScenarioID)
	if !ok {
		return scenario.Scenario{}, fmt.Errorf("%w '%s'", ErrUnknownScenario, s.plan.ActiveScenarioID)
	}
	return sc, nil
}

func (s *Session) updateScenario(sc scenario.Scenario) error {
	if err := s.commit(s.plan.WithScenario(sc)); err != nil {
		return err
	}
	if s.writer != nil {
		s.writer.ScheduleScenario(s.plan.ID, sc)
	}
	return nil
}

func (s *Session) updateVariables(defs variable.Definitions) error {
	if err := defs.Validate(); err != nil {
		return err
	}
	if err := s.commit(s.plan.WithVariables(defs)); err != nil {
		return err
	}
	if s.writer != nil {
		s.writer.ScheduleVariables(s.plan.ID, s.plan.Variables)
	}
	return nil
}

// SetOverride sets an input override on the active scenario.
func (s *Session) SetOverride(variableID string, value float64) error {
	sc, err := s.active()
	if err != nil {
		return err
	}
	def, ok := s.plan.Variables.Get(variableID)
	if !ok {
		return fmt.Errorf("unknown variable '%s'", variableID)
	}
	if def.IsComputed() {
		return fmt.Errorf("variable '%s' is computed and cannot be overridden", variableID)
	}
	return s.updateScenario(sc.WithOverride(variableID, value))
}

// ClearOverride removes an override from the active scenario.
func (s *Session) ClearOverride(variableID string) error {
	sc, err := s.active()
	if err != nil {
		return err
	}
	return s.updateScenario(sc.WithoutOverride(variableID))
}

// SetVariant points a section of the active scenario at a stored variant. An
// empty variantID returns the section to base content.
func (s *Session) SetVariant(slug, variantID string) error {
	sc, err := s.active()
	if err != nil {
		return err
	}
	if variantID != "" {
		if _, ok := s.plan.Variant(slug, variantID); !ok {
			return fmt.Errorf("section %s has no variant '%s'", slug, variantID)
		}
	}
	return s.updateScenario(sc.WithVariant(slug, variantID))
}

// SetManualScore records a manual criterion score on the active scenario.
func (s *Session) SetManualScore(criterionID string, score float64) error {
	sc, err := s.active()
	if err != nil {
		return err
	}
	return s.updateScenario(sc.WithManualScore(criterionID, score))
}

// SetVariable adds or replaces a variable definition. Computed variables
// without dependsOn get it from their formula.
func (s *Session) SetVariable(def variable.Definition) error {
	if def.IsComputed() {
		if v := s.engine.Evaluator().ValidateFormula(def.Formula, s.plan.Variables.IDs()); !v.Valid {
			s.logger.Warn("saving variable with invalid formula", "variable", def.ID, "error", v.Error)
		}
	}
	return s.updateVariables(s.plan.Variables.Upsert(def).InferDependencies())
}

// RemoveVariable deletes a variable definition. Formulas that referenced it
// degrade at evaluation time.
func (s *Session) RemoveVariable(id string) error {
	if _, ok := s.plan.Variables.Get(id); !ok {
		return fmt.Errorf("unknown variable '%s'", id)
	}
	return s.updateVariables(s.plan.Variables.Remove(id))
}

// SwitchScenario makes id the active scenario. An empty id selects the base
// plan.
func (s *Session) SwitchScenario(id string) error {
	next := s.plan.Clone()
	next.ActiveScenarioID = id
	return s.commit(next)
}

// CreateScenario adds an empty scenario and makes it active.
func (s *Session) CreateScenario(name string) (scenario.Scenario, error) {
	sc := scenario.New(name)
	next := s.plan.WithScenario(sc)
	next.ActiveScenarioID = sc.ID
	if err := s.commit(next); err != nil {
		return scenario.Scenario{}, err
	}
	if s.writer != nil {
		s.writer.ScheduleScenario(s.plan.ID, sc)
	}
	return sc, nil
}

// DuplicateScenario copies the active scenario under a new name and makes the
// copy active.
func (s *Session) DuplicateScenario(name string) (scenario.Scenario, error) {
	sc, err := s.active()
	if err != nil {
		return scenario.Scenario{}, err
	}
	dup := sc.Duplicate(name)
	next := s.plan.WithScenario(dup)
	next.ActiveScenarioID = dup.ID
	if err := s.commit(next); err != nil {
		return scenario.Scenario{}, err
	}
	if s.writer != nil {
		s.writer.ScheduleScenario(s.plan.ID, dup)
	}
	return dup, nil
}

// DeleteScenario removes a scenario. Deleting the active scenario switches to
// the base plan.
func (s *Session) DeleteScenario(ctx context.Context, id string) error {
	if _, ok := s.plan.Scenario(id); !ok {
		return fmt.Errorf("%w '%s'", ErrUnknownScenario, id)
	}
	if err := s.commit(s.plan.WithoutScenario(id)); err != nil {
		return err
	}
	if s.writer != nil {
		return s.writer.DeleteScenario(ctx, s.plan.ID, id)
	}
	return nil
}

// Close flushes pending writes.
func (s *Session) Close(ctx context.Context) error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close(ctx)
}
