// Package scope resolves the runtime value of every input variable for a
// scenario and drives the variable evaluator over the merged definitions.
//
// Priority per input variable:
//  1. Scenario override, when present.
//  2. Derived fact whose name equals the variable id.
//  3. The variable's stored value.
//
// Percent-unit values above 1 are read as whole percentages and divided by 100.
package scope

import (
	"errors"
	"log/slog"

	"scenario_engine/pkg/core/variable"
)

// Source names where an input's resolved value came from.
type Source string

const (
	SourceOverride Source = "override"
	SourceDerived  Source = "derived"
	SourceStored   Source = "stored"
)

// Resolution is the complete outcome for one scenario. Values always holds an
// entry for every variable.
type Resolution struct {
	Values   map[string]float64                 `json:"values"`
	Merged   variable.Definitions               `json:"-"`
	Sources  map[string]Source                  `json:"sources"`
	Failures []*variable.FormulaEvaluationError `json:"-"`
	Degraded *variable.CircularDependencyError  `json:"-"`
}

// Resolver merges overrides, derived facts and stored defaults.
type Resolver struct {
	evaluator *variable.Evaluator
	logger    *slog.Logger
}

// NewResolver creates a resolver around an evaluator. A nil evaluator gets the
// default one.
func NewResolver(evaluator *variable.Evaluator, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if evaluator == nil {
		evaluator = variable.NewEvaluator(nil, logger)
	}
	return &Resolver{evaluator: evaluator, logger: logger}
}

// NormalizePercent reads a percent value above 1 as a whole percentage.
func NormalizePercent(unit variable.Unit, v float64) float64 {
	if unit == variable.UnitPercent && v > 1 {
		return v / 100
	}
	return v
}

// Resolve computes the scenario's value map. It never fails: a cyclic graph
// falls back to each variable's resolved input value, or defaultValue for
// computed variables.
func (r *Resolver) Resolve(defs variable.Definitions, overrides, derived map[string]float64) Resolution {
	merged := make(variable.Definitions, 0, len(defs))
	sources := make(map[string]Source, len(defs))

	for _, d := range defs.Clone() {
		if d.IsComputed() {
			merged = append(merged, d)
			continue
		}
		v, src := d.Value, SourceStored
		if ov, ok := overrides[d.ID]; ok {
			v, src = ov, SourceOverride
		} else if dv, ok := derived[d.ID]; ok {
			v, src = dv, SourceDerived
		}
		d.Value = NormalizePercent(d.Unit, v)
		sources[d.ID] = src
		merged = append(merged, d)
	}

	res, err := r.evaluator.Evaluate(merged, derived)
	if err != nil {
		var cycle *variable.CircularDependencyError
		if !errors.As(err, &cycle) {
			cycle = &variable.CircularDependencyError{}
		}
		r.logger.Warn("variable graph cannot be ordered, using stored values", "error", err)
		return Resolution{
			Values:   fallbackValues(merged, derived),
			Merged:   merged,
			Sources:  sources,
			Degraded: cycle,
		}
	}

	return Resolution{
		Values:   res.Values,
		Merged:   merged,
		Sources:  sources,
		Failures: res.Failures,
	}
}

func fallbackValues(merged variable.Definitions, derived map[string]float64) map[string]float64 {
	values := make(map[string]float64, len(derived)+len(merged))
	for k, v := range derived {
		values[k] = v
	}
	for _, d := range merged {
		if d.IsComputed() {
			values[d.ID] = d.DefaultValue
		} else {
			values[d.ID] = d.Value
		}
	}
	return values
}
