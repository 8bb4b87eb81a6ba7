package variable

import (
	"fmt"
	"log/slog"
	"math"

	"scenario_engine/pkg/core/formula"
)

// Evaluator walks the variable graph in topological order and evaluates each
// computed formula against the live scope.
type Evaluator struct {
	parser formula.Parser
	logger *slog.Logger
}

// Result is the evaluated scope plus the formulas that degraded to 0.
type Result struct {
	Values   map[string]float64        `json:"values"`
	Failures []*FormulaEvaluationError `json:"-"`
}

// NewEvaluator creates an evaluator. Nil arguments select the expr-backed
// parser and slog.Default().
func NewEvaluator(parser formula.Parser, logger *slog.Logger) *Evaluator {
	if parser == nil {
		parser = formula.NewParser()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{parser: parser, logger: logger}
}

// Evaluate computes every variable. The scope starts from extraScope, then
// every input's value is laid over it (inputs win on key collisions). A
// computed variable whose formula fails is logged, recorded in Failures and set
// to 0; evaluation of the remaining variables continues. The only error is a
// *CircularDependencyError from ordering.
func (e *Evaluator) Evaluate(defs Definitions, extraScope map[string]float64) (Result, error) {
	order, err := EvaluationOrder(defs)
	if err != nil {
		return Result{}, err
	}

	scope := make(map[string]float64, len(extraScope)+len(defs))
	for k, v := range extraScope {
		scope[k] = v
	}
	for _, d := range defs {
		if !d.IsComputed() {
			scope[d.ID] = d.Value
		}
	}

	index := defs.Index()
	var failures []*FormulaEvaluationError
	for _, id := range order {
		def := index[id]
		val, err := e.evaluateOne(def, scope)
		if err != nil {
			fe := &FormulaEvaluationError{VariableID: id, Formula: def.Formula, Err: err}
			e.logger.Warn("formula evaluation failed, using 0",
				"variable", id, "formula", def.Formula, "error", err)
			failures = append(failures, fe)
			val = 0
		}
		scope[id] = val
	}

	return Result{Values: scope, Failures: failures}, nil
}

func (e *Evaluator) evaluateOne(def Definition, scope map[string]float64) (float64, error) {
	expr, err := e.parser.Parse(def.Formula)
	if err != nil {
		return 0, err
	}
	val, err := expr.Evaluate(scope)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, fmt.Errorf("formula produced non-finite value %v", val)
	}
	return val, nil
}

// ValidateFormula checks a formula for authoring feedback by evaluating it with
// every available id set to 1. It never returns a Go error.
func (e *Evaluator) ValidateFormula(src string, availableIDs []string) Validation {
	expr, err := e.parser.Parse(src)
	if err != nil {
		return Validation{Valid: false, Error: err.Error()}
	}
	scope := make(map[string]float64, len(availableIDs))
	for _, id := range availableIDs {
		scope[id] = 1
	}
	if _, err := expr.Evaluate(scope); err != nil {
		return Validation{Valid: false, Error: err.Error()}
	}
	return Validation{Valid: true}
}
