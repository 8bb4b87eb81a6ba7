// Package decision ranks competing scenarios with weighted multi-criteria
// scoring. Every criterion is normalized to 0..100 before weighting.
package decision

import "errors"

// ErrNotEnoughScenarios is returned when fewer than two scenarios are scored.
var ErrNotEnoughScenarios = errors.New("decision: at least two scenarios are required")

// DefaultCloseCallThreshold is the largest gap, in points, between the top two
// scenarios that is still reported as a close call.
const DefaultCloseCallThreshold = 5.0

// Directionality says which end of a criterion's range is preferred.
type Directionality string

const (
	HigherIsBetter Directionality = "higher-is-better"
	LowerIsBetter  Directionality = "lower-is-better"
)

// SourceKind selects how a criterion gets its raw per-scenario value.
type SourceKind string

const (
	SourceAuto   SourceKind = "auto"
	SourceManual SourceKind = "manual"
)

// Manual score bounds.
const (
	MinManualScore     = 1.0
	MaxManualScore     = 10.0
	DefaultManualScore = 5.0
	MaxWeight          = 10.0
)

// Criterion is one weighted scoring dimension.
type Criterion struct {
	ID             string         `json:"id" yaml:"id"`
	Label          string         `json:"label" yaml:"label"`
	Weight         float64        `json:"weight" yaml:"weight"` // 1-10
	Directionality Directionality `json:"directionality" yaml:"directionality"`
	Source         SourceKind     `json:"source" yaml:"source"`
	VariableID     string         `json:"variable_id,omitempty" yaml:"variable_id"` // auto only
}

// Candidate is one scenario's evaluated values plus its manual scores keyed by
// criterion id.
type Candidate struct {
	ScenarioID   string             `json:"scenario_id"`
	Name         string             `json:"name"`
	Values       map[string]float64 `json:"values"`
	ManualScores map[string]float64 `json:"manual_scores,omitempty"`
}

// ScenarioScore is a candidate's normalized criterion scores and weighted total.
type ScenarioScore struct {
	ScenarioID string             `json:"scenario_id"`
	Name       string             `json:"name"`
	Criteria   map[string]float64 `json:"criteria"`
	Total      float64            `json:"total"`
	HasTotal   bool               `json:"has_total"`
}

// VerdictKind classifies the ranking outcome.
type VerdictKind string

const (
	VerdictNone        VerdictKind = "none"
	VerdictCloseCall   VerdictKind = "close_call"
	VerdictClearWinner VerdictKind = "clear_winner"
)

// Verdict describes the top of the ranking. RunnerUp is set for close calls.
type Verdict struct {
	Kind     VerdictKind    `json:"kind"`
	Leader   *ScenarioScore `json:"leader,omitempty"`
	RunnerUp *ScenarioScore `json:"runner_up,omitempty"`
	Gap      float64        `json:"gap"`
}

// Result is the full scoring output.
type Result struct {
	Scores  []ScenarioScore `json:"scores"`  // input order
	Ranking []ScenarioScore `json:"ranking"` // total descending
	Verdict Verdict         `json:"verdict"`
}
