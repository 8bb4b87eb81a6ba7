package decision

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietScorer() *Scorer {
	return NewScorer(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func auto(id, variable string, weight float64) Criterion {
	return Criterion{ID: id, Label: id, Weight: weight, Directionality: HigherIsBetter, Source: SourceAuto, VariableID: variable}
}

func candidate(id string, values map[string]float64) Candidate {
	return Candidate{ScenarioID: id, Name: strings.ToUpper(id), Values: values}
}

func TestScore_CloseCall(t *testing.T) {
	candidates := []Candidate{
		candidate("a", map[string]float64{"profit": 100, "runway": 60}),
		candidate("b", map[string]float64{"profit": 52, "runway": 100}),
		candidate("c", map[string]float64{"profit": 0, "runway": 0}),
	}
	criteria := []Criterion{auto("p", "profit", 1), auto("r", "runway", 1)}

	res, err := quietScorer().Score(candidates, criteria)
	require.NoError(t, err)

	assert.InDelta(t, 80, res.Scores[0].Total, 1e-9)
	assert.InDelta(t, 76, res.Scores[1].Total, 1e-9)
	assert.Equal(t, VerdictCloseCall, res.Verdict.Kind)
	require.NotNil(t, res.Verdict.RunnerUp)
	assert.Equal(t, "a", res.Verdict.Leader.ScenarioID)
	assert.Equal(t, "b", res.Verdict.RunnerUp.ScenarioID)
	assert.InDelta(t, 4, res.Verdict.Gap, 1e-9)
	assert.Equal(t, "Close call: A (80.0) vs B (76.0)", res.Summary())
}

func TestScore_ClearWinner(t *testing.T) {
	candidates := []Candidate{
		candidate("b", map[string]float64{"profit": 20, "runway": 100}),
		candidate("a", map[string]float64{"profit": 100, "runway": 80}),
		candidate("c", map[string]float64{"profit": 0, "runway": 0}),
	}
	criteria := []Criterion{auto("p", "profit", 1), auto("r", "runway", 1)}

	res, err := quietScorer().Score(candidates, criteria)
	require.NoError(t, err)

	assert.Equal(t, VerdictClearWinner, res.Verdict.Kind)
	assert.Equal(t, "a", res.Verdict.Leader.ScenarioID)
	assert.InDelta(t, 90, res.Verdict.Leader.Total, 1e-9)
	assert.InDelta(t, 30, res.Verdict.Gap, 1e-9)
	assert.Nil(t, res.Verdict.RunnerUp)
	assert.Equal(t, []string{"a", "b", "c"}, []string{res.Ranking[0].ScenarioID, res.Ranking[1].ScenarioID, res.Ranking[2].ScenarioID})
	assert.Equal(t, "b", res.Scores[0].ScenarioID, "Scores keep input order")
	assert.True(t, strings.HasPrefix(res.Summary(), "Clear winner: A (90.0)"))
}

func TestScore_IdenticalValuesScoreFifty(t *testing.T) {
	candidates := []Candidate{
		candidate("a", map[string]float64{"cash": 10}),
		candidate("b", map[string]float64{"cash": 10}),
		candidate("c", map[string]float64{"cash": 10}),
	}
	res, err := quietScorer().Score(candidates, []Criterion{auto("cash", "cash", 3)})
	require.NoError(t, err)
	for _, s := range res.Scores {
		assert.Equal(t, 50.0, s.Criteria["cash"])
	}

	lower := auto("cash", "cash", 3)
	lower.Directionality = LowerIsBetter
	res, err = quietScorer().Score(candidates, []Criterion{lower})
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.Scores[0].Criteria["cash"])
}

func TestScore_LowerIsBetterInverts(t *testing.T) {
	cost := auto("cost", "cost", 1)
	cost.Directionality = LowerIsBetter
	res, err := quietScorer().Score([]Candidate{
		candidate("cheap", map[string]float64{"cost": 100}),
		candidate("pricey", map[string]float64{"cost": 300}),
	}, []Criterion{cost})
	require.NoError(t, err)

	assert.Equal(t, 100.0, res.Scores[0].Criteria["cost"])
	assert.Equal(t, 0.0, res.Scores[1].Criteria["cost"])
	assert.Equal(t, "cheap", res.Ranking[0].ScenarioID)
}

func TestScore_ManualCriteria(t *testing.T) {
	brand := Criterion{ID: "brand", Weight: 2, Source: SourceManual}
	candidates := []Candidate{
		{ScenarioID: "a", ManualScores: map[string]float64{"brand": 10}},
		{ScenarioID: "b", ManualScores: map[string]float64{"brand": 1}},
		{ScenarioID: "c"},
		{ScenarioID: "d", ManualScores: map[string]float64{"brand": 42}},
	}
	res, err := quietScorer().Score(candidates, []Criterion{brand})
	require.NoError(t, err)

	assert.InDelta(t, 100, res.Scores[0].Criteria["brand"], 1e-9)
	assert.InDelta(t, 0, res.Scores[1].Criteria["brand"], 1e-9)
	assert.InDelta(t, 400.0/9.0, res.Scores[2].Criteria["brand"], 1e-9)
	assert.InDelta(t, 100, res.Scores[3].Criteria["brand"], 1e-9)
}

func TestScore_ZeroWeightHasNoTotals(t *testing.T) {
	res, err := quietScorer().Score([]Candidate{
		candidate("a", map[string]float64{"x": 1}),
		candidate("b", map[string]float64{"x": 2}),
	}, []Criterion{auto("x", "x", 0)})
	require.NoError(t, err)

	assert.False(t, res.Scores[0].HasTotal)
	assert.Equal(t, VerdictNone, res.Verdict.Kind)
	assert.Equal(t, "No weighted criteria to rank scenarios", res.Summary())
}

func TestScore_RequiresTwoScenarios(t *testing.T) {
	_, err := quietScorer().Score([]Candidate{candidate("only", nil)}, nil)
	assert.True(t, errors.Is(err, ErrNotEnoughScenarios))
}

func TestScore_ThresholdIsConfigurable(t *testing.T) {
	candidates := []Candidate{
		candidate("a", map[string]float64{"profit": 100, "runway": 60}),
		candidate("b", map[string]float64{"profit": 52, "runway": 100}),
		candidate("c", map[string]float64{"profit": 0, "runway": 0}),
	}
	s := quietScorer()
	s.CloseCallThreshold = 3

	res, err := s.Score(candidates, []Criterion{auto("p", "profit", 1), auto("r", "runway", 1)})
	require.NoError(t, err)
	assert.Equal(t, VerdictClearWinner, res.Verdict.Kind)
}
