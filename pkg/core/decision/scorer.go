package decision

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// Scorer ranks scenarios against a list of criteria.
type Scorer struct {
	// CloseCallThreshold is the largest leader gap reported as a close call.
	CloseCallThreshold float64
	logger             *slog.Logger
}

// NewScorer creates a Scorer with the default close-call threshold.
func NewScorer(logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{CloseCallThreshold: DefaultCloseCallThreshold, logger: logger}
}

// Score normalizes every criterion across the candidates, computes weighted
// totals and ranks the candidates.
func (s *Scorer) Score(candidates []Candidate, criteria []Criterion) (*Result, error) {
	if len(candidates) < 2 {
		return nil, ErrNotEnoughScenarios
	}

	scores := make([]ScenarioScore, len(candidates))
	for i, c := range candidates {
		scores[i] = ScenarioScore{
			ScenarioID: c.ScenarioID,
			Name:       c.Name,
			Criteria:   make(map[string]float64, len(criteria)),
		}
	}

	weighted := make([]float64, len(candidates))
	totalWeight := 0.0
	for _, crit := range criteria {
		normalized := s.normalize(crit, candidates)
		w := clamp(crit.Weight, 0, MaxWeight)
		totalWeight += w
		for i, n := range normalized {
			scores[i].Criteria[crit.ID] = n
			weighted[i] += n * w
		}
	}

	if totalWeight > 0 {
		for i := range scores {
			scores[i].Total = weighted[i] / totalWeight
			scores[i].HasTotal = true
		}
	}

	ranking := make([]ScenarioScore, len(scores))
	copy(ranking, scores)
	sort.SliceStable(ranking, func(i, j int) bool { return ranking[i].Total > ranking[j].Total })

	return &Result{
		Scores:  scores,
		Ranking: ranking,
		Verdict: s.verdict(ranking, totalWeight > 0),
	}, nil
}

func (s *Scorer) normalize(crit Criterion, candidates []Candidate) []float64 {
	out := make([]float64, len(candidates))

	if crit.Source == SourceManual {
		for i, c := range candidates {
			score, ok := c.ManualScores[crit.ID]
			if !ok {
				score = DefaultManualScore
			}
			score = clamp(score, MinManualScore, MaxManualScore)
			out[i] = (score - MinManualScore) / (MaxManualScore - MinManualScore) * 100
		}
		return out
	}

	raw := make([]float64, len(candidates))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, c := range candidates {
		v, ok := c.Values[crit.VariableID]
		if !ok {
			s.logger.Debug("criterion variable missing for scenario, using 0",
				"criterion", crit.ID, "variable", crit.VariableID, "scenario", c.ScenarioID)
		}
		raw[i] = v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	for i, v := range raw {
		score := 50.0
		if hi != lo {
			score = (v - lo) / (hi - lo) * 100
		}
		if crit.Directionality == LowerIsBetter {
			score = 100 - score
		}
		out[i] = score
	}
	return out
}

func (s *Scorer) verdict(ranking []ScenarioScore, hasTotals bool) Verdict {
	if !hasTotals || len(ranking) < 2 {
		return Verdict{Kind: VerdictNone}
	}
	leader, runnerUp := ranking[0], ranking[1]
	gap := leader.Total - runnerUp.Total
	if gap <= s.CloseCallThreshold {
		return Verdict{Kind: VerdictCloseCall, Leader: &leader, RunnerUp: &runnerUp, Gap: gap}
	}
	return Verdict{Kind: VerdictClearWinner, Leader: &leader, Gap: gap}
}

// Summary renders the verdict as one line.
func (r *Result) Summary() string {
	v := r.Verdict
	switch v.Kind {
	case VerdictCloseCall:
		return fmt.Sprintf("Close call: %s (%.1f) vs %s (%.1f)",
			v.Leader.Name, v.Leader.Total, v.RunnerUp.Name, v.RunnerUp.Total)
	case VerdictClearWinner:
		return fmt.Sprintf("Clear winner: %s (%.1f), ahead by %.1f points", v.Leader.Name, v.Leader.Total, v.Gap)
	default:
		return "No weighted criteria to rank scenarios"
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
