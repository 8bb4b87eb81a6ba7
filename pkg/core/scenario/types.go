// Package scenario holds the plan model the engine computes over: variable
// definitions, section content and variants, and named scenarios of overrides.
// Every mutation is copy-on-write so observers can detect change by value.
package scenario

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"scenario_engine/pkg/core/compose"
	"scenario_engine/pkg/core/decision"
	"scenario_engine/pkg/core/variable"
)

// =============================================================================
// SCENARIO
// =============================================================================

// Scenario is a named set of input overrides plus optional section variant
// references, section override patches and manual criterion scores.
type Scenario struct {
	ID               string                     `json:"id"`
	Name             string                     `json:"name"`
	Overrides        map[string]float64         `json:"overrides,omitempty"`
	VariantRefs      map[string]string          `json:"variant_refs,omitempty"`      // section slug -> variant id
	SectionOverrides map[string]compose.Content `json:"section_overrides,omitempty"` // section slug -> patch
	ManualScores     map[string]float64         `json:"manual_scores,omitempty"`     // criterion id -> 1..10
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// New creates an empty scenario with a fresh id.
func New(name string) Scenario {
	now := time.Now()
	return Scenario{
		ID:        uuid.New().String(),
		Name:      name,
		Overrides: map[string]float64{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy.
func (s Scenario) Clone() Scenario {
	out := s
	out.Overrides = cloneFloats(s.Overrides)
	out.ManualScores = cloneFloats(s.ManualScores)
	if s.VariantRefs != nil {
		out.VariantRefs = make(map[string]string, len(s.VariantRefs))
		for k, v := range s.VariantRefs {
			out.VariantRefs[k] = v
		}
	}
	if s.SectionOverrides != nil {
		out.SectionOverrides = make(map[string]compose.Content, len(s.SectionOverrides))
		for k, v := range s.SectionOverrides {
			out.SectionOverrides[k] = compose.DeepMergeOneLevel(nil, v)
		}
	}
	return out
}

// Duplicate copies the scenario under a new id and name.
func (s Scenario) Duplicate(name string) Scenario {
	out := s.Clone()
	now := time.Now()
	out.ID = uuid.New().String()
	out.Name = name
	out.CreatedAt = now
	out.UpdatedAt = now
	return out
}

func cloneFloats(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s Scenario) touched() Scenario {
	s.UpdatedAt = time.Now()
	return s
}

// WithOverride returns a copy with the input override set.
func (s Scenario) WithOverride(variableID string, value float64) Scenario {
	out := s.Clone()
	if out.Overrides == nil {
		out.Overrides = map[string]float64{}
	}
	out.Overrides[variableID] = value
	return out.touched()
}

// WithoutOverride returns a copy with the override removed.
func (s Scenario) WithoutOverride(variableID string) Scenario {
	out := s.Clone()
	delete(out.Overrides, variableID)
	return out.touched()
}

// WithVariant returns a copy referencing variantID for the section. An empty
// variantID clears the reference.
func (s Scenario) WithVariant(slug, variantID string) Scenario {
	out := s.Clone()
	if variantID == "" {
		delete(out.VariantRefs, slug)
		return out.touched()
	}
	if out.VariantRefs == nil {
		out.VariantRefs = map[string]string{}
	}
	out.VariantRefs[slug] = variantID
	return out.touched()
}

// WithSectionOverride returns a copy with the section's override patch
// replaced. A nil patch clears it.
func (s Scenario) WithSectionOverride(slug string, patch compose.Content) Scenario {
	out := s.Clone()
	if patch == nil {
		delete(out.SectionOverrides, slug)
		return out.touched()
	}
	if out.SectionOverrides == nil {
		out.SectionOverrides = map[string]compose.Content{}
	}
	out.SectionOverrides[slug] = compose.DeepMergeOneLevel(nil, patch)
	return out.touched()
}

// WithManualScore returns a copy with a manual criterion score set.
func (s Scenario) WithManualScore(criterionID string, score float64) Scenario {
	out := s.Clone()
	if out.ManualScores == nil {
		out.ManualScores = map[string]float64{}
	}
	out.ManualScores[criterionID] = score
	return out.touched()
}

// Refs returns the composer references for this scenario.
func (s Scenario) Refs() compose.Refs {
	return compose.Refs{Variants: s.VariantRefs, Overrides: s.SectionOverrides}
}

// =============================================================================
// PLAN
// =============================================================================

// Plan is a business plan with everything the engine reads.
type Plan struct {
	ID               string                                `json:"id"`
	Name             string                                `json:"name"`
	BusinessType     string                                `json:"business_type,omitempty"`
	Variables        variable.Definitions                  `json:"variables"`
	Sections         map[string]compose.Content            `json:"sections,omitempty"`
	Variants         map[string]map[string]compose.Content `json:"variants,omitempty"` // slug -> variant id -> snapshot
	Scenarios        []Scenario                            `json:"scenarios,omitempty"`
	Criteria         []decision.Criterion                  `json:"criteria,omitempty"`
	ActiveScenarioID string                                `json:"active_scenario_id,omitempty"`
}

// Variant implements compose.VariantStore.
func (p *Plan) Variant(slug, variantID string) (compose.Content, bool) {
	v, ok := p.Variants[slug][variantID]
	return v, ok
}

// Scenario looks a scenario up by id.
func (p *Plan) Scenario(id string) (Scenario, bool) {
	for _, s := range p.Scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}

// Clone returns a copy whose variables and scenarios can be replaced without
// affecting the receiver. Section content is shared; it is treated as read-only.
func (p *Plan) Clone() *Plan {
	out := *p
	out.Variables = p.Variables.Clone()
	out.Scenarios = make([]Scenario, len(p.Scenarios))
	for i, s := range p.Scenarios {
		out.Scenarios[i] = s.Clone()
	}
	out.Criteria = append([]decision.Criterion(nil), p.Criteria...)
	return &out
}

// WithScenario returns a copy with s inserted or replacing the scenario of the
// same id.
func (p *Plan) WithScenario(s Scenario) *Plan {
	out := p.Clone()
	for i := range out.Scenarios {
		if out.Scenarios[i].ID == s.ID {
			out.Scenarios[i] = s.Clone()
			return out
		}
	}
	out.Scenarios = append(out.Scenarios, s.Clone())
	return out
}

// WithoutScenario returns a copy without the scenario.
func (p *Plan) WithoutScenario(id string) *Plan {
	out := p.Clone()
	kept := out.Scenarios[:0]
	for _, s := range out.Scenarios {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	out.Scenarios = kept
	if out.ActiveScenarioID == id {
		out.ActiveScenarioID = ""
	}
	return out
}

// WithVariables returns a copy with the variable set replaced.
func (p *Plan) WithVariables(defs variable.Definitions) *Plan {
	out := p.Clone()
	out.Variables = defs.Clone()
	return out
}

// WithVariant returns a copy that stores a section variant snapshot.
func (p *Plan) WithVariant(slug, variantID string, snapshot compose.Content) *Plan {
	out := p.Clone()
	variants := make(map[string]map[string]compose.Content, len(p.Variants)+1)
	for k, v := range p.Variants {
		variants[k] = v
	}
	bySlug := make(map[string]compose.Content, len(variants[slug])+1)
	for k, v := range variants[slug] {
		bySlug[k] = v
	}
	bySlug[variantID] = compose.DeepMergeOneLevel(nil, snapshot)
	variants[slug] = bySlug
	out.Variants = variants
	return out
}

// Validate checks the plan for malformed contracts.
func (p *Plan) Validate() error {
	if err := p.Variables.Validate(); err != nil {
		return fmt.Errorf("plan %s: %w", p.ID, err)
	}
	seen := make(map[string]bool, len(p.Scenarios))
	for _, s := range p.Scenarios {
		if s.ID == "" {
			return fmt.Errorf("plan %s: scenario '%s' has no id", p.ID, s.Name)
		}
		if seen[s.ID] {
			return fmt.Errorf("plan %s: duplicate scenario id '%s'", p.ID, s.ID)
		}
		seen[s.ID] = true
	}
	for _, c := range p.Criteria {
		if c.Source == decision.SourceAuto && c.VariableID == "" {
			return fmt.Errorf("plan %s: auto criterion '%s' has no variable", p.ID, c.ID)
		}
	}
	return nil
}
