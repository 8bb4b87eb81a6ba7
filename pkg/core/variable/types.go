// Package variable implements the what-if variable graph: definitions, topological
// evaluation order and formula evaluation with per-variable failure isolation.
package variable

import (
	"fmt"

	"scenario_engine/pkg/core/formula"
)

// =============================================================================
// VARIABLE DEFINITION
// =============================================================================

// Kind distinguishes user-supplied inputs from formula-driven variables.
type Kind string

const (
	KindInput    Kind = "input"
	KindComputed Kind = "computed"
)

// Unit describes how a value is displayed. Percent values are stored as
// decimal fractions (0.30 = 30%).
type Unit string

const (
	UnitCurrency Unit = "currency"
	UnitPercent  Unit = "percent"
	UnitCount    Unit = "count"
	UnitRatio    Unit = "ratio"
	UnitMonths   Unit = "months"
	UnitDays     Unit = "days"
	UnitHours    Unit = "hours"
)

var knownUnits = map[Unit]bool{
	UnitCurrency: true, UnitPercent: true, UnitCount: true, UnitRatio: true,
	UnitMonths: true, UnitDays: true, UnitHours: true,
}

// Definition is a single what-if variable in a plan.
type Definition struct {
	ID           string   `json:"id" yaml:"id"`
	Label        string   `json:"label" yaml:"label"`
	Kind         Kind     `json:"kind" yaml:"kind"`
	Category     string   `json:"category,omitempty" yaml:"category"`
	Unit         Unit     `json:"unit" yaml:"unit"`
	Value        float64  `json:"value" yaml:"value"`
	DefaultValue float64  `json:"default_value" yaml:"default_value"`
	Formula      string   `json:"formula,omitempty" yaml:"formula"`
	DependsOn    []string `json:"depends_on,omitempty" yaml:"depends_on"`
	Min          *float64 `json:"min,omitempty" yaml:"min"`
	Max          *float64 `json:"max,omitempty" yaml:"max"`
	Step         *float64 `json:"step,omitempty" yaml:"step"`
	Description  string   `json:"description,omitempty" yaml:"description"`
}

// IsComputed reports whether the value comes from a formula.
func (d Definition) IsComputed() bool { return d.Kind == KindComputed }

// Definitions is an ordered variable set. Order is authoring order and breaks
// ties in the evaluation order.
type Definitions []Definition

// Index returns the definitions keyed by id.
func (defs Definitions) Index() map[string]Definition {
	out := make(map[string]Definition, len(defs))
	for _, d := range defs {
		out[d.ID] = d
	}
	return out
}

// Get looks a definition up by id.
func (defs Definitions) Get(id string) (Definition, bool) {
	for _, d := range defs {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// IDs returns every variable id in order.
func (defs Definitions) IDs() []string {
	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.ID
	}
	return ids
}

// Clone returns a deep copy.
func (defs Definitions) Clone() Definitions {
	if defs == nil {
		return nil
	}
	out := make(Definitions, len(defs))
	for i, d := range defs {
		if d.DependsOn != nil {
			d.DependsOn = append([]string(nil), d.DependsOn...)
		}
		d.Min = cloneFloat(d.Min)
		d.Max = cloneFloat(d.Max)
		d.Step = cloneFloat(d.Step)
		out[i] = d
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Upsert returns a copy with def replacing the variable of the same id, or
// appended when the id is new.
func (defs Definitions) Upsert(def Definition) Definitions {
	out := defs.Clone()
	for i := range out {
		if out[i].ID == def.ID {
			out[i] = def
			return out
		}
	}
	return append(out, def)
}

// Remove returns a copy without the variable id.
func (defs Definitions) Remove(id string) Definitions {
	out := make(Definitions, 0, len(defs))
	for _, d := range defs.Clone() {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return out
}

// Validate reports malformed definition sets. Dangling formula references are
// not checked here; they degrade at evaluation time.
func (defs Definitions) Validate() error {
	seen := make(map[string]bool, len(defs))
	for i, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("variable at position %d has no id", i)
		}
		if seen[d.ID] {
			return fmt.Errorf("duplicate variable id '%s'", d.ID)
		}
		seen[d.ID] = true

		switch d.Kind {
		case KindInput:
		case KindComputed:
			if d.Formula == "" {
				return fmt.Errorf("computed variable '%s' has no formula", d.ID)
			}
		default:
			return fmt.Errorf("variable '%s' has unknown kind '%s'", d.ID, d.Kind)
		}
		if d.Unit != "" && !knownUnits[d.Unit] {
			return fmt.Errorf("variable '%s' has unknown unit '%s'", d.ID, d.Unit)
		}
	}
	return nil
}

// InferDependencies returns a copy in which every computed variable without a
// dependsOn list gets one from its formula's identifiers. Formulas that do not
// parse are left alone.
func (defs Definitions) InferDependencies() Definitions {
	out := defs.Clone()
	for i := range out {
		if !out[i].IsComputed() || len(out[i].DependsOn) > 0 {
			continue
		}
		refs, err := formula.References(out[i].Formula)
		if err != nil {
			continue
		}
		out[i].DependsOn = refs
	}
	return out
}
