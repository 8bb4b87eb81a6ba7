// Package derive rolls plan section content (offerings, operations, marketing)
// up into a flat set of numeric facts that variables can draw from.
package derive

// =============================================================================
// SECTION CONTENT
// =============================================================================

// Section slugs whose content feeds the aggregator.
const (
	SlugOfferings  = "offerings"
	SlugOperations = "operations"
	SlugMarketing  = "marketing"
)

// Offering is a priced product or service.
type Offering struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ProductContent is the offerings section.
type ProductContent struct {
	Offerings []Offering `json:"offerings"`
}

// CapacityItem is anything that produces sellable output each month: a
// machine, a team, a service slot. Ceilings are optional; nil or non-positive
// means not configured.
type CapacityItem struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	OfferingID            string   `json:"offering_id,omitempty"`
	PlannedOutputPerMonth float64  `json:"planned_output_per_month"`
	MaxOutputPerDay       *float64 `json:"max_output_per_day,omitempty"`
	MaxOutputPerWeek      *float64 `json:"max_output_per_week,omitempty"`
	MaxOutputPerMonth     *float64 `json:"max_output_per_month,omitempty"`
	VariableCostPerUnit   float64  `json:"variable_cost_per_unit,omitempty"`
}

// WorkforceRole is a paid role billed hourly.
type WorkforceRole struct {
	Role         string  `json:"role"`
	HourlyRate   float64 `json:"hourly_rate"`
	HoursPerWeek float64 `json:"hours_per_week"`
	Headcount    int     `json:"headcount,omitempty"` // 0 is treated as 1
}

// CostBehavior classifies a cost item.
type CostBehavior string

const (
	CostFixed    CostBehavior = "fixed"
	CostVariable CostBehavior = "variable"
)

// CostFrequency is how often a cost item's amount recurs.
type CostFrequency string

const (
	FrequencyWeekly  CostFrequency = "weekly"
	FrequencyMonthly CostFrequency = "monthly"
	FrequencyAnnual  CostFrequency = "annual"
)

// CostItem is a flat recurring cost. Empty behavior means fixed and empty
// frequency means monthly.
type CostItem struct {
	Name      string        `json:"name"`
	Amount    float64       `json:"amount"`
	Frequency CostFrequency `json:"frequency,omitempty"`
	Behavior  CostBehavior  `json:"behavior,omitempty"`
}

// OperationsContent is the operations section.
type OperationsContent struct {
	CapacityItems []CapacityItem  `json:"capacity_items"`
	Workforce     []WorkforceRole `json:"workforce"`
	CostItems     []CostItem      `json:"cost_items"`
}

// MarketingChannel is a paid acquisition channel.
type MarketingChannel struct {
	Name          string  `json:"name"`
	MonthlyBudget float64 `json:"monthly_budget"`
}

// MarketingContent is the marketing section.
type MarketingContent struct {
	Channels []MarketingChannel `json:"channels"`
}

// =============================================================================
// DERIVED FACTS
// =============================================================================

// Fact names exposed in the derived scope. A variable whose id equals one of
// these names draws its value from the fact.
const (
	FactBaseOutputPerMonth     = "baseOutputPerMonth"
	FactTotalMaxOutputPerMonth = "totalMaxOutputPerMonth"
	FactAveragePricePerOutput  = "averagePricePerOutput"
	FactVariableCostPerOutput  = "variableCostPerOutput"
	FactMonthlyFixedOverhead   = "monthlyFixedOverhead"
	FactMonthlyMarketing       = "monthlyMarketing"
	FactHasCapacityOutput      = "hasCapacityOutput"
	FactHasPriceSignal         = "hasPriceSignal"
)

// Inputs is the result of rolling up section content.
type Inputs struct {
	BaseOutputPerMonth     float64 `json:"baseOutputPerMonth"`
	TotalMaxOutputPerMonth float64 `json:"totalMaxOutputPerMonth"`
	AveragePricePerOutput  float64 `json:"averagePricePerOutput"`
	VariableCostPerOutput  float64 `json:"variableCostPerOutput"`
	MonthlyFixedOverhead   float64 `json:"monthlyFixedOverhead"`
	MonthlyMarketing       float64 `json:"monthlyMarketing"`
	HasCapacityOutput      bool    `json:"hasCapacityOutput"`
	HasPriceSignal         bool    `json:"hasPriceSignal"`
}

// Scope returns the facts as a flat numeric map. Capacity facts appear only
// when there is capacity output and the price fact only when there is a price
// signal; overhead and marketing appear only when positive. Absent facts let
// stored variable values stand instead of being replaced by zeros.
func (in Inputs) Scope() map[string]float64 {
	scope := map[string]float64{
		FactHasCapacityOutput: boolFact(in.HasCapacityOutput),
		FactHasPriceSignal:    boolFact(in.HasPriceSignal),
	}
	if in.HasCapacityOutput {
		scope[FactBaseOutputPerMonth] = in.BaseOutputPerMonth
		scope[FactTotalMaxOutputPerMonth] = in.TotalMaxOutputPerMonth
		scope[FactVariableCostPerOutput] = in.VariableCostPerOutput
	}
	if in.HasPriceSignal {
		scope[FactAveragePricePerOutput] = in.AveragePricePerOutput
	}
	if in.MonthlyFixedOverhead > 0 {
		scope[FactMonthlyFixedOverhead] = in.MonthlyFixedOverhead
	}
	if in.MonthlyMarketing > 0 {
		scope[FactMonthlyMarketing] = in.MonthlyMarketing
	}
	return scope
}

func boolFact(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
