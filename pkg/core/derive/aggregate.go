package derive

import (
	"encoding/json"
	"fmt"
	"math"
)

const (
	daysPerMonth  = 30.0
	weeksPerMonth = 52.0 / 12.0
)

// EffectiveMonthlyOutput clips planned output to the smallest configured
// ceiling, each converted to a monthly equivalent. With no ceiling the planned
// output is returned unclamped.
func EffectiveMonthlyOutput(item CapacityItem) float64 {
	ceiling, ok := monthlyCeiling(item)
	if !ok {
		return item.PlannedOutputPerMonth
	}
	return math.Min(item.PlannedOutputPerMonth, ceiling)
}

// MaxMonthlyOutput is the smallest configured monthly-equivalent ceiling, or
// the planned output when no ceiling is configured.
func MaxMonthlyOutput(item CapacityItem) float64 {
	if ceiling, ok := monthlyCeiling(item); ok {
		return ceiling
	}
	return item.PlannedOutputPerMonth
}

func monthlyCeiling(item CapacityItem) (float64, bool) {
	ceiling := math.Inf(1)
	found := false
	consider := func(limit *float64, factor float64) {
		if limit == nil || *limit <= 0 {
			return
		}
		found = true
		ceiling = math.Min(ceiling, *limit*factor)
	}
	consider(item.MaxOutputPerDay, daysPerMonth)
	consider(item.MaxOutputPerWeek, weeksPerMonth)
	consider(item.MaxOutputPerMonth, 1)
	return ceiling, found
}

// DeriveFinancialInputs rolls the three sections up into derived facts. It is a
// pure function of its arguments.
func DeriveFinancialInputs(product ProductContent, ops OperationsContent, marketing MarketingContent) Inputs {
	prices := make(map[string]float64, len(product.Offerings))
	var pricedSum float64
	var pricedCount int
	for _, o := range product.Offerings {
		prices[o.ID] = o.Price
		if o.Price > 0 {
			pricedSum += o.Price
			pricedCount++
		}
	}

	type producing struct {
		item      CapacityItem
		effective float64
		price     float64
		linked    bool
	}

	// 1. Effective output and direct price attribution
	var items []producing
	var linkedOutput, linkedRevenue float64
	for _, item := range ops.CapacityItems {
		eff := EffectiveMonthlyOutput(item)
		if eff <= 0 {
			continue
		}
		p := producing{item: item, effective: eff}
		if item.OfferingID != "" {
			if price, ok := prices[item.OfferingID]; ok && price > 0 {
				p.price = price
				p.linked = true
				linkedOutput += eff
				linkedRevenue += eff * price
			}
		}
		items = append(items, p)
	}

	// 2. Fallback price for unlinked or unpriced items
	fallback := 0.0
	switch {
	case linkedOutput > 0:
		fallback = linkedRevenue / linkedOutput
	case pricedCount > 0:
		fallback = pricedSum / float64(pricedCount)
	}

	// 3. Aggregate over the same effective output
	var in Inputs
	var revenue, unitVariableCost float64
	for _, p := range items {
		price := p.price
		if !p.linked {
			price = fallback
		}
		in.BaseOutputPerMonth += p.effective
		in.TotalMaxOutputPerMonth += MaxMonthlyOutput(p.item)
		revenue += p.effective * price
		unitVariableCost += p.effective * p.item.VariableCostPerUnit
	}

	var fixedItems, variableItems float64
	for _, c := range ops.CostItems {
		monthly := monthlyAmount(c)
		if c.Behavior == CostVariable {
			variableItems += monthly
		} else {
			fixedItems += monthly
		}
	}

	if in.BaseOutputPerMonth > 0 {
		in.AveragePricePerOutput = revenue / in.BaseOutputPerMonth
		in.VariableCostPerOutput = (unitVariableCost + variableItems) / in.BaseOutputPerMonth
	}
	in.MonthlyFixedOverhead = workforceMonthly(ops.Workforce) + fixedItems
	for _, ch := range marketing.Channels {
		in.MonthlyMarketing += ch.MonthlyBudget
	}

	in.HasCapacityOutput = in.BaseOutputPerMonth > 0
	in.HasPriceSignal = in.AveragePricePerOutput > 0
	return in
}

func workforceMonthly(roles []WorkforceRole) float64 {
	total := 0.0
	for _, r := range roles {
		heads := r.Headcount
		if heads <= 0 {
			heads = 1
		}
		total += r.HourlyRate * r.HoursPerWeek * weeksPerMonth * float64(heads)
	}
	return total
}

func monthlyAmount(c CostItem) float64 {
	switch c.Frequency {
	case FrequencyWeekly:
		return c.Amount * weeksPerMonth
	case FrequencyAnnual:
		return c.Amount / 12
	default:
		return c.Amount
	}
}

// =============================================================================
// SECTION DECODING
// =============================================================================

// Sections holds the typed content the aggregator reads.
type Sections struct {
	Product    ProductContent
	Operations OperationsContent
	Marketing  MarketingContent
}

// DecodeSections converts generic section content, keyed by slug, into typed
// sections. Missing slugs decode to empty content.
func DecodeSections(content map[string]map[string]any) (Sections, error) {
	var s Sections
	if err := decodeInto(content[SlugOfferings], &s.Product); err != nil {
		return Sections{}, fmt.Errorf("decode %s: %w", SlugOfferings, err)
	}
	if err := decodeInto(content[SlugOperations], &s.Operations); err != nil {
		return Sections{}, fmt.Errorf("decode %s: %w", SlugOperations, err)
	}
	if err := decodeInto(content[SlugMarketing], &s.Marketing); err != nil {
		return Sections{}, fmt.Errorf("decode %s: %w", SlugMarketing, err)
	}
	return s, nil
}

// Derive runs DeriveFinancialInputs over decoded sections.
func (s Sections) Derive() Inputs {
	return DeriveFinancialInputs(s.Product, s.Operations, s.Marketing)
}

func decodeInto(content map[string]any, target any) error {
	if content == nil {
		return nil
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
