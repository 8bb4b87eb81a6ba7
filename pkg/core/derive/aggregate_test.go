package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestEffectiveMonthlyOutput(t *testing.T) {
	tests := []struct {
		name string
		item CapacityItem
		want float64
	}{
		{
			name: "no ceiling is unclamped",
			item: CapacityItem{PlannedOutputPerMonth: 500},
			want: 500,
		},
		{
			name: "smallest of day and week ceilings wins",
			item: CapacityItem{PlannedOutputPerMonth: 120, MaxOutputPerDay: ptr(4), MaxOutputPerWeek: ptr(20)},
			want: 20 * 52.0 / 12.0,
		},
		{
			name: "monthly ceiling above plan does not raise output",
			item: CapacityItem{PlannedOutputPerMonth: 80, MaxOutputPerMonth: ptr(100)},
			want: 80,
		},
		{
			name: "non-positive ceilings are not configured",
			item: CapacityItem{PlannedOutputPerMonth: 40, MaxOutputPerDay: ptr(0), MaxOutputPerMonth: ptr(-1)},
			want: 40,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EffectiveMonthlyOutput(tt.item), 1e-9)
		})
	}

	assert.InDelta(t, 86.67, EffectiveMonthlyOutput(tests[1].item), 0.01)
}

func TestDeriveFinancialInputs_EndToEnd(t *testing.T) {
	product := ProductContent{Offerings: []Offering{
		{ID: "o1", Name: "Basic", Price: 100},
		{ID: "o2", Name: "Premium", Price: 200},
	}}
	ops := OperationsContent{
		CapacityItems: []CapacityItem{
			{ID: "c1", OfferingID: "o1", PlannedOutputPerMonth: 80, MaxOutputPerMonth: ptr(100), VariableCostPerUnit: 10},
			{ID: "c2", OfferingID: "o2", PlannedOutputPerMonth: 20, MaxOutputPerMonth: ptr(25), VariableCostPerUnit: 10},
		},
	}
	marketing := MarketingContent{Channels: []MarketingChannel{
		{Name: "search", MonthlyBudget: 500},
		{Name: "social", MonthlyBudget: 300},
	}}

	in := DeriveFinancialInputs(product, ops, marketing)

	assert.InDelta(t, 100, in.BaseOutputPerMonth, 1e-9)
	assert.InDelta(t, 125, in.TotalMaxOutputPerMonth, 1e-9)
	assert.InDelta(t, 120, in.AveragePricePerOutput, 1e-9)
	assert.InDelta(t, 10, in.VariableCostPerOutput, 1e-9)
	assert.InDelta(t, 800, in.MonthlyMarketing, 1e-9)
	assert.True(t, in.HasCapacityOutput)
	assert.True(t, in.HasPriceSignal)
}

func TestDeriveFinancialInputs_VariableCostUsesEffectiveOutput(t *testing.T) {
	ops := OperationsContent{
		CapacityItems: []CapacityItem{
			{ID: "oven", PlannedOutputPerMonth: 200, MaxOutputPerMonth: ptr(100), VariableCostPerUnit: 5},
		},
		CostItems: []CostItem{
			{Name: "packaging", Amount: 300, Behavior: CostVariable},
		},
	}

	in := DeriveFinancialInputs(ProductContent{}, ops, MarketingContent{})

	// (100*5 + 300) / 100, not divided by the nominal 200.
	assert.InDelta(t, 100, in.BaseOutputPerMonth, 1e-9)
	assert.InDelta(t, 8, in.VariableCostPerOutput, 1e-9)
}

func TestDeriveFinancialInputs_PriceFallbacks(t *testing.T) {
	t.Run("demand weighted over linked items", func(t *testing.T) {
		product := ProductContent{Offerings: []Offering{
			{ID: "a", Price: 10},
			{ID: "b", Price: 40},
			{ID: "free", Price: 0},
		}}
		ops := OperationsContent{CapacityItems: []CapacityItem{
			{ID: "c1", OfferingID: "a", PlannedOutputPerMonth: 30},
			{ID: "c2", OfferingID: "b", PlannedOutputPerMonth: 10},
			{ID: "c3", OfferingID: "free", PlannedOutputPerMonth: 10},
			{ID: "c4", PlannedOutputPerMonth: 10},
		}}
		in := DeriveFinancialInputs(product, ops, MarketingContent{})

		// linked fallback = (30*10 + 10*40) / 40 = 17.5
		// revenue = 300 + 400 + 10*17.5 + 10*17.5 = 1050 over 60 units
		assert.InDelta(t, 60, in.BaseOutputPerMonth, 1e-9)
		assert.InDelta(t, 17.5, in.AveragePricePerOutput, 1e-9)
	})

	t.Run("simple average when nothing is linked", func(t *testing.T) {
		product := ProductContent{Offerings: []Offering{
			{ID: "a", Price: 10},
			{ID: "b", Price: 30},
			{ID: "c", Price: 0},
		}}
		ops := OperationsContent{CapacityItems: []CapacityItem{
			{ID: "c1", PlannedOutputPerMonth: 5},
		}}
		in := DeriveFinancialInputs(product, ops, MarketingContent{})
		assert.InDelta(t, 20, in.AveragePricePerOutput, 1e-9)
	})

	t.Run("no prices at all", func(t *testing.T) {
		ops := OperationsContent{CapacityItems: []CapacityItem{{ID: "c1", PlannedOutputPerMonth: 5}}}
		in := DeriveFinancialInputs(ProductContent{}, ops, MarketingContent{})
		assert.Zero(t, in.AveragePricePerOutput)
		assert.False(t, in.HasPriceSignal)
		assert.True(t, in.HasCapacityOutput)
	})
}

func TestDeriveFinancialInputs_Overhead(t *testing.T) {
	ops := OperationsContent{
		Workforce: []WorkforceRole{
			{Role: "baker", HourlyRate: 20, HoursPerWeek: 30},
			{Role: "cashier", HourlyRate: 15, HoursPerWeek: 12, Headcount: 2},
		},
		CostItems: []CostItem{
			{Name: "rent", Amount: 2000},
			{Name: "insurance", Amount: 1200, Frequency: FrequencyAnnual},
			{Name: "cleaning", Amount: 60, Frequency: FrequencyWeekly, Behavior: CostFixed},
		},
	}
	in := DeriveFinancialInputs(ProductContent{}, ops, MarketingContent{})

	wpm := 52.0 / 12.0
	want := 20*30*wpm + 15*12*wpm*2 + 2000 + 100 + 60*wpm
	assert.InDelta(t, want, in.MonthlyFixedOverhead, 1e-9)
	assert.False(t, in.HasCapacityOutput)
}

func TestInputsScope_OmitsAbsentFacts(t *testing.T) {
	empty := Inputs{}.Scope()
	assert.NotContains(t, empty, FactBaseOutputPerMonth)
	assert.NotContains(t, empty, FactAveragePricePerOutput)
	assert.NotContains(t, empty, FactMonthlyMarketing)
	assert.Equal(t, 0.0, empty[FactHasCapacityOutput])

	full := Inputs{
		BaseOutputPerMonth: 10, TotalMaxOutputPerMonth: 12, VariableCostPerOutput: 2,
		AveragePricePerOutput: 50, MonthlyMarketing: 100, MonthlyFixedOverhead: 900,
		HasCapacityOutput: true, HasPriceSignal: true,
	}.Scope()
	assert.Equal(t, 10.0, full[FactBaseOutputPerMonth])
	assert.Equal(t, 50.0, full[FactAveragePricePerOutput])
	assert.Equal(t, 900.0, full[FactMonthlyFixedOverhead])
	assert.Equal(t, 1.0, full[FactHasPriceSignal])
}

func TestDecodeSections(t *testing.T) {
	content := map[string]map[string]any{
		SlugOfferings: {
			"offerings": []any{map[string]any{"id": "o1", "name": "Cake", "price": 30.0}},
		},
		SlugOperations: {
			"capacity_items": []any{
				map[string]any{"id": "c1", "offering_id": "o1", "planned_output_per_month": 50.0, "max_output_per_day": 1.0},
			},
		},
	}
	sections, err := DecodeSections(content)
	require.NoError(t, err)
	require.Len(t, sections.Product.Offerings, 1)
	require.Len(t, sections.Operations.CapacityItems, 1)
	require.NotNil(t, sections.Operations.CapacityItems[0].MaxOutputPerDay)
	assert.Empty(t, sections.Marketing.Channels)

	in := sections.Derive()
	assert.InDelta(t, 30, in.BaseOutputPerMonth, 1e-9)
	assert.InDelta(t, 30, in.AveragePricePerOutput, 1e-9)

	_, err = DecodeSections(map[string]map[string]any{
		SlugMarketing: {"channels": "not a list"},
	})
	assert.Error(t, err)
}
