package compose

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestDeepMergeOneLevel_ArraysReplace(t *testing.T) {
	got := DeepMergeOneLevel(Content{"items": []any{1, 2, 3}}, Content{"items": []any{4, 5}})
	assert.Equal(t, Content{"items": []any{4, 5}}, got)
}

func TestDeepMergeOneLevel_NilNeverDeletes(t *testing.T) {
	var nilSlice []any
	var nilMap map[string]any
	base := Content{"title": "Bakery", "items": []any{1}, "meta": map[string]any{"a": 1}}

	got := DeepMergeOneLevel(base, Content{"title": nil, "items": nilSlice, "meta": nilMap})

	assert.Equal(t, base, got)
}

func TestDeepMergeOneLevel_ExactlyOneLevel(t *testing.T) {
	base := Content{
		"pricing": map[string]any{
			"currency": "USD",
			"tiers":    map[string]any{"basic": 10, "pro": 20},
		},
	}
	overlay := Content{
		"pricing": map[string]any{
			"tiers": map[string]any{"pro": 25},
			"note":  "promo",
		},
	}

	got := DeepMergeOneLevel(base, overlay)

	pricing := got["pricing"].(map[string]any)
	assert.Equal(t, "USD", pricing["currency"])
	assert.Equal(t, "promo", pricing["note"])
	// the second level is replaced, not merged
	assert.Equal(t, map[string]any{"pro": 25}, pricing["tiers"])
}

func TestDeepMergeOneLevel_PrimitivesAndNewKeys(t *testing.T) {
	got := DeepMergeOneLevel(
		Content{"price": 10.0, "name": "A"},
		Content{"price": 12.0, "extra": map[string]any{"k": "v"}},
	)
	assert.Equal(t, 12.0, got["price"])
	assert.Equal(t, "A", got["name"])
	assert.Equal(t, map[string]any{"k": "v"}, got["extra"])

	// a map overlay replaces a scalar base
	got = DeepMergeOneLevel(Content{"k": 1}, Content{"k": map[string]any{"x": 2}})
	assert.Equal(t, map[string]any{"x": 2}, got["k"])
}

func TestComputeEffectiveContent(t *testing.T) {
	base := Content{"headline": "base", "budget": 100}
	variant := Content{"headline": "variant"}
	patch := Content{"budget": 250}

	assert.Equal(t, DeepMergeOneLevel(variant, patch), ComputeEffectiveContent(base, variant, patch))
	assert.Equal(t, Content{"headline": "variant", "budget": 250}, ComputeEffectiveContent(base, variant, patch))
	assert.Equal(t, DeepMergeOneLevel(base, patch), ComputeEffectiveContent(base, nil, patch))
	assert.Equal(t, base, ComputeEffectiveContent(base, nil, nil))
	// variant replaces rather than merging with base
	assert.Equal(t, variant, ComputeEffectiveContent(base, variant, nil))
}

type variantMap map[string]map[string]Content

func (m variantMap) Variant(slug, id string) (Content, bool) {
	v, ok := m[slug][id]
	return v, ok
}

func TestComposer_ResolveSections(t *testing.T) {
	sections := map[string]Content{
		"marketing":  {"channels": []any{"search"}},
		"operations": {"staff": 2},
		"offerings":  {"count": 1},
	}
	variants := variantMap{"marketing": {"aggressive": {"channels": []any{"search", "tv"}}}}
	refs := Refs{
		Variants:  map[string]string{"marketing": "aggressive", "offerings": "missing"},
		Overrides: map[string]Content{"operations": {"staff": 4}},
	}

	c := NewComposer(variants, slog.New(slog.NewTextHandler(io.Discard, nil)))
	got := c.ResolveSections(sections, refs)

	assert.Equal(t, []any{"search", "tv"}, got["marketing"]["channels"])
	assert.Equal(t, 4, got["operations"]["staff"])
	assert.Equal(t, 1, got["offerings"]["count"])
	assert.Equal(t, 2, sections["operations"]["staff"])
}

func TestComposer_ResolveSectionsWithoutBase(t *testing.T) {
	variants := variantMap{"marketing": {"lean": {"budget": 100}}}
	refs := Refs{
		Variants:  map[string]string{"marketing": "lean", "offerings": "missing"},
		Overrides: map[string]Content{"operations": {"staff": 4}},
	}

	c := NewComposer(variants, slog.New(slog.NewTextHandler(io.Discard, nil)))
	got := c.ResolveSections(map[string]Content{}, refs)

	assert.Equal(t, 100, got["marketing"]["budget"])
	assert.Equal(t, 4, got["operations"]["staff"])
	assert.NotContains(t, got, "offerings")
}

// randomContent builds a two-level content tree from a seed.
func randomContent(rng *rand.Rand, depth int) Content {
	out := Content{}
	for i := 0; i < rng.Intn(5); i++ {
		key := fmt.Sprintf("k%d", rng.Intn(6))
		switch rng.Intn(5) {
		case 0:
			out[key] = nil
		case 1:
			out[key] = []any{rng.Intn(10), rng.Intn(10)}
		case 2:
			if depth > 0 {
				out[key] = map[string]any(randomContent(rng, depth-1))
			} else {
				out[key] = rng.Float64()
			}
		default:
			out[key] = rng.Intn(100)
		}
	}
	return out
}

func deepCopy(c Content) Content {
	if c == nil {
		return nil
	}
	out := Content{}
	for k, v := range c {
		switch t := v.(type) {
		case map[string]any:
			out[k] = map[string]any(deepCopy(t))
		case []any:
			out[k] = append([]any(nil), t...)
		default:
			out[k] = v
		}
	}
	return out
}

func TestComputeEffectiveContent_NeverMutatesInputs(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("inputs are unchanged after composition", prop.ForAll(
		func(seed int64, withVariant bool) bool {
			rng := rand.New(rand.NewSource(seed))
			base := randomContent(rng, 2)
			patch := randomContent(rng, 2)
			var variant Content
			if withVariant {
				variant = randomContent(rng, 2)
			}
			baseBefore, patchBefore, variantBefore := deepCopy(base), deepCopy(patch), deepCopy(variant)

			_ = ComputeEffectiveContent(base, variant, patch)

			return reflect.DeepEqual(base, baseBefore) &&
				reflect.DeepEqual(patch, patchBefore) &&
				reflect.DeepEqual(variant, variantBefore)
		},
		gen.Int64(),
		gen.Bool(),
	))

	properties.Property("every non-nil overlay key is present in the result", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			base := randomContent(rng, 1)
			overlay := randomContent(rng, 1)
			got := DeepMergeOneLevel(base, overlay)
			for k, v := range overlay {
				if v == nil {
					if !reflect.DeepEqual(got[k], base[k]) {
						return false
					}
					continue
				}
				if _, ok := got[k]; !ok {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
