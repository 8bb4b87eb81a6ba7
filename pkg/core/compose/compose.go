// Package compose derives the effective content of plan sections from their
// base content, an optional full-replacement variant and an optional partial
// override patch.
//
// Merge rules (DeepMergeOneLevel):
//  1. Nil overlay values are skipped, so an overlay never deletes a base key.
//  2. Slices replace the base value whole; they are never concatenated.
//  3. Nested maps merge their own keys one level deep; anything deeper is replaced.
//  4. Every other value replaces the base value.
//
// Inputs are never mutated.
package compose

import (
	"log/slog"
	"reflect"
)

// Content is the generic shape of a section's content.
type Content = map[string]any

// DeepMergeOneLevel merges overlay on top of base.
func DeepMergeOneLevel(base, overlay Content) Content {
	out := make(Content, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}

	for k, ov := range overlay {
		if isNil(ov) {
			continue
		}
		nested, ok := ov.(map[string]any)
		if !ok {
			out[k] = ov
			continue
		}
		merged := make(map[string]any, len(nested))
		if bv, ok := out[k].(map[string]any); ok {
			for nk, nv := range bv {
				merged[nk] = nv
			}
		}
		for nk, nv := range nested {
			merged[nk] = nv
		}
		out[k] = merged
	}
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// ComputeEffectiveContent resolves one section. A non-nil variant replaces
// base outright; a non-nil override patch is then merged on top.
func ComputeEffectiveContent(base, variant, overridePatch Content) Content {
	baseline := base
	if variant != nil {
		baseline = variant
	}
	if overridePatch == nil {
		return baseline
	}
	return DeepMergeOneLevel(baseline, overridePatch)
}

// =============================================================================
// BATCH RESOLUTION
// =============================================================================

// VariantStore looks up named section snapshots.
type VariantStore interface {
	Variant(slug, variantID string) (Content, bool)
}

// Refs are a scenario's per-section variant references and override patches.
type Refs struct {
	Variants  map[string]string
	Overrides map[string]Content
}

// Composer resolves every section of a plan for a scenario.
type Composer struct {
	variants VariantStore
	logger   *slog.Logger
}

// NewComposer creates a composer. variants may be nil when the plan has no
// variants.
func NewComposer(variants VariantStore, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{variants: variants, logger: logger}
}

// ResolveSections returns the effective content of every section the plan or
// the scenario names. A variant reference that cannot be found is logged and
// the base content is used. A section with no content at all is left out.
func (c *Composer) ResolveSections(sections map[string]Content, refs Refs) map[string]Content {
	slugs := make(map[string]struct{}, len(sections))
	for slug := range sections {
		slugs[slug] = struct{}{}
	}
	for slug := range refs.Variants {
		slugs[slug] = struct{}{}
	}
	for slug := range refs.Overrides {
		slugs[slug] = struct{}{}
	}

	out := make(map[string]Content, len(slugs))
	for slug := range slugs {
		base := sections[slug]
		var variant Content
		if id, ok := refs.Variants[slug]; ok && id != "" {
			if c.variants != nil {
				if v, found := c.variants.Variant(slug, id); found {
					variant = v
				}
			}
			if variant == nil {
				c.logger.Warn("section variant not found, using base content", "section", slug, "variant", id)
			}
		}
		if base == nil && (variant != nil || refs.Overrides[slug] != nil) {
			c.logger.Debug("section has no base content", "section", slug)
		}
		if effective := ComputeEffectiveContent(base, variant, refs.Overrides[slug]); effective != nil {
			out[slug] = effective
		}
	}
	return out
}
