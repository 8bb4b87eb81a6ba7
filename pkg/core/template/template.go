// Package template seeds a plan's variable set from a business-type template.
package template

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"

	"scenario_engine/pkg/core/variable"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// Template is a named starter variable set.
type Template struct {
	BusinessType string               `yaml:"business_type"`
	Label        string               `yaml:"label"`
	Description  string               `yaml:"description"`
	Variables    variable.Definitions `yaml:"variables"`
}

var (
	loadOnce  sync.Once
	templates map[string]Template
	loadErr   error
)

func load() (map[string]Template, error) {
	loadOnce.Do(func() {
		entries, err := templateFS.ReadDir("templates")
		if err != nil {
			loadErr = fmt.Errorf("read templates: %w", err)
			return
		}
		out := make(map[string]Template, len(entries))
		for _, e := range entries {
			data, err := templateFS.ReadFile(path.Join("templates", e.Name()))
			if err != nil {
				loadErr = fmt.Errorf("read template %s: %w", e.Name(), err)
				return
			}
			var t Template
			if err := yaml.Unmarshal(data, &t); err != nil {
				loadErr = fmt.Errorf("parse template %s: %w", e.Name(), err)
				return
			}
			if t.BusinessType == "" {
				t.BusinessType = strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
			}
			t.Variables = t.Variables.InferDependencies()
			out[t.BusinessType] = t
		}
		templates = out
	})
	return templates, loadErr
}

// BusinessTypes lists the available template names, sorted.
func BusinessTypes() []string {
	all, err := load()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a copy of the template for businessType.
func Get(businessType string) (Template, error) {
	all, err := load()
	if err != nil {
		return Template{}, err
	}
	t, ok := all[strings.ToLower(strings.TrimSpace(businessType))]
	if !ok {
		return Template{}, fmt.Errorf("unknown business type '%s' (available: %s)",
			businessType, strings.Join(BusinessTypes(), ", "))
	}
	t.Variables = t.Variables.Clone()
	return t, nil
}

// Seed returns a fresh variable set for businessType. Callers own the result.
func Seed(businessType string) (variable.Definitions, error) {
	t, err := Get(businessType)
	if err != nil {
		return nil, err
	}
	return t.Variables, nil
}
