package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scenario_engine/pkg/core/scenario"
	"scenario_engine/pkg/core/variable"
)

// FileStore keeps one directory per plan:
//
//	<dir>/<plan>/variables.json
//	<dir>/<plan>/scenarios/<scenario>.json
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir. An empty dir defaults to
// .cache/scenarios.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = filepath.Join(".cache", "scenarios")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) LoadVariables(ctx context.Context, planID string) (variable.Definitions, error) {
	data, err := os.ReadFile(f.variablesPath(planID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read variables: %w", err)
	}
	return decodeVariables(data)
}

func (f *FileStore) SaveVariables(ctx context.Context, planID string, defs variable.Definitions) error {
	data, err := encode(defs)
	if err != nil {
		return err
	}
	return writeFileAtomic(f.variablesPath(planID), data)
}

func (f *FileStore) LoadScenarios(ctx context.Context, planID string) ([]scenario.Scenario, error) {
	entries, err := os.ReadDir(f.scenarioDir(planID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	var out []scenario.Scenario
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.scenarioDir(planID), e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read scenario %s: %w", e.Name(), err)
		}
		s, err := decodeScenario(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		out = append(out, s)
	}
	sortScenarios(out)
	return out, nil
}

func (f *FileStore) SaveScenario(ctx context.Context, planID string, s scenario.Scenario) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	return writeFileAtomic(f.scenarioPath(planID, s.ID), data)
}

func (f *FileStore) DeleteScenario(ctx context.Context, planID, scenarioID string) error {
	err := os.Remove(f.scenarioPath(planID, scenarioID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

// Internal file helpers

func (f *FileStore) planDir(planID string) string {
	return filepath.Join(f.dir, safeName(planID))
}

func (f *FileStore) variablesPath(planID string) string {
	return filepath.Join(f.planDir(planID), "variables.json")
}

func (f *FileStore) scenarioDir(planID string) string {
	return filepath.Join(f.planDir(planID), "scenarios")
}

func (f *FileStore) scenarioPath(planID, scenarioID string) string {
	return filepath.Join(f.scenarioDir(planID), safeName(scenarioID)+".json")
}

func safeName(id string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	if id = r.Replace(strings.TrimSpace(id)); id == "" {
		return "_"
	}
	return id
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
