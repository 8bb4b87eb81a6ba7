package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"scenario_engine/pkg/core/scenario"
	"scenario_engine/pkg/core/variable"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS plan_variables (
	plan_id     TEXT PRIMARY KEY,
	definitions TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS plan_scenarios (
	plan_id     TEXT NOT NULL,
	scenario_id TEXT NOT NULL,
	data        TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	PRIMARY KEY (plan_id, scenario_id)
);
`

// SQLiteStore persists JSON documents in a single SQLite file.
type SQLiteStore struct {
	db *sqlx.DB
}

type scenarioRow struct {
	ScenarioID string `db:"scenario_id"`
	Data       string `db:"data"`
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) LoadVariables(ctx context.Context, planID string) (variable.Definitions, error) {
	var data string
	err := s.db.GetContext(ctx, &data, `SELECT definitions FROM plan_variables WHERE plan_id = ?`, planID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load variables: %w", err)
	}
	return decodeVariables([]byte(data))
}

func (s *SQLiteStore) SaveVariables(ctx context.Context, planID string, defs variable.Definitions) error {
	data, err := encode(defs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plan_variables (plan_id, definitions, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (plan_id) DO UPDATE SET
			definitions = excluded.definitions,
			updated_at = excluded.updated_at
	`, planID, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save variables: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadScenarios(ctx context.Context, planID string) ([]scenario.Scenario, error) {
	var rows []scenarioRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT scenario_id, data
		FROM plan_scenarios
		WHERE plan_id = ?
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenarios: %w", err)
	}

	out := make([]scenario.Scenario, 0, len(rows))
	for _, row := range rows {
		sc, err := decodeScenario([]byte(row.Data))
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", row.ScenarioID, err)
		}
		out = append(out, sc)
	}
	sortScenarios(out)
	return out, nil
}

func (s *SQLiteStore) SaveScenario(ctx context.Context, planID string, sc scenario.Scenario) error {
	data, err := encode(sc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plan_scenarios (plan_id, scenario_id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (plan_id, scenario_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, planID, sc.ID, string(data),
		sc.CreatedAt.UTC().Format(time.RFC3339Nano), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save scenario: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteScenario(ctx context.Context, planID, scenarioID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM plan_scenarios WHERE plan_id = ? AND scenario_id = ?`, planID, scenarioID)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
