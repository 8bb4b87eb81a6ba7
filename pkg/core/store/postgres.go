package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scenario_engine/pkg/core/scenario"
	"scenario_engine/pkg/core/variable"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS plan_variables (
	plan_id     TEXT PRIMARY KEY,
	definitions JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS plan_scenarios (
	plan_id     TEXT NOT NULL,
	scenario_id TEXT NOT NULL,
	data        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (plan_id, scenario_id)
);
`

// PostgresStore persists JSONB documents through a pgx pool.
type PostgresStore struct {
	pool  *pgxpool.Pool
	owned bool
}

// NewPostgresStore connects to databaseURL and creates the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	s, err := NewPostgresStoreWithPool(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewPostgresStoreWithPool uses an existing pool; Close leaves it open.
func NewPostgresStoreWithPool(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) LoadVariables(ctx context.Context, planID string) (variable.Definitions, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT definitions FROM plan_variables WHERE plan_id = $1`, planID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load variables: %w", err)
	}
	return decodeVariables(data)
}

func (p *PostgresStore) SaveVariables(ctx context.Context, planID string, defs variable.Definitions) error {
	data, err := encode(defs)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO plan_variables (plan_id, definitions, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (plan_id)
		DO UPDATE SET
			definitions = EXCLUDED.definitions,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := p.pool.Exec(ctx, query, planID, data, time.Now()); err != nil {
		return fmt.Errorf("failed to save variables: %w", err)
	}
	return nil
}

func (p *PostgresStore) LoadScenarios(ctx context.Context, planID string) ([]scenario.Scenario, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT data
		FROM plan_scenarios
		WHERE plan_id = $1
		ORDER BY created_at, scenario_id
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenarios: %w", err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}

	out := make([]scenario.Scenario, 0, len(docs))
	for _, data := range docs {
		s, err := decodeScenario(data)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (p *PostgresStore) SaveScenario(ctx context.Context, planID string, s scenario.Scenario) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO plan_scenarios (plan_id, scenario_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (plan_id, scenario_id)
		DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := p.pool.Exec(ctx, query, planID, s.ID, data, s.CreatedAt, time.Now()); err != nil {
		return fmt.Errorf("failed to save scenario: %w", err)
	}
	return nil
}

func (p *PostgresStore) DeleteScenario(ctx context.Context, planID, scenarioID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM plan_scenarios WHERE plan_id = $1 AND scenario_id = $2`, planID, scenarioID)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	return nil
}

// Close closes the pool when the store opened it.
func (p *PostgresStore) Close() error {
	if p.owned {
		p.pool.Close()
	}
	return nil
}
