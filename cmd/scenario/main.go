package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"scenario_engine/pkg/core/config"
	"scenario_engine/pkg/core/engine"
	"scenario_engine/pkg/core/scenario"
	"scenario_engine/pkg/core/store"
	"scenario_engine/pkg/core/template"
	"scenario_engine/pkg/core/variable"
)

func main() {
	mode := flag.String("mode", "evaluate", "Mode: evaluate, compare, order, validate, override or seed")
	planPath := flag.String("plan", "", "Path to a plan document (JSON or Hjson)")
	scenarioID := flag.String("scenario", "", "Scenario id to evaluate (empty = base plan)")
	scenarioIDs := flag.String("scenarios", "", "Comma-separated scenario ids to compare (empty = all)")
	businessType := flag.String("type", "service", "Business type to seed")
	name := flag.String("name", "", "Plan name when seeding")
	hydrate := flag.Bool("hydrate", false, "Load saved variables and scenarios from the configured store")
	varID := flag.String("var", "", "Input variable to override (override mode)")
	value := flag.Float64("value", 0, "Override value (override mode)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	if err := run(context.Background(), os.Stdout, cfg, logger, runArgs{
		mode:         *mode,
		planPath:     *planPath,
		scenarioID:   *scenarioID,
		scenarioIDs:  splitList(*scenarioIDs),
		businessType: *businessType,
		name:         *name,
		hydrate:      *hydrate,
		varID:        *varID,
		value:        *value,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runArgs struct {
	mode         string
	planPath     string
	scenarioID   string
	scenarioIDs  []string
	businessType string
	name         string
	hydrate      bool
	varID        string
	value        float64
}

func run(ctx context.Context, out io.Writer, cfg config.Config, logger *slog.Logger, args runArgs) error {
	if args.mode == "seed" {
		return runSeed(out, args)
	}

	if args.planPath == "" {
		return fmt.Errorf("no plan provided (use -plan)")
	}
	plan, err := scenario.LoadDocument(args.planPath)
	if err != nil {
		return err
	}
	plan.Variables = plan.Variables.InferDependencies()
	eng := engine.New(engine.Options{CloseCallThreshold: &cfg.CloseCallThreshold, Logger: logger})

	if args.mode == "override" {
		return runOverride(ctx, out, cfg, logger, eng, plan, args)
	}
	if args.hydrate {
		st, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		if plan, err = store.Hydrate(ctx, st, plan); err != nil {
			return err
		}
	}

	switch args.mode {
	case "evaluate":
		res, err := eng.EvaluateScenario(plan, args.scenarioID)
		if err != nil {
			return err
		}
		return writeJSON(out, res)
	case "compare":
		cmp, err := eng.Compare(plan, args.scenarioIDs, nil)
		if err != nil {
			return err
		}
		return writeJSON(out, struct {
			*engine.Comparison
			Summary string `json:"summary"`
		}{cmp, cmp.Decision.Summary()})
	case "order":
		order, err := variable.EvaluationOrder(plan.Variables)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string][]string{"order": order})
	case "validate":
		return writeJSON(out, validatePlan(eng, plan))
	default:
		return fmt.Errorf("unknown mode: %s", args.mode)
	}
}

type validationReport struct {
	Valid    bool                           `json:"valid"`
	Error    string                         `json:"error,omitempty"`
	Formulas map[string]variable.Validation `json:"formulas"`
}

func validatePlan(eng *engine.Engine, plan *scenario.Plan) validationReport {
	report := validationReport{Valid: true, Formulas: map[string]variable.Validation{}}
	if err := plan.Validate(); err != nil {
		report.Valid = false
		report.Error = err.Error()
	} else if _, err := variable.EvaluationOrder(plan.Variables); err != nil {
		report.Valid = false
		report.Error = err.Error()
	}

	ids := plan.Variables.IDs()
	for _, d := range plan.Variables {
		if !d.IsComputed() {
			continue
		}
		v := eng.Evaluator().ValidateFormula(d.Formula, ids)
		report.Formulas[d.ID] = v
		if !v.Valid {
			report.Valid = false
		}
	}
	return report
}

func runSeed(out io.Writer, args runArgs) error {
	t, err := template.Get(args.businessType)
	if err != nil {
		return err
	}
	name := args.name
	if name == "" {
		name = t.Label
	}
	plan := &scenario.Plan{
		ID:           uuid.New().String(),
		Name:         name,
		BusinessType: t.BusinessType,
		Variables:    t.Variables,
	}
	data, err := scenario.EncodeDocument(plan)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, error) {
	return store.Open(ctx, store.Options{
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		Dir:         cfg.StoreDir,
	}, logger)
}

// runOverride applies one override through a persisted session and prints the
// recomputed result.
func runOverride(ctx context.Context, out io.Writer, cfg config.Config, logger *slog.Logger,
	eng *engine.Engine, plan *scenario.Plan, args runArgs) error {
	if args.scenarioID == "" || args.varID == "" {
		return fmt.Errorf("override mode needs -scenario and -var")
	}
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if plan, err = store.Hydrate(ctx, st, plan); err != nil {
		return err
	}
	session, err := engine.NewSession(eng, plan, store.NewDebouncer(st, cfg.SaveDebounce, logger), logger)
	if err != nil {
		return err
	}
	editErr := session.SwitchScenario(args.scenarioID)
	if editErr == nil {
		editErr = session.SetOverride(args.varID, args.value)
	}
	if err := session.Close(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if editErr != nil {
		return editErr
	}
	return writeJSON(out, session.Result())
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
