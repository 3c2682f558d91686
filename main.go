package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/cepro/capacityplanner/config"
	dataplatform "github.com/cepro/capacityplanner/data_platform"
	"github.com/cepro/capacityplanner/formulation"
	"github.com/cepro/capacityplanner/report"
	"github.com/cepro/capacityplanner/repository"
	"github.com/cepro/capacityplanner/results"
	"github.com/dustin/go-humanize"
)

// verifyTol is the largest constraint violation on solver output that passes without a warning.
const verifyTol = 1e-4

// maxLoggedViolations bounds the per-constraint warnings after a solve.
const maxLoggedViolations = 10

type flags struct {
	combine bool
	publish bool
	lpPath  string
}

func main() {

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "config.yaml", "path to the YAML run configuration")
	combine := flag.Bool("combine", false, "write the cross-scenario tables from the stored runs instead of solving")
	publish := flag.Bool("publish", false, "upload stored run summaries to the data platform")
	lpPath := flag.String("lp", "", "also write the model in LP format to this path")
	flag.Parse()

	// a .env file next to the config may hold the Supabase key
	if err := config.LoadEnv(filepath.Dir(*configPath)); err != nil {
		slog.Error("Failed to load environment file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Read(*configPath)
	if err != nil {
		slog.Error("Failed to read config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)

	err = run(ctx, cfg, flags{combine: *combine, publish: *publish, lpPath: *lpPath})
	cancel()
	if err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Exiting")
}

func run(ctx context.Context, cfg config.Config, f flags) error {
	repo, err := repository.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}

	if f.combine {
		rs, err := repo.LatestResults()
		if err != nil {
			return fmt.Errorf("load stored runs: %w", err)
		}
		if _, err := report.WriteCombined(filepath.Join(cfg.OutputDir, "combined"), rs); err != nil {
			return fmt.Errorf("write combined tables: %w", err)
		}
	} else {
		res, err := solveScenario(ctx, cfg, f.lpPath)
		if err != nil {
			return err
		}
		if _, err := report.WriteScenario(cfg.OutputDir, res); err != nil {
			return fmt.Errorf("write scenario tables: %w", err)
		}
		if err := repo.AddResult(res); err != nil {
			return fmt.Errorf("store result: %w", err)
		}
		slog.Info("Stored run", "run_id", res.RunID, "scenario", res.Scenario.Name())
	}

	if f.publish {
		key, err := config.SupabaseKey()
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		platform := dataplatform.New(cfg.DataPlatform.Supabase.Url, key, cfg.DataPlatform.Supabase.Schema, cfg.DataPlatform.Table, repo)
		if err := platform.Publish(ctx); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	}
	return nil
}

// solveScenario loads the inputs, builds and solves the model, and extracts the result.
func solveScenario(ctx context.Context, cfg config.Config, lpPath string) (*results.Result, error) {
	logger := slog.Default().With("scenario", cfg.Scenario.Name())

	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("load sets: %w", err)
	}
	store, err := cfg.Store(reg)
	if err != nil {
		return nil, fmt.Errorf("load parameters: %w", err)
	}

	f, err := formulation.Build(reg, store)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}

	if lpPath != "" {
		if err := writeLP(f, lpPath); err != nil {
			return nil, err
		}
		logger.Info("Wrote LP file", "path", lpPath)
	}

	logger.Info("Solving", "backend", cfg.Solver.Backend, "variables", humanize.Comma(int64(f.Model.NumVars())),
		"constraints", humanize.Comma(int64(f.Model.NumConstraints())))
	backend, err := cfg.NewSolver()
	if err != nil {
		return nil, fmt.Errorf("create solver: %w", err)
	}
	start := time.Now()
	sol, err := backend.Solve(ctx, f.Model, cfg.Solver.Options)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	logger.Info("Solver finished", "status", sol.Status, "termination", sol.Termination,
		"duration", time.Since(start).Round(time.Millisecond))

	res, err := results.Extract(f, sol, cfg.Scenario)
	if err != nil {
		return nil, fmt.Errorf("interpret solution: %w", err)
	}

	violations, err := f.Verify(sol.Values, verifyTol)
	if err != nil {
		return nil, fmt.Errorf("verify solution: %w", err)
	}
	for i, v := range violations {
		if i == maxLoggedViolations {
			logger.Warn("More constraint violations not shown", "total", len(violations))
			break
		}
		logger.Warn("Constraint violated by solution", "constraint", v.Constraint, "amount", v.Amount)
	}

	logger.Info("Solved scenario", "total_cost", humanize.Commaf(res.Summary.TotalCost),
		"solar_mw", res.Summary.SolarCapacity, "wind_mw", res.Summary.WindCapacity, "gas_cc_mw", res.Summary.GasCCCapacity)
	return res, nil
}

func writeLP(f *formulation.Formulation, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create LP file: %w", err)
	}
	w := bufio.NewWriter(file)
	if err := f.Model.WriteLP(w); err != nil {
		file.Close()
		return fmt.Errorf("write LP file: %w", err)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("write LP file: %w", err)
	}
	return file.Close()
}
