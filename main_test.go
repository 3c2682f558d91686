package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cepro/capacityplanner/config"
	"github.com/cepro/capacityplanner/repository"
	"github.com/cepro/capacityplanner/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureConfig(t *testing.T) config.Config {
	cfg, err := config.Read("testdata/two_hour/config.yaml")
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.OutputDir = filepath.Join(dir, "results")
	cfg.Database = filepath.Join(dir, "runs.db")
	return cfg
}

func TestRunSolvesAndCombines(t *testing.T) {
	cfg := fixtureConfig(t)
	lpPath := filepath.Join(t.TempDir(), "model.lp")

	require.NoError(t, run(context.Background(), cfg, flags{lpPath: lpPath}))

	_, err := os.Stat(lpPath)
	assert.NoError(t, err)
	for _, suffix := range []string{"generation", "storage", "summary"} {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, "TEST_Nuclear_1_Target_1_00_"+suffix+".csv"))
		assert.NoError(t, err, suffix)
	}

	// a second scenario on the same database
	cfg.Scenario.Target = 0.5
	require.NoError(t, run(context.Background(), cfg, flags{}))

	repo, err := repository.New(cfg.Database)
	require.NoError(t, err)
	runs, err := repo.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.Equal(t, "optimal", r.Termination)
	}

	require.NoError(t, run(context.Background(), cfg, flags{combine: true}))
	_, err = os.Stat(filepath.Join(cfg.OutputDir, "combined", report.IntervalFile))
	assert.NoError(t, err)
}

func TestRunReportsLoadErrors(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Data.StorageData = "missing.csv"

	err := run(context.Background(), cfg, flags{})
	assert.ErrorContains(t, err, "load parameters")
}

func TestRunPublishNeedsKey(t *testing.T) {
	cfg := fixtureConfig(t)
	t.Setenv(config.SupabaseKeyEnv, "")

	err := run(context.Background(), cfg, flags{publish: true})
	assert.ErrorContains(t, err, config.SupabaseKeyEnv)
}
