// Package report turns solved scenarios into the CSV tables read by the downstream reporting tools.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cepro/capacityplanner/results"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Column names shared by the per-scenario tables.
const (
	ColHour       = "Hour"
	ColTechnology = "Technology"
	ColMetric     = "Metric"
	ColValue      = "Value"
)

// GenerationFrame is the system dispatch of one scenario, one row per hour.
func GenerationFrame(r *results.Result) dataframe.DataFrame {
	n := len(r.Dispatch)
	hours := make([]int, n)
	cols := map[string][]float64{}
	names := []string{"Load", "Solar Generation", "Solar Curtailment", "Wind Generation", "Wind Curtailment",
		"Gas CC Generation", "Storage Charge", "Storage Discharge"}
	for _, name := range names {
		cols[name] = make([]float64, n)
	}
	for i, d := range r.Dispatch {
		hours[i] = d.Hour
		cols["Load"][i] = d.Load
		cols["Solar Generation"][i] = d.SolarGeneration
		cols["Solar Curtailment"][i] = d.SolarCurtailment
		cols["Wind Generation"][i] = d.WindGeneration
		cols["Wind Curtailment"][i] = d.WindCurtailment
		cols["Gas CC Generation"][i] = d.GasCCGeneration
		cols["Storage Charge"][i] = d.StorageCharge
		cols["Storage Discharge"][i] = d.StorageDischarge
	}

	columns := []series.Series{series.New(hours, series.Int, ColHour)}
	for _, name := range names {
		columns = append(columns, series.New(cols[name], series.Float, name))
	}
	return dataframe.New(columns...)
}

// StorageFrame is the per-technology storage operation of one scenario, one row per hour and technology.
func StorageFrame(r *results.Result) dataframe.DataFrame {
	n := len(r.Storage)
	var (
		hours     = make([]int, n)
		techs     = make([]string, n)
		charge    = make([]float64, n)
		discharge = make([]float64, n)
		soc       = make([]float64, n)
	)
	for i, s := range r.Storage {
		hours[i] = s.Hour
		techs[i] = string(s.Tech)
		charge[i] = s.Charge
		discharge[i] = s.Discharge
		soc[i] = s.SOC
	}
	return dataframe.New(
		series.New(hours, series.Int, ColHour),
		series.New(techs, series.String, ColTechnology),
		series.New(charge, series.Float, "Charge"),
		series.New(discharge, series.Float, "Discharge"),
		series.New(soc, series.Float, "SOC"),
	)
}

// SummaryFrame lists the summary metrics of one scenario as (Metric, Value) rows.
func SummaryFrame(r *results.Result) dataframe.DataFrame {
	metrics := r.Summary.Metrics()
	names := make([]string, len(metrics))
	values := make([]float64, len(metrics))
	for i, m := range metrics {
		names[i] = m.Name
		values[i] = m.Value
	}
	return dataframe.New(
		series.New(names, series.String, ColMetric),
		series.New(values, series.Float, ColValue),
	)
}

// WriteCSV writes df to path, creating or truncating the file.
func WriteCSV(df dataframe.DataFrame, path string) error {
	if df.Err != nil {
		return fmt.Errorf("write %s: %w", path, df.Err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// fileStem turns a table name into a file name stem.
func fileStem(name string) string {
	return strings.NewReplacer(" ", "_", "/", "_", ".", "_").Replace(name)
}

// WriteScenario writes the generation, storage and summary tables of r into dir and returns the written paths.
func WriteScenario(dir string, r *results.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	stem := fileStem(r.Scenario.Name())
	tables := []struct {
		suffix string
		df     dataframe.DataFrame
	}{
		{"generation", GenerationFrame(r)},
		{"storage", StorageFrame(r)},
		{"summary", SummaryFrame(r)},
	}

	paths := make([]string, 0, len(tables))
	for _, table := range tables {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", stem, table.suffix))
		if err := WriteCSV(table.df, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	slog.Info("Wrote scenario outputs", "scenario", r.Scenario.Name(), "dir", dir, "files", len(paths))
	return paths, nil
}
