package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/cepro/capacityplanner/results"
	"github.com/cepro/capacityplanner/sets"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Column names of the melted cross-scenario tables.
const (
	ColInterval = "Interval"
	ColProperty = "Property"
	ColRegion   = "Region"
	ColNuclear  = "Nuclear"
	ColTarget   = "Target"
)

// Technology labels of the non-storage rows in the melted tables.
const (
	TechSolar = "Solar PV"
	TechWind  = "Wind"
	TechGasCC = "Gas CC"
)

// IntervalItem is one hourly quantity reported across scenarios.
type IntervalItem struct {
	Technology string
	Property   string
	extract    func(r *results.Result) []float64
}

// Name is the title used for the item's wide table, e.g. "Li-Ion Charging".
func (it IntervalItem) Name() string { return it.Technology + " " + it.Property }

// CapacityItem is one per-technology storage size reported across scenarios.
type CapacityItem struct {
	Property string
	extract  func(tc results.TechCapacity) float64
}

func dispatchItem(tech, property string, pick func(d results.DispatchHour) float64) IntervalItem {
	return IntervalItem{
		Technology: tech,
		Property:   property,
		extract: func(r *results.Result) []float64 {
			out := make([]float64, len(r.Dispatch))
			for i, d := range r.Dispatch {
				out[i] = pick(d)
			}
			return out
		},
	}
}

func storageItem(tech sets.StorageTech, property string, pick func(s results.StorageHour) float64) IntervalItem {
	return IntervalItem{
		Technology: string(tech),
		Property:   property,
		extract: func(r *results.Result) []float64 {
			position := make(map[int]int, len(r.Dispatch))
			for i, d := range r.Dispatch {
				position[d.Hour] = i
			}
			out := make([]float64, len(r.Dispatch))
			for _, s := range r.Storage {
				if s.Tech != tech {
					continue
				}
				if i, ok := position[s.Hour]; ok {
					out[i] = pick(s)
				}
			}
			return out
		},
	}
}

// IntervalItems lists the hourly quantities of the cross-scenario tables for the given storage technologies.
func IntervalItems(techs []sets.StorageTech) []IntervalItem {
	items := []IntervalItem{
		dispatchItem(TechSolar, "Generation", func(d results.DispatchHour) float64 { return d.SolarGeneration }),
		dispatchItem(TechSolar, "Curtailment", func(d results.DispatchHour) float64 { return d.SolarCurtailment }),
		dispatchItem(TechWind, "Generation", func(d results.DispatchHour) float64 { return d.WindGeneration }),
		dispatchItem(TechWind, "Curtailment", func(d results.DispatchHour) float64 { return d.WindCurtailment }),
		dispatchItem(TechGasCC, "Generation", func(d results.DispatchHour) float64 { return d.GasCCGeneration }),
	}
	for _, j := range techs {
		items = append(items,
			storageItem(j, "Charging", func(s results.StorageHour) float64 { return s.Charge }),
			storageItem(j, "Discharging", func(s results.StorageHour) float64 { return s.Discharge }),
			storageItem(j, "SOC", func(s results.StorageHour) float64 { return s.SOC }),
		)
	}
	return items
}

// CapacityItems lists the storage sizes of the melted capacity table.
func CapacityItems() []CapacityItem {
	return []CapacityItem{
		{Property: "Charge Power Capacity", extract: func(tc results.TechCapacity) float64 { return tc.ChargePower }},
		{Property: "Discharge Power Capacity", extract: func(tc results.TechCapacity) float64 { return tc.DischargePower }},
		{Property: "Energy Capacity", extract: func(tc results.TechCapacity) float64 { return tc.Energy }},
		{Property: "Duration", extract: func(tc results.TechCapacity) float64 { return tc.Duration }},
	}
}

// storageTechs returns the technologies present in any of rs, in first-seen order.
func storageTechs(rs []*results.Result) []sets.StorageTech {
	var techs []sets.StorageTech
	seen := map[sets.StorageTech]bool{}
	for _, r := range rs {
		for _, tc := range r.Summary.Storage {
			if !seen[tc.Tech] {
				seen[tc.Tech] = true
				techs = append(techs, tc.Tech)
			}
		}
	}
	return techs
}

// checkHours requires distinct scenarios that all cover the same hours in the same order.
func checkHours(rs []*results.Result) ([]int, error) {
	if len(rs) == 0 {
		return nil, fmt.Errorf("no results to combine")
	}
	names := make(map[string]bool, len(rs))
	for _, r := range rs {
		if names[r.Scenario.Name()] {
			return nil, fmt.Errorf("scenario %s appears more than once", r.Scenario.Name())
		}
		names[r.Scenario.Name()] = true
	}
	hours := make([]int, len(rs[0].Dispatch))
	for i, d := range rs[0].Dispatch {
		hours[i] = d.Hour
	}
	for _, r := range rs[1:] {
		if len(r.Dispatch) != len(hours) {
			return nil, fmt.Errorf("scenario %s has %d hours, scenario %s has %d",
				r.Scenario.Name(), len(r.Dispatch), rs[0].Scenario.Name(), len(hours))
		}
		for i, d := range r.Dispatch {
			if d.Hour != hours[i] {
				return nil, fmt.Errorf("scenario %s row %d is hour %d, expected %d", r.Scenario.Name(), i, d.Hour, hours[i])
			}
		}
	}
	return hours, nil
}

// sortScenarios orders results by region, then nuclear flag, then target.
func sortScenarios(rs []*results.Result) []*results.Result {
	sorted := append([]*results.Result(nil), rs...)
	sort.SliceStable(sorted, func(a, b int) bool {
		sa, sb := sorted[a].Scenario, sorted[b].Scenario
		if sa.Region != sb.Region {
			return sa.Region < sb.Region
		}
		if sa.Nuclear != sb.Nuclear {
			return !sa.Nuclear
		}
		return sa.Target < sb.Target
	})
	return sorted
}

// WideFrame is the item over every scenario: an Hour column and one column per scenario name.
func WideFrame(rs []*results.Result, item IntervalItem) (dataframe.DataFrame, error) {
	hours, err := checkHours(rs)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("combine %s: %w", item.Name(), err)
	}
	columns := []series.Series{series.New(hours, series.Int, ColHour)}
	for _, r := range sortScenarios(rs) {
		columns = append(columns, series.New(item.extract(r), series.Float, r.Scenario.Name()))
	}
	df := dataframe.New(columns...)
	if df.Err != nil {
		return df, fmt.Errorf("combine %s: %w", item.Name(), df.Err)
	}
	return df, nil
}

func nuclearFlag(s results.Scenario) int {
	if s.Nuclear {
		return 1
	}
	return 0
}

// IntervalFrame melts every item of every scenario into (Interval, Value, Technology, Property, Region, Nuclear,
// Target) rows.
func IntervalFrame(rs []*results.Result, items []IntervalItem) (dataframe.DataFrame, error) {
	hours, err := checkHours(rs)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("combine intervals: %w", err)
	}

	n := len(rs) * len(items) * len(hours)
	var (
		intervals = make([]int, 0, n)
		values    = make([]float64, 0, n)
		techs     = make([]string, 0, n)
		props     = make([]string, 0, n)
		regions   = make([]string, 0, n)
		nuclear   = make([]int, 0, n)
		targets   = make([]float64, 0, n)
	)
	for _, r := range sortScenarios(rs) {
		for _, item := range items {
			for i, v := range item.extract(r) {
				intervals = append(intervals, hours[i])
				values = append(values, v)
				techs = append(techs, item.Technology)
				props = append(props, item.Property)
				regions = append(regions, r.Scenario.Region)
				nuclear = append(nuclear, nuclearFlag(r.Scenario))
				targets = append(targets, r.Scenario.Target)
			}
		}
	}
	return dataframe.New(
		series.New(intervals, series.Int, ColInterval),
		series.New(values, series.Float, ColValue),
		series.New(techs, series.String, ColTechnology),
		series.New(props, series.String, ColProperty),
		series.New(regions, series.String, ColRegion),
		series.New(nuclear, series.Int, ColNuclear),
		series.New(targets, series.Float, ColTarget),
	), nil
}

// CapacityFrame melts the storage sizes of every scenario into (Technology, Value, Property, Region, Nuclear,
// Target) rows.
func CapacityFrame(rs []*results.Result) dataframe.DataFrame {
	var (
		techs   []string
		values  []float64
		props   []string
		regions []string
		nuclear []int
		targets []float64
	)
	for _, r := range sortScenarios(rs) {
		for _, item := range CapacityItems() {
			for _, tc := range r.Summary.Storage {
				techs = append(techs, string(tc.Tech))
				values = append(values, item.extract(tc))
				props = append(props, item.Property)
				regions = append(regions, r.Scenario.Region)
				nuclear = append(nuclear, nuclearFlag(r.Scenario))
				targets = append(targets, r.Scenario.Target)
			}
		}
	}
	return dataframe.New(
		series.New(techs, series.String, ColTechnology),
		series.New(values, series.Float, ColValue),
		series.New(props, series.String, ColProperty),
		series.New(regions, series.String, ColRegion),
		series.New(nuclear, series.Int, ColNuclear),
		series.New(targets, series.Float, ColTarget),
	)
}

// File names of the melted tables written by WriteCombined.
const (
	IntervalFile = "combined_interval.csv"
	CapacityFile = "combined_capacity.csv"
)

// WriteCombined writes one wide table per interval item plus the melted interval and capacity tables into dir.
func WriteCombined(dir string, rs []*results.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	items := IntervalItems(storageTechs(rs))
	var paths []string
	write := func(df dataframe.DataFrame, name string) error {
		path := filepath.Join(dir, name)
		if err := WriteCSV(df, path); err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	}

	for _, item := range items {
		df, err := WideFrame(rs, item)
		if err != nil {
			return paths, err
		}
		if err := write(df, fileStem(item.Name())+".csv"); err != nil {
			return paths, err
		}
	}

	interval, err := IntervalFrame(rs, items)
	if err != nil {
		return paths, err
	}
	if err := write(interval, IntervalFile); err != nil {
		return paths, err
	}
	if err := write(CapacityFrame(rs), CapacityFile); err != nil {
		return paths, err
	}

	slog.Info("Wrote combined tables", "scenarios", len(rs), "dir", dir, "tables", len(paths))
	return paths, nil
}
