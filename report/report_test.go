package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cepro/capacityplanner/results"
	"github.com/cepro/capacityplanner/sets"
	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoHourResult is a hand-built result: solar covers hour 1 and charges Li-Ion, which discharges in hour 2.
func twoHourResult(scenario results.Scenario, scale float64) *results.Result {
	return &results.Result{
		Scenario: scenario,
		Dispatch: []results.DispatchHour{
			{Hour: 1, Load: 10, SolarGeneration: 20 * scale, StorageCharge: 10 * scale},
			{Hour: 2, Load: 10, GasCCGeneration: 10 - 10*scale, StorageDischarge: 10 * scale},
		},
		Storage: []results.StorageHour{
			{Hour: 1, Tech: sets.LiIon, Charge: 10 * scale, SOC: 10 * scale},
			{Hour: 2, Tech: sets.LiIon, Discharge: 10 * scale},
		},
		Summary: results.Summary{
			TotalCost:     100 * scale,
			CostBreakdown: map[string]float64{},
			SolarCapacity: 20 * scale,
			Storage: []results.TechCapacity{{
				Tech:            sets.LiIon,
				ChargePower:     10 * scale,
				DischargePower:  10 * scale,
				Energy:          10 * scale,
				Duration:        1,
				AnnualCharge:    10 * scale,
				AnnualDischarge: 10 * scale,
			}},
		},
	}
}

func TestScenarioFrames(t *testing.T) {
	r := twoHourResult(results.Scenario{Region: "ERCOT", Nuclear: true, Target: 1}, 1)

	gen := GenerationFrame(r)
	require.NoError(t, gen.Err)
	assert.Equal(t, 2, gen.Nrow())
	assert.Equal(t, []string{"Hour", "Load", "Solar Generation", "Solar Curtailment", "Wind Generation",
		"Wind Curtailment", "Gas CC Generation", "Storage Charge", "Storage Discharge"}, gen.Names())
	assert.Equal(t, []float64{20, 0}, gen.Col("Solar Generation").Float())
	assert.Equal(t, []float64{0, 10}, gen.Col("Storage Discharge").Float())

	storage := StorageFrame(r)
	require.NoError(t, storage.Err)
	assert.Equal(t, 2, storage.Nrow())
	assert.Equal(t, []string{"Li-Ion", "Li-Ion"}, storage.Col(ColTechnology).Records())
	assert.Equal(t, []float64{10, 0}, storage.Col("SOC").Float())

	summary := SummaryFrame(r)
	require.NoError(t, summary.Err)
	assert.Equal(t, len(r.Summary.Metrics()), summary.Nrow())
	assert.Equal(t, "Total cost ($)", summary.Col(ColMetric).Records()[0])
	assert.Equal(t, 100.0, summary.Col(ColValue).Float()[0])
}

func TestWriteScenario(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r := twoHourResult(results.Scenario{Region: "ERCOT", Nuclear: true, Target: 0.95}, 1)

	paths, err := WriteScenario(dir, r)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "ERCOT_Nuclear_1_Target_0_95_generation.csv"),
		filepath.Join(dir, "ERCOT_Nuclear_1_Target_0_95_storage.csv"),
		filepath.Join(dir, "ERCOT_Nuclear_1_Target_0_95_summary.csv"),
	}, paths)

	f, err := os.Open(paths[0])
	require.NoError(t, err)
	defer f.Close()
	df := dataframe.ReadCSV(f)
	require.NoError(t, df.Err)
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, []float64{10, 10}, df.Col("Load").Float())
}

func TestWideFrame(t *testing.T) {
	rs := []*results.Result{
		twoHourResult(results.Scenario{Region: "PJM", Nuclear: true, Target: 1}, 1),
		twoHourResult(results.Scenario{Region: "PJM", Nuclear: false, Target: 1}, 0.5),
		twoHourResult(results.Scenario{Region: "CAISO", Nuclear: true, Target: 0.75}, 0),
	}
	items := IntervalItems([]sets.StorageTech{sets.LiIon})
	var charging IntervalItem
	for _, item := range items {
		if item.Name() == "Li-Ion Charging" {
			charging = item
		}
	}
	require.Equal(t, "Charging", charging.Property)

	df, err := WideFrame(rs, charging)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hour", "CAISO Nuclear 1 Target 0.75", "PJM Nuclear 0 Target 1.00", "PJM Nuclear 1 Target 1.00"}, df.Names())
	assert.Equal(t, []float64{5, 0}, df.Col("PJM Nuclear 0 Target 1.00").Float())
	assert.Equal(t, []float64{10, 0}, df.Col("PJM Nuclear 1 Target 1.00").Float())
}

func TestCombineErrors(t *testing.T) {
	item := IntervalItems(nil)[0]

	_, err := WideFrame(nil, item)
	assert.ErrorContains(t, err, "no results")

	short := twoHourResult(results.Scenario{Region: "SPP"}, 1)
	short.Dispatch = short.Dispatch[:1]
	_, err = WideFrame([]*results.Result{twoHourResult(results.Scenario{Region: "MISO"}, 1), short}, item)
	assert.ErrorContains(t, err, "has 1 hours")

	duplicate := []*results.Result{
		twoHourResult(results.Scenario{Region: "MISO"}, 1),
		twoHourResult(results.Scenario{Region: "MISO"}, 1),
	}
	_, err = WideFrame(duplicate, item)
	assert.ErrorContains(t, err, "more than once")
}

func TestMeltedFrames(t *testing.T) {
	rs := []*results.Result{
		twoHourResult(results.Scenario{Region: "NYISO", Nuclear: true, Target: 1}, 1),
		twoHourResult(results.Scenario{Region: "ISONE", Nuclear: false, Target: 0.9}, 0.5),
	}
	items := IntervalItems(storageTechs(rs))
	assert.Len(t, items, 8)

	interval, err := IntervalFrame(rs, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"Interval", "Value", "Technology", "Property", "Region", "Nuclear", "Target"}, interval.Names())
	assert.Equal(t, 2*8*2, interval.Nrow())
	// ISONE sorts first; its first item is solar generation
	assert.Equal(t, []string{"ISONE", "ISONE"}, interval.Col(ColRegion).Records()[:2])
	assert.Equal(t, []float64{10, 0}, interval.Col(ColValue).Float()[:2])
	assert.Equal(t, "0", interval.Col(ColNuclear).Records()[0])

	capacity := CapacityFrame(rs)
	require.NoError(t, capacity.Err)
	assert.Equal(t, 2*4, capacity.Nrow())
	assert.Equal(t, []string{"Charge Power Capacity", "Discharge Power Capacity", "Energy Capacity", "Duration"},
		capacity.Col(ColProperty).Records()[:4])
	assert.Equal(t, []float64{5, 5, 5, 1}, capacity.Col(ColValue).Float()[:4])
}

func TestWriteCombined(t *testing.T) {
	dir := t.TempDir()
	rs := []*results.Result{
		twoHourResult(results.Scenario{Region: "NYISO", Nuclear: true, Target: 1}, 1),
		twoHourResult(results.Scenario{Region: "NYISO", Nuclear: true, Target: 0.8}, 0.5),
	}

	paths, err := WriteCombined(dir, rs)
	require.NoError(t, err)
	assert.Len(t, paths, 8+2)
	assert.Contains(t, paths, filepath.Join(dir, "Li-Ion_SOC.csv"))
	assert.Contains(t, paths, filepath.Join(dir, "Gas_CC_Generation.csv"))
	assert.Contains(t, paths, filepath.Join(dir, IntervalFile))
	assert.Contains(t, paths, filepath.Join(dir, CapacityFile))

	for _, path := range paths {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}
}
