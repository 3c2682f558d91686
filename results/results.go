package results

import (
	"fmt"
	"time"

	"github.com/cepro/capacityplanner/formulation"
	"github.com/cepro/capacityplanner/params"
	"github.com/cepro/capacityplanner/sets"
	"github.com/cepro/capacityplanner/solver"
	"github.com/google/uuid"
)

// DispatchHour is the system-level operation in one hour, in MW.
type DispatchHour struct {
	Hour             int
	Load             float64
	SolarGeneration  float64
	SolarCurtailment float64
	WindGeneration   float64
	WindCurtailment  float64
	GasCCGeneration  float64
	StorageCharge    float64
	StorageDischarge float64
}

// StorageHour is the operation of one storage technology in one hour.
type StorageHour struct {
	Hour      int
	Tech      sets.StorageTech
	Charge    float64 // MW
	Discharge float64 // MW
	SOC       float64 // MWh
}

// TechCapacity is the built size and annual throughput of one storage technology.
type TechCapacity struct {
	Tech            sets.StorageTech
	ChargePower     float64 // MW
	DischargePower  float64 // MW
	Energy          float64 // MWh
	Duration        float64 // h at full discharge power, 0 when no discharge power is built
	AnnualCharge    float64 // MWh
	AnnualDischarge float64 // MWh
}

// Summary holds the year-level figures of a solved scenario.
type Summary struct {
	TotalCost     float64
	CostBreakdown map[string]float64

	SolarCapacity  float64 // MW
	WindCapacity   float64 // MW
	SolarFractions map[string]float64
	WindFractions  map[string]float64

	GasCCCapacity   float64 // MW
	GasCCGeneration float64 // MWh

	SolarGeneration  float64 // MWh
	SolarCurtailment float64 // MWh
	WindGeneration   float64 // MWh
	WindCurtailment  float64 // MWh

	Storage []TechCapacity
}

// Result is everything reported for one solved scenario.
type Result struct {
	RunID       uuid.UUID
	Scenario    Scenario
	CreatedAt   time.Time
	Termination solver.TerminationCondition
	Dispatch    []DispatchHour
	Storage     []StorageHour
	Summary     Summary
}

// Extract reads the solved values out of sol. Only optimal solutions are extracted; anything else returns the
// error from solver.Interpret.
func Extract(f *formulation.Formulation, sol *solver.Solution, scenario Scenario) (*Result, error) {
	if err := solver.Interpret(sol, f.Model.NumVars()); err != nil {
		return nil, err
	}

	reg := f.Registry
	vars := f.Vars
	value := sol.Value

	r := &Result{
		RunID:       uuid.New(),
		Scenario:    scenario,
		CreatedAt:   time.Now().UTC(),
		Termination: sol.Termination,
		Dispatch:    make([]DispatchHour, 0, reg.NumHours()),
		Storage:     make([]StorageHour, 0, reg.NumHours()*len(reg.StorageTechs())),
	}

	s := &r.Summary
	s.TotalCost = sol.Objective
	s.CostBreakdown = f.CostBreakdown(sol.Values)

	s.SolarFractions = make(map[string]float64, len(reg.SolarSites()))
	for _, k := range reg.SolarSites() {
		y := value(vars.Ypv[k])
		capacity, err := f.Store.SolarProperties.At(params.SiteProperty{Site: k, Property: sets.SiteCapacity})
		if err != nil {
			return nil, fmt.Errorf("extract solar capacity: %w", err)
		}
		s.SolarFractions[k] = y
		s.SolarCapacity += y * capacity
	}
	s.WindFractions = make(map[string]float64, len(reg.WindSites()))
	for _, w := range reg.WindSites() {
		y := value(vars.Ywind[w])
		capacity, err := f.Store.WindProperties.At(params.SiteProperty{Site: w, Property: sets.SiteCapacity})
		if err != nil {
			return nil, fmt.Errorf("extract wind capacity: %w", err)
		}
		s.WindFractions[w] = y
		s.WindCapacity += y * capacity
	}

	techIndex := make(map[sets.StorageTech]int, len(reg.StorageTechs()))
	for _, j := range reg.StorageTechs() {
		props, err := f.Store.Storage(j)
		if err != nil {
			return nil, fmt.Errorf("extract storage %s: %w", j, err)
		}
		tc := TechCapacity{
			Tech:           j,
			ChargePower:    value(vars.Pcha[j]),
			DischargePower: value(vars.Pdis[j]),
			Energy:         value(vars.Ecap[j]),
		}
		if tc.DischargePower > 0 {
			tc.Duration = tc.Energy * props.ChargeEfficiency() / tc.DischargePower
		}
		techIndex[j] = len(s.Storage)
		s.Storage = append(s.Storage, tc)
	}

	for _, h := range reg.Hours() {
		load, err := f.Store.Load.At(h)
		if err != nil {
			return nil, fmt.Errorf("extract load: %w", err)
		}
		d := DispatchHour{
			Hour:             h,
			Load:             load,
			SolarGeneration:  value(vars.GenPV[h]),
			SolarCurtailment: value(vars.CurtPV[h]),
			WindGeneration:   value(vars.GenWind[h]),
			WindCurtailment:  value(vars.CurtWind[h]),
			GasCCGeneration:  value(vars.GenCC[h]),
		}
		for _, j := range reg.StorageTechs() {
			k := formulation.HourTech{Hour: h, Tech: j}
			sh := StorageHour{
				Hour:      h,
				Tech:      j,
				Charge:    value(vars.PC[k]),
				Discharge: value(vars.PD[k]),
				SOC:       value(vars.SOC[k]),
			}
			r.Storage = append(r.Storage, sh)
			d.StorageCharge += sh.Charge
			d.StorageDischarge += sh.Discharge
			s.Storage[techIndex[j]].AnnualCharge += sh.Charge
			s.Storage[techIndex[j]].AnnualDischarge += sh.Discharge
		}
		r.Dispatch = append(r.Dispatch, d)

		s.SolarGeneration += d.SolarGeneration
		s.SolarCurtailment += d.SolarCurtailment
		s.WindGeneration += d.WindGeneration
		s.WindCurtailment += d.WindCurtailment
		s.GasCCGeneration += d.GasCCGeneration
	}
	s.GasCCCapacity = value(vars.CapCC)

	return r, nil
}

// Metric is one named figure of the summary table.
type Metric struct {
	Name  string
	Value float64
}

// Metrics flattens the summary into the rows of the summary table.
func (s Summary) Metrics() []Metric {
	out := []Metric{
		{"Total cost ($)", s.TotalCost},
		{"Solar PV capacity (MW)", s.SolarCapacity},
		{"Wind capacity (MW)", s.WindCapacity},
		{"Gas CC capacity (MW)", s.GasCCCapacity},
		{"Solar PV generation (MWh)", s.SolarGeneration},
		{"Wind generation (MWh)", s.WindGeneration},
		{"Gas CC generation (MWh)", s.GasCCGeneration},
		{"Solar PV curtailment (MWh)", s.SolarCurtailment},
		{"Wind curtailment (MWh)", s.WindCurtailment},
	}
	for _, tc := range s.Storage {
		out = append(out,
			Metric{fmt.Sprintf("%s charge power capacity (MW)", tc.Tech), tc.ChargePower},
			Metric{fmt.Sprintf("%s discharge power capacity (MW)", tc.Tech), tc.DischargePower},
			Metric{fmt.Sprintf("%s energy capacity (MWh)", tc.Tech), tc.Energy},
			Metric{fmt.Sprintf("%s discharge duration (h)", tc.Tech), tc.Duration},
			Metric{fmt.Sprintf("%s total charging energy (MWh)", tc.Tech), tc.AnnualCharge},
			Metric{fmt.Sprintf("%s total discharging energy (MWh)", tc.Tech), tc.AnnualDischarge},
		)
	}
	for _, name := range formulation.CostNames() {
		out = append(out, Metric{fmt.Sprintf("Cost %s ($)", name), s.CostBreakdown[name]})
	}
	return out
}
