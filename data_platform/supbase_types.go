package dataplatform

import (
	"time"

	"github.com/cepro/capacityplanner/repository"
	"github.com/google/uuid"
)

// supabaseRun holds the json encoding schema for a run summary in supabase.
type supabaseRun struct {
	ID               uuid.UUID `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Scenario         string    `json:"scenario"`
	Region           string    `json:"region"`
	Nuclear          bool      `json:"nuclear"`
	Target           float64   `json:"target"`
	Termination      string    `json:"termination"`
	TotalCost        float64   `json:"total_cost"`
	SolarCapacity    float64   `json:"solar_capacity_mw"`
	WindCapacity     float64   `json:"wind_capacity_mw"`
	GasCCCapacity    float64   `json:"gas_cc_capacity_mw"`
	SolarGeneration  float64   `json:"solar_generation_mwh"`
	SolarCurtailment float64   `json:"solar_curtailment_mwh"`
	WindGeneration   float64   `json:"wind_generation_mwh"`
	WindCurtailment  float64   `json:"wind_curtailment_mwh"`
	GasCCGeneration  float64   `json:"gas_cc_generation_mwh"`
}

func convertRuns(runs []repository.StoredRun) []supabaseRun {
	var supabaseRuns []supabaseRun
	for _, run := range runs {
		supabaseRuns = append(supabaseRuns, supabaseRun{
			ID:               run.ID,
			CreatedAt:        run.CreatedAt,
			Scenario:         run.Scenario().Name(),
			Region:           run.Region,
			Nuclear:          run.Nuclear,
			Target:           run.Target,
			Termination:      run.Termination,
			TotalCost:        run.TotalCost,
			SolarCapacity:    run.SolarCapacity,
			WindCapacity:     run.WindCapacity,
			GasCCCapacity:    run.GasCCCapacity,
			SolarGeneration:  run.SolarGeneration,
			SolarCurtailment: run.SolarCurtailment,
			WindGeneration:   run.WindGeneration,
			WindCurtailment:  run.WindCurtailment,
			GasCCGeneration:  run.GasCCGeneration,
		})
	}
	return supabaseRuns
}
