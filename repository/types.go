package repository

import (
	"time"

	"github.com/cepro/capacityplanner/results"
	"github.com/google/uuid"
)

// StoredRun is the summary of a solved scenario as persisted to the SQLite database, with a count of upload
// attempts to the data platform.
type StoredRun struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	Region      string
	Nuclear     bool
	Target      float64
	Termination string

	TotalCost        float64
	SolarCapacity    float64
	WindCapacity     float64
	GasCCCapacity    float64
	SolarGeneration  float64
	SolarCurtailment float64
	WindGeneration   float64
	WindCurtailment  float64
	GasCCGeneration  float64

	UploadAttemptCount uint
	Uploaded           bool
}

// Scenario returns the scenario the run solved.
func (r StoredRun) Scenario() results.Scenario {
	return results.Scenario{Region: r.Region, Nuclear: r.Nuclear, Target: r.Target}
}

// StoredCapacity is the built size of one storage technology in a run. Position keeps the technology order.
type StoredCapacity struct {
	ID       uint
	RunID    uuid.UUID `gorm:"index"`
	Position int
	results.TechCapacity
}

// StoredCost is one named objective component of a run.
type StoredCost struct {
	ID    uint
	RunID uuid.UUID `gorm:"index"`
	Name  string
	Value float64
}

// StoredSiteFraction is the built fraction of one solar or wind site in a run.
type StoredSiteFraction struct {
	ID       uint
	RunID    uuid.UUID `gorm:"index"`
	Kind     string
	Site     string
	Fraction float64
}

// Site kinds of StoredSiteFraction.
const (
	SiteSolar = "solar"
	SiteWind  = "wind"
)

// StoredDispatchHour is one hour of system dispatch in a run.
type StoredDispatchHour struct {
	ID    uint
	RunID uuid.UUID `gorm:"index"`
	results.DispatchHour
}

// StoredStorageHour is one hour of one storage technology in a run.
type StoredStorageHour struct {
	ID    uint
	RunID uuid.UUID `gorm:"index"`
	results.StorageHour
}

func newStoredRun(r *results.Result) StoredRun {
	s := r.Summary
	return StoredRun{
		ID:                 r.RunID,
		CreatedAt:          r.CreatedAt,
		Region:             r.Scenario.Region,
		Nuclear:            r.Scenario.Nuclear,
		Target:             r.Scenario.Target,
		Termination:        string(r.Termination),
		TotalCost:          s.TotalCost,
		SolarCapacity:      s.SolarCapacity,
		WindCapacity:       s.WindCapacity,
		GasCCCapacity:      s.GasCCCapacity,
		SolarGeneration:    s.SolarGeneration,
		SolarCurtailment:   s.SolarCurtailment,
		WindGeneration:     s.WindGeneration,
		WindCurtailment:    s.WindCurtailment,
		GasCCGeneration:    s.GasCCGeneration,
		UploadAttemptCount: 0,
	}
}
