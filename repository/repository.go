package repository

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cepro/capacityplanner/results"
	"github.com/cepro/capacityplanner/solver"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// batchSize bounds the rows per INSERT so that a full year of hourly rows stays within SQLite's variable limit.
const batchSize = 500

// Repository stores solved runs to the local file system (sqlite). Runs are later published to Supabase.
type Repository struct {
	db *gorm.DB
}

func New(path string) (*Repository, error) {

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Migrate the schema
	err = db.AutoMigrate(&StoredRun{}, &StoredCapacity{}, &StoredCost{}, &StoredSiteFraction{}, &StoredDispatchHour{}, &StoredStorageHour{})
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Repository{
		db: db,
	}, nil
}

// AddResult persists the run summary together with its hourly tables in one transaction.
func (r *Repository) AddResult(res *results.Result) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		run := newStoredRun(res)
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("store run: %w", err)
		}

		capacities := make([]StoredCapacity, len(res.Summary.Storage))
		for i, tc := range res.Summary.Storage {
			capacities[i] = StoredCapacity{RunID: res.RunID, Position: i, TechCapacity: tc}
		}
		if err := createAll(tx, capacities); err != nil {
			return fmt.Errorf("store capacities: %w", err)
		}

		var costs []StoredCost
		for name, value := range res.Summary.CostBreakdown {
			costs = append(costs, StoredCost{RunID: res.RunID, Name: name, Value: value})
		}
		if err := createAll(tx, costs); err != nil {
			return fmt.Errorf("store costs: %w", err)
		}

		var fractions []StoredSiteFraction
		for site, f := range res.Summary.SolarFractions {
			fractions = append(fractions, StoredSiteFraction{RunID: res.RunID, Kind: SiteSolar, Site: site, Fraction: f})
		}
		for site, f := range res.Summary.WindFractions {
			fractions = append(fractions, StoredSiteFraction{RunID: res.RunID, Kind: SiteWind, Site: site, Fraction: f})
		}
		if err := createAll(tx, fractions); err != nil {
			return fmt.Errorf("store site fractions: %w", err)
		}

		dispatch := make([]StoredDispatchHour, len(res.Dispatch))
		for i, d := range res.Dispatch {
			dispatch[i] = StoredDispatchHour{RunID: res.RunID, DispatchHour: d}
		}
		if err := createAll(tx, dispatch); err != nil {
			return fmt.Errorf("store dispatch: %w", err)
		}

		storage := make([]StoredStorageHour, len(res.Storage))
		for i, s := range res.Storage {
			storage[i] = StoredStorageHour{RunID: res.RunID, StorageHour: s}
		}
		if err := createAll(tx, storage); err != nil {
			return fmt.Errorf("store storage operation: %w", err)
		}
		return nil
	})
}

func createAll[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, batchSize).Error
}

// ListRuns returns every stored run, newest first.
func (r *Repository) ListRuns() ([]StoredRun, error) {
	var runs []StoredRun
	result := r.db.Order("created_at desc").Find(&runs)
	if result.Error != nil {
		return nil, result.Error
	}
	return runs, nil
}

// ErrRunNotFound is returned by LoadResult for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// LoadResult rebuilds the full result of a stored run.
func (r *Repository) LoadResult(id uuid.UUID) (*results.Result, error) {
	var run StoredRun
	result := r.db.Where("id = ?", id).Limit(1).Find(&run)
	if result.Error != nil {
		return nil, fmt.Errorf("load run %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("load run %s: %w", id, ErrRunNotFound)
	}

	res := &results.Result{
		RunID:       run.ID,
		Scenario:    run.Scenario(),
		CreatedAt:   run.CreatedAt,
		Termination: solver.TerminationCondition(run.Termination),
		Summary: results.Summary{
			TotalCost:        run.TotalCost,
			CostBreakdown:    map[string]float64{},
			SolarCapacity:    run.SolarCapacity,
			WindCapacity:     run.WindCapacity,
			SolarFractions:   map[string]float64{},
			WindFractions:    map[string]float64{},
			GasCCCapacity:    run.GasCCCapacity,
			GasCCGeneration:  run.GasCCGeneration,
			SolarGeneration:  run.SolarGeneration,
			SolarCurtailment: run.SolarCurtailment,
			WindGeneration:   run.WindGeneration,
			WindCurtailment:  run.WindCurtailment,
		},
	}

	var capacities []StoredCapacity
	if err := r.db.Where("run_id = ?", id).Order("position asc").Find(&capacities).Error; err != nil {
		return nil, fmt.Errorf("load capacities of run %s: %w", id, err)
	}
	for _, c := range capacities {
		res.Summary.Storage = append(res.Summary.Storage, c.TechCapacity)
	}

	var costs []StoredCost
	if err := r.db.Where("run_id = ?", id).Find(&costs).Error; err != nil {
		return nil, fmt.Errorf("load costs of run %s: %w", id, err)
	}
	for _, c := range costs {
		res.Summary.CostBreakdown[c.Name] = c.Value
	}

	var fractions []StoredSiteFraction
	if err := r.db.Where("run_id = ?", id).Find(&fractions).Error; err != nil {
		return nil, fmt.Errorf("load site fractions of run %s: %w", id, err)
	}
	for _, f := range fractions {
		switch f.Kind {
		case SiteSolar:
			res.Summary.SolarFractions[f.Site] = f.Fraction
		case SiteWind:
			res.Summary.WindFractions[f.Site] = f.Fraction
		}
	}

	var dispatch []StoredDispatchHour
	if err := r.db.Where("run_id = ?", id).Order("hour asc").Find(&dispatch).Error; err != nil {
		return nil, fmt.Errorf("load dispatch of run %s: %w", id, err)
	}
	res.Dispatch = make([]results.DispatchHour, len(dispatch))
	for i, d := range dispatch {
		res.Dispatch[i] = d.DispatchHour
	}

	var storage []StoredStorageHour
	if err := r.db.Where("run_id = ?", id).Order("id asc").Find(&storage).Error; err != nil {
		return nil, fmt.Errorf("load storage operation of run %s: %w", id, err)
	}
	res.Storage = make([]results.StorageHour, len(storage))
	for i, s := range storage {
		res.Storage[i] = s.StorageHour
	}

	return res, nil
}

// LatestResults loads the newest run of every scenario, ordered by scenario name.
func (r *Repository) LatestResults() ([]*results.Result, error) {
	runs, err := r.ListRuns()
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	seen := map[string]bool{}
	var out []*results.Result
	for _, run := range runs {
		name := run.Scenario().Name()
		if seen[name] {
			continue
		}
		seen[name] = true
		res, err := r.LoadResult(run.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Scenario.Name() < out[b].Scenario.Name() })
	return out, nil
}

// GetRuns returns up to limit runs that are still to be uploaded. Fresh runs have never been attempted; the others
// have failed at least once.
func (r *Repository) GetRuns(limit int, fresh bool) ([]StoredRun, error) {
	var runs []StoredRun

	query := r.db.Limit(limit).Order("upload_attempt_count asc, created_at desc").Where("uploaded = ?", false)
	if fresh {
		query = query.Where("upload_attempt_count = ?", 0)
	} else {
		query = query.Where("upload_attempt_count > ?", 0)
	}
	result := query.Find(&runs)
	if result.Error != nil {
		return nil, result.Error
	}
	return runs, nil
}

func runIDs(runs []StoredRun) []uuid.UUID {
	ids := make([]uuid.UUID, len(runs))
	for i, run := range runs {
		ids[i] = run.ID
	}
	return ids
}

func (r *Repository) IncrementUploadAttemptCount(runs []StoredRun) error {
	if len(runs) == 0 {
		return nil
	}
	result := r.db.Model(&StoredRun{}).Where("id IN ?", runIDs(runs)).UpdateColumn("upload_attempt_count", gorm.Expr("upload_attempt_count + ?", 1))
	return result.Error
}

// MarkUploaded flags the runs as published so they leave the upload queue. The rows themselves are kept for
// LoadResult.
func (r *Repository) MarkUploaded(runs []StoredRun) error {
	if len(runs) == 0 {
		return nil
	}
	result := r.db.Model(&StoredRun{}).Where("id IN ?", runIDs(runs)).UpdateColumn("uploaded", true)
	return result.Error
}
