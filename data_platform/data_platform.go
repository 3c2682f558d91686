package dataplatform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cepro/capacityplanner/repository"
)

// uploadChunkLimit defines how many runs we upload in one supabase HTTP request
const uploadChunkLimit = 100

// DefaultRunsTable is the supabase table that receives run summaries.
const DefaultRunsTable = "capacity_runs"

// inserter writes rows into a remote table.
type inserter interface {
	Insert(table string, rows interface{}) error
}

// DataPlatform publishes stored run summaries to Supabase. Runs are read from the local repository; successfully
// uploaded runs are marked as such, failed ones have their upload attempt count incremented and are retried on the
// next publish.
type DataPlatform struct {
	repository *repository.Repository
	inserter   inserter
	table      string
}

func New(supabaseUrl, supabaseKey, schema, table string, repo *repository.Repository) *DataPlatform {
	if table == "" {
		table = DefaultRunsTable
	}
	return &DataPlatform{
		repository: repo,
		inserter:   newSupabaseClient(supabaseUrl, supabaseKey, schema),
		table:      table,
	}
}

// Publish uploads every fresh run, then one chunk of runs that have already failed an upload at least once.
func (d *DataPlatform) Publish(ctx context.Context) error {
	var errs []error

	// first upload any new runs that have not been attempted before
	for ctx.Err() == nil {
		freshRuns, err := d.repository.GetRuns(uploadChunkLimit, true)
		if err != nil {
			return fmt.Errorf("query fresh runs: %w", err)
		}
		if len(freshRuns) == 0 {
			break
		}
		if err := d.handleRuns(freshRuns); err != nil {
			slog.Error("Failed to handle fresh runs", "error", err)
			errs = append(errs, err)
			break
		}
	}

	// then retry old runs
	if ctx.Err() == nil {
		oldRuns, err := d.repository.GetRuns(uploadChunkLimit, false)
		if err != nil {
			return fmt.Errorf("query old runs: %w", err)
		}
		if len(oldRuns) > 0 {
			if err := d.handleRuns(oldRuns); err != nil {
				slog.Error("Failed to handle old runs", "error", err)
				errs = append(errs, err)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// handleRuns attempts to upload the given runs. If successful the runs are marked uploaded, if unsuccessful their
// upload attempt count is incremented so they move to the retry queue.
func (d *DataPlatform) handleRuns(runs []repository.StoredRun) error {

	uploadErr := d.inserter.Insert(d.table, convertRuns(runs))
	if uploadErr != nil {
		uploadErr := fmt.Errorf("upload failed: %w", uploadErr)
		errInc := d.repository.IncrementUploadAttemptCount(runs)
		if errInc != nil {
			return fmt.Errorf("%w: increment upload attempt count: %w", uploadErr, errInc)
		}
		return uploadErr
	}

	if err := d.repository.MarkUploaded(runs); err != nil {
		return fmt.Errorf("mark %d runs uploaded: %w", len(runs), err)
	}

	slog.Info("Uploaded runs", "db_table", d.table, "db_records", len(runs))
	return nil
}
