// Package runlog appends one audit row per warehouse load.
package runlog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/withObsrvr/medallion-warehouse/schema"
	"github.com/withObsrvr/medallion-warehouse/store"
)

// Recorder writes load runs to the audit table of a store.
type Recorder struct {
	store  store.Store
	logger *zap.Logger
}

// NewRecorder creates a recorder on st.
func NewRecorder(st store.Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: st, logger: logger}
}

// Init creates the audit table if it does not exist.
func (r *Recorder) Init(ctx context.Context) error {
	if err := r.store.Prepare(ctx, []schema.Table{schema.LoadRuns}); err != nil {
		return fmt.Errorf("failed to create run log table: %w", err)
	}
	return nil
}

// Record appends run. Earlier runs are never rewritten.
func (r *Recorder) Record(ctx context.Context, run schema.LoadRun) error {
	if _, err := r.store.Append(ctx, schema.LoadRuns, []schema.Row{run}); err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}

	r.logger.Debug("Recorded load run",
		zap.String("run_id", run.RunID),
		zap.String("status", run.Status))
	return nil
}

// CountByStatus returns how many logged runs have status.
func CountByStatus(ctx context.Context, q store.Querier, status string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE status = %s", q.Qualified(schema.LoadRuns), literal(status))
	n, err := q.QueryInt(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s runs: %w", status, err)
	}
	return n, nil
}

func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
