// Package quality runs data-quality checks over the warehouse. Checks only
// report; they never change data or fail a load.
package quality

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Check validates one aspect of the warehouse.
type Check interface {
	// Name returns the unique identifier for this check
	Name() string

	// Type returns the category of check (uniqueness, consistency, validity, completeness)
	Type() string

	// Run executes the check and returns a result
	Run(ctx context.Context) Result
}

// Completeness is the type of checks that only inform: unresolved
// references are expected and counted, not treated as errors.
const Completeness = "completeness"

// Result holds the outcome of a check.
type Result struct {
	CheckName     string
	CheckType     string
	Passed        bool
	Details       string
	RowCount      int
	NullAnomalies int
	Dataset       string // table the check ran against, e.g. "gold.fact_sales"
	CreatedAt     time.Time
}

// RunAll runs every check in order and logs the failures.
func RunAll(ctx context.Context, checks []Check, logger *zap.Logger) []Result {
	results := make([]Result, 0, len(checks))
	failed := 0
	for _, c := range checks {
		r := c.Run(ctx)
		if !r.Passed {
			failed++
			logger.Warn("Quality check failed",
				zap.String("check", r.CheckName),
				zap.String("dataset", r.Dataset),
				zap.String("details", r.Details))
		}
		results = append(results, r)
	}

	logger.Info("Quality checks complete",
		zap.Int("checks", len(results)),
		zap.Int("failed", failed))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// Blocking returns the failed results that are errors, leaving out
// completeness checks.
func Blocking(results []Result) []Result {
	var out []Result
	for _, r := range Failed(results) {
		if r.CheckType != Completeness {
			out = append(out, r)
		}
	}
	return out
}
