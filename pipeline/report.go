package pipeline

import (
	"time"

	"github.com/withObsrvr/medallion-warehouse/conform"
	"github.com/withObsrvr/medallion-warehouse/quality"
	"github.com/withObsrvr/medallion-warehouse/schema"
)

// Status is the lifecycle of a load.
type Status string

const (
	NotStarted Status = "not_started"
	Running    Status = "running"
	Succeeded  Status = "succeeded"
	Failed     Status = "failed"
)

// State is the orchestrator's position in a load. Step is the step running
// or, once failed, the step that failed.
type State struct {
	Status Status
	Step   string
}

// StepResult describes one truncate-and-load of a target table.
type StepResult struct {
	Step       string
	Stage      schema.Layer
	Rows       int64
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Err        error
}

// StageTiming is the wall time of one stage.
type StageTiming struct {
	Stage    schema.Layer
	Duration time.Duration
}

// JoinStats collects the conformance statistics of a run.
type JoinStats struct {
	Customers conform.CustomerStats
	Products  conform.ProductStats
	Facts     conform.FactStats
}

// Report is the outcome of one run.
type Report struct {
	RunID      string
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Steps      []StepResult
	Stages     []StageTiming
	FailedStep string
	Err        error
	Joins      JoinStats
	Quality    []quality.Result
	Exported   []string
}

// StageDuration returns the recorded duration of stage, or zero.
func (r *Report) StageDuration(stage schema.Layer) time.Duration {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s.Duration
		}
	}
	return 0
}

// Rows returns the row count loaded into step, or -1 if the step did not run.
func (r *Report) Rows(step string) int64 {
	for _, s := range r.Steps {
		if s.Step == step {
			return s.Rows
		}
	}
	return -1
}

// LoadRun converts the report to a run-log row.
func (r *Report) LoadRun() schema.LoadRun {
	run := schema.LoadRun{
		RunID:      r.RunID,
		Status:     string(r.Status),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMS: r.Duration.Milliseconds(),
		FailedStep: r.FailedStep,
	}
	if r.Err != nil {
		run.Error = r.Err.Error()
	}
	return run
}
