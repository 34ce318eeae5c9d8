package schema

import "time"

// LoadRun is one row of the run log.
type LoadRun struct {
	RunID      string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	DurationMS int64
	FailedStep string
	Error      string
}

func (r LoadRun) Values() []any {
	return []any{r.RunID, r.Status, r.StartedAt, r.FinishedAt, r.DurationMS, emptyAsNull(r.FailedStep), emptyAsNull(r.Error)}
}

var LoadRuns = Table{Layer: Audit, Name: "etl_load_runs", Columns: []Column{
	col("run_id", typeText),
	col("status", typeText),
	col("started_at", typeTimestamp),
	col("finished_at", typeTimestamp),
	col("duration_ms", typeInt),
	col("failed_step", typeText),
	col("error", typeText),
}}

// Tables lists every table in load order: bronze, silver, gold, audit.
func Tables() []Table {
	return []Table{
		BronzeCRMCustomers, BronzeCRMProducts, BronzeCRMSales,
		BronzeERPDemographics, BronzeERPLocations, BronzeERPCategories,
		SilverCRMCustomers, SilverCRMProducts, SilverCRMSales,
		SilverERPDemographics, SilverERPLocations, SilverERPCategories,
		DimCustomers, DimProducts, FactSales,
		LoadRuns,
	}
}
