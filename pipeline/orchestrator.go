// Package pipeline runs the full warehouse load: raw ingestion into bronze,
// cleansing into silver, and conformance into the gold star schema. Every
// run truncates and reloads each target; the first failure stops the run.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/withObsrvr/medallion-warehouse/cleanse"
	"github.com/withObsrvr/medallion-warehouse/conform"
	"github.com/withObsrvr/medallion-warehouse/feed"
	"github.com/withObsrvr/medallion-warehouse/quality"
	"github.com/withObsrvr/medallion-warehouse/schema"
	"github.com/withObsrvr/medallion-warehouse/store"
)

// ErrAlreadyRunning is returned when Run is called during another run.
var ErrAlreadyRunning = errors.New("a load is already running")

// Observer receives step and run measurements.
type Observer interface {
	ObserveStep(stage, table string, rows int64, d time.Duration, err error)
	ObserveRun(status string, d time.Duration)
	ObserveUnresolved(reference string, n int)
	ObserveCheck(name string, passed bool)
}

// RunRecorder appends a finished run to the run log.
type RunRecorder interface {
	Record(ctx context.Context, run schema.LoadRun) error
}

// Exporter writes the gold layer somewhere outside the store and returns
// the written locations.
type Exporter interface {
	Export(ctx context.Context, gold schema.GoldSet) ([]string, error)
}

type Option func(*Orchestrator)

func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

func WithRunRecorder(rec RunRecorder) Option {
	return func(o *Orchestrator) { o.recorder = rec }
}

func WithExporter(exp Exporter) Option {
	return func(o *Orchestrator) { o.exporter = exp }
}

// WithClock replaces time.Now for timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator sequences the fifteen load steps.
type Orchestrator struct {
	source   feed.Source
	store    store.Store
	logger   *zap.Logger
	observer Observer
	recorder RunRecorder
	exporter Exporter
	now      func() time.Time

	mu    sync.RWMutex
	state State
	last  *Report
}

func New(source feed.Source, st store.Store, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:   source,
		store:    st,
		logger:   logger,
		observer: nopObserver{},
		now:      time.Now,
		state:    State{Status: NotStarted},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// LastReport returns the report of the most recent finished run, or nil.
func (o *Orchestrator) LastReport() *Report {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last
}

func (o *Orchestrator) setState(status Status, step string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = State{Status: status, Step: step}
}

// run carries the record sets of one load from stage to stage.
type run struct {
	report      *Report
	logger      *zap.Logger
	processedAt time.Time
	step        string

	bronze struct {
		customers    []schema.CRMCustomerRaw
		products     []schema.CRMProductRaw
		sales        []schema.CRMSaleRaw
		demographics []schema.ERPDemographicRaw
		locations    []schema.ERPLocationRaw
		categories   []schema.ERPCategoryRaw
	}
	silver struct {
		customers    []schema.CRMCustomer
		products     []schema.CRMProduct
		sales        []schema.CRMSale
		demographics []schema.ERPDemographic
		locations    []schema.ERPLocation
		categories   []schema.ERPCategory
	}
	gold schema.GoldSet
}

// Run performs one full load. The returned report is complete even when the
// run fails; the error is a *FeedError or a *TransformError.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	o.mu.Lock()
	if o.state.Status == Running {
		o.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	o.state = State{Status: Running}
	o.mu.Unlock()

	start := o.now()
	r := &run{
		report:      &Report{RunID: uuid.NewString(), Status: Running, StartedAt: start},
		processedAt: start.UTC(),
	}
	r.logger = o.logger.With(zap.String("run_id", r.report.RunID))
	r.logger.Info("🚀 Starting warehouse load")

	err := o.load(ctx, r)

	rep := r.report
	rep.FinishedAt = o.now()
	rep.Duration = rep.FinishedAt.Sub(rep.StartedAt)
	if err != nil {
		rep.Status = Failed
		rep.Err = err
		rep.FailedStep = r.step
		o.setState(Failed, r.step)
		r.logger.Error("❌ Warehouse load failed",
			zap.String("step", r.step),
			zap.Duration("duration", rep.Duration),
			zap.Error(err))
	} else {
		rep.Status = Succeeded
		o.setState(Succeeded, "")
		r.logger.Info("✅ Warehouse load complete",
			zap.Duration("bronze", rep.StageDuration(schema.Bronze)),
			zap.Duration("silver", rep.StageDuration(schema.Silver)),
			zap.Duration("gold", rep.StageDuration(schema.Gold)),
			zap.Duration("duration", rep.Duration))
	}

	o.observer.ObserveRun(string(rep.Status), rep.Duration)
	o.record(ctx, r)

	o.mu.Lock()
	o.last = rep
	o.mu.Unlock()
	return rep, err
}

func (o *Orchestrator) load(ctx context.Context, r *run) error {
	if err := o.store.Prepare(ctx, schema.Tables()); err != nil {
		r.step = "prepare"
		return &TransformError{Step: r.step, Err: errors.Wrap(err, "prepare warehouse tables")}
	}

	stages := []struct {
		layer schema.Layer
		fn    func(context.Context, *run) error
	}{
		{schema.Bronze, o.loadBronze},
		{schema.Silver, o.loadSilver},
		{schema.Gold, o.loadGold},
	}

	for _, s := range stages {
		r.logger.Info("→ Starting stage", zap.String("stage", string(s.layer)))
		start := o.now()
		err := s.fn(ctx, r)
		d := o.now().Sub(start)
		r.report.Stages = append(r.report.Stages, StageTiming{Stage: s.layer, Duration: d})
		if err != nil {
			return err
		}
		r.logger.Info("✅ Stage complete", zap.String("stage", string(s.layer)), zap.Duration("duration", d))
	}

	o.afterLoad(ctx, r)
	return nil
}

// step rebuilds one table from the rows produced by build.
func (o *Orchestrator) step(ctx context.Context, r *run, table schema.Table, build func() ([]schema.Row, error)) error {
	name := table.String()
	r.step = name
	o.setState(Running, name)

	if err := ctx.Err(); err != nil {
		return &TransformError{Step: name, Err: err}
	}

	res := StepResult{Step: name, Stage: table.Layer, StartedAt: o.now()}
	rows, err := build()
	if err != nil {
		var fe *FeedError
		if !errors.As(err, &fe) {
			err = &TransformError{Step: name, Err: err}
		}
	} else {
		res.Rows, err = o.store.Rebuild(ctx, table, rows)
		if err != nil {
			err = &TransformError{Step: name, Err: errors.Wrapf(err, "rebuild %s", name)}
		}
	}
	res.FinishedAt = o.now()
	res.Duration = res.FinishedAt.Sub(res.StartedAt)
	res.Err = err

	r.report.Steps = append(r.report.Steps, res)
	o.observer.ObserveStep(string(table.Layer), table.Name, res.Rows, res.Duration, err)
	if err != nil {
		return err
	}

	r.logger.Info("✅ Loaded table",
		zap.String("table", name),
		zap.Int64("rows", res.Rows),
		zap.Duration("duration", res.Duration))
	return nil
}

func (o *Orchestrator) loadBronze(ctx context.Context, r *run) error {
	b := &r.bronze
	loads := []struct {
		feed  feed.Feed
		parse func(*feed.RowSet) ([]schema.Row, error)
	}{
		{feed.CRMCustomers, func(rs *feed.RowSet) (rows []schema.Row, err error) {
			b.customers, err = feed.ParseCRMCustomers(rs)
			return schema.Rows(b.customers), err
		}},
		{feed.CRMProducts, func(rs *feed.RowSet) (rows []schema.Row, err error) {
			b.products, err = feed.ParseCRMProducts(rs)
			return schema.Rows(b.products), err
		}},
		{feed.CRMSales, func(rs *feed.RowSet) (rows []schema.Row, err error) {
			b.sales, err = feed.ParseCRMSales(rs)
			return schema.Rows(b.sales), err
		}},
		{feed.ERPDemographics, func(rs *feed.RowSet) (rows []schema.Row, err error) {
			b.demographics, err = feed.ParseERPDemographics(rs)
			return schema.Rows(b.demographics), err
		}},
		{feed.ERPLocations, func(rs *feed.RowSet) (rows []schema.Row, err error) {
			b.locations, err = feed.ParseERPLocations(rs)
			return schema.Rows(b.locations), err
		}},
		{feed.ERPCategories, func(rs *feed.RowSet) (rows []schema.Row, err error) {
			b.categories, err = feed.ParseERPCategories(rs)
			return schema.Rows(b.categories), err
		}},
	}

	for _, l := range loads {
		err := o.step(ctx, r, l.feed.Table, func() ([]schema.Row, error) {
			rs, err := o.source.Read(ctx, l.feed)
			if err != nil {
				return nil, &FeedError{Feed: l.feed.Name, Err: err}
			}
			rows, err := l.parse(rs)
			if err != nil {
				return nil, &FeedError{Feed: l.feed.Name, Err: errors.Wrap(err, "parse")}
			}
			return rows, nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) loadSilver(ctx context.Context, r *run) error {
	b, s, at := &r.bronze, &r.silver, r.processedAt

	loads := []struct {
		table schema.Table
		build func() ([]schema.Row, int)
	}{
		{schema.SilverCRMCustomers, func() ([]schema.Row, int) {
			s.customers = cleanse.Customers(b.customers, at)
			return schema.Rows(s.customers), len(b.customers)
		}},
		{schema.SilverCRMProducts, func() ([]schema.Row, int) {
			s.products = cleanse.Products(b.products, at)
			return schema.Rows(s.products), len(b.products)
		}},
		{schema.SilverCRMSales, func() ([]schema.Row, int) {
			s.sales = cleanse.Sales(b.sales, at)
			return schema.Rows(s.sales), len(b.sales)
		}},
		{schema.SilverERPDemographics, func() ([]schema.Row, int) {
			s.demographics = cleanse.Demographics(b.demographics, at)
			return schema.Rows(s.demographics), len(b.demographics)
		}},
		{schema.SilverERPLocations, func() ([]schema.Row, int) {
			s.locations = cleanse.Locations(b.locations, at)
			return schema.Rows(s.locations), len(b.locations)
		}},
		{schema.SilverERPCategories, func() ([]schema.Row, int) {
			s.categories = cleanse.Categories(b.categories, at)
			return schema.Rows(s.categories), len(b.categories)
		}},
	}

	for _, l := range loads {
		err := o.step(ctx, r, l.table, func() ([]schema.Row, error) {
			rows, raw := l.build()
			if dropped := raw - len(rows); dropped > 0 {
				r.logger.Info("Dropped raw rows during cleansing",
					zap.String("table", l.table.String()),
					zap.Int("raw", raw),
					zap.Int("dropped", dropped))
			}
			return rows, nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) loadGold(ctx context.Context, r *run) error {
	s, g, joins := &r.silver, &r.gold, &r.report.Joins

	loads := []struct {
		table schema.Table
		build func() ([]schema.Row, error)
	}{
		{schema.DimCustomers, func() ([]schema.Row, error) {
			dims, stats, err := conform.BuildCustomerDimension(s.customers, s.demographics, s.locations)
			if err != nil {
				return nil, err
			}
			g.Customers, joins.Customers = dims, stats
			if stats.ERPOnlyDemographics > 0 || stats.ERPOnlyLocations > 0 {
				r.logger.Info("ERP-only customers excluded from dimension",
					zap.Int("demographics", stats.ERPOnlyDemographics),
					zap.Int("locations", stats.ERPOnlyLocations))
			}
			return schema.Rows(dims), nil
		}},
		{schema.DimProducts, func() ([]schema.Row, error) {
			dims, stats, err := conform.BuildProductDimension(s.products, s.categories)
			if err != nil {
				return nil, err
			}
			g.Products, joins.Products = dims, stats
			return schema.Rows(dims), nil
		}},
		{schema.FactSales, func() ([]schema.Row, error) {
			facts, stats, err := conform.BuildSalesFact(s.sales, g.Customers, g.Products)
			if err != nil {
				return nil, err
			}
			g.Sales, joins.Facts = facts, stats
			o.observer.ObserveUnresolved("customer", stats.UnresolvedCustomers)
			o.observer.ObserveUnresolved("product", stats.UnresolvedProducts)
			if stats.UnresolvedCustomers > 0 || stats.UnresolvedProducts > 0 {
				r.logger.Warn("Sales lines with unresolved references",
					zap.Int("customers", stats.UnresolvedCustomers),
					zap.Int("products", stats.UnresolvedProducts))
			}
			return schema.Rows(facts), nil
		}},
	}

	for _, l := range loads {
		if err := o.step(ctx, r, l.table, l.build); err != nil {
			return err
		}
	}
	return nil
}

// afterLoad runs the report-only work that follows a successful gold load.
func (o *Orchestrator) afterLoad(ctx context.Context, r *run) {
	r.step = ""
	r.report.Quality = quality.RunAll(ctx, quality.GoldChecks(r.gold), r.logger.Named("quality"))
	for _, q := range r.report.Quality {
		o.observer.ObserveCheck(q.CheckName, q.Passed)
	}

	if o.exporter == nil {
		return
	}
	paths, err := o.exporter.Export(ctx, r.gold)
	if err != nil {
		r.logger.Warn("⚠️  Gold export failed", zap.Error(err))
		return
	}
	r.report.Exported = paths
}

func (o *Orchestrator) record(ctx context.Context, r *run) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(ctx, r.report.LoadRun()); err != nil {
		r.logger.Warn("⚠️  Failed to record load run", zap.Error(err))
	}
}

type nopObserver struct{}

func (nopObserver) ObserveStep(string, string, int64, time.Duration, error) {}
func (nopObserver) ObserveRun(string, time.Duration)                        {}
func (nopObserver) ObserveUnresolved(string, int)                           {}
func (nopObserver) ObserveCheck(string, bool)                               {}
