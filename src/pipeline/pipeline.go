package pipeline

import (
	"context"
	"fmt"
	"sync"

	"usage-watch/src/analysis"
	"usage-watch/src/helpers"
	"usage-watch/src/interfaces"
	"usage-watch/src/logger"
	"usage-watch/src/models"
)

// Pipeline wires the store, the detection facade and the reporting sinks
// into one detection run. It implements interfaces.IRunController.
type Pipeline struct {
	Store     interfaces.IDatabase
	Facade    *analysis.AnalysisFacade
	Table     *analysis.ProfileTable
	Sink      interfaces.IReportingSink
	Exchanger interfaces.IDataExchanger
	Logger    *logger.Logger

	runMu  sync.Mutex // one run at a time; the table is not shared between runs
	lastMu sync.RWMutex
	last   *models.MRunSummary
}

// -----------------------------------------------------------------------------

func NewPipeline(store interfaces.IDatabase, facade *analysis.AnalysisFacade, sink interfaces.IReportingSink, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewLogger(nil, "Pipeline")
	}
	return &Pipeline{
		Store:  store,
		Facade: facade,
		Table:  analysis.NewProfileTable(),
		Sink:   sink,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// SetExchanger attaches the dashboard push target. Nil disables pushes.
func (p *Pipeline) SetExchanger(x interfaces.IDataExchanger) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	p.Exchanger = x
}

// -----------------------------------------------------------------------------

// LoadProfiles restores the persisted profile snapshot into the table.
func (p *Pipeline) LoadProfiles(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	profiles, err := p.Store.LoadProfiles(ctx)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	p.Table.Load(profiles)
	p.Logger.Info("Loaded %d profiles", len(profiles))
	return nil
}

// -----------------------------------------------------------------------------

// Run executes one detection run over the readings matching query.
// A sink failure is reported after the profiles are saved and the summary
// recorded, so the run itself still counts.
func (p *Pipeline) Run(ctx context.Context, query models.MReadingQuery) (analysis.MRunResult, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	// 1. Fetch
	readings, err := p.Store.FetchReadings(ctx, query)
	if err != nil {
		return analysis.MRunResult{}, fmt.Errorf("fetch readings: %w", err)
	}

	// 2. Detect
	result, err := p.Facade.Run(ctx, readings, p.Table)
	if err != nil {
		return result, fmt.Errorf("detection run: %w", err)
	}

	// 3. Persist baselines
	if err := p.Store.SaveProfiles(ctx, result.Profiles); err != nil {
		return result, fmt.Errorf("save profiles: %w", err)
	}

	// 4. Report
	var sinkErr error
	if p.Sink != nil && len(result.Records) > 0 {
		if err := p.Sink.Publish(ctx, result.Records); err != nil {
			p.Logger.Error("Run %s: publishing %d records failed: %v", result.Summary.RunID, len(result.Records), err)
			sinkErr = err
		}
	}
	if p.Exchanger != nil {
		p.Exchanger.Broadcast(models.MLatestData{
			Type:      "UPDATE",
			Records:   result.Records,
			Summary:   result.Summary,
			Timestamp: result.Summary.FinishedAt.Unix(),
		})
	}

	summary := result.Summary
	p.lastMu.Lock()
	p.last = &summary
	p.lastMu.Unlock()

	if sinkErr != nil {
		return result, helpers.NewSinkError(p.Sink.Name(), sinkErr)
	}
	return result, nil
}

// -----------------------------------------------------------------------------

// Ingest reads source and stores its valid readings. Rejected rows are
// logged and returned.
func (p *Pipeline) Ingest(ctx context.Context, source interfaces.IReadingSource) (int, []error, error) {
	readings, rowErrs, err := source.ReadAll(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("read %s: %w", source.Name(), err)
	}
	for _, rowErr := range rowErrs {
		p.Logger.Warning("Rejected row from %s: %v", source.Name(), rowErr)
	}

	n, err := p.Store.SaveReadingsBulk(ctx, readings)
	if err != nil {
		return n, rowErrs, err
	}
	p.Logger.Info("Ingested %d readings from %s (%d rows rejected)", n, source.Name(), len(rowErrs))
	return n, rowErrs, nil
}

// -----------------------------------------------------------------------------
// IRunController
// -----------------------------------------------------------------------------

func (p *Pipeline) TriggerRun(ctx context.Context, query models.MReadingQuery) (models.MRunSummary, error) {
	result, err := p.Run(ctx, query)
	return result.Summary, err
}

func (p *Pipeline) LastSummary() (models.MRunSummary, bool) {
	p.lastMu.RLock()
	defer p.lastMu.RUnlock()
	if p.last == nil {
		return models.MRunSummary{}, false
	}
	return *p.last, true
}

func (p *Pipeline) Profiles(customerID string) []models.MUsageProfile {
	return p.Table.ForCustomer(customerID)
}

func (p *Pipeline) ListAnomalies(ctx context.Context, filter models.MRecordFilter) ([]models.MAnomalyRecord, error) {
	return p.Store.ListAnomalyRecords(ctx, filter)
}

func (p *Pipeline) UsageTotals(ctx context.Context, utility models.MUtilityType) ([]models.MUsageTotal, error) {
	return p.Store.UsageTotals(ctx, utility)
}
