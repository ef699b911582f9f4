package analysis

import (
	"context"
	"errors"
	"sort"
	"time"

	"usage-watch/src/helpers"
	"usage-watch/src/logger"
	"usage-watch/src/metrics"
	"usage-watch/src/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MRunResult is everything one detection run produces.
type MRunResult struct {
	Summary  models.MRunSummary
	Verdicts []models.MAnomalyVerdict
	Records  []models.MAnomalyRecord
	Profiles []models.MUsageProfile
}

type AnalysisFacade struct {
	Options    Options
	Estimator  *Estimator
	Detector   *Detector
	Aggregator *Aggregator
	Logger     *logger.Logger

	now func() time.Time
}

// pairResult is what one worker hands back for its pair.
type pairResult struct {
	profile  models.MUsageProfile
	verdicts []models.MAnomalyVerdict
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(opts Options, log *logger.Logger) *AnalysisFacade {
	if log == nil {
		log = logger.NewLogger(nil, "Analysis")
	}
	return &AnalysisFacade{
		Options:    opts,
		Estimator:  NewEstimator(opts),
		Detector:   NewDetector(opts),
		Aggregator: NewAggregator(opts),
		Logger:     log,
		now:        time.Now,
	}
}

// -----------------------------------------------------------------------------

// Run updates the baselines in table with readings, evaluates every reading
// and aggregates the anomalous verdicts into records. Invalid readings are
// skipped and counted. Only ctx cancellation makes it fail.
func (a *AnalysisFacade) Run(ctx context.Context, readings []models.MUsageReading, table *ProfileTable) (MRunResult, error) {
	started := a.now()
	summary := models.MRunSummary{
		RunID:           uuid.NewString(),
		StartedAt:       started.UTC(),
		ReadingsFetched: len(readings),
	}

	// 1. Validate and group by pair
	groups := make(map[models.MPairKey][]models.MUsageReading)
	for _, r := range readings {
		if err := helpers.ValidateReading(r); err != nil {
			a.reject(err)
			summary.ReadingsRejected++
			continue
		}
		groups[r.Key()] = append(groups[r.Key()], r)
	}
	metrics.ReadingsFetchedTotal.Add(float64(len(readings) - summary.ReadingsRejected))

	keys := make([]models.MPairKey, 0, len(groups))
	for k, group := range groups {
		sortReadings(group)
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	// 2. Fan out, one worker per pair
	results := make([]pairResult, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	if a.Options.Workers > 0 {
		g.SetLimit(a.Options.Workers)
	}
	for i, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var prior *models.MUsageProfile
			if p, ok := table.Get(key); ok {
				prior = &p
			}
			results[i] = a.processPair(prior, groups[key])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return MRunResult{Summary: summary}, err
	}

	// 3. Fan in in pair order
	result := MRunResult{Summary: summary}
	for _, res := range results {
		table.Put(res.profile)
		result.Profiles = append(result.Profiles, res.profile)
		result.Verdicts = append(result.Verdicts, res.verdicts...)
	}

	// 4. Aggregate and stamp
	result.Records = a.Aggregator.Aggregate(result.Verdicts)
	finished := a.now()
	for i := range result.Records {
		result.Records[i].DetectedAt = finished.UTC()
	}

	a.finishSummary(&result, started, finished, len(keys))
	a.Logger.Info("Run %s: %d readings (%d rejected), %d pairs, %d anomalous verdicts, %d records in %.3fs",
		result.Summary.RunID, result.Summary.ReadingsFetched, result.Summary.ReadingsRejected,
		result.Summary.PairsProcessed, result.Summary.AnomalousVerdicts, result.Summary.RecordsEmitted,
		result.Summary.DurationSeconds)

	return result, nil
}

// -----------------------------------------------------------------------------

// processPair runs the estimator and detector for one pair's chronological
// readings according to the detection mode.
func (a *AnalysisFacade) processPair(prior *models.MUsageProfile, readings []models.MUsageReading) pairResult {
	verdicts := make([]models.MAnomalyVerdict, 0, len(readings))

	if a.Options.Mode == ModeIncremental {
		var current models.MUsageProfile
		if prior != nil {
			current = *prior
		} else {
			current = a.Estimator.Update(nil, nil)
			current.CustomerID = readings[0].CustomerID
			current.UtilityType = readings[0].UtilityType
		}
		for _, r := range readings {
			verdicts = append(verdicts, a.Detector.Evaluate(r, current))
			current = a.Estimator.Update(&current, []models.MUsageReading{r})
		}
		return pairResult{profile: current, verdicts: verdicts}
	}

	updated := a.Estimator.Update(prior, readings)
	for _, r := range readings {
		verdicts = append(verdicts, a.Detector.Evaluate(r, updated))
	}
	return pairResult{profile: updated, verdicts: verdicts}
}

// -----------------------------------------------------------------------------

func (a *AnalysisFacade) finishSummary(result *MRunResult, started, finished time.Time, pairs int) {
	s := &result.Summary
	s.FinishedAt = finished.UTC()
	s.DurationSeconds = finished.Sub(started).Seconds()
	s.PairsProcessed = pairs
	s.Verdicts = len(result.Verdicts)
	s.RecordsEmitted = len(result.Records)

	for _, v := range result.Verdicts {
		if v.IsAnomalous {
			s.AnomalousVerdicts++
		}
		metrics.VerdictsTotal.WithLabelValues(string(v.Strategy), v.Severity.String()).Inc()
	}
	for _, r := range result.Records {
		metrics.RecordsTotal.WithLabelValues(r.MaxSeverity.String()).Inc()
	}
	metrics.RunDurationSeconds.Observe(s.DurationSeconds)
}

// -----------------------------------------------------------------------------

func (a *AnalysisFacade) reject(err error) {
	field := "unknown"
	var vErr *helpers.ValidationError
	if errors.As(err, &vErr) {
		field = vErr.Field
	}
	metrics.ReadingsRejectedTotal.WithLabelValues(field).Inc()
	a.Logger.Warning("Skipping reading: %v", err)
}

// -----------------------------------------------------------------------------

// sortReadings orders one pair's readings chronologically.
func sortReadings(readings []models.MUsageReading) {
	sort.SliceStable(readings, func(i, j int) bool {
		if !readings[i].PeriodStart.Equal(readings[j].PeriodStart) {
			return readings[i].PeriodStart.Before(readings[j].PeriodStart)
		}
		return readings[i].PeriodEnd.Before(readings[j].PeriodEnd)
	})
}
