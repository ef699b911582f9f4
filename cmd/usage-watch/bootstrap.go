package main

import (
	"context"
	"time"

	"usage-watch/src/interfaces"
	"usage-watch/src/logger"
	"usage-watch/src/models"
	"usage-watch/src/pipeline"
)

// dashboardSeedLimit caps the records pushed to the dashboard at startup.
const dashboardSeedLimit = 500

// performInitialLoad restores persisted baselines and seeds the dashboard
// with the recorded anomalies of the lookback window.
func performInitialLoad(
	ctx context.Context,
	p *pipeline.Pipeline,
	srv interfaces.IDataExchanger,
	config *models.MConfig,
	appLogger *logger.Logger,
) error {

	appLogger.Info("Loading persisted profiles...")
	if err := p.LoadProfiles(ctx); err != nil {
		return err
	}

	now := time.Now().UTC()
	records, err := p.ListAnomalies(ctx, models.MRecordFilter{
		Since: lookbackStart(config, now),
		Limit: dashboardSeedLimit,
	})
	if err != nil {
		return err
	}

	srv.UpdateLatest(models.MLatestData{
		Type:      "INITIAL",
		Records:   records,
		Timestamp: now.Unix(),
	})
	appLogger.Info("Bootstrap complete: %d profiles, %d recorded anomalies", p.Table.Len(), len(records))
	return nil
}

// -----------------------------------------------------------------------------

// lookbackStart is the earliest period a scheduled run considers.
func lookbackStart(config *models.MConfig, now time.Time) time.Time {
	if config.Schedule.LookbackDays <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -config.Schedule.LookbackDays)
}
