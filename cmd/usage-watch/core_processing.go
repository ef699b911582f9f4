package main

import (
	"context"
	"time"

	"usage-watch/src/helpers"
	"usage-watch/src/interfaces"
	"usage-watch/src/logger"
	"usage-watch/src/models"
	"usage-watch/src/pipeline"
	"usage-watch/src/utils"
)

// -----------------------------------------------------------------------------

// runCycle performs one scheduled detection run followed by retention cleanup
func runCycle(
	ctx context.Context,
	p *pipeline.Pipeline,
	db interfaces.IDatabase,
	errHandler *helpers.ErrorHandler,
	config *models.MConfig,
	appLogger *logger.Logger,
) {
	now := time.Now().UTC()
	query := models.MReadingQuery{From: lookbackStart(config, now)}

	result, err := p.Run(ctx, query)
	errHandler.Handle(err, "scheduled run")
	if err == nil {
		appLogger.Info("Scheduled run %s: %d records from %d pairs",
			result.Summary.RunID, result.Summary.RecordsEmitted, result.Summary.PairsProcessed)
	}

	errHandler.Handle(db.CleanupOldData(ctx, now), "retention cleanup")

	if n := errHandler.ErrorCount(); n > 0 {
		appLogger.Warning("Cycle finished with %d errors", n)
		errHandler.ResetErrorCount()
	}
}

// -----------------------------------------------------------------------------

// runScheduledLoop runs detection immediately, then on every scheduler tick
// until ctx is cancelled.
func runScheduledLoop(
	ctx context.Context,
	scheduler *utils.BatchScheduler,
	p *pipeline.Pipeline,
	db interfaces.IDatabase,
	config *models.MConfig,
	appLogger *logger.Logger,
) {
	errHandler := helpers.NewErrorHandler(logger.NewLogger(config, "ErrorHandler"))

	if scheduler.ShouldRun(time.Now()) {
		runCycle(ctx, p, db, errHandler, config, appLogger)
	}

	appLogger.Info("Starting scheduled detection loop...")
	scheduler.Run(ctx, func(ctx context.Context) {
		runCycle(ctx, p, db, errHandler, config, appLogger)
	})
}
