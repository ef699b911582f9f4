package utils

import (
	"context"
	"time"

	"usage-watch/src/logger"
	"usage-watch/src/models"
)

// BatchScheduler fires the periodic detection run, optionally only on
// business days of its calendar.
type BatchScheduler struct {
	Calendar         *BillingCalendar
	Interval         time.Duration
	BusinessDaysOnly bool
	Logger           *logger.Logger

	now func() time.Time
}

// -----------------------------------------------------------------------------

func NewBatchScheduler(cfg models.MScheduleConfig, l *logger.Logger) *BatchScheduler {
	if l == nil {
		l = logger.NewLogger(nil, "BatchScheduler")
	}

	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}

	bs := &BatchScheduler{
		Calendar:         NewBillingCalendar(cfg.CalendarMIC, l),
		Interval:         interval,
		BusinessDaysOnly: cfg.BusinessDaysOnly,
		Logger:           l,
		now:              time.Now,
	}

	l.Info("BatchScheduler: every %v on calendar %s (business days only: %v)",
		bs.Interval, bs.Calendar.MIC, bs.BusinessDaysOnly)
	return bs
}

// -----------------------------------------------------------------------------

// ShouldRun reports whether a run is allowed at t.
func (bs *BatchScheduler) ShouldRun(t time.Time) bool {
	if !bs.BusinessDaysOnly {
		return true
	}
	return bs.Calendar.IsBusinessDay(t)
}

// -----------------------------------------------------------------------------

// Run calls job once per interval until ctx is done. Ticks falling on a
// skipped day are logged and dropped.
func (bs *BatchScheduler) Run(ctx context.Context, job func(context.Context)) {
	ticker := time.NewTicker(bs.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			bs.Logger.Info("BatchScheduler stopped")
			return

		case <-ticker.C:
			now := bs.now()
			if !bs.ShouldRun(now) {
				bs.Logger.Debug("Skipping run on non-business day %s", now.Format("2006-01-02"))
				continue
			}
			job(ctx)
		}
	}
}
