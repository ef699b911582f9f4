package sink

import (
	"context"

	"usage-watch/src/logger"
	"usage-watch/src/models"
)

// LogSink writes one line per record.
type LogSink struct {
	Logger *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{Logger: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(_ context.Context, records []models.MAnomalyRecord) error {
	for _, r := range records {
		s.Logger.Info("Anomaly %s: customer=%s utility=%s period=%s..%s severity=%s score=%.3f (%s) members=%d",
			r.ID, r.CustomerID, r.UtilityType,
			r.PeriodStart.Format("2006-01-02"), r.PeriodEnd.Format("2006-01-02"),
			r.MaxSeverity, r.RepresentativeScore, r.RepresentativeStrategy, r.MemberCount)
	}
	return nil
}
