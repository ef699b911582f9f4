package sink

import (
	"context"
	"errors"
	"time"

	"usage-watch/src/helpers"
	"usage-watch/src/interfaces"
	"usage-watch/src/logger"
	"usage-watch/src/metrics"
	"usage-watch/src/models"
)

// -----------------------------------------------------------------------------
// MultiSink hands a batch to every sink in turn. Each sink is retried with
// backoff; a sink that still fails does not stop the others.
// -----------------------------------------------------------------------------

type MultiSink struct {
	Sinks      []interfaces.IReportingSink
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *logger.Logger
}

func NewMultiSink(log *logger.Logger, maxRetries int, sinks ...interfaces.IReportingSink) *MultiSink {
	if log == nil {
		log = logger.NewLogger(nil, "Sinks")
	}
	return &MultiSink{
		Sinks:      sinks,
		MaxRetries: maxRetries,
		BaseDelay:  500 * time.Millisecond,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

func (m *MultiSink) Name() string { return "multi" }

// -----------------------------------------------------------------------------

// Add appends a sink.
func (m *MultiSink) Add(s interfaces.IReportingSink) {
	m.Sinks = append(m.Sinks, s)
}

// -----------------------------------------------------------------------------

// Publish returns the joined SinkErrors of the sinks that failed.
func (m *MultiSink) Publish(ctx context.Context, records []models.MAnomalyRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		err := helpers.RetryWithBackoff(ctx, "publish to "+s.Name(), m.MaxRetries, m.BaseDelay, m.Logger,
			func(ctx context.Context) error {
				return s.Publish(ctx, records)
			})
		if err != nil {
			metrics.SinkFailuresTotal.WithLabelValues(s.Name()).Inc()
			m.Logger.Error("Sink %s dropped %d records: %v", s.Name(), len(records), err)
			errs = append(errs, helpers.NewSinkError(s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
