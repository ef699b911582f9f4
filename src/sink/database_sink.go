package sink

import (
	"context"

	"usage-watch/src/interfaces"
	"usage-watch/src/models"
)

// DatabaseSink persists records into the anomaly history.
type DatabaseSink struct {
	Store interfaces.IAnomalyStore
}

func NewDatabaseSink(store interfaces.IAnomalyStore) *DatabaseSink {
	return &DatabaseSink{Store: store}
}

func (s *DatabaseSink) Name() string { return "database" }

func (s *DatabaseSink) Publish(ctx context.Context, records []models.MAnomalyRecord) error {
	return s.Store.SaveAnomalyRecords(ctx, records)
}
