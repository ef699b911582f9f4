package interfaces

import (
	"context"

	"usage-watch/src/models"
)

// -----------------------------------------------------------------------------
// IReportingSink receives the anomaly records of a run, in aggregator order.
// -----------------------------------------------------------------------------

type IReportingSink interface {
	Name() string
	Publish(ctx context.Context, records []models.MAnomalyRecord) error
}
