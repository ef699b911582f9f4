package interfaces

import (
	"context"

	"usage-watch/src/models"
)

// -----------------------------------------------------------------------------
// IRunController is what the control surfaces (REST, gRPC) drive.
// -----------------------------------------------------------------------------

type IRunController interface {

	// TriggerRun fetches readings matching query and runs detection on them.
	TriggerRun(ctx context.Context, query models.MReadingQuery) (models.MRunSummary, error)

	// LastSummary returns the summary of the latest finished run, if any.
	LastSummary() (models.MRunSummary, bool)

	// Profiles returns the tracked baselines of one customer.
	Profiles(customerID string) []models.MUsageProfile

	ListAnomalies(ctx context.Context, filter models.MRecordFilter) ([]models.MAnomalyRecord, error)

	UsageTotals(ctx context.Context, utility models.MUtilityType) ([]models.MUsageTotal, error)
}
