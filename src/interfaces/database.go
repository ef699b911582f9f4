package interfaces

import (
	"context"
	"time"

	"usage-watch/src/models"
)

// -----------------------------------------------------------------------------
// IReadingStore is the read side the detection pipeline depends on.
// -----------------------------------------------------------------------------

type IReadingStore interface {

	// FetchReadings returns readings matching query ordered by
	// (customer, utility, period_start). Invalid rows are skipped and logged.
	FetchReadings(ctx context.Context, query models.MReadingQuery) ([]models.MUsageReading, error)
}

// -----------------------------------------------------------------------------
// IProfileStore persists the profile table snapshot between runs.
// -----------------------------------------------------------------------------

type IProfileStore interface {
	LoadProfiles(ctx context.Context) ([]models.MUsageProfile, error)
	SaveProfiles(ctx context.Context, profiles []models.MUsageProfile) error
}

// -----------------------------------------------------------------------------
// IAnomalyStore keeps the history of emitted anomaly records.
// -----------------------------------------------------------------------------

type IAnomalyStore interface {

	// SaveAnomalyRecords upserts records by id.
	SaveAnomalyRecords(ctx context.Context, records []models.MAnomalyRecord) error

	// ListAnomalyRecords returns stored records in aggregator order.
	ListAnomalyRecords(ctx context.Context, filter models.MRecordFilter) ([]models.MAnomalyRecord, error)
}

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {
	IReadingStore
	IProfileStore
	IAnomalyStore

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveReadingsBulk upserts a batch of readings on (customer, utility, period_start).
	// Invalid readings are skipped; the number written is returned.
	SaveReadingsBulk(ctx context.Context, readings []models.MUsageReading) (int, error)

	// -----------------------------------------------------------------------------

	// UsageTotals sums quantities per month and utility.
	UsageTotals(ctx context.Context, utility models.MUtilityType) ([]models.MUsageTotal, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes readings and records older than the retention policy.
	CleanupOldData(ctx context.Context, now time.Time) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
