package interfaces

import (
	"context"

	"usage-watch/src/models"
)

// -----------------------------------------------------------------------------
// IReadingSource produces readings for ingestion into the store.
// -----------------------------------------------------------------------------

type IReadingSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// ReadAll returns every valid reading of the source together with one
	// validation error per rejected row.
	ReadAll(ctx context.Context) ([]models.MUsageReading, []error, error)
}
