package interfaces

import "usage-watch/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defining the interface for sharing run results with dashboards (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes a run update to connected listeners and stores it as latest.
	Broadcast(update models.MLatestData)

	// -----------------------------------------------------------------------------
	// UpdateLatest replaces the internal state without broadcasting
	UpdateLatest(update models.MLatestData)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
