package models

import "time"

// MRunSummary represents the bookkeeping of one detection run.
type MRunSummary struct {
	RunID             string    `json:"run_id"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	ReadingsFetched   int       `json:"readings_fetched"`
	ReadingsRejected  int       `json:"readings_rejected"`
	PairsProcessed    int       `json:"pairs_processed"`
	Verdicts          int       `json:"verdicts"`
	AnomalousVerdicts int       `json:"anomalous_verdicts"`
	RecordsEmitted    int       `json:"records_emitted"`
	DurationSeconds   float64   `json:"duration_seconds"`
}

// -----------------------------------------------------------------------------

// MLatestData is the state served to dashboard clients.
type MLatestData struct {
	Type      string           `json:"type"` // "INITIAL" or "UPDATE"
	Records   []MAnomalyRecord `json:"records"`
	Summary   MRunSummary      `json:"summary"`
	Timestamp int64            `json:"timestamp"`
}

// -----------------------------------------------------------------------------

// MSubscribeCommand is sent by websocket clients to filter pushed records.
type MSubscribeCommand struct {
	Command     string   `json:"command"`
	CustomerIDs []string `json:"customer_ids"`
	Utility     string   `json:"utility"`
	MinSeverity string   `json:"min_severity"`
}
