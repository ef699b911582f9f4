package models

import "time"

// MUsageTotal is the summed quantity of one utility for one month.
type MUsageTotal struct {
	Month       string       `json:"month"` // YYYY-MM
	UtilityType MUtilityType `json:"utility_type"`
	Total       float64      `json:"total"`
	Unit        string       `json:"unit"`
	Readings    int          `json:"readings"`
}

// MRecordFilter selects stored anomaly records. Empty fields match everything.
type MRecordFilter struct {
	CustomerID  string
	UtilityType MUtilityType
	MinSeverity MSeverity
	Since       time.Time
	Limit       int
}
