package models

import "time"

// MWindowSample is one reading retained in a profile's working window.
type MWindowSample struct {
	PeriodStart time.Time `json:"period_start"`
	Quantity    float64   `json:"quantity"`
}

// MUsageProfile is the robust baseline for one (customer, utility) pair.
type MUsageProfile struct {
	CustomerID        string          `json:"customer_id"`
	UtilityType       MUtilityType    `json:"utility_type"`
	SampleCount       int             `json:"sample_count"`
	Center            float64         `json:"center"`
	Spread            float64         `json:"spread"`
	LastUpdatedPeriod time.Time       `json:"last_updated_period"`
	Insufficient      bool            `json:"insufficient"`
	TotalObserved     int64           `json:"total_observed"`
	Window            []MWindowSample `json:"window,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Key returns the pair the profile summarizes.
func (p MUsageProfile) Key() MPairKey {
	return MPairKey{CustomerID: p.CustomerID, UtilityType: p.UtilityType}
}

// Clone returns a deep copy so callers can keep a snapshot of the profile.
func (p MUsageProfile) Clone() MUsageProfile {
	out := p
	if p.Window != nil {
		out.Window = make([]MWindowSample, len(p.Window))
		copy(out.Window, p.Window)
	}
	return out
}
