package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MSeverity ranks how far a reading strays from its baseline.
type MSeverity int

const (
	SeverityNone MSeverity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

var severityNames = [...]string{"none", "low", "medium", "high"}

func (s MSeverity) String() string {
	if s < SeverityNone || s > SeverityHigh {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity converts a severity name into its level.
func ParseSeverity(raw string) (MSeverity, error) {
	for i, name := range severityNames {
		if name == raw {
			return MSeverity(i), nil
		}
	}
	return SeverityNone, fmt.Errorf("unknown severity %q", raw)
}

func (s MSeverity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *MSeverity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// -----------------------------------------------------------------------------

// MStrategy names the detection method that produced a verdict.
type MStrategy string

const (
	StrategyZScore              MStrategy = "zscore"
	StrategyPercentDeviation    MStrategy = "percent_deviation"
	StrategyInsufficientHistory MStrategy = "insufficient_history"
)

// -----------------------------------------------------------------------------

// MAnomalyVerdict is the detector's judgement of one reading.
type MAnomalyVerdict struct {
	Reading        MUsageReading `json:"reading"`
	IsAnomalous    bool          `json:"is_anomalous"`
	DeviationScore float64       `json:"deviation_score"`
	Strategy       MStrategy     `json:"strategy"`
	Severity       MSeverity     `json:"severity"`
	ProfileCenter  float64       `json:"profile_center"`
	ProfileSpread  float64       `json:"profile_spread"`
}

// -----------------------------------------------------------------------------

// MAnomalyRecord summarizes a cluster of adjacent anomalous verdicts.
type MAnomalyRecord struct {
	ID                     string       `json:"id"`
	CustomerID             string       `json:"customer_id"`
	UtilityType            MUtilityType `json:"utility_type"`
	PeriodStart            time.Time    `json:"period_start"`
	PeriodEnd              time.Time    `json:"period_end"`
	MaxSeverity            MSeverity    `json:"max_severity"`
	RepresentativeScore    float64      `json:"representative_score"`
	RepresentativeStrategy MStrategy    `json:"representative_strategy"`
	MemberCount            int          `json:"member_count"`
	DetectedAt             time.Time    `json:"detected_at"`
}

// Key returns the pair the record belongs to.
func (r MAnomalyRecord) Key() MPairKey {
	return MPairKey{CustomerID: r.CustomerID, UtilityType: r.UtilityType}
}
