package analysis

import (
	"usage-watch/src/analysis/core"
	"usage-watch/src/models"
)

// -----------------------------------------------------------------------------
// Detector judges a single reading against the profile of its pair.
// -----------------------------------------------------------------------------

type Detector struct {
	opts Options
}

func NewDetector(opts Options) *Detector {
	return &Detector{opts: opts}
}

// -----------------------------------------------------------------------------

// Evaluate returns the verdict for reading under profile. It is total.
func (d *Detector) Evaluate(reading models.MUsageReading, profile models.MUsageProfile) models.MAnomalyVerdict {
	verdict := models.MAnomalyVerdict{
		Reading:       reading,
		Strategy:      models.StrategyInsufficientHistory,
		Severity:      models.SeverityNone,
		ProfileCenter: profile.Center,
		ProfileSpread: profile.Spread,
	}

	// 1. Not enough history to judge
	if profile.Insufficient {
		return verdict
	}

	// 2. Pick the strategy by baseline magnitude
	floor := d.opts.MinCenterFor(reading.UtilityType)
	threshold := d.opts.ZScoreThreshold
	if profile.Center < floor {
		verdict.Strategy = models.StrategyPercentDeviation
		verdict.DeviationScore = core.CalculatePercentDeviation(reading.Quantity, profile.Center, floor)
		threshold = d.opts.PctThreshold
	} else {
		verdict.Strategy = models.StrategyZScore
		verdict.DeviationScore = core.CalculateZScore(reading.Quantity, profile.Center, profile.Spread)
	}

	// 3. Zero usage (vacancy, shutoff) is reported but never flagged
	if reading.Quantity == 0 {
		return verdict
	}

	// 4. Severity ladder on the strategy's own threshold
	level := core.SeverityLevel(verdict.DeviationScore, threshold)
	verdict.Severity = models.MSeverity(level)
	verdict.IsAnomalous = level > 0

	return verdict
}
