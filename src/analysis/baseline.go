package analysis

import (
	"time"

	"usage-watch/src/analysis/core"
	"usage-watch/src/models"
	"usage-watch/src/utils"
)

// -----------------------------------------------------------------------------
// Estimator maintains the robust baseline of one (customer, utility) pair.
// It never fails and never mutates the profile it is given.
// -----------------------------------------------------------------------------

type Estimator struct {
	opts Options
	now  func() time.Time
}

func NewEstimator(opts Options) *Estimator {
	return &Estimator{opts: opts, now: time.Now}
}

// -----------------------------------------------------------------------------

// Update folds chronological readings of a single pair into the profile and
// returns the new profile. Readings at or before LastUpdatedPeriod have been
// absorbed already and are skipped, so replaying a batch is a no-op unless
// the profile was stored under a different window bound or minimum history.
func (e *Estimator) Update(profile *models.MUsageProfile, readings []models.MUsageReading) models.MUsageProfile {
	var next models.MUsageProfile
	if profile != nil {
		next = profile.Clone()
	} else if len(readings) > 0 {
		next.CustomerID = readings[0].CustomerID
		next.UtilityType = readings[0].UtilityType
	}

	window := utils.NewRingBufferFrom(e.opts.MaxHistory, next.Window)

	absorbed := 0
	for _, r := range readings {
		if !next.LastUpdatedPeriod.IsZero() && !r.PeriodStart.After(next.LastUpdatedPeriod) {
			continue
		}
		window.Append(models.MWindowSample{PeriodStart: r.PeriodStart, Quantity: r.Quantity})
		next.LastUpdatedPeriod = r.PeriodStart
		next.TotalObserved++
		absorbed++
	}

	if absorbed == 0 && profile != nil && !e.stale(next) {
		return next
	}

	e.recompute(&next, window)
	next.UpdatedAt = e.now().UTC()
	return next
}

// -----------------------------------------------------------------------------

// stale reports whether a stored profile no longer matches the current window
// bound or sufficiency rule.
func (e *Estimator) stale(p models.MUsageProfile) bool {
	return len(p.Window) > e.opts.MaxHistory ||
		p.SampleCount != len(p.Window) ||
		p.Insufficient != (len(p.Window) < e.opts.MinimumHistory)
}

// -----------------------------------------------------------------------------

// recompute derives center, spread and sufficiency from the window.
func (e *Estimator) recompute(p *models.MUsageProfile, window *utils.RingBuffer) {
	p.Window = window.GetAll()
	p.SampleCount = window.Size()
	p.Center, p.Spread = core.RobustCenterSpread(window.Quantities(), e.opts.SpreadEpsilon)
	p.Insufficient = p.SampleCount < e.opts.MinimumHistory
}
