package analysis

import (
	"usage-watch/src/config"
	"usage-watch/src/models"
)

// Mode selects whether readings are judged against the baseline that already
// includes their batch, or against the baseline as it stood before each one.
type Mode string

const (
	ModeBatch       Mode = config.ModeBatch
	ModeIncremental Mode = config.ModeIncremental
)

// Options are the tunables shared by the estimator, detector and aggregator.
type Options struct {
	MinimumHistory     int
	MaxHistory         int
	ZScoreThreshold    float64
	PctThreshold       float64
	MinCenterForZScore float64
	MinCenterByUtility map[models.MUtilityType]float64
	CooldownPeriods    int
	SpreadEpsilon      float64
	Mode               Mode
	Workers            int
}

// -----------------------------------------------------------------------------

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MinimumHistory:     config.DefaultMinimumHistory,
		MaxHistory:         config.DefaultMaxHistory,
		ZScoreThreshold:    config.DefaultZScoreThreshold,
		PctThreshold:       config.DefaultPctThreshold,
		MinCenterForZScore: config.DefaultMinCenterForZScore,
		CooldownPeriods:    config.DefaultCooldownPeriods,
		SpreadEpsilon:      config.DefaultSpreadEpsilon,
		Mode:               ModeBatch,
		Workers:            config.DefaultWorkers,
	}
}

// -----------------------------------------------------------------------------

// OptionsFromConfig overlays the set fields of cfg onto the defaults.
func OptionsFromConfig(cfg models.MDetectionConfig) Options {
	opts := DefaultOptions()

	if cfg.MinimumHistory != nil {
		opts.MinimumHistory = *cfg.MinimumHistory
	}
	if cfg.MaxHistory != nil {
		opts.MaxHistory = *cfg.MaxHistory
	}
	if cfg.ZScoreThreshold != nil {
		opts.ZScoreThreshold = *cfg.ZScoreThreshold
	}
	if cfg.PctThreshold != nil {
		opts.PctThreshold = *cfg.PctThreshold
	}
	if cfg.MinCenterForZScore != nil {
		opts.MinCenterForZScore = *cfg.MinCenterForZScore
	}
	if cfg.CooldownPeriods != nil {
		opts.CooldownPeriods = *cfg.CooldownPeriods
	}
	if cfg.SpreadEpsilon != nil {
		opts.SpreadEpsilon = *cfg.SpreadEpsilon
	}
	if cfg.Mode != "" {
		opts.Mode = Mode(cfg.Mode)
	}
	if cfg.Workers > 0 {
		opts.Workers = cfg.Workers
	}
	if len(cfg.MinCenterByUtility) > 0 {
		opts.MinCenterByUtility = make(map[models.MUtilityType]float64, len(cfg.MinCenterByUtility))
		for k, v := range cfg.MinCenterByUtility {
			opts.MinCenterByUtility[models.MUtilityType(k)] = v
		}
	}

	return opts
}

// -----------------------------------------------------------------------------

// MinCenterFor returns the z-score eligibility floor for a utility.
func (o Options) MinCenterFor(utility models.MUtilityType) float64 {
	if v, ok := o.MinCenterByUtility[utility]; ok {
		return v
	}
	return o.MinCenterForZScore
}
