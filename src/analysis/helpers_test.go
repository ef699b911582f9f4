package analysis

import (
	"time"

	"usage-watch/src/models"
)

func month(year, m int) time.Time {
	return time.Date(year, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
}

// monthly builds consecutive monthly readings starting January 2023.
func monthly(customer string, utility models.MUtilityType, quantities ...float64) []models.MUsageReading {
	out := make([]models.MUsageReading, len(quantities))
	for i, q := range quantities {
		start := month(2023, 1).AddDate(0, i, 0)
		out[i] = models.MUsageReading{
			ID:          int64(i + 1),
			CustomerID:  customer,
			UtilityType: utility,
			PeriodStart: start,
			PeriodEnd:   start.AddDate(0, 1, 0),
			Quantity:    q,
		}
	}
	return out
}

func verdict(r models.MUsageReading, anomalous bool, score float64, sev models.MSeverity) models.MAnomalyVerdict {
	v := models.MAnomalyVerdict{
		Reading:        r,
		IsAnomalous:    anomalous,
		DeviationScore: score,
		Strategy:       models.StrategyZScore,
		Severity:       sev,
	}
	if !anomalous {
		v.Severity = models.SeverityNone
	}
	return v
}
