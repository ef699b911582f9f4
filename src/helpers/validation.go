package helpers

import (
	"math"

	"usage-watch/src/models"
)

// ValidateReading enforces the invariants every reading must satisfy before
// it reaches the detection core.
func ValidateReading(r models.MUsageReading) error {
	if r.CustomerID == "" {
		return NewValidationError("customer_id", "reading %d has no customer id", r.ID)
	}
	if _, err := models.ParseUtilityType(string(r.UtilityType)); err != nil {
		return NewValidationError("utility_type", "reading %d: %v", r.ID, err)
	}
	if math.IsNaN(r.Quantity) || math.IsInf(r.Quantity, 0) {
		return NewValidationError("quantity", "reading %d for %s has non-finite quantity", r.ID, r.Key())
	}
	if r.Quantity < 0 {
		return NewValidationError("quantity", "reading %d for %s has negative quantity %.4f", r.ID, r.Key(), r.Quantity)
	}
	if !r.PeriodEnd.After(r.PeriodStart) {
		return NewValidationError("period", "reading %d for %s has period_end %s not after period_start %s",
			r.ID, r.Key(), r.PeriodEnd.Format("2006-01-02"), r.PeriodStart.Format("2006-01-02"))
	}
	return nil
}
