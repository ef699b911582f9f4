package models

import (
	"fmt"
	"time"
)

// MUtilityType identifies the metered utility of a reading.
type MUtilityType string

const (
	UtilityElectric MUtilityType = "electric"
	UtilityWater    MUtilityType = "water"
	UtilityGas      MUtilityType = "gas"
)

// AllUtilityTypes lists the supported utilities in canonical order.
var AllUtilityTypes = []MUtilityType{UtilityElectric, UtilityWater, UtilityGas}

// -----------------------------------------------------------------------------

// ParseUtilityType converts a raw string into a known utility type.
func ParseUtilityType(raw string) (MUtilityType, error) {
	switch MUtilityType(raw) {
	case UtilityElectric, UtilityWater, UtilityGas:
		return MUtilityType(raw), nil
	}
	return "", fmt.Errorf("unknown utility type %q", raw)
}

// -----------------------------------------------------------------------------

// Unit returns the quantity unit billed for the utility.
func (u MUtilityType) Unit() string {
	switch u {
	case UtilityElectric:
		return "kWh"
	case UtilityWater:
		return "gallons"
	case UtilityGas:
		return "CCF"
	}
	return ""
}

// -----------------------------------------------------------------------------

// MUsageReading is one metered quantity for a customer over a billing period.
type MUsageReading struct {
	ID          int64        `json:"id"`
	CustomerID  string       `json:"customer_id"`
	UtilityType MUtilityType `json:"utility_type"`
	PeriodStart time.Time    `json:"period_start"`
	PeriodEnd   time.Time    `json:"period_end"`
	Quantity    float64      `json:"quantity"`
}

// Key returns the (customer, utility) pair the reading belongs to.
func (r MUsageReading) Key() MPairKey {
	return MPairKey{CustomerID: r.CustomerID, UtilityType: r.UtilityType}
}

// -----------------------------------------------------------------------------

// MPairKey addresses one customer's history for one utility.
type MPairKey struct {
	CustomerID  string       `json:"customer_id"`
	UtilityType MUtilityType `json:"utility_type"`
}

func (k MPairKey) String() string {
	return k.CustomerID + "/" + string(k.UtilityType)
}

// Less orders keys by customer, then utility.
func (k MPairKey) Less(o MPairKey) bool {
	if k.CustomerID != o.CustomerID {
		return k.CustomerID < o.CustomerID
	}
	return k.UtilityType < o.UtilityType
}

// -----------------------------------------------------------------------------

// MReadingQuery selects readings from the store. Empty fields match everything.
type MReadingQuery struct {
	CustomerID  string
	UtilityType MUtilityType
	From        time.Time
	To          time.Time
}
