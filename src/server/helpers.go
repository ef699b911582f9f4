package server

import (
	"usage-watch/src/models"
)

// -----------------------------------------------------------------------------

// filterState copies state keeping only the records sub matches.
func filterState(state *models.MLatestData, sub models.MRecordSubscription, kind string) *models.MLatestData {
	out := &models.MLatestData{
		Type:    kind,
		Records: make([]models.MAnomalyRecord, 0),
	}
	if state == nil {
		return out
	}

	out.Summary = state.Summary
	out.Timestamp = state.Timestamp
	for _, r := range state.Records {
		if sub.Matches(r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func utilityUnits() map[string]string {
	out := make(map[string]string, len(models.AllUtilityTypes))
	for _, u := range models.AllUtilityTypes {
		out[string(u)] = u.Unit()
	}
	return out
}
