package models

// MRecordSubscription is the filter a dashboard client asked for.
type MRecordSubscription struct {
	CustomerIDs []string
	Utility     MUtilityType
	MinSeverity MSeverity
}

// Matches reports whether r passes the subscription filter.
func (s MRecordSubscription) Matches(r MAnomalyRecord) bool {
	if r.MaxSeverity < s.MinSeverity {
		return false
	}
	if s.Utility != "" && r.UtilityType != s.Utility {
		return false
	}
	if len(s.CustomerIDs) == 0 {
		return true
	}
	for _, id := range s.CustomerIDs {
		if id == r.CustomerID {
			return true
		}
	}
	return false
}
