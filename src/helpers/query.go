package helpers

import (
	"strconv"
	"strings"
	"time"

	"usage-watch/src/models"
)

// ParseDate accepts YYYY-MM-DD or the YYYY-MM month shorthand.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01", raw); err == nil {
		return t, nil
	}
	return time.Time{}, NewValidationError("date", "invalid date %q (expected YYYY-MM-DD or YYYY-MM)", raw)
}

// -----------------------------------------------------------------------------

// ParseReadingQuery builds a reading query from optional textual filters.
func ParseReadingQuery(customer, utility, from, to string) (models.MReadingQuery, error) {
	q := models.MReadingQuery{CustomerID: strings.TrimSpace(customer)}

	if utility != "" {
		u, err := models.ParseUtilityType(utility)
		if err != nil {
			return q, NewValidationError("utility_type", "%v", err)
		}
		q.UtilityType = u
	}
	if from != "" {
		t, err := ParseDate(from)
		if err != nil {
			return q, err
		}
		q.From = t
	}
	if to != "" {
		t, err := ParseDate(to)
		if err != nil {
			return q, err
		}
		q.To = t
	}
	if !q.From.IsZero() && !q.To.IsZero() && !q.To.After(q.From) {
		return q, NewValidationError("period", "to (%s) must be after from (%s)", to, from)
	}
	return q, nil
}

// -----------------------------------------------------------------------------

// ParseRecordFilter builds an anomaly record filter from optional textual filters.
func ParseRecordFilter(customer, utility, minSeverity, limit string) (models.MRecordFilter, error) {
	f := models.MRecordFilter{CustomerID: strings.TrimSpace(customer)}

	if utility != "" {
		u, err := models.ParseUtilityType(utility)
		if err != nil {
			return f, NewValidationError("utility_type", "%v", err)
		}
		f.UtilityType = u
	}
	if minSeverity != "" {
		sev, err := models.ParseSeverity(strings.ToLower(minSeverity))
		if err != nil {
			return f, NewValidationError("min_severity", "%v", err)
		}
		f.MinSeverity = sev
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return f, NewValidationError("limit", "invalid limit %q", limit)
		}
		f.Limit = n
	}
	return f, nil
}
