package utils

import (
	"strings"
	"time"

	"usage-watch/src/logger"

	"github.com/scmhub/calendar"
)

// BillingCalendar answers "is this a working day" using scmhub/calendar.
// The exchange calendars double as regional business-day calendars.
type BillingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// NewBillingCalendar loads the calendar of mic (ISO 10383, e.g. "xnys").
// Unknown codes fall back to xnys, then to a plain Mon-Fri week.
func NewBillingCalendar(mic string, log *logger.Logger) *BillingCalendar {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		mic = "xnys"
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil && mic != "xnys" {
		if log != nil {
			log.Warning("Unknown calendar MIC '%s', using xnys", mic)
		}
		mic = "xnys"
		cal = calendar.GetCalendar(mic)
	}

	if cal == nil {
		if log != nil {
			log.Warning("Failed to load calendar '%s'. Using simple Mon-Fri fallback.", mic)
		}
		return &BillingCalendar{MIC: mic, Fallback: true, Timezone: time.UTC}
	}

	return &BillingCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (bc *BillingCalendar) IsBusinessDay(date time.Time) bool {
	if bc.Timezone != nil {
		date = date.In(bc.Timezone)
	}

	if bc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return bc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// NextBusinessDay returns midnight of the first business day strictly after date.
func (bc *BillingCalendar) NextBusinessDay(date time.Time) time.Time {
	loc := bc.Timezone
	if loc == nil {
		loc = time.UTC
	}
	d := date.In(loc)
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)

	// A year without business days would be a broken calendar
	for i := 0; i < 366; i++ {
		day = day.AddDate(0, 0, 1)
		if bc.IsBusinessDay(day) {
			return day
		}
	}
	return day
}
