package analysis

import (
	"math"
	"sort"
	"time"

	"usage-watch/src/models"

	"github.com/google/uuid"
)

var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:usage-watch:anomaly-record"))

// -----------------------------------------------------------------------------
// Aggregator folds anomalous verdicts of adjacent periods into records.
// -----------------------------------------------------------------------------

type Aggregator struct {
	opts Options
}

func NewAggregator(opts Options) *Aggregator {
	return &Aggregator{opts: opts}
}

// cluster is an open run of anomalous verdicts of one pair.
type cluster struct {
	record  models.MAnomalyRecord
	best    float64
	pending int // periods since the last member, read or missing
}

// -----------------------------------------------------------------------------

// Aggregate clusters verdicts per pair and returns records in total order.
// The result is a function of the verdict multiset only.
func (a *Aggregator) Aggregate(verdicts []models.MAnomalyVerdict) []models.MAnomalyRecord {
	records := []models.MAnomalyRecord{}
	if len(verdicts) == 0 {
		return records
	}

	// 1. Group by pair
	groups := make(map[models.MPairKey][]models.MAnomalyVerdict)
	for _, v := range verdicts {
		key := v.Reading.Key()
		groups[key] = append(groups[key], v)
	}

	// 2. Walk each pair chronologically
	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return verdictLess(group[i], group[j])
		})
		records = append(records, a.clusterPair(group)...)
	}

	// 3. Total order
	SortRecords(records)
	return records
}

// -----------------------------------------------------------------------------

// verdictLess orders verdicts of one pair by period; the remaining keys only
// break ties between duplicate periods.
func verdictLess(a, b models.MAnomalyVerdict) bool {
	ra, rb := a.Reading, b.Reading
	if !ra.PeriodStart.Equal(rb.PeriodStart) {
		return ra.PeriodStart.Before(rb.PeriodStart)
	}
	if !ra.PeriodEnd.Equal(rb.PeriodEnd) {
		return ra.PeriodEnd.Before(rb.PeriodEnd)
	}
	if ra.Quantity != rb.Quantity {
		return ra.Quantity < rb.Quantity
	}
	return a.DeviationScore < b.DeviationScore
}

// -----------------------------------------------------------------------------

func (a *Aggregator) clusterPair(group []models.MAnomalyVerdict) []models.MAnomalyRecord {
	var out []models.MAnomalyRecord
	var open *cluster
	var lastEnd time.Time

	for _, v := range group {
		if open != nil {
			open.pending += missingPeriods(lastEnd, v.Reading)
		}
		if v.Reading.PeriodEnd.After(lastEnd) {
			lastEnd = v.Reading.PeriodEnd
		}

		if !v.IsAnomalous {
			if open != nil {
				open.pending++
			}
			continue
		}

		if open != nil && open.pending <= a.opts.CooldownPeriods {
			open.extend(v)
			continue
		}

		if open != nil {
			out = append(out, open.close())
		}
		open = newCluster(v)
	}

	if open != nil {
		out = append(out, open.close())
	}
	return out
}

// missingPeriods counts the periods without a reading between prevEnd and the
// start of next, measured in next's own period length. Month-long periods of
// 28 to 31 days round to whole months.
func missingPeriods(prevEnd time.Time, next models.MUsageReading) int {
	length := next.PeriodEnd.Sub(next.PeriodStart)
	gap := next.PeriodStart.Sub(prevEnd)
	if length <= 0 || gap <= 0 {
		return 0
	}
	return int(math.Round(float64(gap) / float64(length)))
}

// -----------------------------------------------------------------------------

func newCluster(v models.MAnomalyVerdict) *cluster {
	return &cluster{
		record: models.MAnomalyRecord{
			CustomerID:             v.Reading.CustomerID,
			UtilityType:            v.Reading.UtilityType,
			PeriodStart:            v.Reading.PeriodStart,
			PeriodEnd:              v.Reading.PeriodEnd,
			MaxSeverity:            v.Severity,
			RepresentativeScore:    v.DeviationScore,
			RepresentativeStrategy: v.Strategy,
			MemberCount:            1,
		},
		best: math.Abs(v.DeviationScore),
	}
}

func (c *cluster) extend(v models.MAnomalyVerdict) {
	c.pending = 0
	c.record.MemberCount++
	if v.Reading.PeriodEnd.After(c.record.PeriodEnd) {
		c.record.PeriodEnd = v.Reading.PeriodEnd
	}
	if v.Severity > c.record.MaxSeverity {
		c.record.MaxSeverity = v.Severity
	}
	// earliest member wins ties
	if magnitude := math.Abs(v.DeviationScore); magnitude > c.best {
		c.best = magnitude
		c.record.RepresentativeScore = v.DeviationScore
		c.record.RepresentativeStrategy = v.Strategy
	}
}

func (c *cluster) close() models.MAnomalyRecord {
	c.record.ID = RecordID(c.record.CustomerID, c.record.UtilityType, c.record.PeriodStart)
	return c.record
}

// -----------------------------------------------------------------------------

// RecordID derives a stable identifier from the record's pair and start.
func RecordID(customerID string, utility models.MUtilityType, periodStart time.Time) string {
	name := customerID + "/" + string(utility) + "/" + periodStart.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(recordNamespace, []byte(name)).String()
}

// -----------------------------------------------------------------------------

// SortRecords orders records by severity desc, then period start, customer,
// utility and period end ascending.
func SortRecords(records []models.MAnomalyRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.MaxSeverity != b.MaxSeverity {
			return a.MaxSeverity > b.MaxSeverity
		}
		if !a.PeriodStart.Equal(b.PeriodStart) {
			return a.PeriodStart.Before(b.PeriodStart)
		}
		if a.CustomerID != b.CustomerID {
			return a.CustomerID < b.CustomerID
		}
		if a.UtilityType != b.UtilityType {
			return a.UtilityType < b.UtilityType
		}
		return a.PeriodEnd.Before(b.PeriodEnd)
	})
}
