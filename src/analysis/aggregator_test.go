package analysis

import (
	"math/rand"
	"testing"

	"usage-watch/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorEmpty(t *testing.T) {
	agg := NewAggregator(DefaultOptions())
	assert.Empty(t, agg.Aggregate(nil))
}

func TestAggregatorScenarioC(t *testing.T) {
	agg := NewAggregator(DefaultOptions())
	r := monthly("C3", models.UtilityGas, 10, 50, 60, 10)

	records := agg.Aggregate([]models.MAnomalyVerdict{
		verdict(r[0], false, 0, models.SeverityNone),
		verdict(r[1], true, 8, models.SeverityMedium),
		verdict(r[2], true, -12, models.SeverityHigh),
		verdict(r[3], false, 0, models.SeverityNone),
	})

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "C3", rec.CustomerID)
	assert.Equal(t, r[1].PeriodStart, rec.PeriodStart)
	assert.Equal(t, r[2].PeriodEnd, rec.PeriodEnd)
	assert.Equal(t, models.SeverityHigh, rec.MaxSeverity)
	assert.Equal(t, -12.0, rec.RepresentativeScore)
	assert.Equal(t, 2, rec.MemberCount)
	assert.Equal(t, RecordID("C3", models.UtilityGas, r[1].PeriodStart), rec.ID)
}

func TestAggregatorCooldown(t *testing.T) {
	r := monthly("C1", models.UtilityElectric, 1, 2, 3, 4, 5, 6)
	verdicts := []models.MAnomalyVerdict{
		verdict(r[0], true, 4, models.SeverityLow),
		verdict(r[1], false, 0, models.SeverityNone),
		verdict(r[2], true, 5, models.SeverityLow),
		verdict(r[3], false, 0, models.SeverityNone),
		verdict(r[4], false, 0, models.SeverityNone),
		verdict(r[5], true, 4, models.SeverityLow),
	}

	opts := DefaultOptions()
	opts.CooldownPeriods = 1
	records := NewAggregator(opts).Aggregate(verdicts)
	require.Len(t, records, 2, "one-period gap joins, two-period gap splits")
	assert.Equal(t, 2, records[0].MemberCount)
	assert.Equal(t, r[0].PeriodStart, records[0].PeriodStart)
	assert.Equal(t, r[2].PeriodEnd, records[0].PeriodEnd)
	assert.Equal(t, 1, records[1].MemberCount)

	opts.CooldownPeriods = 0
	assert.Len(t, NewAggregator(opts).Aggregate(verdicts), 3)

	opts.CooldownPeriods = 2
	assert.Len(t, NewAggregator(opts).Aggregate(verdicts), 1)
}

func TestAggregatorCooldownCountsMissingPeriods(t *testing.T) {
	r := monthly("C1", models.UtilityElectric, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	opts := DefaultOptions()
	opts.CooldownPeriods = 1

	// January and December with nothing read in between
	apart := []models.MAnomalyVerdict{
		verdict(r[0], true, 4, models.SeverityLow),
		verdict(r[11], true, 5, models.SeverityLow),
	}
	records := NewAggregator(opts).Aggregate(apart)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].MemberCount)
	assert.Equal(t, 1, records[1].MemberCount)

	// January and March with February unread
	hole := []models.MAnomalyVerdict{
		verdict(r[0], true, 4, models.SeverityLow),
		verdict(r[2], true, 5, models.SeverityLow),
	}
	records = NewAggregator(opts).Aggregate(hole)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].MemberCount)
	assert.Equal(t, r[2].PeriodEnd, records[0].PeriodEnd)

	opts.CooldownPeriods = 0
	assert.Len(t, NewAggregator(opts).Aggregate(hole), 2)

	// one unread month plus one quiet month exceeds a cooldown of one
	opts.CooldownPeriods = 1
	mixed := []models.MAnomalyVerdict{
		verdict(r[0], true, 4, models.SeverityLow),
		verdict(r[2], false, 0, models.SeverityNone),
		verdict(r[3], true, 5, models.SeverityLow),
	}
	assert.Len(t, NewAggregator(opts).Aggregate(mixed), 2)
	opts.CooldownPeriods = 2
	assert.Len(t, NewAggregator(opts).Aggregate(mixed), 1)
}

func TestAggregatorRepresentativeTieKeepsEarliest(t *testing.T) {
	r := monthly("C1", models.UtilityWater, 1, 2)
	records := NewAggregator(DefaultOptions()).Aggregate([]models.MAnomalyVerdict{
		verdict(r[0], true, -6, models.SeverityLow),
		verdict(r[1], true, 6, models.SeverityLow),
	})

	require.Len(t, records, 1)
	assert.Equal(t, -6.0, records[0].RepresentativeScore)
}

func TestAggregatorOrderingAndDeterminism(t *testing.T) {
	a := monthly("A", models.UtilityElectric, 1, 2, 3)
	b := monthly("B", models.UtilityGas, 1, 2, 3)
	c := monthly("A", models.UtilityWater, 1, 2, 3)

	verdicts := []models.MAnomalyVerdict{
		verdict(a[0], true, 4, models.SeverityLow),
		verdict(a[2], true, 12, models.SeverityHigh),
		verdict(b[0], true, 8, models.SeverityMedium),
		verdict(c[0], true, 4, models.SeverityLow),
		verdict(b[1], false, 0, models.SeverityNone),
		verdict(c[1], false, 0, models.SeverityNone),
		verdict(a[1], false, 0, models.SeverityNone),
	}

	want := NewAggregator(DefaultOptions()).Aggregate(verdicts)
	require.Len(t, want, 3)
	assert.Equal(t, "A", want[0].CustomerID)
	assert.Equal(t, models.SeverityHigh, want[0].MaxSeverity)
	assert.Equal(t, 2, want[0].MemberCount)
	assert.Equal(t, "B", want[1].CustomerID)
	assert.Equal(t, models.UtilityWater, want[2].UtilityType)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.MAnomalyVerdict(nil), verdicts...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, NewAggregator(DefaultOptions()).Aggregate(shuffled))
	}
}

func TestAggregatorIgnoresNonAnomalous(t *testing.T) {
	r := monthly("C1", models.UtilityGas, 1, 2, 3)
	records := NewAggregator(DefaultOptions()).Aggregate([]models.MAnomalyVerdict{
		verdict(r[0], false, 1, models.SeverityNone),
		verdict(r[1], false, 2, models.SeverityNone),
	})
	assert.Empty(t, records)
}
