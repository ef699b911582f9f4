package analysis

import (
	"testing"

	"usage-watch/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatorEmptyInput(t *testing.T) {
	est := NewEstimator(DefaultOptions())

	p := est.Update(nil, nil)
	assert.True(t, p.Insufficient)
	assert.Zero(t, p.SampleCount)
	assert.Zero(t, p.Center)
	assert.Zero(t, p.Spread)
}

func TestEstimatorRobustBaseline(t *testing.T) {
	est := NewEstimator(DefaultOptions())

	p := est.Update(nil, monthly("C1", models.UtilityElectric, 100, 102, 98, 101, 99))
	assert.Equal(t, "C1", p.CustomerID)
	assert.Equal(t, models.UtilityElectric, p.UtilityType)
	assert.Equal(t, 5, p.SampleCount)
	assert.False(t, p.Insufficient)
	assert.Equal(t, 100.0, p.Center)
	assert.InDelta(t, 1.4826, p.Spread, 1e-9)
	assert.Equal(t, month(2023, 5), p.LastUpdatedPeriod)
	assert.EqualValues(t, 5, p.TotalObserved)
}

func TestEstimatorMinimumHistoryBoundary(t *testing.T) {
	opts := DefaultOptions()
	opts.MinimumHistory = 3
	est := NewEstimator(opts)

	two := est.Update(nil, monthly("C1", models.UtilityGas, 10, 11))
	assert.True(t, two.Insufficient)

	three := est.Update(nil, monthly("C1", models.UtilityGas, 10, 11, 12))
	assert.False(t, three.Insufficient)
}

func TestEstimatorIdempotent(t *testing.T) {
	est := NewEstimator(DefaultOptions())
	batch := monthly("C1", models.UtilityWater, 50, 52, 48, 51)

	first := est.Update(nil, batch)
	second := est.Update(&first, batch)

	assert.Equal(t, first, second)
}

func TestEstimatorDoesNotMutateInput(t *testing.T) {
	est := NewEstimator(DefaultOptions())
	readings := monthly("C1", models.UtilityWater, 50, 52, 48, 51, 49)

	first := est.Update(nil, readings[:3])
	window := append([]models.MWindowSample(nil), first.Window...)

	_ = est.Update(&first, readings[3:])
	assert.Equal(t, window, first.Window)
}

func TestEstimatorWindowBounded(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxHistory = 4
	est := NewEstimator(opts)

	p := est.Update(nil, monthly("C1", models.UtilityElectric, 1000, 1000, 10, 10, 10, 10))
	require.Len(t, p.Window, 4)
	assert.Equal(t, 4, p.SampleCount)
	assert.Equal(t, 10.0, p.Center, "oldest samples are evicted first")
	assert.EqualValues(t, 6, p.TotalObserved)
}

func TestEstimatorRederivesStoredProfile(t *testing.T) {
	readings := monthly("C1", models.UtilityElectric, 100, 102, 98, 101, 99)
	stored := NewEstimator(DefaultOptions()).Update(nil, readings)
	require.Len(t, stored.Window, 5)
	require.False(t, stored.Insufficient)

	opts := DefaultOptions()
	opts.MaxHistory = 3
	opts.MinimumHistory = 4
	est := NewEstimator(opts)

	p := est.Update(&stored, readings)
	require.Len(t, p.Window, 3)
	assert.Equal(t, month(2023, 3), p.Window[0].PeriodStart, "newest samples are kept")
	assert.Equal(t, 3, p.SampleCount)
	assert.Equal(t, 99.0, p.Center)
	assert.True(t, p.Insufficient)
	assert.Equal(t, stored.LastUpdatedPeriod, p.LastUpdatedPeriod)
	assert.Equal(t, stored.TotalObserved, p.TotalObserved)

	assert.Equal(t, p, est.Update(&p, readings), "a re-derived profile is stable")

	opts.MinimumHistory = 3
	relaxed := NewEstimator(opts).Update(&p, nil)
	assert.False(t, relaxed.Insufficient)
}

func TestEstimatorIncrementalMatchesBatch(t *testing.T) {
	est := NewEstimator(DefaultOptions())
	readings := monthly("C1", models.UtilityElectric, 100, 120, 90, 105, 99, 130)

	batch := est.Update(nil, readings)

	var inc models.MUsageProfile
	for i, r := range readings {
		if i == 0 {
			inc = est.Update(nil, []models.MUsageReading{r})
			continue
		}
		inc = est.Update(&inc, []models.MUsageReading{r})
	}

	assert.Equal(t, batch.Center, inc.Center)
	assert.Equal(t, batch.Spread, inc.Spread)
	assert.Equal(t, batch.Window, inc.Window)
}
