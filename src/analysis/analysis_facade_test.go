package analysis

import (
	"context"
	"testing"

	"usage-watch/src/logger"
	"usage-watch/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestFacade(opts Options) (*AnalysisFacade, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewAnalysisFacade(opts, logger.NewLoggerWithCore(core, "Analysis")), logs
}

func TestRunScenarioD(t *testing.T) {
	facade, _ := newTestFacade(DefaultOptions())
	table := NewProfileTable()

	result, err := facade.Run(context.Background(), nil, table)
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Verdicts)
	assert.Zero(t, result.Summary.PairsProcessed)
	assert.Zero(t, table.Len())
}

func TestRunEndToEnd(t *testing.T) {
	facade, _ := newTestFacade(DefaultOptions())
	table := NewProfileTable()

	var readings []models.MUsageReading
	readings = append(readings, monthly("C1", models.UtilityElectric, 100, 102, 98, 101, 99, 400)...)
	readings = append(readings, monthly("C2", models.UtilityWater, 0, 0, 0, 0, 0, 5)...)
	readings = append(readings, monthly("C9", models.UtilityGas, 10, 11)...)

	result, err := facade.Run(context.Background(), readings, table)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Summary.PairsProcessed)
	assert.Equal(t, 14, result.Summary.Verdicts)
	assert.Equal(t, 2, result.Summary.AnomalousVerdicts)
	require.Len(t, result.Records, 2)
	for _, rec := range result.Records {
		assert.Equal(t, models.SeverityHigh, rec.MaxSeverity)
		assert.False(t, rec.DetectedAt.IsZero())
	}
	// equal severity, equal start: customer breaks the tie
	assert.Equal(t, "C1", result.Records[0].CustomerID)
	assert.Equal(t, "C2", result.Records[1].CustomerID)

	assert.Equal(t, 3, table.Len())
	insufficient, ok := table.Get(models.MPairKey{CustomerID: "C9", UtilityType: models.UtilityGas})
	require.True(t, ok)
	assert.True(t, insufficient.Insufficient)

	for _, v := range result.Verdicts {
		if v.Reading.CustomerID == "C9" {
			assert.Equal(t, models.StrategyInsufficientHistory, v.Strategy)
			assert.False(t, v.IsAnomalous)
		}
	}
}

func TestRunSkipsInvalidReadings(t *testing.T) {
	facade, logs := newTestFacade(DefaultOptions())

	readings := monthly("C1", models.UtilityElectric, 100, 102, 98, 101)
	readings[1].Quantity = -5
	readings[2].PeriodEnd = readings[2].PeriodStart

	result, err := facade.Run(context.Background(), readings, NewProfileTable())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.ReadingsRejected)
	assert.Equal(t, 2, result.Summary.Verdicts)
	assert.Equal(t, 2, logs.FilterMessageSnippet("Skipping reading").Len())
}

func TestRunIsRepeatable(t *testing.T) {
	facade, _ := newTestFacade(DefaultOptions())
	table := NewProfileTable()
	readings := monthly("C1", models.UtilityElectric, 100, 102, 98, 101, 99, 400, 101)

	first, err := facade.Run(context.Background(), readings, table)
	require.NoError(t, err)
	second, err := facade.Run(context.Background(), readings, table)
	require.NoError(t, err)

	require.Len(t, first.Records, 1)
	require.Len(t, second.Records, 1)
	assert.Equal(t, first.Records[0].ID, second.Records[0].ID)
	assert.Equal(t, first.Profiles, second.Profiles)
}

func TestRunIncrementalMode(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = ModeIncremental
	facade, _ := newTestFacade(opts)

	readings := monthly("C1", models.UtilityElectric, 100, 102, 98, 101, 99, 400)
	result, err := facade.Run(context.Background(), readings, NewProfileTable())
	require.NoError(t, err)

	require.Len(t, result.Verdicts, 6)
	// the first three readings are judged before history exists
	for _, v := range result.Verdicts[:3] {
		assert.Equal(t, models.StrategyInsufficientHistory, v.Strategy)
	}
	last := result.Verdicts[5]
	assert.True(t, last.IsAnomalous)
	assert.Equal(t, 100.0, last.ProfileCenter, "judged against the baseline before absorbing 400")
	require.Len(t, result.Records, 1)
	assert.Equal(t, 6, result.Profiles[0].SampleCount)
}

func TestRunHonorsCancelledContext(t *testing.T) {
	facade, _ := newTestFacade(DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := facade.Run(ctx, monthly("C1", models.UtilityGas, 1, 2, 3), NewProfileTable())
	assert.ErrorIs(t, err, context.Canceled)
}
