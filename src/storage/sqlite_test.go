package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"usage-watch/src/analysis"
	"usage-watch/src/logger"
	"usage-watch/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestDB(t *testing.T) (*SQLiteDB, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := &models.MConfig{
		Name:    "usage-watch",
		Storage: models.MStorageConfig{DBType: "sqlite", DBPath: filepath.Join(t.TempDir(), "test.db")},
	}
	db, err := NewSQLiteDB(cfg, logger.NewLoggerWithCore(core, "SQLiteDB"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { _ = db.Close() })
	return db, logs
}

func reading(customer string, utility models.MUtilityType, m int, q float64) models.MUsageReading {
	start := time.Date(2024, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
	return models.MUsageReading{
		CustomerID:  customer,
		UtilityType: utility,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, 0),
		Quantity:    q,
	}
}

func TestSaveAndFetchReadings(t *testing.T) {
	db, logs := newTestDB(t)
	ctx := context.Background()

	bad := reading("C1", models.UtilityGas, 4, -3)
	n, err := db.SaveReadingsBulk(ctx, []models.MUsageReading{
		reading("C2", models.UtilityWater, 1, 30),
		reading("C1", models.UtilityElectric, 2, 110),
		reading("C1", models.UtilityElectric, 1, 100),
		bad,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, logs.FilterMessageSnippet("Skipping stored reading").Len())

	all, err := db.FetchReadings(ctx, models.MReadingQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "C1", all[0].CustomerID)
	assert.Equal(t, time.January, all[0].PeriodStart.Month())
	assert.Equal(t, 110.0, all[1].Quantity)
	assert.Equal(t, "C2", all[2].CustomerID)
	assert.NotZero(t, all[0].ID)

	filtered, err := db.FetchReadings(ctx, models.MReadingQuery{
		CustomerID:  "C1",
		UtilityType: models.UtilityElectric,
		From:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, 110.0, filtered[0].Quantity)
}

func TestSaveReadingsUpsertsOnPeriod(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.SaveReadingsBulk(ctx, []models.MUsageReading{reading("C1", models.UtilityGas, 1, 10)})
	require.NoError(t, err)
	_, err = db.SaveReadingsBulk(ctx, []models.MUsageReading{reading("C1", models.UtilityGas, 1, 12)})
	require.NoError(t, err)

	all, err := db.FetchReadings(ctx, models.MReadingQuery{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 12.0, all[0].Quantity)
}

func TestFetchSkipsInvalidStoredRows(t *testing.T) {
	db, logs := newTestDB(t)
	ctx := context.Background()

	_, err := db.DB.Exec(`INSERT INTO usage_readings (customer_id, utility_type, period_start, period_end, quantity) VALUES
		('C1', 'electric', 100, 200, 5),
		('C1', 'electric', 300, 250, 5),
		('C1', 'steam', 400, 500, 5)`)
	require.NoError(t, err)

	readings, err := db.FetchReadings(ctx, models.MReadingQuery{})
	require.NoError(t, err)
	assert.Len(t, readings, 1)
	assert.Equal(t, 2, logs.FilterMessageSnippet("Skipping stored reading").Len())
}

func TestProfilesRoundTrip(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	est := analysis.NewEstimator(analysis.DefaultOptions())
	profile := est.Update(nil, []models.MUsageReading{
		reading("C1", models.UtilityElectric, 1, 100),
		reading("C1", models.UtilityElectric, 2, 104),
		reading("C1", models.UtilityElectric, 3, 98),
	})
	profile.UpdatedAt = profile.UpdatedAt.Truncate(time.Second)

	require.NoError(t, db.SaveProfiles(ctx, []models.MUsageProfile{profile}))
	require.NoError(t, db.SaveProfiles(ctx, []models.MUsageProfile{profile}))

	loaded, err := db.LoadProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, profile, loaded[0])
}

func TestAnomalyRecordsUpsertAndOrder(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	mk := func(customer string, sev models.MSeverity, m int) models.MAnomalyRecord {
		r := reading(customer, models.UtilityWater, m, 0)
		return models.MAnomalyRecord{
			ID:                     analysis.RecordID(customer, models.UtilityWater, r.PeriodStart),
			CustomerID:             customer,
			UtilityType:            models.UtilityWater,
			PeriodStart:            r.PeriodStart,
			PeriodEnd:              r.PeriodEnd,
			MaxSeverity:            sev,
			RepresentativeScore:    4.2,
			RepresentativeStrategy: models.StrategyZScore,
			MemberCount:            1,
			DetectedAt:             time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		}
	}

	low := mk("C2", models.SeverityLow, 1)
	high := mk("C1", models.SeverityHigh, 3)
	require.NoError(t, db.SaveAnomalyRecords(ctx, []models.MAnomalyRecord{low, high}))

	low.MemberCount = 2
	require.NoError(t, db.SaveAnomalyRecords(ctx, []models.MAnomalyRecord{low}))

	all, err := db.ListAnomalyRecords(ctx, models.MRecordFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, high, all[0])
	assert.Equal(t, 2, all[1].MemberCount)

	onlyHigh, err := db.ListAnomalyRecords(ctx, models.MRecordFilter{MinSeverity: models.SeverityMedium})
	require.NoError(t, err)
	require.Len(t, onlyHigh, 1)
	assert.Equal(t, "C1", onlyHigh[0].CustomerID)

	byCustomer, err := db.ListAnomalyRecords(ctx, models.MRecordFilter{CustomerID: "C2"})
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)
}

func TestAnomalyRecordsLimitFollowsTotalOrder(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	var records []models.MAnomalyRecord
	for _, customer := range []string{"c1", "C9", "B2", "a0"} {
		r := reading(customer, models.UtilityGas, 2, 0)
		records = append(records, models.MAnomalyRecord{
			ID:                     analysis.RecordID(customer, models.UtilityGas, r.PeriodStart),
			CustomerID:             customer,
			UtilityType:            models.UtilityGas,
			PeriodStart:            r.PeriodStart,
			PeriodEnd:              r.PeriodEnd,
			MaxSeverity:            models.SeverityMedium,
			RepresentativeScore:    5,
			RepresentativeStrategy: models.StrategyZScore,
			MemberCount:            1,
			DetectedAt:             time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	require.NoError(t, db.SaveAnomalyRecords(ctx, records))

	all, err := db.ListAnomalyRecords(ctx, models.MRecordFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)

	top, err := db.ListAnomalyRecords(ctx, models.MRecordFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "B2", top[0].CustomerID)
	assert.Equal(t, "C9", top[1].CustomerID)
	assert.Equal(t, all[:2], top)

	wide, err := db.ListAnomalyRecords(ctx, models.MRecordFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, wide, 4)
}

func TestUsageTotals(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.SaveReadingsBulk(ctx, []models.MUsageReading{
		reading("C1", models.UtilityElectric, 1, 100),
		reading("C2", models.UtilityElectric, 1, 50),
		reading("C1", models.UtilityElectric, 2, 70),
		reading("C1", models.UtilityGas, 1, 9),
	})
	require.NoError(t, err)

	totals, err := db.UsageTotals(ctx, models.UtilityElectric)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "2024-01", totals[0].Month)
	assert.Equal(t, 150.0, totals[0].Total)
	assert.Equal(t, "kWh", totals[0].Unit)
	assert.Equal(t, 2, totals[0].Readings)

	all, err := db.UsageTotals(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCleanupOldData(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.SaveReadingsBulk(ctx, []models.MUsageReading{
		reading("C1", models.UtilityElectric, 1, 100),
		reading("C1", models.UtilityElectric, 6, 100),
	})
	require.NoError(t, err)

	now := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.CleanupOldData(ctx, now), "zero retention keeps everything")
	all, _ := db.FetchReadings(ctx, models.MReadingQuery{})
	assert.Len(t, all, 2)

	db.Config.Storage.DataRetentionDays = 90
	require.NoError(t, db.CleanupOldData(ctx, now))
	all, _ = db.FetchReadings(ctx, models.MReadingQuery{})
	require.Len(t, all, 1)
	assert.Equal(t, time.June, all[0].PeriodStart.Month())
}

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "usage_watch", SchemaName("Usage-Watch"))
	assert.Equal(t, "", SchemaName("  "))
}

func TestUninitializedStore(t *testing.T) {
	db, err := NewSQLiteDB(&models.MConfig{}, logger.NewLogger(nil, "SQLiteDB"))
	require.NoError(t, err)

	_, err = db.FetchReadings(context.Background(), models.MReadingQuery{})
	assert.Error(t, err)
}
