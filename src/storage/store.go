package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"usage-watch/src/analysis"
	"usage-watch/src/helpers"
	"usage-watch/src/logger"
	"usage-watch/src/metrics"
	"usage-watch/src/models"

	"github.com/jmoiron/sqlx"
)

// -----------------------------------------------------------------------------
// SQLStore holds the SQL shared by the SQLite and Postgres backends. Queries
// are written with '?' placeholders and rebound for the driver. Timestamps
// are stored as unix seconds.
// -----------------------------------------------------------------------------

type SQLStore struct {
	Config *models.MConfig
	DB     *sqlx.DB
	Logger *logger.Logger

	prefix string // table qualifier, e.g. `"schema".`
}

// Row shapes scanned by sqlx
type readingRow struct {
	ID          int64   `db:"id"`
	CustomerID  string  `db:"customer_id"`
	UtilityType string  `db:"utility_type"`
	PeriodStart int64   `db:"period_start"`
	PeriodEnd   int64   `db:"period_end"`
	Quantity    float64 `db:"quantity"`
}

type profileRow struct {
	CustomerID        string  `db:"customer_id"`
	UtilityType       string  `db:"utility_type"`
	SampleCount       int     `db:"sample_count"`
	Center            float64 `db:"center"`
	Spread            float64 `db:"spread"`
	LastUpdatedPeriod int64   `db:"last_updated_period"`
	Insufficient      int     `db:"insufficient"`
	TotalObserved     int64   `db:"total_observed"`
	WindowJSON        string  `db:"window_json"`
	UpdatedAt         int64   `db:"updated_at"`
}

type recordRow struct {
	ID                     string  `db:"id"`
	CustomerID             string  `db:"customer_id"`
	UtilityType            string  `db:"utility_type"`
	PeriodStart            int64   `db:"period_start"`
	PeriodEnd              int64   `db:"period_end"`
	MaxSeverity            int     `db:"max_severity"`
	RepresentativeScore    float64 `db:"representative_score"`
	RepresentativeStrategy string  `db:"representative_strategy"`
	MemberCount            int     `db:"member_count"`
	DetectedAt             int64   `db:"detected_at"`
}

// -----------------------------------------------------------------------------

func (s *SQLStore) table(name string) string {
	return s.prefix + name
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func (s *SQLStore) ready() error {
	if s.DB == nil {
		return helpers.NewDatabaseError("store access", errors.New("database not initialized"))
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) FetchReadings(ctx context.Context, query models.MReadingQuery) ([]models.MUsageReading, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	// 1. Build the filter
	var where []string
	var args []interface{}
	if query.CustomerID != "" {
		where = append(where, "customer_id = ?")
		args = append(args, query.CustomerID)
	}
	if query.UtilityType != "" {
		where = append(where, "utility_type = ?")
		args = append(args, string(query.UtilityType))
	}
	if !query.From.IsZero() {
		where = append(where, "period_start >= ?")
		args = append(args, query.From.Unix())
	}
	if !query.To.IsZero() {
		where = append(where, "period_start < ?")
		args = append(args, query.To.Unix())
	}

	q := fmt.Sprintf(`SELECT id, customer_id, utility_type, period_start, period_end, quantity FROM %s`, s.table("usage_readings"))
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY customer_id, utility_type, period_start"

	// 2. Scan
	var rows []readingRow
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(q), args...); err != nil {
		return nil, helpers.NewDatabaseError("fetch readings", err)
	}

	// 3. Convert, skipping invalid rows
	readings := make([]models.MUsageReading, 0, len(rows))
	for _, row := range rows {
		r := models.MUsageReading{
			ID:          row.ID,
			CustomerID:  row.CustomerID,
			UtilityType: models.MUtilityType(row.UtilityType),
			PeriodStart: unixTime(row.PeriodStart),
			PeriodEnd:   unixTime(row.PeriodEnd),
			Quantity:    row.Quantity,
		}
		if err := helpers.ValidateReading(r); err != nil {
			s.rejectReading(err)
			continue
		}
		readings = append(readings, r)
	}

	return readings, nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) rejectReading(err error) {
	field := "unknown"
	var vErr *helpers.ValidationError
	if errors.As(err, &vErr) {
		field = vErr.Field
	}
	metrics.ReadingsRejectedTotal.WithLabelValues(field).Inc()
	s.Logger.Warning("Skipping stored reading: %v", err)
}

// -----------------------------------------------------------------------------

func (s *SQLStore) SaveReadingsBulk(ctx context.Context, readings []models.MUsageReading) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if len(readings) == 0 {
		return 0, nil
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, helpers.NewDatabaseError("begin readings tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, s.DB.Rebind(fmt.Sprintf(`
		INSERT INTO %s (customer_id, utility_type, period_start, period_end, quantity)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (customer_id, utility_type, period_start) DO UPDATE SET
			period_end = excluded.period_end,
			quantity = excluded.quantity
	`, s.table("usage_readings"))))
	if err != nil {
		return 0, helpers.NewDatabaseError("prepare readings insert", err)
	}
	defer stmt.Close()

	written := 0
	for _, r := range readings {
		if err := helpers.ValidateReading(r); err != nil {
			s.rejectReading(err)
			continue
		}
		if _, err := stmt.ExecContext(ctx, r.CustomerID, string(r.UtilityType), r.PeriodStart.Unix(), r.PeriodEnd.Unix(), r.Quantity); err != nil {
			return 0, helpers.NewDatabaseError("insert reading", err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, helpers.NewDatabaseError("commit readings", err)
	}
	return written, nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) LoadProfiles(ctx context.Context) ([]models.MUsageProfile, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var rows []profileRow
	q := fmt.Sprintf(`SELECT customer_id, utility_type, sample_count, center, spread, last_updated_period,
		insufficient, total_observed, window_json, updated_at FROM %s ORDER BY customer_id, utility_type`, s.table("usage_profiles"))
	if err := s.DB.SelectContext(ctx, &rows, q); err != nil {
		return nil, helpers.NewDatabaseError("load profiles", err)
	}

	profiles := make([]models.MUsageProfile, 0, len(rows))
	for _, row := range rows {
		p := models.MUsageProfile{
			CustomerID:        row.CustomerID,
			UtilityType:       models.MUtilityType(row.UtilityType),
			SampleCount:       row.SampleCount,
			Center:            row.Center,
			Spread:            row.Spread,
			LastUpdatedPeriod: unixTime(row.LastUpdatedPeriod),
			Insufficient:      row.Insufficient != 0,
			TotalObserved:     row.TotalObserved,
			UpdatedAt:         unixTime(row.UpdatedAt),
		}
		if row.WindowJSON != "" {
			if err := json.Unmarshal([]byte(row.WindowJSON), &p.Window); err != nil {
				s.Logger.Warning("Discarding corrupt window for %s: %v", p.Key(), err)
				continue
			}
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) SaveProfiles(ctx context.Context, profiles []models.MUsageProfile) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(profiles) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return helpers.NewDatabaseError("begin profiles tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, s.DB.Rebind(fmt.Sprintf(`
		INSERT INTO %s (customer_id, utility_type, sample_count, center, spread, last_updated_period,
			insufficient, total_observed, window_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (customer_id, utility_type) DO UPDATE SET
			sample_count = excluded.sample_count,
			center = excluded.center,
			spread = excluded.spread,
			last_updated_period = excluded.last_updated_period,
			insufficient = excluded.insufficient,
			total_observed = excluded.total_observed,
			window_json = excluded.window_json,
			updated_at = excluded.updated_at
	`, s.table("usage_profiles"))))
	if err != nil {
		return helpers.NewDatabaseError("prepare profiles upsert", err)
	}
	defer stmt.Close()

	for _, p := range profiles {
		window, err := json.Marshal(p.Window)
		if err != nil {
			return helpers.NewDatabaseError("encode profile window", err)
		}
		insufficient := 0
		if p.Insufficient {
			insufficient = 1
		}
		if _, err := stmt.ExecContext(ctx, p.CustomerID, string(p.UtilityType), p.SampleCount, p.Center, p.Spread,
			unixSeconds(p.LastUpdatedPeriod), insufficient, p.TotalObserved, string(window), unixSeconds(p.UpdatedAt)); err != nil {
			return helpers.NewDatabaseError("upsert profile", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewDatabaseError("commit profiles", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) SaveAnomalyRecords(ctx context.Context, records []models.MAnomalyRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return helpers.NewDatabaseError("begin records tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, s.DB.Rebind(fmt.Sprintf(`
		INSERT INTO %s (id, customer_id, utility_type, period_start, period_end, max_severity,
			representative_score, representative_strategy, member_count, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			period_end = excluded.period_end,
			max_severity = excluded.max_severity,
			representative_score = excluded.representative_score,
			representative_strategy = excluded.representative_strategy,
			member_count = excluded.member_count,
			detected_at = excluded.detected_at
	`, s.table("anomaly_records"))))
	if err != nil {
		return helpers.NewDatabaseError("prepare records upsert", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.CustomerID, string(r.UtilityType), unixSeconds(r.PeriodStart),
			unixSeconds(r.PeriodEnd), int(r.MaxSeverity), r.RepresentativeScore, string(r.RepresentativeStrategy),
			r.MemberCount, unixSeconds(r.DetectedAt)); err != nil {
			return helpers.NewDatabaseError("upsert record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewDatabaseError("commit records", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) ListAnomalyRecords(ctx context.Context, filter models.MRecordFilter) ([]models.MAnomalyRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var where []string
	var args []interface{}
	if filter.CustomerID != "" {
		where = append(where, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.UtilityType != "" {
		where = append(where, "utility_type = ?")
		args = append(args, string(filter.UtilityType))
	}
	if filter.MinSeverity > models.SeverityNone {
		where = append(where, "max_severity >= ?")
		args = append(args, int(filter.MinSeverity))
	}
	if !filter.Since.IsZero() {
		where = append(where, "period_start >= ?")
		args = append(args, filter.Since.Unix())
	}

	q := fmt.Sprintf(`SELECT id, customer_id, utility_type, period_start, period_end, max_severity,
		representative_score, representative_strategy, member_count, detected_at FROM %s`, s.table("anomaly_records"))
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY max_severity DESC, period_start, customer_id, utility_type, period_end"

	var rows []recordRow
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(q), args...); err != nil {
		return nil, helpers.NewDatabaseError("list records", err)
	}

	records := make([]models.MAnomalyRecord, len(rows))
	for i, row := range rows {
		records[i] = models.MAnomalyRecord{
			ID:                     row.ID,
			CustomerID:             row.CustomerID,
			UtilityType:            models.MUtilityType(row.UtilityType),
			PeriodStart:            unixTime(row.PeriodStart),
			PeriodEnd:              unixTime(row.PeriodEnd),
			MaxSeverity:            models.MSeverity(row.MaxSeverity),
			RepresentativeScore:    row.RepresentativeScore,
			RepresentativeStrategy: models.MStrategy(row.RepresentativeStrategy),
			MemberCount:            row.MemberCount,
			DetectedAt:             unixTime(row.DetectedAt),
		}
	}
	// byte-wise string ordering is not guaranteed by every collation, so the
	// limit applies to the re-sorted slice rather than in SQL
	analysis.SortRecords(records)
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records, nil
}

// -----------------------------------------------------------------------------

// UsageTotals sums readings per calendar month of period_start. An empty
// utility covers all utilities.
func (s *SQLStore) UsageTotals(ctx context.Context, utility models.MUtilityType) ([]models.MUsageTotal, error) {
	readings, err := s.FetchReadings(ctx, models.MReadingQuery{UtilityType: utility})
	if err != nil {
		return nil, err
	}

	type bucket struct {
		month   string
		utility models.MUtilityType
	}
	totals := make(map[bucket]*models.MUsageTotal)
	for _, r := range readings {
		b := bucket{month: r.PeriodStart.Format("2006-01"), utility: r.UtilityType}
		t, ok := totals[b]
		if !ok {
			t = &models.MUsageTotal{Month: b.month, UtilityType: b.utility, Unit: b.utility.Unit()}
			totals[b] = t
		}
		t.Total += r.Quantity
		t.Readings++
	}

	out := make([]models.MUsageTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].UtilityType < out[j].UtilityType
	})
	return out, nil
}

// -----------------------------------------------------------------------------

// CleanupOldData drops readings and records whose period ended before the
// retention cutoff. A retention of zero keeps everything.
func (s *SQLStore) CleanupOldData(ctx context.Context, now time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}

	retentionDays := s.Config.Storage.DataRetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := now.UTC().AddDate(0, 0, -retentionDays).Unix()

	s.Logger.Info("Cleaning up data older than %d days (period_end < %d)...", retentionDays, cutoff)

	var errs []error
	for _, name := range []string{"usage_readings", "anomaly_records"} {
		q := s.DB.Rebind(fmt.Sprintf("DELETE FROM %s WHERE period_end < ?", s.table(name)))
		if _, err := s.DB.ExecContext(ctx, q, cutoff); err != nil {
			s.Logger.Error("Cleanup %s error: %v", name, err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return helpers.NewDatabaseError("cleanup", errors.Join(errs...))
	}

	s.Logger.Info("Cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
