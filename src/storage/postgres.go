package storage

import (
	"fmt"
	"regexp"
	"strings"

	"usage-watch/src/helpers"
	"usage-watch/src/logger"
	"usage-watch/src/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var unsafeSchemaChars = regexp.MustCompile(`[^a-z0-9_]`)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	SQLStore
	Schema string
}

// -----------------------------------------------------------------------------

// NewPostgresDB keeps every table in a schema named after the application.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	schema := SchemaName(cfg.Name)
	if schema == "" {
		return nil, helpers.NewConfigurationError("cannot derive a postgres schema from name %q", cfg.Name)
	}

	return &PostgresDB{
		SQLStore: SQLStore{
			Config: cfg,
			Logger: log,
			prefix: fmt.Sprintf(`"%s".`, schema),
		},
		Schema: schema,
	}, nil
}

// -----------------------------------------------------------------------------

// SchemaName lowercases name and replaces anything but [a-z0-9_] with '_'.
func SchemaName(name string) string {
	return unsafeSchemaChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping postgres", err)
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("create schema %s", d.Schema), err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	statements := []struct {
		name  string
		query string
	}{
		{"usage_readings", `
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				customer_id TEXT NOT NULL,
				utility_type TEXT NOT NULL,
				period_start BIGINT NOT NULL,
				period_end BIGINT NOT NULL,
				quantity DOUBLE PRECISION NOT NULL,
				UNIQUE (customer_id, utility_type, period_start)
			);`},
		{"usage_profiles", `
			CREATE TABLE IF NOT EXISTS %s (
				customer_id TEXT NOT NULL,
				utility_type TEXT NOT NULL,
				sample_count INTEGER NOT NULL,
				center DOUBLE PRECISION NOT NULL,
				spread DOUBLE PRECISION NOT NULL,
				last_updated_period BIGINT NOT NULL,
				insufficient INTEGER NOT NULL,
				total_observed BIGINT NOT NULL,
				window_json TEXT NOT NULL,
				updated_at BIGINT NOT NULL,
				PRIMARY KEY (customer_id, utility_type)
			);`},
		{"anomaly_records", `
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				customer_id TEXT NOT NULL,
				utility_type TEXT NOT NULL,
				period_start BIGINT NOT NULL,
				period_end BIGINT NOT NULL,
				max_severity INTEGER NOT NULL,
				representative_score DOUBLE PRECISION NOT NULL,
				representative_strategy TEXT NOT NULL,
				member_count INTEGER NOT NULL,
				detected_at BIGINT NOT NULL
			);`},
	}

	for _, st := range statements {
		if _, err := d.DB.Exec(fmt.Sprintf(st.query, d.table(st.name))); err != nil {
			return helpers.NewDatabaseError(fmt.Sprintf("create %s", st.name), err)
		}
	}
	return nil
}
