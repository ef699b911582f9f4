package storage

import (
	"fmt"

	"usage-watch/src/helpers"
	"usage-watch/src/logger"
	"usage-watch/src/models"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	SQLStore
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		SQLStore: SQLStore{
			Config: cfg,
			Logger: log,
		},
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping sqlite", err)
	}

	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64 and unix seconds, REAL for float64, TEXT for string
	statements := []struct {
		name  string
		query string
	}{
		{"usage_readings", `
			CREATE TABLE IF NOT EXISTS usage_readings (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				customer_id TEXT NOT NULL,
				utility_type TEXT NOT NULL,
				period_start INTEGER NOT NULL,
				period_end INTEGER NOT NULL,
				quantity REAL NOT NULL,
				UNIQUE (customer_id, utility_type, period_start)
			);`},
		{"usage_profiles", `
			CREATE TABLE IF NOT EXISTS usage_profiles (
				customer_id TEXT NOT NULL,
				utility_type TEXT NOT NULL,
				sample_count INTEGER NOT NULL,
				center REAL NOT NULL,
				spread REAL NOT NULL,
				last_updated_period INTEGER NOT NULL,
				insufficient INTEGER NOT NULL,
				total_observed INTEGER NOT NULL,
				window_json TEXT NOT NULL,
				updated_at INTEGER NOT NULL,
				PRIMARY KEY (customer_id, utility_type)
			);`},
		{"anomaly_records", `
			CREATE TABLE IF NOT EXISTS anomaly_records (
				id TEXT PRIMARY KEY,
				customer_id TEXT NOT NULL,
				utility_type TEXT NOT NULL,
				period_start INTEGER NOT NULL,
				period_end INTEGER NOT NULL,
				max_severity INTEGER NOT NULL,
				representative_score REAL NOT NULL,
				representative_strategy TEXT NOT NULL,
				member_count INTEGER NOT NULL,
				detected_at INTEGER NOT NULL
			);`},
	}

	for _, st := range statements {
		if _, err := d.DB.Exec(st.query); err != nil {
			return helpers.NewDatabaseError(fmt.Sprintf("create %s", st.name), err)
		}
	}
	if _, err := d.DB.Exec(`CREATE INDEX IF NOT EXISTS idx_anomaly_records_customer ON anomaly_records (customer_id, utility_type)`); err != nil {
		return helpers.NewDatabaseError("create anomaly_records index", err)
	}

	return nil
}
