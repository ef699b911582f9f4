package config

// Defaults for every recognized option.
const (
	DefaultName     = "usage-watch"
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 8000
	DefaultGrpcPort = 50051
	DefaultDBPath   = "usage-watch.db"

	DefaultMinimumHistory     = 3
	DefaultMaxHistory         = 24
	DefaultZScoreThreshold    = 3.5
	DefaultPctThreshold       = 0.5
	DefaultMinCenterForZScore = 1.0
	DefaultCooldownPeriods    = 1
	DefaultSpreadEpsilon      = 1e-6
	DefaultWorkers            = 4

	DefaultScheduleIntervalSeconds = 3600
	DefaultLookbackDays            = 3 * 365
	DefaultCalendarMIC             = "xnys"

	DefaultKafkaTopic  = "usage-anomalies"
	DefaultSinkRetries = 3
)

// Detection modes.
const (
	ModeBatch       = "batch"
	ModeIncremental = "incremental"
)

// Environment overrides.
const (
	EnvDBType       = "USAGE_WATCH_DB_TYPE"
	EnvDBPath       = "USAGE_WATCH_DB_PATH"
	EnvDBDSN        = "USAGE_WATCH_DB_DSN"
	EnvLogLevel     = "USAGE_WATCH_LOG_LEVEL"
	EnvKafkaBrokers = "USAGE_WATCH_KAFKA_BROKERS"
	EnvPort         = "USAGE_WATCH_PORT"
	EnvGrpcPort     = "USAGE_WATCH_GRPC_PORT"
)
