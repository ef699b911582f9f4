package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	LogLevel  string           `yaml:"log_level"`
	GrpcHost  string           `yaml:"grpc_host"`
	GrpcPort  int              `yaml:"grpc_port"`
	Storage   MStorageConfig   `yaml:"storage"`
	Detection MDetectionConfig `yaml:"detection"`
	Schedule  MScheduleConfig  `yaml:"schedule"`
	Sink      MSinkConfig      `yaml:"sink"`
	Log       MLogConfig       `yaml:"log"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	DataRetentionDays  int    `yaml:"data_retention_days"`
}

// MDetectionConfig holds the tunables of the estimator, detector and aggregator.
// Pointer fields distinguish "absent" from an explicit zero in YAML.
type MDetectionConfig struct {
	MinimumHistory     *int               `yaml:"minimum_history"`
	MaxHistory         *int               `yaml:"max_history"`
	ZScoreThreshold    *float64           `yaml:"zscore_threshold"`
	PctThreshold       *float64           `yaml:"pct_threshold"`
	MinCenterForZScore *float64           `yaml:"min_center_for_zscore"`
	MinCenterByUtility map[string]float64 `yaml:"min_center_by_utility"`
	CooldownPeriods    *int               `yaml:"cooldown_periods"`
	SpreadEpsilon      *float64           `yaml:"spread_epsilon"`
	Mode               string             `yaml:"mode"` // "batch" or "incremental"
	Workers            int                `yaml:"workers"`
}

type MScheduleConfig struct {
	Enabled          bool   `yaml:"enabled"`
	IntervalSeconds  int    `yaml:"interval_seconds"`
	LookbackDays     int    `yaml:"lookback_days"`
	CalendarMIC      string `yaml:"calendar_mic"`
	BusinessDaysOnly bool   `yaml:"business_days_only"`
}

type MSinkConfig struct {
	Log      bool             `yaml:"log"`
	Database bool             `yaml:"database"`
	Kafka    MKafkaSinkConfig `yaml:"kafka"`
}

type MKafkaSinkConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic"`
	MaxRetries int      `yaml:"max_retries"`
}

type MLogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}
