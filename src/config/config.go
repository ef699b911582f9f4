package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"usage-watch/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from a YAML file, .env and environment
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Environment overrides (.env is optional)
	_ = godotenv.Load()
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	// 4. Fill defaults, then validate
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{MConfig: &models.MConfig{}}
	c.ApplyDefaults()
	return c
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides file settings with USAGE_WATCH_* environment variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDBType); v != "" {
		c.Storage.DBType = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv(EnvDBDSN); v != "" {
		c.Storage.DBConnectionString = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvKafkaBrokers); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Sink.Kafka.Brokers = brokers
		c.Sink.Kafka.Enabled = len(brokers) > 0
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Port = port
	}
	if v := os.Getenv(EnvGrpcPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvGrpcPort, v, err)
		}
		c.GrpcPort = port
	}
	return nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills every unset option with its documented default
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.GrpcPort == 0 {
		c.GrpcPort = DefaultGrpcPort
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		c.Storage.DBPath = DefaultDBPath
	}

	d := &c.Detection
	if d.MinimumHistory == nil {
		d.MinimumHistory = intPtr(DefaultMinimumHistory)
	}
	if d.MaxHistory == nil {
		d.MaxHistory = intPtr(DefaultMaxHistory)
	}
	if d.ZScoreThreshold == nil {
		d.ZScoreThreshold = floatPtr(DefaultZScoreThreshold)
	}
	if d.PctThreshold == nil {
		d.PctThreshold = floatPtr(DefaultPctThreshold)
	}
	if d.MinCenterForZScore == nil {
		d.MinCenterForZScore = floatPtr(DefaultMinCenterForZScore)
	}
	if d.CooldownPeriods == nil {
		d.CooldownPeriods = intPtr(DefaultCooldownPeriods)
	}
	if d.SpreadEpsilon == nil {
		d.SpreadEpsilon = floatPtr(DefaultSpreadEpsilon)
	}
	if d.Mode == "" {
		d.Mode = ModeBatch
	}
	if d.Workers == 0 {
		d.Workers = DefaultWorkers
	}

	if c.Schedule.IntervalSeconds == 0 {
		c.Schedule.IntervalSeconds = DefaultScheduleIntervalSeconds
	}
	if c.Schedule.LookbackDays == 0 {
		c.Schedule.LookbackDays = DefaultLookbackDays
	}
	if c.Schedule.CalendarMIC == "" {
		c.Schedule.CalendarMIC = DefaultCalendarMIC
	}

	if c.Sink.Kafka.Topic == "" {
		c.Sink.Kafka.Topic = DefaultKafkaTopic
	}
	if c.Sink.Kafka.MaxRetries == 0 {
		c.Sink.Kafka.MaxRetries = DefaultSinkRetries
	}
}

// -----------------------------------------------------------------------------

// Validate performs configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort <= 1024 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid gRPC port number: %d (must be between 1025 and 65535)", c.GrpcPort)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type %q", c.Storage.DBType)
	}
	if c.Storage.DataRetentionDays < 0 {
		return fmt.Errorf("data retention days cannot be negative")
	}

	if err := c.validateDetection(); err != nil {
		return err
	}

	// Validate Schedule configuration
	if c.Schedule.IntervalSeconds < 0 {
		return fmt.Errorf("schedule interval cannot be negative")
	}
	if c.Schedule.LookbackDays < 0 {
		return fmt.Errorf("schedule lookback days cannot be negative")
	}

	// Validate Sink configuration
	if c.Sink.Kafka.Enabled {
		if len(c.Sink.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka sink enabled without brokers")
		}
		if c.Sink.Kafka.Topic == "" {
			return fmt.Errorf("kafka sink enabled without topic")
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func (c *Config) validateDetection() error {
	d := c.Detection

	if d.MinimumHistory != nil && *d.MinimumHistory < 0 {
		return fmt.Errorf("minimum_history cannot be negative")
	}
	if d.MaxHistory != nil && *d.MaxHistory < 0 {
		return fmt.Errorf("max_history cannot be negative")
	}
	if d.MinimumHistory != nil && d.MaxHistory != nil && *d.MaxHistory < *d.MinimumHistory {
		return fmt.Errorf("max_history (%d) must be at least minimum_history (%d)", *d.MaxHistory, *d.MinimumHistory)
	}
	if d.ZScoreThreshold != nil && *d.ZScoreThreshold < 0 {
		return fmt.Errorf("zscore_threshold cannot be negative")
	}
	if d.PctThreshold != nil && *d.PctThreshold < 0 {
		return fmt.Errorf("pct_threshold cannot be negative")
	}
	if d.MinCenterForZScore != nil && *d.MinCenterForZScore < 0 {
		return fmt.Errorf("min_center_for_zscore cannot be negative")
	}
	for utility, v := range d.MinCenterByUtility {
		if _, err := models.ParseUtilityType(utility); err != nil {
			return fmt.Errorf("min_center_by_utility: %w", err)
		}
		if v < 0 {
			return fmt.Errorf("min_center_by_utility[%s] cannot be negative", utility)
		}
	}
	if d.CooldownPeriods != nil && *d.CooldownPeriods < 0 {
		return fmt.Errorf("cooldown_periods cannot be negative")
	}
	if d.SpreadEpsilon != nil && *d.SpreadEpsilon <= 0 {
		return fmt.Errorf("spread_epsilon must be positive")
	}
	if d.Mode != "" && d.Mode != ModeBatch && d.Mode != ModeIncremental {
		return fmt.Errorf("unknown detection mode %q (expected %q or %q)", d.Mode, ModeBatch, ModeIncremental)
	}
	if d.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
