package main

import (
	"usage-watch/src/analysis"
	"usage-watch/src/config"
	"usage-watch/src/interfaces"
	"usage-watch/src/logger"
	"usage-watch/src/models"
	"usage-watch/src/pipeline"
	"usage-watch/src/sink"
	"usage-watch/src/storage"
)

// app holds the components every command shares.
type app struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       interfaces.IDatabase
	Sinks    *sink.MultiSink
	Pipeline *pipeline.Pipeline

	kafka *sink.KafkaSink
}

// -----------------------------------------------------------------------------

// setupApp builds the database, sinks and pipeline from conf.
func setupApp(conf *config.Config, appLogger *logger.Logger) (*app, error) {
	db, err := setupDatabase(conf.MConfig, appLogger)
	if err != nil {
		return nil, err
	}

	sinks, kafkaSink, err := setupSinks(conf.MConfig, db, appLogger)
	if err != nil {
		db.Close()
		return nil, err
	}

	facade := setupAnalysis(conf.MConfig)
	p := pipeline.NewPipeline(db, facade, sinks, logger.NewLogger(conf.MConfig, "Pipeline"))

	return &app{
		Config:   conf,
		Logger:   appLogger,
		DB:       db,
		Sinks:    sinks,
		Pipeline: p,
		kafka:    kafkaSink,
	}, nil
}

// -----------------------------------------------------------------------------

func (a *app) Close() {
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.Logger.Warning("Closing kafka writer: %v", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warning("Closing database: %v", err)
	}
}

// -----------------------------------------------------------------------------

// setupDatabase initializes the database connection based on config
func setupDatabase(config *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	var db interfaces.IDatabase
	var err error

	switch config.Storage.DBType {
	case "postgres":
		pgLogger := logger.NewLogger(config, "PostgresDB")
		db, err = storage.NewPostgresDB(config, pgLogger)
	default:
		// Default to SQLite
		sqliteLogger := logger.NewLogger(config, "SQLiteDB")
		db, err = storage.NewSQLiteDB(config, sqliteLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupSinks builds the reporting fan-out enabled in config
func setupSinks(config *models.MConfig, store interfaces.IAnomalyStore, appLogger *logger.Logger) (*sink.MultiSink, *sink.KafkaSink, error) {
	multi := sink.NewMultiSink(logger.NewLogger(config, "Sinks"), config.Sink.Kafka.MaxRetries)

	if config.Sink.Log {
		multi.Add(sink.NewLogSink(logger.NewLogger(config, "Anomalies")))
	}
	if config.Sink.Database {
		multi.Add(sink.NewDatabaseSink(store))
	}

	var kafkaSink *sink.KafkaSink
	if config.Sink.Kafka.Enabled {
		k, err := sink.NewKafkaSink(config.Sink.Kafka)
		if err != nil {
			appLogger.Critical("Failed to init kafka sink: %v", err)
			return nil, nil, err
		}
		kafkaSink = k
		multi.Add(k)
		appLogger.Info("Kafka sink publishing to %s on %v", config.Sink.Kafka.Topic, config.Sink.Kafka.Brokers)
	}

	appLogger.Info("Initialized %d reporting sinks", len(multi.Sinks))
	return multi, kafkaSink, nil
}

// -----------------------------------------------------------------------------

// setupAnalysis initializes the analysis facade
func setupAnalysis(config *models.MConfig) *analysis.AnalysisFacade {
	analysisLogger := logger.NewLogger(config, "Analysis")
	return analysis.NewAnalysisFacade(analysis.OptionsFromConfig(config.Detection), analysisLogger)
}
