package logger

import (
	"os"
	"strings"
	"sync"

	"usage-watch/src/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// -----------------------------------------------------------------------------

// Logger provides named, printf-style structured logging on top of zap
type Logger struct {
	name  string
	sugar *zap.SugaredLogger
}

// rotators are shared per file so every named logger writes through one
// lumberjack instance.
var (
	rotatorsMu sync.Mutex
	rotators   = make(map[string]*lumberjack.Logger)
)

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance. A nil config logs INFO to stdout.
func NewLogger(config *models.MConfig, name string) *Logger {
	return NewLoggerWithCore(buildCore(config), name)
}

// -----------------------------------------------------------------------------

// NewLoggerWithCore wraps an existing zap core (used by tests with observers).
func NewLoggerWithCore(core zapcore.Core, name string) *Logger {
	base := zap.New(core).Named(name)
	return &Logger{
		name:  name,
		sugar: base.Sugar(),
	}
}

// -----------------------------------------------------------------------------

// Named returns a child logger sharing the same outputs.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		name:  l.name + "." + name,
		sugar: l.sugar.Named(name),
	}
}

// -----------------------------------------------------------------------------

func buildCore(config *models.MConfig) zapcore.Core {
	level := zapcore.InfoLevel
	if config != nil {
		level = ParseLevel(config.LogLevel)
	}

	consoleCfg := zap.NewProductionEncoderConfig()
	consoleCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	console := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), level)

	if config == nil || config.Log.File == "" {
		return console
	}

	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	file := zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(rotatorFor(config.Log)), level)

	return zapcore.NewTee(console, file)
}

// -----------------------------------------------------------------------------

func rotatorFor(cfg models.MLogConfig) *lumberjack.Logger {
	rotatorsMu.Lock()
	defer rotatorsMu.Unlock()

	if r, ok := rotators[cfg.File]; ok {
		return r
	}
	r := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	rotators[cfg.File] = r
	return r
}

// -----------------------------------------------------------------------------

// ParseLevel maps the config log level names onto zap levels.
func ParseLevel(raw string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.sugar.Fatalf(format, args...)
}

// -----------------------------------------------------------------------------

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// -----------------------------------------------------------------------------

// CloseRotators closes every rotating log file opened by this package.
func CloseRotators() {
	rotatorsMu.Lock()
	defer rotatorsMu.Unlock()

	for name, r := range rotators {
		_ = r.Close()
		delete(rotators, name)
	}
}
