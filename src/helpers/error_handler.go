package helpers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"usage-watch/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type UsageWatchError struct {
	Message string
	Cause   error
}

func (e *UsageWatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *UsageWatchError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks at the boundaries
type ConfigurationError struct{ UsageWatchError }
type DatabaseError struct{ UsageWatchError }
type SinkError struct{ UsageWatchError }

// ValidationError marks a malformed reading. It is raised by the reading
// adapters and aborts processing of that reading only.
type ValidationError struct {
	UsageWatchError
	Field string
}

func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		UsageWatchError: UsageWatchError{Message: fmt.Sprintf(format, args...)},
		Field:           field,
	}
}

func NewDatabaseError(operation string, cause error) *DatabaseError {
	return &DatabaseError{UsageWatchError{Message: operation + " failed", Cause: cause}}
}

func NewSinkError(sink string, cause error) *SinkError {
	return &SinkError{UsageWatchError{Message: fmt.Sprintf("sink %s failed", sink), Cause: cause}}
}

func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{UsageWatchError{Message: fmt.Sprintf(format, args...)}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to maxRetries times, doubling the delay after
// each failure. It stops early when ctx is done.
func RetryWithBackoff(ctx context.Context, operation string, maxRetries int, baseDelay time.Duration, log *logger.Logger, fn func(context.Context) error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, maxRetries, lastErr)
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger     *logger.Logger
	errorCount atomic.Int64
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.errorCount.Store(0)
}

// ErrorCount returns the number of errors handled since the last reset.
func (e *ErrorHandler) ErrorCount() int64 {
	return e.errorCount.Load()
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) Handle(err error, context string) {
	if err != nil {
		e.errorCount.Add(1)
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
