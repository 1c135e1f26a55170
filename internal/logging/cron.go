package logging

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// CronLogger adapts slog to cron.Logger so skipped and recovered jobs show up
// in the process log.
type CronLogger struct {
	logger *slog.Logger
}

var _ cron.Logger = (*CronLogger)(nil)

// NewCronLogger wraps logger for use with cron.WithLogger and the job wrappers.
func NewCronLogger(logger *slog.Logger) *CronLogger {
	return &CronLogger{logger: logger.With("component", "cron")}
}

// Info logs at debug level; cron is chatty about every schedule tick.
func (l *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
