package scheduler

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type cronLogger struct {
	log *zap.SugaredLogger
}

// NewCronLogger adapts a zap logger to cron.Logger.
// cron's routine info messages are logged at debug level.
func NewCronLogger(log *zap.Logger) cron.Logger {
	return cronLogger{log: log.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
