package log

import (
	"go.uber.org/zap"
)

// CronLogger adapts a sugared logger to the robfig/cron Logger interface.
type CronLogger struct {
	Logger *zap.SugaredLogger
}

func (l CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Debugw(msg, keysAndValues...)
}

func (l CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.Logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
