package provider

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// restyLogger routes resty's own diagnostics into the zap stream.
type restyLogger struct {
	logger *zap.Logger
}

func newRestyLogger(logger *zap.Logger) *restyLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &restyLogger{logger: logger.With(zap.String("component", "resty"))}
}

func (l *restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(restyMessage(format, v...))
}

func (l *restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(restyMessage(format, v...))
}

func (l *restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(restyMessage(format, v...))
}

func restyMessage(format string, v ...interface{}) string {
	return strings.TrimSpace(strings.TrimPrefix(fmt.Sprintf(format, v...), "RESTY "))
}
