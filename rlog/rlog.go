// Package rlog adapts go.uber.org/zap to types.Logger, the scheduler's
// logging seam. Grounded on the zap usage in the rest of the pack
// (karpenter-provider-aws, codenerd use a process-wide *zap.SugaredLogger
// for exactly this kind of Debugf/Infof/Warnf/Errorf surface).
package rlog

import (
	"go.uber.org/zap"

	"github.com/productgraph/pgsched/types"
)

// Logger wraps a zap.SugaredLogger behind types.Logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a production zap logger (JSON encoding, info level) wrapped as
// a types.Logger.
func New() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar()}, nil
}

// NewDevelopment builds a development zap logger (console encoding, debug
// level, caller info), for CLI use.
func NewDevelopment() (*Logger, error) {
	z, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar()}, nil
}

// NewFromZap wraps an already-constructed zap logger, for callers that want
// custom cores or sinks.
func NewFromZap(z *zap.Logger) *Logger {
	return &Logger{sugar: z.Sugar()}
}

func (l *Logger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

// Sync flushes any buffered log entries, following the zap idiom of calling
// Sync before process exit.
func (l *Logger) Sync() error { return l.sugar.Sync() }

var _ types.Logger = (*Logger)(nil)
