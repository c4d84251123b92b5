// Package logging provides the structured logger used across the usac
// engine: SPRT parameter re-estimation, degeneracy recovery, and
// termination tightening are all debug events worth tracing through a long
// run without resorting to fmt.Println.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Logger is the minimal structured-logging surface the engine depends on.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Named(name string) Logger
	Sync() error
}

type zapLogger struct {
	*zap.SugaredLogger
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{l.SugaredLogger.Named(name)}
}

// NewConfig returns the default logger config: console-encoded, colored
// levels, no stacktraces, info level by default.
func NewConfig() zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewDevelopment returns a logger at debug level, for CLI and exploratory use.
func NewDevelopment(name string) Logger {
	cfg := NewConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	base, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return &zapLogger{base.Sugar().Named(name)}
}

// NewTest returns a logger that records every entry in memory for
// assertions, mirroring the teacher's observed-test-logger pattern. Nothing
// is written to the test output.
func NewTest(tb testing.TB) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)
	tb.Cleanup(func() { _ = base.Sync() })
	return &zapLogger{base.Sugar()}, logs
}
