// Package vmlog provides structured logging for the interpreter using zap,
// and a vm.Logger adapter so the core can report fatal errors and warnings
// through it without depending on zap directly.
package vmlog

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with glulxvm-specific helpers.
type Logger struct {
	*zap.Logger
}

var (
	L    *Logger
	once sync.Once
)

// Init initializes the global logger. Safe to call multiple times; only the
// first call takes effect.
func Init(debug bool) {
	once.Do(func() {
		L = New(debug)
	})
}

// New creates a standalone Logger instance.
func New(debug bool) *Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		logger = zap.NewNop()
	}
	return &Logger{Logger: logger}
}

// NewNop creates a no-op logger, for tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// PC formats a VM program counter as a log field.
func PC(pc uint32) zap.Field {
	return zap.String("pc", fmt.Sprintf("%06x", pc))
}

// Session formats a run's session identifier as a log field, so a run's
// messages can be correlated in aggregated log output.
func Session(id string) zap.Field {
	return zap.String("session", id)
}

// VMAdapter implements vm.Logger over a Logger, so the interpreter core can
// report diagnostics without importing zap itself.
type VMAdapter struct {
	*Logger
}

func (a VMAdapter) Warn(msg string) {
	a.Logger.Warn(msg)
}

func (a VMAdapter) Fatal(msg string, pc uint32) {
	a.Logger.Error(msg, PC(pc))
}
