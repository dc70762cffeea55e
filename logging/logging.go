// Package logging builds the zap-backed logr.Logger used across libgacha-go
// and an observer that writes engine events to it.
package logging

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels for logger.V.
const (
	DEFAULT = 0
	VERBOSE = 1
	DEBUG   = 2
)

// ErrInvalidLevel indicates an unknown log level name.
var ErrInvalidLevel = errors.New("logging: invalid level")

// Options configures New.
type Options struct {
	// Level is one of error, warn, info, verbose or debug. Empty means info.
	Level string
	// File receives log output instead of stderr when set.
	File string
	// Development enables console encoding and caller annotations.
	Development bool
}

// ParseLevel maps a level name to the zap level zapr uses for it.
// logr verbosity n is zap level -n.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "verbose":
		return zapcore.Level(-VERBOSE), nil
	case "debug":
		return zapcore.Level(-DEBUG), nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, name)
	}
}

// New returns a logger for opts and a function that flushes it.
func New(opts Options) (logr.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return logr.Discard(), nil, err
	}

	cfg := zap.NewProductionConfig()
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	if opts.File != "" {
		cfg.OutputPaths = []string{opts.File}
		cfg.ErrorOutputPaths = []string{opts.File}
	}

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return zapr.NewLogger(zl), zl.Sync, nil
}

// NewTestLogger returns a development logger that writes everything.
func NewTestLogger() logr.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-DEBUG))
	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard()
	}
	return zapr.NewLogger(zl)
}
