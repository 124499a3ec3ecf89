package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

type Options struct {
	Profile Profile
	Level   string // debug | info | warn | error
	Format  string // json | console
	Service string
}

// New builds the process logger. Unknown levels or formats fall back to the
// profile defaults.
func New(opt Options) (*zap.Logger, error) {
	cfg := defaultConfig(opt.Profile)
	if lvl, ok := parseLevel(opt.Level); ok {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	switch strings.ToLower(strings.TrimSpace(opt.Format)) {
	case "json":
		cfg.Encoding = "json"
	case "console", "text":
		cfg.Encoding = "console"
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if opt.Service != "" {
		logger = logger.With(zap.String("service", opt.Service))
	}
	return logger, nil
}

func defaultConfig(profile Profile) zap.Config {
	switch profile {
	case ProfileTest:
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.EncoderConfig.TimeKey = ""
		return cfg
	default:
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg
	}
}

func parseLevel(raw string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}
