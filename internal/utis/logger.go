package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger: console encoding for the dev
// environment, JSON elsewhere, with the level taken from configuration.
func NewLogger(env, level string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if env == "dev" || env == "development" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return z.Sugar(), nil
}
