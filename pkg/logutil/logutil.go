package logutil

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// InitLogger builds the process-wide zap logger. Level is taken from
// AVX_AGENT_LOG_LEVEL (debug, info, warn, error), defaulting to info.
func InitLogger() {
	once.Do(func() {
		level := zapcore.InfoLevel
		if raw, ok := os.LookupEnv("AVX_AGENT_LOG_LEVEL"); ok {
			if err := level.Set(raw); err != nil {
				level = zapcore.InfoLevel
			}
		}

		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

		l, err := cfg.Build()
		if err != nil {
			l = zap.NewNop()
		}
		logger = l
	})
}

// GetLogger returns the process-wide logger, initializing it on first use.
func GetLogger() *zap.Logger {
	if logger == nil {
		InitLogger()
	}
	return logger
}
