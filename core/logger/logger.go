package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a new zap logger based on the configuration.
func New(cfg *Config) (*zap.Logger, error) {
	var config zap.Config

	if cfg.Level == "debug" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		config.Level = zap.NewAtomicLevelAt(level)
	}

	// Set format based on configuration
	if cfg.Format == "console" {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.DisableStacktrace = true
	} else {
		config.Encoding = "json"
	}

	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.MessageKey = "message"
	// Reports go to stdout; logs stay on stderr.
	config.OutputPaths = []string{"stderr"}

	return config.Build()
}

// WithSession returns a logger tagged with the repair session and world.
func WithSession(l *zap.Logger, session, world string) *zap.Logger {
	fields := make([]zap.Field, 0, 2)
	if session != "" {
		fields = append(fields, zap.String("session", session))
	}
	if world != "" {
		fields = append(fields, zap.String("world", world))
	}
	return l.With(fields...)
}
