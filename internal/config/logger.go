package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger собирает zap-логгер: console с цветными уровнями для разработки, json для прода
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level := parseLogLevel(cfg.Level)

	format := cfg.Format
	if format == "" {
		format = LogFormatJSON
		if level == zapcore.DebugLevel {
			format = LogFormatConsole
		}
	}

	var zc zap.Config
	if format == LogFormatConsole {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Encoding = format
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.CallerKey = "caller"
	zc.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	if cfg.Service != "" {
		zc.InitialFields = map[string]any{"service": cfg.Service}
	}

	return zc.Build()
}

func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}
