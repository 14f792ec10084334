package log

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	SourceHTTP    = zap.String("source", "http")
	SourceDB      = zap.String("source", "gorm")
	SourceFiles   = zap.String("source", "uploads")
	SourceArchive = zap.String("source", "hdf5")
)

// New builds a zap logger. Debug mode uses the development encoder with
// coloured levels; otherwise JSON with ISO8601 timestamps.
func New(level string, isDebug bool) (*zap.Logger, error) {
	var config zap.Config

	if isDebug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	return config.Build()
}

// ParseLevel maps a config string to a zap level, defaulting to error.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "TRACE", "DEBUG":
		return zap.DebugLevel
	case "INFO":
		return zap.InfoLevel
	case "WARN":
		return zap.WarnLevel
	}
	return zap.ErrorLevel
}
