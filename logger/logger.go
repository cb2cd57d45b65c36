package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger. Console output is human readable in
// development and JSON in release. When filePath is set, a rotated JSON copy
// is written there as well.
func New(level, filePath string, isProd bool) *zap.Logger {
	lvl := parseLevel(level)

	jsonEncoder := zapcore.NewJSONEncoder(fileEncoderConfig())

	var consoleEncoder zapcore.Encoder
	if isProd {
		consoleEncoder = jsonEncoder
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), lvl),
	}

	if filePath != "" {
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator(filePath)), lvl))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// NewFileOnly logs to the rotated file alone, leaving stdout to the caller.
// With no path it returns a no-op logger.
func NewFileOnly(level, filePath string) *zap.Logger {
	if filePath == "" {
		return zap.NewNop()
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig()), zapcore.AddSync(rotator(filePath)), parseLevel(level))
	return zap.New(core, zap.AddCaller())
}

func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.MessageKey = "message"
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func rotator(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
}

func parseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
