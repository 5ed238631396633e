package logging

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var ErrInvalidLogLevel = errors.New("invalid log level")

const DefaultServiceName = "training"

// Config mirrors LOG_LEVEL, LOG_FORMAT and LOG_OUTPUT.
type Config struct {
	Level  string
	Format string // json or console
	Output string // stdout, stderr or a file path
}

// New assembles the process logger from a single core. Every record carries
// the service name; errors at or above ErrorLevel get a stack trace.
func New(cfg Config, serviceName string) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	sink, _, err := zap.Open(outputPath(cfg.Output))
	if err != nil {
		return nil, fmt.Errorf("open log output %q: %w", cfg.Output, err)
	}
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	core := zapcore.NewCore(encoderFor(cfg.Format), sink, zap.NewAtomicLevelAt(level))
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
		zap.Fields(zap.String(FieldService, serviceName)),
	), nil
}

func outputPath(output string) string {
	if output == "" {
		return "stdout"
	}
	return output
}

func encoderFor(format string) zapcore.Encoder {
	enc := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if strings.EqualFold(format, "console") {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(enc)
	}
	return zapcore.NewJSONEncoder(enc)
}

// parseLevel accepts zap's level names in any case, plus "warning".
func parseLevel(raw string) (zapcore.Level, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "warning" {
		name = "warn"
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLogLevel, raw)
	}
	return level, nil
}
