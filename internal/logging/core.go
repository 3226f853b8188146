package logging

import (
	"errors"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// otelScope is the instrumentation scope of bridged log records.
const otelScope = "staticpatcher"

var errNoOutput = errors.New("at least one output must be enabled and available")

// newCore tees the enabled outputs and wraps the result in the sampler.
// The OTEL output is skipped when no provider is available.
func newCore(cfg *Config, provider log.LoggerProvider, w zapcore.WriteSyncer) (zapcore.Core, error) {
	var outputs []zapcore.Core
	if cfg.Output.Stderr && w != nil {
		outputs = append(outputs, zapcore.NewCore(newEncoder(cfg.Format), w, cfg.Level))
	}
	if cfg.Output.OTEL && provider != nil {
		outputs = append(outputs, otelzap.NewCore(otelScope, otelzap.WithLoggerProvider(provider)))
	}
	if len(outputs) == 0 {
		return nil, errNoOutput
	}
	// NewTee returns a lone core unwrapped.
	return newSampledCore(zapcore.NewTee(outputs...), cfg.Sampling), nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(LevelString(l))
	}
	if format == "console" {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}
