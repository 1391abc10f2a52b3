package observability

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// InitLogger configures the global zerolog logger. Development gets a human
// console writer; everything else emits JSON with caller info.
func InitLogger(serviceName, env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	base := zerolog.New(os.Stdout)
	if env == "development" || env == "dev" {
		base = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		base = base.With().Caller().Logger()
	}

	log.Logger = base.With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// LoggerFromContext returns a logger carrying the active trace and span ids,
// so search and recommendation log lines correlate with their traces.
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	logger := log.With().Logger()

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		logger = logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return &logger
}

// GetLogger returns the global logger.
func GetLogger() *zerolog.Logger {
	return &log.Logger
}
