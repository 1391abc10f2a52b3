package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const meterName = "github.com/zatekoja/marketdiscovery"

// Metrics holds all application metrics
type Metrics struct {
	SearchCount          metric.Int64Counter
	SearchDuration       metric.Float64Histogram
	NoResultCount        metric.Int64Counter
	DegradedAppendCount  metric.Int64Counter
	RecommendationCount  metric.Int64Counter
	StrategyFailureCount metric.Int64Counter
	CacheHitCount        metric.Int64Counter
	CacheMissCount       metric.Int64Counter
}

// Setup initializes OpenTelemetry trace, metric and log pipelines against the
// given OTLP gRPC endpoint and returns a combined shutdown function.
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	// Traces
	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Metrics
	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Minute)); err != nil {
		return nil, err
	}

	// Logs
	logExporter, err := otlploggrpc.New(ctx,
		otlploggrpc.WithEndpoint(endpoint),
		otlploggrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
			loggerProvider.Shutdown(ctx),
		)
	}

	return shutdown, nil
}

// InitMetrics initializes application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	searchCount, err := meter.Int64Counter(
		"search.request.count",
		metric.WithDescription("Number of search executions"),
	)
	if err != nil {
		return nil, err
	}

	searchDuration, err := meter.Float64Histogram(
		"search.request.duration",
		metric.WithDescription("Search execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	noResultCount, err := meter.Int64Counter(
		"search.no_result.count",
		metric.WithDescription("Number of queries that produced zero results"),
	)
	if err != nil {
		return nil, err
	}

	degradedAppendCount, err := meter.Int64Counter(
		"eventlog.append.degraded.count",
		metric.WithDescription("Number of event log appends that failed after the primary result was produced"),
	)
	if err != nil {
		return nil, err
	}

	recommendationCount, err := meter.Int64Counter(
		"recommendation.request.count",
		metric.WithDescription("Number of recommendation batch generations"),
	)
	if err != nil {
		return nil, err
	}

	strategyFailureCount, err := meter.Int64Counter(
		"recommendation.strategy.failure.count",
		metric.WithDescription("Number of isolated strategy failures inside the hybrid combiner"),
	)
	if err != nil {
		return nil, err
	}

	cacheHitCount, err := meter.Int64Counter(
		"cache.hit.count",
		metric.WithDescription("Number of cache hits"),
	)
	if err != nil {
		return nil, err
	}

	cacheMissCount, err := meter.Int64Counter(
		"cache.miss.count",
		metric.WithDescription("Number of cache misses"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		SearchCount:          searchCount,
		SearchDuration:       searchDuration,
		NoResultCount:        noResultCount,
		DegradedAppendCount:  degradedAppendCount,
		RecommendationCount:  recommendationCount,
		StrategyFailureCount: strategyFailureCount,
		CacheHitCount:        cacheHitCount,
		CacheMissCount:       cacheMissCount,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(meterName)
	return tracer.Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// RecordSearchMetric records one search execution
func RecordSearchMetric(ctx context.Context, metrics *Metrics, intent string, resultCount int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("search.intent", intent))
	metrics.SearchCount.Add(ctx, 1, attrs)
	metrics.SearchDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if resultCount == 0 {
		metrics.NoResultCount.Add(ctx, 1)
	}
}

// RecordDegradedAppend records a failed event log append on the read path
func RecordDegradedAppend(ctx context.Context, metrics *Metrics, source string) {
	if metrics == nil {
		return
	}
	metrics.DegradedAppendCount.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordRecommendation records one recommendation batch generation
func RecordRecommendation(ctx context.Context, metrics *Metrics, contextType string, itemCount int) {
	if metrics == nil {
		return
	}
	metrics.RecommendationCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("recommendation.context", contextType),
		attribute.Int("recommendation.items", itemCount),
	))
}

// RecordStrategyFailure records an isolated recommendation strategy failure
func RecordStrategyFailure(ctx context.Context, metrics *Metrics, strategy string) {
	if metrics == nil {
		return
	}
	metrics.StrategyFailureCount.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", strategy)))
}

// RecordCacheHit records a cache hit
func RecordCacheHit(ctx context.Context, metrics *Metrics, key string) {
	if metrics == nil {
		return
	}
	metrics.CacheHitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.key", key)))
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(ctx context.Context, metrics *Metrics, key string) {
	if metrics == nil {
		return
	}
	metrics.CacheMissCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.key", key)))
}
