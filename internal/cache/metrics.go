package cache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type cacheMetricsCollection struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	coalesced metric.Int64Counter
	failures  metric.Int64Counter
}

var metrics cacheMetricsCollection

func init() {
	const name = "transitboard/cache"
	meter := otel.Meter(name)

	hits, err := meter.Int64Counter(
		"cache/hits",
		metric.WithDescription("Lookups answered from a fresh cache entry"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create cache hits metric: %w", err))
	}

	misses, err := meter.Int64Counter(
		"cache/misses",
		metric.WithDescription("Lookups that started a remote fetch"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create cache misses metric: %w", err))
	}

	coalesced, err := meter.Int64Counter(
		"cache/coalesced",
		metric.WithDescription("Lookups queued behind an in-flight fetch"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create cache coalesced metric: %w", err))
	}

	failures, err := meter.Int64Counter(
		"cache/failures",
		metric.WithDescription("Remote fetches that failed"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create cache failures metric: %w", err))
	}

	metrics = cacheMetricsCollection{
		hits:      hits,
		misses:    misses,
		coalesced: coalesced,
		failures:  failures,
	}
}

func feedAttributes(key FeedKey) metric.MeasurementOption {
	// Sub keys are left out to keep cardinality bounded
	return metric.WithAttributes(attribute.String("feed", string(key.Type)))
}

func recordCount(counter metric.Int64Counter, key FeedKey) {
	counter.Add(context.Background(), 1, feedAttributes(key))
}
