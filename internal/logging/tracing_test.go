package logging_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/transitboard/transitboard/internal/logging"
)

func TestTracingLogHandler(t *testing.T) {
	t.Parallel()

	w := newWriter(t)
	logger := slog.New(logging.NewTracingLogHandler(slog.NewJSONHandler(w, nil))).With("component", "test")

	t.Run("without span", func(t *testing.T) {
		logger.InfoContext(t.Context(), "no span")

		entry, ok := w.PopWithoutTime()
		require.True(t, ok)
		require.Equal(t, map[string]any{
			"level":     "INFO",
			"msg":       "no span",
			"component": "test",
		}, entry)
	})

	t.Run("with span", func(t *testing.T) {
		provider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
		ctx, span := provider.Tracer("test").Start(t.Context(), "span")
		defer span.End()

		logger.InfoContext(ctx, "in span")

		entry, ok := w.PopWithoutTime()
		require.True(t, ok)
		require.Equal(t, map[string]any{
			"level":         "INFO",
			"msg":           "in span",
			"component":     "test",
			"trace_id":      span.SpanContext().TraceID().String(),
			"span_id":       span.SpanContext().SpanID().String(),
			"trace_sampled": true,
		}, entry)
	})

	w.RequireEmpty()
}
