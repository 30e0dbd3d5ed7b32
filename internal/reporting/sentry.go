package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/transitboard/transitboard/internal/cache"
	"github.com/transitboard/transitboard/internal/config"
	"github.com/transitboard/transitboard/internal/logging"
)

var hostRx = regexp.MustCompile(`\[:{0,2}([0-9a-f]{0,4}:?){1,8}\]:\d+`)
var ipv4Rx = regexp.MustCompile(`\b(\d{1,3}\.){3}\d{1,3}:\d+\b`)
var stationListRx = regexp.MustCompile(`(GetPrediction/)[A-Z0-9,]+`)
var stopIDRx = regexp.MustCompile(`((?:StopID|RouteID|LineCode)=)[^&"\s:]+`)

func sanitizeError(err string) string {
	err = hostRx.ReplaceAllString(err, "<host>")
	err = ipv4Rx.ReplaceAllString(err, "<host>")
	err = stationListRx.ReplaceAllString(err, "${1}<stations>")
	err = stopIDRx.ReplaceAllString(err, "${1}<id>")
	return err
}

func Report(ctx context.Context, err error, extras ...map[string]string) {
	hub := sentry.GetHubFromContext(ctx)
	logger := logging.FromContext(ctx)
	if hub == nil {
		logger.Warn("Failed to get Sentry hub from context", "error", err, "extras", extras)
		return
	}

	logger.Error(
		"Reporting error to Sentry",
		slog.String("error", err.Error()),
		slog.Any("extras", extras),
	)

	hub.WithScope(func(scope *sentry.Scope) {
		meta := MetaFromContext(ctx)
		scope.SetTags(meta.tags)
		for key, value := range meta.extras {
			scope.SetExtra(key, value)
		}
		if !meta.startedAt.IsZero() {
			scope.SetExtra("secondsSinceStart", time.Since(meta.startedAt).Seconds())
		}

		for _, extra := range extras {
			if extra == nil {
				continue
			}
			for key, value := range extra {
				scope.SetExtra(key, value)
			}
		}

		if err == nil {
			err = errors.New("No error provided")
		}

		scope.SetFingerprint([]string{"{{ default }}", sanitizeError(err.Error())})
		hub.CaptureException(err)
	})
}

// NewErrorSink returns the error sink of the feed cache. Errors are logged
// with the logger in ctx and reported to the Sentry hub in ctx, if any.
func NewErrorSink(ctx context.Context, startedAt time.Time) func(error) {
	ctx = setStartedAtInContext(ctx, startedAt)

	return func(err error) {
		errCtx := ctx

		var fetchErr *cache.FetchError
		if errors.As(err, &fetchErr) {
			errCtx = AddTagsToContext(errCtx, map[string]string{"feed": string(fetchErr.Key.Type)})
			errCtx = AddExtrasToContext(errCtx, map[string]string{"subKey": fetchErr.Key.SubKey})
			errCtx = logging.AddMetaToContext(errCtx,
				slog.String("feed", string(fetchErr.Key.Type)),
				slog.String("subKey", fetchErr.Key.SubKey),
			)
		}

		if sentry.GetHubFromContext(errCtx) == nil {
			logging.FromContext(errCtx).Error("Feed error", "error", err.Error())
			return
		}
		Report(errCtx, err)
	}
}

// InitSentry sets up the global Sentry client and returns a context carrying
// its hub together with a function flushing pending events
func InitSentry(ctx context.Context, sentryDSN string, environment string) (context.Context, func(), error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              sentryDSN,
		Environment:      environment,
		EnableTracing:    true,
		TracesSampleRate: 1.0 / 100.0,
	})
	if err != nil {
		return nil, nil, err
	}

	flush := func() {
		sentry.Flush(5 * time.Second)
	}

	return sentry.SetHubOnContext(ctx, sentry.CurrentHub().Clone()), flush, nil
}

// NewSentryOrMock initializes Sentry when a DSN is configured. Development
// runs without one.
func NewSentryOrMock(ctx context.Context, config config.Config) (context.Context, func(), error) {
	if config.SentryDSN() != "" {
		return InitSentry(ctx, config.SentryDSN(), config.Environment())
	}

	if config.IsDevelopment() {
		return ctx, func() {}, nil
	}

	return nil, nil, fmt.Errorf("Missing Sentry DSN in non-development environment")
}
