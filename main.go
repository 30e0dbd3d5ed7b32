package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/crypto/x509roots/fallback"
	"golang.org/x/sync/errgroup"

	"github.com/transitboard/transitboard/internal/adapters/httpfeed"
	"github.com/transitboard/transitboard/internal/app"
	"github.com/transitboard/transitboard/internal/commands"
	"github.com/transitboard/transitboard/internal/config"
	"github.com/transitboard/transitboard/internal/display"
	"github.com/transitboard/transitboard/internal/eventloop"
	"github.com/transitboard/transitboard/internal/logging"
	"github.com/transitboard/transitboard/internal/reporting"
	"github.com/transitboard/transitboard/internal/telemetry"
)

const serviceName = "transitboard"

func main() {
	instanceID := uuid.New().String()
	// stdout belongs to the board
	logger := slog.New(logging.NewTracingLogHandler(slog.NewJSONHandler(os.Stderr, nil))).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	if err := config.LoadDotEnv(); err != nil {
		fail("Failed to load .env", "error", err.Error())
	}
	conf, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", conf.NonSensitiveString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.OTLPEnabled() {
		shutdown, err := telemetry.SetupOTelSDK(ctx, serviceName)
		if err != nil {
			fail("Failed to set up OpenTelemetry", "error", err.Error())
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("Failed to shut down OpenTelemetry", "error", err.Error())
			}
		}()
		logger.Info("Initialized OpenTelemetry")
	}

	ctx = logging.AddToContext(ctx, logger)

	ctx, flush, err := reporting.NewSentryOrMock(ctx, conf)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry")

	sink := reporting.NewErrorSink(ctx, time.Now())

	loop := eventloop.New(logger.With("component", "eventloop"))

	feeds, stopFeeds, err := app.BuildFeeds(
		conf,
		app.DefaultEndpoints,
		loop,
		httpfeed.NewHTTPClient(conf.HTTPTimeout()),
		sink,
		time.Now,
		logger,
	)
	if err != nil {
		fail("Failed to initialize feeds", "error", err.Error())
	}
	defer stopFeeds()

	board, err := app.BuildBoard(conf, feeds, loop, display.NewText(os.Stdout, logger), logger)
	if err != nil {
		fail("Failed to initialize board", "error", err.Error())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		err := commands.ReadKeys(ctx, os.Stdin, commands.NewKeySet(board), logger)
		switch {
		case errors.Is(err, commands.ErrQuit):
			logger.Info("Quit requested")
			cancel()
		case err != nil && !errors.Is(err, context.Canceled):
			logger.Error("Stopped reading keys", "error", err.Error())
		default:
			// Without a keyboard the board runs until it is signalled
			logger.Info("Stopped reading keys")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		board.Stop()
		return nil
	})

	preflight(loop, feeds, logger)
	board.Start()
	logger.Info("Init complete")

	err = g.Wait()
	loop.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		fail("Event loop failed", "error", err.Error())
	}
	logger.Info("Shutdown complete")
}

// preflight resolves the feed hosts once so a broken resolver shows up in the
// log before the first refresh fails
func preflight(loop *eventloop.Loop, feeds app.Feeds, logger *slog.Logger) {
	for _, endpoint := range []string{app.DefaultEndpoints.WMATABaseURL, app.DefaultEndpoints.BikeshareStatus} {
		u, err := url.Parse(endpoint)
		if err != nil {
			logger.Error("Invalid feed endpoint", "endpoint", endpoint, "error", err.Error())
			continue
		}
		host := u.Hostname()
		loop.Post(func() {
			feeds.Resolver.Resolve(host, func(addresses []string) {
				logger.Info("Resolved feed host", "host", host, "addresses", addresses)
			})
		})
	}
}
