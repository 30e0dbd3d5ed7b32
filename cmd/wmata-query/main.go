// wmata-query answers one-off questions about the WMATA and Capital Bikeshare
// feeds from an interactive prompt.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback"
	"golang.org/x/sync/errgroup"

	"github.com/transitboard/transitboard/internal/adapters/httpfeed"
	"github.com/transitboard/transitboard/internal/app"
	"github.com/transitboard/transitboard/internal/commands"
	"github.com/transitboard/transitboard/internal/config"
	"github.com/transitboard/transitboard/internal/eventloop"
	"github.com/transitboard/transitboard/internal/logging"
	"github.com/transitboard/transitboard/internal/reporting"
)

const prompt = "wmata> "

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.AddToContext(ctx, logger)

	loop := eventloop.New(logger)

	feeds, stopFeeds, err := app.BuildFeeds(
		conf,
		app.DefaultEndpoints,
		loop,
		httpfeed.NewHTTPClient(conf.HTTPTimeout()),
		reporting.NewErrorSink(ctx, time.Now()),
		time.Now,
		logger,
	)
	if err != nil {
		fail("Failed to initialize feeds", "error", err.Error())
	}
	defer stopFeeds()

	queries := commands.NewQuerySet(loop, feeds.WMATA, feeds.Bikes, feeds.Resolver, os.Stdout, conf.HTTPTimeout())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})

	go func() {
		defer stop()
		repl(gctx, queries)
	}()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fail("Event loop failed", "error", err.Error())
	}
}

func repl(ctx context.Context, queries *commands.Set) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(prompt)
		if !scanner.Scan() {
			fmt.Println()
			return
		}

		err := queries.Dispatch(ctx, scanner.Text())
		switch {
		case err == nil:
		case errors.Is(err, commands.ErrQuit):
			return
		case errors.Is(err, context.Canceled):
			return
		default:
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
	}
}
