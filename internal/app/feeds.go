package app

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/transitboard/transitboard/internal/adapters/bikeshare"
	"github.com/transitboard/transitboard/internal/adapters/httpfeed"
	"github.com/transitboard/transitboard/internal/adapters/wmata"
	"github.com/transitboard/transitboard/internal/cache"
	"github.com/transitboard/transitboard/internal/config"
	"github.com/transitboard/transitboard/internal/eventloop"
	"github.com/transitboard/transitboard/internal/ratelimiting"
)

// Endpoints of the remote feeds. Tests point these at local servers.
type Endpoints struct {
	WMATABaseURL    string
	BikeshareStatus string
	BikeshareInfo   string
}

var DefaultEndpoints = Endpoints{
	WMATABaseURL:    wmata.DefaultBaseURL,
	BikeshareStatus: bikeshare.DefaultStatusURL,
	BikeshareInfo:   bikeshare.DefaultInfoURL,
}

// Feeds are the cached remote feeds, all owned by one event loop
type Feeds struct {
	Cache    *cache.Cache
	WMATA    *wmata.Client
	Bikes    *bikeshare.Client
	Resolver *cache.HostResolver
}

// BuildFeeds wires the cache, the rate limiter and the feed clients to loop.
// The returned function releases the rate limiter.
func BuildFeeds(
	conf config.Config,
	endpoints Endpoints,
	loop *eventloop.Loop,
	httpClient httpfeed.HttpClient,
	sink cache.ErrorSink,
	nowFunc func() time.Time,
	logger *slog.Logger,
) (Feeds, func(), error) {
	limiter, stopLimiter := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(conf.RateLimitPerSecond()),
		ratelimiting.BurstSize(conf.RateLimitBurst()),
	)

	fail := func(err error) (Feeds, func(), error) {
		stopLimiter()
		return Feeds{}, nil, err
	}

	feedCache := cache.New(logger, sink, nowFunc)

	header := http.Header{}
	if conf.WMATAAPIKey() != "" {
		header.Set("api_key", conf.WMATAAPIKey())
	}
	wmataFeed, err := httpfeed.NewClient("wmata", httpClient, loop, limiter, header, conf.HTTPTimeout(), logger)
	if err != nil {
		return fail(fmt.Errorf("failed to create WMATA feed: %w", err))
	}

	bikeshareFeed, err := httpfeed.NewClient("bikeshare", httpClient, loop, limiter, nil, conf.HTTPTimeout(), logger)
	if err != nil {
		return fail(fmt.Errorf("failed to create bikeshare feed: %w", err))
	}

	wmataClient, err := wmata.New(feedCache, wmataFeed, endpoints.WMATABaseURL, sink)
	if err != nil {
		return fail(fmt.Errorf("failed to create WMATA client: %w", err))
	}

	return Feeds{
		Cache:    feedCache,
		WMATA:    wmataClient,
		Bikes:    bikeshare.New(feedCache, bikeshareFeed, endpoints.BikeshareStatus, endpoints.BikeshareInfo, sink),
		Resolver: cache.NewHostResolver(feedCache, loop, net.DefaultResolver, conf.HTTPTimeout()),
	}, stopLimiter, nil
}
