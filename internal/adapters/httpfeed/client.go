package httpfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/transitboard/transitboard/internal/constants"
	"github.com/transitboard/transitboard/internal/deferred"
	"github.com/transitboard/transitboard/internal/domain"
	"github.com/transitboard/transitboard/internal/ratelimiting"
)

// A 429 is retried once, right away, if the server asks us to wait less
// than this
const MaxRetryDelay = 5 * time.Second

var (
	ErrRateLimited      = fmt.Errorf("%w: rate limited", domain.ErrTemporarilyUnavailable)
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

type RateLimitError struct {
	URL           string
	RetryAfter    time.Duration
	HasRetryAfter bool
}

func (e *RateLimitError) Error() string {
	if !e.HasRetryAfter {
		return fmt.Sprintf("%s: %s without Retry-After", ErrRateLimited, e.URL)
	}
	return fmt.Sprintf("%s: %s asked to retry after %s", ErrRateLimited, e.URL, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Runner runs blocking work off the event loop and posts results back to it
type Runner interface {
	Post(fn func()) bool
	Go(name string, fn func())
}

type httpFeedMetricsCollection struct {
	requestCount metric.Int64Counter
	retryCount   metric.Int64Counter
}

func setupHTTPFeedMetrics(meter metric.Meter) (httpFeedMetricsCollection, error) {
	requestCount, err := meter.Int64Counter("httpfeed/request_count")
	if err != nil {
		return httpFeedMetricsCollection{}, fmt.Errorf("failed to create request count metric: %w", err)
	}

	retryCount, err := meter.Int64Counter("httpfeed/retry_count")
	if err != nil {
		return httpFeedMetricsCollection{}, fmt.Errorf("failed to create retry count metric: %w", err)
	}

	return httpFeedMetricsCollection{
		requestCount: requestCount,
		retryCount:   retryCount,
	}, nil
}

// Client fetches JSON documents from one remote API
type Client struct {
	name       string
	httpClient HttpClient
	runner     Runner
	limiter    ratelimiting.RateLimiter
	header     http.Header
	timeout    time.Duration
	logger     *slog.Logger

	metrics httpFeedMetricsCollection
	tracer  trace.Tracer
}

func NewClient(
	name string,
	httpClient HttpClient,
	runner Runner,
	limiter ratelimiting.RateLimiter,
	header http.Header,
	timeout time.Duration,
	logger *slog.Logger,
) (*Client, error) {
	instrumentationName := "transitboard/httpfeed/" + name

	metrics, err := setupHTTPFeedMetrics(otel.Meter(instrumentationName))
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	if header == nil {
		header = http.Header{}
	}

	return &Client{
		name:       name,
		httpClient: httpClient,
		runner:     runner,
		limiter:    limiter,
		header:     header,
		timeout:    timeout,
		logger:     logger.With("component", "httpfeed", "feed", name),

		metrics: metrics,
		tracer:  otel.Tracer(instrumentationName),
	}, nil
}

// NewHTTPClient returns an instrumented client for use with NewClient
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

// Get requests rawURL and returns the body of a 200 response. Blocks.
//
// A 429 response with a Retry-After below MaxRetryDelay is retried once
// without waiting. The limiter still paces the retry.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "httpfeed.Get")
	defer span.End()

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url %s: %w", rawURL, err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	data, err := c.do(ctx, u)

	var rateLimitErr *RateLimitError
	if !errors.As(err, &rateLimitErr) || !shouldRetry(rateLimitErr) {
		return data, err
	}

	c.logger.InfoContext(ctx, "Rate limited, retrying", "url", u.Path, "retryAfter", rateLimitErr.RetryAfter.String())
	c.metrics.retryCount.Add(ctx, 1)

	return c.do(ctx, u)
}

func shouldRetry(err *RateLimitError) bool {
	return err.HasRetryAfter && err.RetryAfter < MaxRetryDelay
}

func (c *Client) do(ctx context.Context, u *url.URL) ([]byte, error) {
	if err := c.limiter.Wait(ctx, ratelimiting.HostKey(u)); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range c.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("User-Agent", constants.USER_AGENT)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.requestCount.Add(
		ctx,
		1,
		metric.WithAttributes(
			attribute.String("host", u.Host),
			attribute.String("status_code", strconv.Itoa(resp.StatusCode)),
		),
	)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return data, nil
	case http.StatusTooManyRequests:
		retryAfter, ok := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &RateLimitError{URL: u.Path, RetryAfter: retryAfter, HasRetryAfter: ok}
	case http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: %s returned status code %d", domain.ErrTemporarilyUnavailable, u.Path, resp.StatusCode)
	}

	return nil, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, u.Path, resp.StatusCode)
}

// parseRetryAfter reads a delay in whole seconds
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// GetJSON fetches rawURL off the event loop and resolves the returned
// Deferred on the loop with the decoded body.
func GetJSON[T any](c *Client, rawURL string, query url.Values) *deferred.Deferred[T] {
	result := deferred.New[T]()

	c.runner.Go(c.name+" "+rawURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		var value T
		data, err := c.Get(ctx, rawURL, query)
		if err == nil {
			if jsonErr := json.Unmarshal(data, &value); jsonErr != nil {
				err = fmt.Errorf("failed to parse response from %s: %w", rawURL, jsonErr)
			}
		}
		if err != nil {
			c.logger.WarnContext(ctx, "Request failed", "url", rawURL, "error", err.Error())
		}

		posted := c.runner.Post(func() {
			if err != nil {
				result.Fail(err)
				return
			}
			result.Succeed(value)
		})
		if !posted {
			c.logger.InfoContext(ctx, "Dropped response after shutdown", "url", rawURL)
		}
	})

	return result
}
