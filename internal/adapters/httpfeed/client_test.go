package httpfeed_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/transitboard/transitboard/internal/adapters/httpfeed"
	"github.com/transitboard/transitboard/internal/deferred"
	"github.com/transitboard/transitboard/internal/domain"
)

type inlineRunner struct{}

func (inlineRunner) Post(fn func()) bool {
	fn()
	return true
}

func (inlineRunner) Go(_ string, fn func()) {
	fn()
}

type recordingLimiter struct {
	mu   sync.Mutex
	keys []string
}

func (l *recordingLimiter) Consume(key string) bool {
	return true
}

func (l *recordingLimiter) Wait(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return nil
}

type response struct {
	status     int
	retryAfter string
	body       string
}

type scriptedServer struct {
	t         *testing.T
	server    *httptest.Server
	mu        sync.Mutex
	responses []response
	requests  []*http.Request
}

func newScriptedServer(t *testing.T, responses ...response) *scriptedServer {
	t.Helper()

	s := &scriptedServer{t: t, responses: responses}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.requests = append(s.requests, r)
		if len(s.responses) == 0 {
			t.Errorf("unexpected request %s", r.URL)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		next := s.responses[0]
		s.responses = s.responses[1:]

		if next.retryAfter != "" {
			w.Header().Set("Retry-After", next.retryAfter)
		}
		w.WriteHeader(next.status)
		_, _ = io.WriteString(w, next.body)
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *scriptedServer) request(i int) *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

func (s *scriptedServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newTestClient(t *testing.T, header http.Header, timeout time.Duration) (*httpfeed.Client, *recordingLimiter) {
	t.Helper()

	limiter := &recordingLimiter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := httpfeed.NewClient(
		"test",
		http.DefaultClient,
		inlineRunner{},
		limiter,
		header,
		timeout,
		logger,
	)
	require.NoError(t, err)
	return client, limiter
}

type linesResponse struct {
	Lines []struct {
		LineCode string `json:"LineCode"`
	} `json:"Lines"`
}

func resultOf[T any](t *testing.T, d *deferred.Deferred[T]) (T, error) {
	t.Helper()

	value, ok, err := d.Result()
	require.True(t, ok, "deferred should be resolved")
	return value, err
}

func TestGetJSON(t *testing.T) {
	t.Parallel()

	t.Run("decodes the body and sends headers and query", func(t *testing.T) {
		t.Parallel()

		server := newScriptedServer(t, response{status: 200, body: `{"Lines":[{"LineCode":"RD"},{"LineCode":"BL"}]}`})
		client, limiter := newTestClient(t, http.Header{"Api_key": []string{"secret"}}, 5*time.Second)

		value, err := resultOf(t, httpfeed.GetJSON[linesResponse](client, server.server.URL+"/Rail.svc/json/jLines", url.Values{"LineCode": {"RD"}}))
		require.NoError(t, err)
		require.Len(t, value.Lines, 2)
		require.Equal(t, "BL", value.Lines[1].LineCode)

		require.Equal(t, 1, server.requestCount())
		request := server.request(0)
		require.Equal(t, "secret", request.Header.Get("api_key"))
		require.Equal(t, "RD", request.URL.Query().Get("LineCode"))
		require.NotEmpty(t, request.UserAgent())

		serverURL, err := url.Parse(server.server.URL)
		require.NoError(t, err)
		require.Equal(t, []string{"host: " + serverURL.Host}, limiter.keys)
	})

	t.Run("malformed body fails", func(t *testing.T) {
		t.Parallel()

		server := newScriptedServer(t, response{status: 200, body: `{"Lines":`})
		client, _ := newTestClient(t, nil, 5*time.Second)

		_, err := resultOf(t, httpfeed.GetJSON[linesResponse](client, server.server.URL, nil))
		require.ErrorContains(t, err, "failed to parse response")
	})

	t.Run("server error fails", func(t *testing.T) {
		t.Parallel()

		server := newScriptedServer(t, response{status: 500, body: "oops"})
		client, _ := newTestClient(t, nil, 5*time.Second)

		_, err := resultOf(t, httpfeed.GetJSON[linesResponse](client, server.server.URL, nil))
		require.ErrorIs(t, err, httpfeed.ErrUnexpectedStatus)
		require.Equal(t, 1, server.requestCount())
	})

	t.Run("unavailable is temporary", func(t *testing.T) {
		t.Parallel()

		server := newScriptedServer(t, response{status: 503})
		client, _ := newTestClient(t, nil, 5*time.Second)

		_, err := resultOf(t, httpfeed.GetJSON[linesResponse](client, server.server.URL, nil))
		require.ErrorIs(t, err, domain.ErrTemporarilyUnavailable)
		require.NotErrorIs(t, err, httpfeed.ErrRateLimited)
	})
}

func TestRateLimitRetry(t *testing.T) {
	t.Parallel()

	okBody := `{"Lines":[]}`

	tests := []struct {
		name             string
		responses        []response
		expectedRequests int
		expectSuccess    bool
	}{
		{
			name: "short retry after is retried once",
			responses: []response{
				{status: 429, retryAfter: "2"},
				{status: 200, body: okBody},
			},
			expectedRequests: 2,
			expectSuccess:    true,
		},
		{
			name: "zero retry after",
			responses: []response{
				{status: 429, retryAfter: "0"},
				{status: 200, body: okBody},
			},
			expectedRequests: 2,
			expectSuccess:    true,
		},
		{
			name: "retry after just below the threshold",
			responses: []response{
				{status: 429, retryAfter: "4"},
				{status: 200, body: okBody},
			},
			expectedRequests: 2,
			expectSuccess:    true,
		},
		{
			name: "second rate limit fails",
			responses: []response{
				{status: 429, retryAfter: "1"},
				{status: 429, retryAfter: "1"},
			},
			expectedRequests: 2,
		},
		{
			name:             "retry after at the threshold fails",
			responses:        []response{{status: 429, retryAfter: "5"}},
			expectedRequests: 1,
		},
		{
			name:             "long retry after fails",
			responses:        []response{{status: 429, retryAfter: "30"}},
			expectedRequests: 1,
		},
		{
			name:             "missing retry after fails",
			responses:        []response{{status: 429}},
			expectedRequests: 1,
		},
		{
			name:             "unparseable retry after fails",
			responses:        []response{{status: 429, retryAfter: "Wed, 21 Oct 2015 07:28:00 GMT"}},
			expectedRequests: 1,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			server := newScriptedServer(t, test.responses...)
			client, limiter := newTestClient(t, nil, 5*time.Second)

			_, err := resultOf(t, httpfeed.GetJSON[linesResponse](client, server.server.URL, nil))
			if test.expectSuccess {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, httpfeed.ErrRateLimited)
				require.ErrorIs(t, err, domain.ErrTemporarilyUnavailable)
			}
			require.Equal(t, test.expectedRequests, server.requestCount())
			// Every attempt goes through the limiter
			require.Len(t, limiter.keys, test.expectedRequests)
		})
	}

	t.Run("retry does not wait out the requested delay", func(t *testing.T) {
		t.Parallel()

		server := newScriptedServer(t,
			response{status: 429, retryAfter: "4"},
			response{status: 200, body: okBody},
		)
		client, _ := newTestClient(t, nil, time.Second)

		start := time.Now()
		_, err := resultOf(t, httpfeed.GetJSON[linesResponse](client, server.server.URL, nil))
		require.NoError(t, err)
		require.Equal(t, 2, server.requestCount())
		require.Less(t, time.Since(start), time.Second)
	})
}
