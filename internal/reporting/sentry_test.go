package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/transitboard/transitboard/internal/cache"
	"github.com/transitboard/transitboard/internal/logging"
)

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	t.Run("connection reset by peer", func(t *testing.T) {
		t.Parallel()

		err := `failed to send request: Get "https://api.wmata.com/StationPrediction.svc/json/GetPrediction/A01,C01": read tcp [dead:beef:feb1:d745::c001]:64079->[dead:beef::6811:112a]:443: read: connection reset by peer`
		want := `failed to send request: Get "https://api.wmata.com/StationPrediction.svc/json/GetPrediction/<stations>": read tcp <host>-><host>: read: connection reset by peer`
		require.Equal(t, want, sanitizeError(err))
	})
	t.Run("ipv4", func(t *testing.T) {
		t.Parallel()

		err := `failed to send request: Get "https://gbfs.capitalbikeshare.com/gbfs/en/station_status.json": dial tcp 192.0.2.1:443: i/o timeout`
		want := `failed to send request: Get "https://gbfs.capitalbikeshare.com/gbfs/en/station_status.json": dial tcp <host>: i/o timeout`
		require.Equal(t, want, sanitizeError(err))
	})
	t.Run("context deadline", func(t *testing.T) {
		t.Parallel()

		err := `failed to send request: Get "https://api.wmata.com/NextBusService.svc/json/jPredictions?StopID=1001724": context deadline exceeded (Client.Timeout exceeded while awaiting headers)`
		want := `failed to send request: Get "https://api.wmata.com/NextBusService.svc/json/jPredictions?StopID=<id>": context deadline exceeded (Client.Timeout exceeded while awaiting headers)`
		require.Equal(t, want, sanitizeError(err))
	})
	t.Run("query parameters", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			error string
			want  string
		}{
			{
				error: `unexpected status code: /Rail.svc/json/jStations?LineCode=RD returned 500`,
				want:  `unexpected status code: /Rail.svc/json/jStations?LineCode=<id> returned 500`,
			},
			{
				error: `failed to parse response from https://api.wmata.com/Bus.svc/json/jRouteDetails?RouteID=42&Date=2024-01-01: unexpected end of JSON input`,
				want:  `failed to parse response from https://api.wmata.com/Bus.svc/json/jRouteDetails?RouteID=<id>&Date=2024-01-01: unexpected end of JSON input`,
			},
			{
				// No match
				error: `unknown station: "Z99"`,
				want:  `unknown station: "Z99"`,
			},
		}
		for _, tc := range cases {
			t.Run(tc.error, func(t *testing.T) {
				t.Parallel()

				require.Equal(t, tc.want, sanitizeError(tc.error))
			})
		}
	})
	t.Run("misc ipv6", func(t *testing.T) {
		t.Parallel()

		ips := []string{
			`1:2:3:4:5:6:7:8`,
			`1::`,
			`1:2:3:4:5:6:7::`,
			`1::8`,
			`1:2:3:4:5:6::8`,
			`1::7:8`,
			`1:2:3:4:5::7:8`,
			`1::6:7:8`,
			`1:2:3:4::6:7:8`,
			`1::5:6:7:8`,
			`1:2:3::5:6:7:8`,
			`1::4:5:6:7:8`,
			`1:2::4:5:6:7:8`,
			`1::3:4:5:6:7:8`,
			`::2:3:4:5:6:7:8`,
			`::8`,
			`::`,
		}
		for _, ip := range ips {
			t.Run(ip, func(t *testing.T) {
				t.Parallel()

				require.Equal(t, "<host>", sanitizeError(fmt.Sprintf("[%s]:1234", ip)))
			})
		}
	})
}

func TestContextMeta(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	require.Empty(t, MetaFromContext(ctx).tags)

	withTags := AddTagsToContext(ctx, map[string]string{"feed": "next_trains"})
	withExtras := AddExtrasToContext(withTags, map[string]string{"subKey": "A01"})
	startedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	withStart := setStartedAtInContext(withExtras, startedAt)

	meta := MetaFromContext(withStart)
	require.Equal(t, map[string]string{"feed": "next_trains"}, meta.tags)
	require.Equal(t, map[string]string{"subKey": "A01"}, meta.extras)
	require.Equal(t, startedAt, meta.startedAt)

	// Parent contexts are unaffected
	require.Empty(t, MetaFromContext(withTags).extras)
	meta.tags["feed"] = "changed"
	require.Equal(t, "next_trains", MetaFromContext(withStart).tags["feed"])
}

func TestErrorSinkWithoutSentry(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	ctx := logging.AddToContext(context.Background(), logger)

	sink := NewErrorSink(ctx, time.Now())
	sink(&cache.FetchError{
		Key: cache.FeedKey{Type: cache.FeedNextBus, SubKey: "1001724"},
		Err: errors.New("boom"),
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "ERROR", entry["level"])
	require.Equal(t, "Feed error", entry["msg"])
	require.Equal(t, "next_bus", entry["feed"])
	require.Equal(t, "1001724", entry["subKey"])
	require.Contains(t, entry["error"], "boom")
}
