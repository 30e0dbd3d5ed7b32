package bikeshare_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/transitboard/transitboard/internal/adapters/bikeshare"
	"github.com/transitboard/transitboard/internal/adapters/httpfeed"
	"github.com/transitboard/transitboard/internal/cache"
	"github.com/transitboard/transitboard/internal/domain"
	"github.com/transitboard/transitboard/internal/ratelimiting"
)

const statusJSON = `{"data":{"stations":[
  {"station_id":"51","num_bikes_available":3,"num_docks_available":12,"num_bikes_disabled":1,"num_docks_disabled":0,"is_installed":1,"is_renting":1,"is_returning":1,"last_reported":1709280000},
  {"station_id":107,"num_bikes_available":0,"num_docks_available":19,"num_bikes_disabled":0,"num_docks_disabled":2,"is_installed":true,"is_renting":false,"is_returning":true,"last_reported":1709280000}
]},"last_updated":1709280010,"ttl":5}`

const infoJSON = `{"data":{"stations":[
  {"station_id":"51","name":"15th & P St NW","capacity":16,"lat":38.909,"lon":-77.034},
  {"station_id":"107","name":"Dupont Circle","capacity":21,"lat":38.910,"lon":-77.044}
]},"last_updated":1709280010,"ttl":5}`

type inlineRunner struct{}

func (inlineRunner) Post(fn func()) bool {
	fn()
	return true
}

func (inlineRunner) Go(_ string, fn func()) {
	fn()
}

type testEnv struct {
	client *bikeshare.Client
	errors *[]error
	hits   func(path string) int
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	var mu sync.Mutex
	hits := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()

		switch r.URL.Path {
		case "/station_status.json":
			_, _ = io.WriteString(w, statusJSON)
		case "/station_information.json":
			_, _ = io.WriteString(w, infoJSON)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errs := &[]error{}
	sink := func(err error) { *errs = append(*errs, err) }
	c := cache.New(logger, sink, time.Now)

	limiter, stop := ratelimiting.NewTokenBucketRateLimiter(1000, 1000)
	t.Cleanup(stop)

	feed, err := httpfeed.NewClient("bikeshare", http.DefaultClient, inlineRunner{}, limiter, nil, 5*time.Second, logger)
	require.NoError(t, err)

	client := bikeshare.New(c, feed, server.URL+"/station_status.json", server.URL+"/station_information.json", sink)

	return testEnv{
		client: client,
		errors: errs,
		hits: func(path string) int {
			mu.Lock()
			defer mu.Unlock()
			return hits[path]
		},
	}
}

func TestStationStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	var statuses []domain.BikeStationStatus
	for _, id := range []string{"51", "107"} {
		env.client.StationStatus(id, func(status domain.BikeStationStatus) {
			statuses = append(statuses, status)
		})
	}

	require.Equal(t, []domain.BikeStationStatus{
		{
			StationID:      "51",
			BikesAvailable: 3,
			DocksAvailable: 12,
			BikesDisabled:  1,
			IsInstalled:    true,
			IsRenting:      true,
			IsReturning:    true,
		},
		{
			StationID:      "107",
			DocksAvailable: 19,
			DocksDisabled:  2,
			IsInstalled:    true,
			IsReturning:    true,
		},
	}, statuses)
	require.True(t, statuses[0].Working())
	require.False(t, statuses[1].Working())

	// Both stations share one request
	require.Equal(t, 1, env.hits("/station_status.json"))
	require.Empty(t, *env.errors)
}

func TestMissingStationStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	env.client.StationStatus("999", func(domain.BikeStationStatus) {
		t.Fatal("should not be called")
	})
	require.Len(t, *env.errors, 1)
	require.ErrorIs(t, (*env.errors)[0], domain.ErrUnknownStation)
}

func TestStationName(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	names := []string{}
	env.client.StationName("107", func(name string) { names = append(names, name) })
	env.client.StationName("51", func(name string) { names = append(names, name) })
	require.Equal(t, []string{"Dupont Circle", "15th & P St NW"}, names)
	require.Equal(t, 1, env.hits("/station_information.json"))

	var info domain.BikeStationInfo
	env.client.StationInfo("51", func(got domain.BikeStationInfo) { info = got })
	require.Equal(t, 16, info.Capacity)

	env.client.StationName("999", func(string) {
		t.Fatal("should not be called")
	})
	require.Len(t, *env.errors, 1)
	require.ErrorIs(t, (*env.errors)[0], domain.ErrUnknownStation)
}
