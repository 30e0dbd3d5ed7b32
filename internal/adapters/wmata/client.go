// Package wmata reads rail and bus data from the WMATA API through the feed cache.
//
// Every method must be called on the event loop, and delivers its result on
// the loop. Failed requests are reported to the cache's error sink and nothing
// is delivered.
package wmata

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/transitboard/transitboard/internal/adapters/httpfeed"
	"github.com/transitboard/transitboard/internal/cache"
	"github.com/transitboard/transitboard/internal/deferred"
	"github.com/transitboard/transitboard/internal/domain"
)

const DefaultBaseURL = "https://api.wmata.com/"

const (
	LinesValidity           = 86400 * time.Second
	StationsValidity        = 86400 * time.Second
	NextTrainsValidity      = 10 * time.Second
	NextBusValidity         = 10 * time.Second
	RailIncidentsValidity   = 20 * time.Second
	BusRoutesValidity       = 86400 * time.Second
	BusRouteDetailsValidity = 3600 * time.Second
)

type Client struct {
	cache    *cache.Cache
	feed     *httpfeed.Client
	baseURL  string
	sink     cache.ErrorSink
	location *time.Location
}

// New returns a client for the API at baseURL.
// sink receives lookups of unknown stations that never reach the API.
func New(c *cache.Cache, feed *httpfeed.Client, baseURL string, sink cache.ErrorSink) (*Client, error) {
	location, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("failed to load WMATA time zone: %w", err)
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &Client{
		cache:    c,
		feed:     feed,
		baseURL:  baseURL,
		sink:     sink,
		location: location,
	}, nil
}

func (w *Client) endpoint(path string) string {
	return w.baseURL + path
}

func (w *Client) report(err error) {
	if w.sink != nil {
		w.sink(err)
	}
}

func (w *Client) Lines(onResult func([]domain.Line)) {
	cache.Lookup(w.cache, cache.FeedKey{Type: cache.FeedLines}, LinesValidity, func() *deferred.Deferred[[]domain.Line] {
		return deferred.Map(
			httpfeed.GetJSON[linesResponse](w.feed, w.endpoint("Rail.svc/json/jLines"), nil),
			func(r linesResponse) ([]domain.Line, error) { return r.toDomain(), nil },
		)
	}, onResult)
}

// LineStations delivers the stations served by lineCode
func (w *Client) LineStations(lineCode string, onResult func([]domain.Station)) {
	w.Lines(func(lines []domain.Line) {
		key := cache.FeedKey{Type: cache.FeedStations, SubKey: lineCode}
		cache.Lookup(w.cache, key, StationsValidity, func() *deferred.Deferred[[]domain.Station] {
			known := slices.ContainsFunc(lines, func(line domain.Line) bool { return line.Code == lineCode })
			if !known {
				return deferred.Rejected[[]domain.Station](fmt.Errorf("%w: %s", domain.ErrUnknownLine, lineCode))
			}
			return w.fetchStations(url.Values{"LineCode": {lineCode}})
		}, onResult)
	})
}

func (w *Client) AllStations(onResult func([]domain.Station)) {
	cache.Lookup(w.cache, cache.FeedKey{Type: cache.FeedStations}, StationsValidity, func() *deferred.Deferred[[]domain.Station] {
		return w.fetchStations(nil)
	}, onResult)
}

func (w *Client) fetchStations(query url.Values) *deferred.Deferred[[]domain.Station] {
	return deferred.Map(
		httpfeed.GetJSON[stationsResponse](w.feed, w.endpoint("Rail.svc/json/jStations"), query),
		func(r stationsResponse) ([]domain.Station, error) { return r.toDomain(), nil },
	)
}

func findStation(stations []domain.Station, code string) (domain.Station, bool) {
	index := slices.IndexFunc(stations, func(station domain.Station) bool { return station.Code == code })
	if index == -1 {
		return domain.Station{}, false
	}
	return stations[index], true
}

func (w *Client) StationInfo(code string, onResult func(domain.Station)) {
	w.AllStations(func(stations []domain.Station) {
		station, ok := findStation(stations, code)
		if !ok {
			w.report(fmt.Errorf("%w: %s", domain.ErrUnknownStation, code))
			return
		}
		onResult(station)
	})
}

func (w *Client) StationName(code string, onResult func(string)) {
	w.StationInfo(code, func(station domain.Station) {
		onResult(station.Name)
	})
}

// NextTrains delivers the predictions for all of stations, soonest first.
// All stations share one request.
func (w *Client) NextTrains(stations []string, onResult func([]domain.TrainPrediction)) {
	stationString := strings.Join(stations, ",")

	w.AllStations(func(all []domain.Station) {
		key := cache.FeedKey{Type: cache.FeedNextTrains, SubKey: stationString}
		cache.Lookup(w.cache, key, NextTrainsValidity, func() *deferred.Deferred[[]domain.TrainPrediction] {
			bad := []string{}
			for _, station := range stations {
				if _, ok := findStation(all, station); !ok {
					bad = append(bad, station)
				}
			}
			if len(stations) == 0 || len(bad) > 0 {
				return deferred.Rejected[[]domain.TrainPrediction](
					fmt.Errorf("%w: %q", domain.ErrUnknownStation, strings.Join(bad, ", ")),
				)
			}

			return deferred.Map(
				httpfeed.GetJSON[predictionsResponse](w.feed, w.endpoint("StationPrediction.svc/json/GetPrediction/"+stationString), nil),
				func(r predictionsResponse) ([]domain.TrainPrediction, error) { return r.toDomain(), nil },
			)
		}, onResult)
	})
}

func (w *Client) NextBuses(stopID string, onResult func(domain.BusStopPredictions)) {
	key := cache.FeedKey{Type: cache.FeedNextBus, SubKey: stopID}
	cache.Lookup(w.cache, key, NextBusValidity, func() *deferred.Deferred[domain.BusStopPredictions] {
		return deferred.Map(
			httpfeed.GetJSON[busPredictionsResponse](w.feed, w.endpoint("NextBusService.svc/json/jPredictions"), url.Values{"StopID": {stopID}}),
			func(r busPredictionsResponse) (domain.BusStopPredictions, error) { return r.toDomain(stopID), nil },
		)
	}, onResult)
}

// BusStopName shares its request with NextBuses
func (w *Client) BusStopName(stopID string, onResult func(string)) {
	w.NextBuses(stopID, func(predictions domain.BusStopPredictions) {
		onResult(predictions.StopName)
	})
}

func (w *Client) RailIncidents(onResult func([]domain.Incident)) {
	cache.Lookup(w.cache, cache.FeedKey{Type: cache.FeedRailIncidents}, RailIncidentsValidity, func() *deferred.Deferred[[]domain.Incident] {
		return deferred.Map(
			httpfeed.GetJSON[incidentsResponse](w.feed, w.endpoint("Incidents.svc/json/Incidents"), nil),
			func(r incidentsResponse) ([]domain.Incident, error) { return r.toDomain(w.location), nil },
		)
	}, onResult)
}

func (w *Client) BusRoutes(onResult func([]domain.BusRoute)) {
	cache.Lookup(w.cache, cache.FeedKey{Type: cache.FeedBusRoutes}, BusRoutesValidity, func() *deferred.Deferred[[]domain.BusRoute] {
		return deferred.Map(
			httpfeed.GetJSON[busRoutesResponse](w.feed, w.endpoint("Bus.svc/json/jRoutes"), nil),
			func(r busRoutesResponse) ([]domain.BusRoute, error) { return r.toDomain(), nil },
		)
	}, onResult)
}

func (w *Client) BusRouteDetails(routeID string, onResult func(domain.BusRouteDetails)) {
	key := cache.FeedKey{Type: cache.FeedBusPath, SubKey: routeID}
	cache.Lookup(w.cache, key, BusRouteDetailsValidity, func() *deferred.Deferred[domain.BusRouteDetails] {
		return deferred.Map(
			httpfeed.GetJSON[busRouteDetailsResponse](w.feed, w.endpoint("Bus.svc/json/jRouteDetails"), url.Values{"RouteID": {routeID}}),
			func(r busRouteDetailsResponse) (domain.BusRouteDetails, error) {
				if r.RouteID == "" {
					return domain.BusRouteDetails{}, fmt.Errorf("%w: %s", domain.ErrUnknownBusRoute, routeID)
				}
				return r.toDomain(), nil
			},
		)
	}, onResult)
}
