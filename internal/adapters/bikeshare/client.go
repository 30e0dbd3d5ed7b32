// Package bikeshare reads Capital Bikeshare station data from its GBFS feeds.
//
// Every method must be called on the event loop.
package bikeshare

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/transitboard/transitboard/internal/adapters/httpfeed"
	"github.com/transitboard/transitboard/internal/cache"
	"github.com/transitboard/transitboard/internal/deferred"
	"github.com/transitboard/transitboard/internal/domain"
)

const (
	DefaultStatusURL = "https://gbfs.capitalbikeshare.com/gbfs/en/station_status.json"
	DefaultInfoURL   = "https://gbfs.capitalbikeshare.com/gbfs/en/station_information.json"

	StatusValidity = 60 * time.Second
	InfoValidity   = 86400 * time.Second
)

// stationID accepts both string and numeric ids
type stationID string

func (id *stationID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = stationID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid station id %s: %w", string(data), err)
	}
	*id = stationID(n.String())
	return nil
}

// flag accepts 0/1 as well as booleans
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "1", "true":
		*f = true
	case "0", "false", "null":
		*f = false
	default:
		return fmt.Errorf("invalid flag %s", string(data))
	}
	return nil
}

type statusResponse struct {
	Data struct {
		Stations []struct {
			StationID         stationID `json:"station_id"`
			NumBikesAvailable int       `json:"num_bikes_available"`
			NumDocksAvailable int       `json:"num_docks_available"`
			NumBikesDisabled  int       `json:"num_bikes_disabled"`
			NumDocksDisabled  int       `json:"num_docks_disabled"`
			IsInstalled       flag      `json:"is_installed"`
			IsRenting         flag      `json:"is_renting"`
			IsReturning       flag      `json:"is_returning"`
		} `json:"stations"`
	} `json:"data"`
}

func (r statusResponse) toDomain() map[string]domain.BikeStationStatus {
	statuses := make(map[string]domain.BikeStationStatus, len(r.Data.Stations))
	for _, station := range r.Data.Stations {
		statuses[string(station.StationID)] = domain.BikeStationStatus{
			StationID:      string(station.StationID),
			BikesAvailable: station.NumBikesAvailable,
			DocksAvailable: station.NumDocksAvailable,
			BikesDisabled:  station.NumBikesDisabled,
			DocksDisabled:  station.NumDocksDisabled,
			IsInstalled:    bool(station.IsInstalled),
			IsRenting:      bool(station.IsRenting),
			IsReturning:    bool(station.IsReturning),
		}
	}
	return statuses
}

type infoResponse struct {
	Data struct {
		Stations []struct {
			StationID stationID `json:"station_id"`
			Name      string    `json:"name"`
			Capacity  int       `json:"capacity"`
			Lat       float64   `json:"lat"`
			Lon       float64   `json:"lon"`
		} `json:"stations"`
	} `json:"data"`
}

func (r infoResponse) toDomain() []domain.BikeStationInfo {
	stations := make([]domain.BikeStationInfo, 0, len(r.Data.Stations))
	for _, station := range r.Data.Stations {
		stations = append(stations, domain.BikeStationInfo{
			StationID: string(station.StationID),
			Name:      station.Name,
			Capacity:  station.Capacity,
			Lat:       station.Lat,
			Lon:       station.Lon,
		})
	}
	return stations
}

type Client struct {
	cache     *cache.Cache
	feed      *httpfeed.Client
	statusURL string
	infoURL   string
	sink      cache.ErrorSink
}

func New(c *cache.Cache, feed *httpfeed.Client, statusURL, infoURL string, sink cache.ErrorSink) *Client {
	return &Client{
		cache:     c,
		feed:      feed,
		statusURL: statusURL,
		infoURL:   infoURL,
		sink:      sink,
	}
}

func (b *Client) report(err error) {
	if b.sink != nil {
		b.sink(err)
	}
}

// AllStatus delivers the status of every station keyed by station id
func (b *Client) AllStatus(onResult func(map[string]domain.BikeStationStatus)) {
	cache.Lookup(b.cache, cache.FeedKey{Type: cache.FeedStationStatus}, StatusValidity, func() *deferred.Deferred[map[string]domain.BikeStationStatus] {
		return deferred.Map(
			httpfeed.GetJSON[statusResponse](b.feed, b.statusURL, nil),
			func(r statusResponse) (map[string]domain.BikeStationStatus, error) { return r.toDomain(), nil },
		)
	}, onResult)
}

func (b *Client) AllInfo(onResult func([]domain.BikeStationInfo)) {
	cache.Lookup(b.cache, cache.FeedKey{Type: cache.FeedStationInfo}, InfoValidity, func() *deferred.Deferred[[]domain.BikeStationInfo] {
		return deferred.Map(
			httpfeed.GetJSON[infoResponse](b.feed, b.infoURL, nil),
			func(r infoResponse) ([]domain.BikeStationInfo, error) { return r.toDomain(), nil },
		)
	}, onResult)
}

// StationStatus delivers the status of one station. A station missing from
// the feed is reported and nothing is delivered.
func (b *Client) StationStatus(id string, onResult func(domain.BikeStationStatus)) {
	b.AllStatus(func(statuses map[string]domain.BikeStationStatus) {
		status, ok := statuses[id]
		if !ok {
			b.report(fmt.Errorf("%w: bikeshare station %s has no status", domain.ErrUnknownStation, id))
			return
		}
		onResult(status)
	})
}

func (b *Client) StationInfo(id string, onResult func(domain.BikeStationInfo)) {
	b.AllInfo(func(stations []domain.BikeStationInfo) {
		index := slices.IndexFunc(stations, func(station domain.BikeStationInfo) bool { return station.StationID == id })
		if index == -1 {
			b.report(fmt.Errorf("%w: bikeshare station %s", domain.ErrUnknownStation, id))
			return
		}
		onResult(stations[index])
	})
}

func (b *Client) StationName(id string, onResult func(string)) {
	b.StationInfo(id, func(station domain.BikeStationInfo) {
		onResult(station.Name)
	})
}
