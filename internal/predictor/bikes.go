package predictor

import (
	"github.com/transitboard/transitboard/internal/display"
	"github.com/transitboard/transitboard/internal/domain"
	"github.com/transitboard/transitboard/internal/scheduler"
)

const DefaultBikesName = "Capital Bikeshare"

// Bikes shows the availability at a list of bikeshare stations.
// Station names are shown as soon as they arrive. A station without a name
// asks for it again on every refresh.
type Bikes struct {
	source   BikeSource
	sink     display.Sink
	name     string
	stations []string

	names    map[string]string
	statuses map[string]domain.BikeStationStatus
}

func NewBikes(source BikeSource, sink display.Sink, name string, stations []string) *Bikes {
	if name == "" {
		name = DefaultBikesName
	}
	return &Bikes{
		source:   source,
		sink:     sink,
		name:     name,
		stations: stations,
		names:    make(map[string]string),
		statuses: make(map[string]domain.BikeStationStatus),
	}
}

func (b *Bikes) Name() string {
	return b.name
}

func (b *Bikes) SubFetches() []scheduler.SubFetch {
	b.requestNames()

	fetches := make([]scheduler.SubFetch, 0, len(b.stations))
	for _, station := range b.stations {
		fetches = append(fetches, lookup(func(onResult func(domain.BikeStationStatus)) {
			b.source.StationStatus(station, onResult)
		}))
	}
	return fetches
}

func (b *Bikes) requestNames() {
	for _, station := range b.stations {
		if _, ok := b.names[station]; ok {
			continue
		}
		b.source.StationName(station, func(name string) {
			b.names[station] = name
			b.draw()
		})
	}
}

func (b *Bikes) Render(results []any) {
	for _, result := range results {
		status := result.(domain.BikeStationStatus)
		b.statuses[status.StationID] = status
	}
	b.draw()
}

func (b *Bikes) draw() {
	rows := make([]display.BikeRow, 0, len(b.stations))
	for _, station := range b.stations {
		row := display.BikeRow{
			StationID: station,
			Name:      b.names[station],
		}
		if status, ok := b.statuses[station]; ok {
			row.Status = &status
		}
		rows = append(rows, row)
	}
	b.sink.ShowBikes(b.name, rows)
}
