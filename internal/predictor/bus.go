package predictor

import (
	"github.com/transitboard/transitboard/internal/display"
	"github.com/transitboard/transitboard/internal/domain"
	"github.com/transitboard/transitboard/internal/scheduler"
)

// Bus merges the predictions of one or more stops into a single panel.
// Without a name, the panel takes the name of its first stop.
type Bus struct {
	source BusSource
	sink   display.Sink
	name   string
	stops  []string
	filter domain.BusFilter
}

func NewBus(source BusSource, sink display.Sink, name string, stops []string, filter domain.BusFilter) *Bus {
	return &Bus{
		source: source,
		sink:   sink,
		name:   name,
		stops:  stops,
		filter: filter,
	}
}

func (b *Bus) Name() string {
	if b.name == "" && len(b.stops) > 0 {
		return "bus " + b.stops[0]
	}
	return b.name
}

func (b *Bus) SubFetches() []scheduler.SubFetch {
	fetches := make([]scheduler.SubFetch, 0, len(b.stops))
	for _, stop := range b.stops {
		fetches = append(fetches, lookup(func(onResult func(domain.BusStopPredictions)) {
			b.source.NextBuses(stop, onResult)
		}))
	}
	return fetches
}

func (b *Bus) Render(results []any) {
	stops := make([]domain.BusStopPredictions, 0, len(results))
	for _, result := range results {
		stops = append(stops, result.(domain.BusStopPredictions))
	}

	if b.name == "" && len(stops) > 0 {
		b.name = stops[0].StopName
	}
	b.sink.ShowBuses(b.name, domain.MergeBusPredictions(stops, b.filter))
}
