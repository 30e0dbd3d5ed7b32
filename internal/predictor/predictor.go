// Package predictor holds the panels of the board. Each predictor knows which
// feeds it needs and how to turn their values into a display update.
//
// Predictors are refreshed by the scheduler and must only be used on the
// event loop.
package predictor

import (
	"github.com/transitboard/transitboard/internal/domain"
	"github.com/transitboard/transitboard/internal/scheduler"
)

type RailSource interface {
	NextTrains(stations []string, onResult func([]domain.TrainPrediction))
	StationName(code string, onResult func(string))
}

type BusSource interface {
	NextBuses(stopID string, onResult func(domain.BusStopPredictions))
}

type BikeSource interface {
	StationStatus(id string, onResult func(domain.BikeStationStatus))
	StationName(id string, onResult func(string))
}

type IncidentSource interface {
	RailIncidents(onResult func([]domain.Incident))
}

var (
	_ scheduler.Predictor = (*Rail)(nil)
	_ scheduler.Predictor = (*Bus)(nil)
	_ scheduler.Predictor = (*Bikes)(nil)
	_ scheduler.Predictor = (*Incidents)(nil)
)

func lookup[T any](issue func(onResult func(T))) scheduler.SubFetch {
	return func(deliver func(any)) {
		issue(func(value T) {
			deliver(value)
		})
	}
}
