package domain

import "slices"

type BusPrediction struct {
	RouteID       string
	DirectionNum  string
	DirectionText string
	Minutes       int
	VehicleID     string
	TripID        string
}

type BusStopPredictions struct {
	StopID      string
	StopName    string
	Predictions []BusPrediction
}

type BusRoute struct {
	RouteID         string
	Name            string
	LineDescription string
}

type BusStop struct {
	StopID string
	Name   string
	Lat    float64
	Lon    float64
	Routes []string
}

type BusDirection struct {
	DirectionNum  string
	DirectionText string
	TripHeadsign  string
	Stops         []BusStop
}

type BusRouteDetails struct {
	RouteID    string
	Name       string
	Directions []BusDirection
}

// Direction returns the direction with the given number ("0" or "1")
func (d BusRouteDetails) Direction(directionNum string) (BusDirection, bool) {
	for _, direction := range d.Directions {
		if direction.DirectionNum == directionNum {
			return direction, true
		}
	}
	return BusDirection{}, false
}

// BusFilter selects the predictions shown for a set of stops.
// Empty Route or Direction match anything.
type BusFilter struct {
	Route     string
	Direction string
}

func (f BusFilter) Matches(p BusPrediction) bool {
	if f.Route != "" && p.RouteID != f.Route {
		return false
	}
	if f.Direction != "" && p.DirectionNum != f.Direction {
		return false
	}
	return true
}

// MergeBusPredictions combines the predictions of several stops that pass
// filter, soonest first
func MergeBusPredictions(stops []BusStopPredictions, filter BusFilter) []BusPrediction {
	merged := []BusPrediction{}
	for _, stop := range stops {
		for _, prediction := range stop.Predictions {
			if filter.Matches(prediction) {
				merged = append(merged, prediction)
			}
		}
	}
	slices.SortStableFunc(merged, func(a, b BusPrediction) int {
		return a.Minutes - b.Minutes
	})
	return merged
}
