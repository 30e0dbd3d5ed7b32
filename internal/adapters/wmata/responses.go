package wmata

import (
	"time"

	"github.com/transitboard/transitboard/internal/domain"
)

type linesResponse struct {
	Lines []struct {
		LineCode    string `json:"LineCode"`
		DisplayName string `json:"DisplayName"`
	} `json:"Lines"`
}

func (r linesResponse) toDomain() []domain.Line {
	lines := make([]domain.Line, 0, len(r.Lines))
	for _, line := range r.Lines {
		lines = append(lines, domain.Line{Code: line.LineCode, DisplayName: line.DisplayName})
	}
	return lines
}

type stationsResponse struct {
	Stations []struct {
		Code             string `json:"Code"`
		Name             string `json:"Name"`
		StationTogether1 string `json:"StationTogether1"`
		LineCode1        string `json:"LineCode1"`
		LineCode2        string `json:"LineCode2"`
		LineCode3        string `json:"LineCode3"`
		LineCode4        string `json:"LineCode4"`
		Address          struct {
			Street string `json:"Street"`
			City   string `json:"City"`
			State  string `json:"State"`
			Zip    string `json:"Zip"`
		} `json:"Address"`
	} `json:"Stations"`
}

func (r stationsResponse) toDomain() []domain.Station {
	stations := make([]domain.Station, 0, len(r.Stations))
	for _, station := range r.Stations {
		lines := []string{}
		for _, line := range []string{station.LineCode1, station.LineCode2, station.LineCode3, station.LineCode4} {
			if line != "" {
				lines = append(lines, line)
			}
		}

		address := ""
		if station.Address.Street != "" {
			address = station.Address.Street + ", " + station.Address.City + ", " + station.Address.State + " " + station.Address.Zip
		}

		stations = append(stations, domain.Station{
			Code:     station.Code,
			Name:     station.Name,
			Lines:    lines,
			Together: station.StationTogether1,
			Address:  address,
		})
	}
	return stations
}

type predictionsResponse struct {
	Trains []struct {
		Car             string `json:"Car"`
		DestinationCode string `json:"DestinationCode"`
		DestinationName string `json:"DestinationName"`
		Group           string `json:"Group"`
		Line            string `json:"Line"`
		LocationCode    string `json:"LocationCode"`
		LocationName    string `json:"LocationName"`
		Min             string `json:"Min"`
	} `json:"Trains"`
}

func (r predictionsResponse) toDomain() []domain.TrainPrediction {
	predictions := make([]domain.TrainPrediction, 0, len(r.Trains))
	for _, train := range r.Trains {
		predictions = append(predictions, domain.TrainPrediction{
			Car:             train.Car,
			Destination:     train.DestinationCode,
			DestinationName: train.DestinationName,
			Group:           train.Group,
			Line:            train.Line,
			LocationCode:    train.LocationCode,
			LocationName:    train.LocationName,
			Minutes:         train.Min,
		})
	}
	domain.SortTrainPredictions(predictions)
	return predictions
}

type busPredictionsResponse struct {
	StopName    string `json:"StopName"`
	Predictions []struct {
		RouteID       string `json:"RouteID"`
		DirectionNum  string `json:"DirectionNum"`
		DirectionText string `json:"DirectionText"`
		Minutes       int    `json:"Minutes"`
		VehicleID     string `json:"VehicleID"`
		TripID        string `json:"TripID"`
	} `json:"Predictions"`
}

func (r busPredictionsResponse) toDomain(stopID string) domain.BusStopPredictions {
	predictions := make([]domain.BusPrediction, 0, len(r.Predictions))
	for _, prediction := range r.Predictions {
		predictions = append(predictions, domain.BusPrediction{
			RouteID:       prediction.RouteID,
			DirectionNum:  prediction.DirectionNum,
			DirectionText: prediction.DirectionText,
			Minutes:       prediction.Minutes,
			VehicleID:     prediction.VehicleID,
			TripID:        prediction.TripID,
		})
	}
	return domain.BusStopPredictions{
		StopID:      stopID,
		StopName:    r.StopName,
		Predictions: predictions,
	}
}

// Timestamps are Eastern time without an offset
const incidentTimeLayout = "2006-01-02T15:04:05"

type incidentsResponse struct {
	Incidents []struct {
		IncidentID    string `json:"IncidentID"`
		IncidentType  string `json:"IncidentType"`
		Description   string `json:"Description"`
		LinesAffected string `json:"LinesAffected"`
		DateUpdated   string `json:"DateUpdated"`
	} `json:"Incidents"`
}

func (r incidentsResponse) toDomain(location *time.Location) []domain.Incident {
	incidents := make([]domain.Incident, 0, len(r.Incidents))
	for _, incident := range r.Incidents {
		// Zero time if missing or malformed
		updatedAt, _ := time.ParseInLocation(incidentTimeLayout, incident.DateUpdated, location)

		incidents = append(incidents, domain.Incident{
			ID:          incident.IncidentID,
			Type:        incident.IncidentType,
			Description: incident.Description,
			Lines:       domain.ParseLinesAffected(incident.LinesAffected),
			UpdatedAt:   updatedAt,
		})
	}
	return incidents
}

type busRoutesResponse struct {
	Routes []struct {
		RouteID         string `json:"RouteID"`
		Name            string `json:"Name"`
		LineDescription string `json:"LineDescription"`
	} `json:"Routes"`
}

func (r busRoutesResponse) toDomain() []domain.BusRoute {
	routes := make([]domain.BusRoute, 0, len(r.Routes))
	for _, route := range r.Routes {
		routes = append(routes, domain.BusRoute{
			RouteID:         route.RouteID,
			Name:            route.Name,
			LineDescription: route.LineDescription,
		})
	}
	return routes
}

type busDirectionResponse struct {
	DirectionNum  string `json:"DirectionNum"`
	DirectionText string `json:"DirectionText"`
	TripHeadsign  string `json:"TripHeadsign"`
	Stops         []struct {
		StopID string   `json:"StopID"`
		Name   string   `json:"Name"`
		Lat    float64  `json:"Lat"`
		Lon    float64  `json:"Lon"`
		Routes []string `json:"Routes"`
	} `json:"Stops"`
}

type busRouteDetailsResponse struct {
	RouteID    string                `json:"RouteID"`
	Name       string                `json:"Name"`
	Direction0 *busDirectionResponse `json:"Direction0"`
	Direction1 *busDirectionResponse `json:"Direction1"`
}

func (r busRouteDetailsResponse) toDomain() domain.BusRouteDetails {
	details := domain.BusRouteDetails{
		RouteID:    r.RouteID,
		Name:       r.Name,
		Directions: []domain.BusDirection{},
	}

	for i, direction := range []*busDirectionResponse{r.Direction0, r.Direction1} {
		if direction == nil {
			continue
		}

		directionNum := direction.DirectionNum
		if directionNum == "" {
			directionNum = []string{"0", "1"}[i]
		}

		stops := make([]domain.BusStop, 0, len(direction.Stops))
		for _, stop := range direction.Stops {
			stops = append(stops, domain.BusStop{
				StopID: stop.StopID,
				Name:   stop.Name,
				Lat:    stop.Lat,
				Lon:    stop.Lon,
				Routes: stop.Routes,
			})
		}

		details.Directions = append(details.Directions, domain.BusDirection{
			DirectionNum:  directionNum,
			DirectionText: direction.DirectionText,
			TripHeadsign:  direction.TripHeadsign,
			Stops:         stops,
		})
	}

	return details
}
