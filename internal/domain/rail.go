package domain

import (
	"slices"
	"strconv"
)

type Line struct {
	Code        string
	DisplayName string
}

type Station struct {
	Code  string
	Name  string
	Lines []string
	// Code of the other platform at transfer stations
	Together string
	Address  string
}

type TrainPrediction struct {
	Car             string
	Destination     string
	DestinationName string
	Group           string
	Line            string
	LocationCode    string
	LocationName    string
	// Minutes is a number of minutes, ARR, BRD or blank
	Minutes string
}

const (
	Arriving = "ARR"
	Boarding = "BRD"

	unknownMinutes = 100000
)

// SortKey orders boarding trains first, then arriving trains, then by minutes.
// Unrecognized values sort last.
func (p TrainPrediction) SortKey() int {
	switch p.Minutes {
	case Boarding:
		return -2
	case Arriving:
		return -1
	}

	minutes, err := strconv.Atoi(p.Minutes)
	if err != nil || minutes < 0 || p.Minutes[0] == '+' {
		return unknownMinutes
	}
	return minutes
}

func SortTrainPredictions(predictions []TrainPrediction) {
	slices.SortStableFunc(predictions, func(a, b TrainPrediction) int {
		return a.SortKey() - b.SortKey()
	})
}

// RailFilter selects the predictions shown for one platform.
// Empty Line or Group match anything.
type RailFilter struct {
	Location string
	Line     string
	Group    string
}

func (f RailFilter) Matches(p TrainPrediction) bool {
	if p.LocationCode != f.Location {
		return false
	}
	if f.Line != "" && p.Line != f.Line {
		return false
	}
	if f.Group != "" && p.Group != f.Group {
		return false
	}
	return true
}

func FilterTrainPredictions(predictions []TrainPrediction, filter RailFilter) []TrainPrediction {
	filtered := []TrainPrediction{}
	for _, prediction := range predictions {
		if filter.Matches(prediction) {
			filtered = append(filtered, prediction)
		}
	}
	return filtered
}
