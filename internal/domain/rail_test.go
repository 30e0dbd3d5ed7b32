package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/transitboard/transitboard/internal/domain"
)

func TestTrainPredictionSortKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		minutes  string
		expected int
	}{
		{minutes: "BRD", expected: -2},
		{minutes: "ARR", expected: -1},
		{minutes: "0", expected: 0},
		{minutes: "7", expected: 7},
		{minutes: "12", expected: 12},
		{minutes: "", expected: 100000},
		{minutes: "---", expected: 100000},
		{minutes: "+3", expected: 100000},
		{minutes: "-3", expected: 100000},
		{minutes: "DLY", expected: 100000},
	}

	for _, test := range tests {
		t.Run(test.minutes, func(t *testing.T) {
			t.Parallel()

			prediction := domain.TrainPrediction{Minutes: test.minutes}
			require.Equal(t, test.expected, prediction.SortKey())
		})
	}
}

func TestSortTrainPredictions(t *testing.T) {
	t.Parallel()

	predictions := []domain.TrainPrediction{
		{Minutes: "12", DestinationName: "Glenmont"},
		{Minutes: "", DestinationName: "No passenger"},
		{Minutes: "ARR", DestinationName: "Shady Grove"},
		{Minutes: "3", DestinationName: "Glenmont"},
		{Minutes: "BRD", DestinationName: "Glenmont"},
		{Minutes: "3", DestinationName: "Shady Grove"},
	}

	domain.SortTrainPredictions(predictions)

	minutes := []string{}
	destinations := []string{}
	for _, prediction := range predictions {
		minutes = append(minutes, prediction.Minutes)
		destinations = append(destinations, prediction.DestinationName)
	}
	require.Equal(t, []string{"BRD", "ARR", "3", "3", "12", ""}, minutes)
	// Stable for equal keys
	require.Equal(t, "Glenmont", destinations[2])
	require.Equal(t, "Shady Grove", destinations[3])
}

func TestFilterTrainPredictions(t *testing.T) {
	t.Parallel()

	predictions := []domain.TrainPrediction{
		{LocationCode: "A03", Line: "RD", Group: "1", Minutes: "2"},
		{LocationCode: "A03", Line: "RD", Group: "2", Minutes: "4"},
		{LocationCode: "A04", Line: "RD", Group: "1", Minutes: "5"},
		{LocationCode: "C01", Line: "BL", Group: "1", Minutes: "1"},
		{LocationCode: "C01", Line: "OR", Group: "2", Minutes: "6"},
	}

	tests := []struct {
		name     string
		filter   domain.RailFilter
		expected []string
	}{
		{
			name:     "location only",
			filter:   domain.RailFilter{Location: "A03"},
			expected: []string{"2", "4"},
		},
		{
			name:     "location and group",
			filter:   domain.RailFilter{Location: "A03", Group: "2"},
			expected: []string{"4"},
		},
		{
			name:     "location and line",
			filter:   domain.RailFilter{Location: "C01", Line: "OR"},
			expected: []string{"6"},
		},
		{
			name:     "no match",
			filter:   domain.RailFilter{Location: "K01"},
			expected: []string{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			filtered := domain.FilterTrainPredictions(predictions, test.filter)
			minutes := []string{}
			for _, prediction := range filtered {
				minutes = append(minutes, prediction.Minutes)
			}
			require.Equal(t, test.expected, minutes)
		})
	}
}
