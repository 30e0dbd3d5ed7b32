package display_test

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/transitboard/transitboard/internal/display"
	"github.com/transitboard/transitboard/internal/domain"
)

func newText() (*display.Text, *strings.Builder) {
	var out strings.Builder
	return display.NewText(&out, slog.New(slog.NewTextHandler(io.Discard, nil))), &out
}

func TestShowTrains(t *testing.T) {
	t.Parallel()

	text, out := newText()
	text.ShowTrains("Metro Center", []domain.TrainPrediction{
		{Minutes: "BRD", Line: "RD", Car: "8", DestinationName: "Shady Grove"},
		{Minutes: "3", Line: "BL", DestinationName: "Franconia-Springfield"},
		{Minutes: "12", Line: "SV", Car: "6", DestinationName: "Ashburn"},
		{Minutes: "---", Line: "No", Car: "-", DestinationName: "No Passenger"},
	})

	require.Equal(t, ""+
		"== Metro Center ==\n"+
		"   BRD  RD  8  Shady Grove\n"+
		" 3 min  BL     Franconia-Springfield\n"+
		"12 min  SV  6  Ashburn\n"+
		"   ---  No  -  No Passenger\n",
		out.String(),
	)
}

func TestShowBuses(t *testing.T) {
	t.Parallel()

	text, out := newText()
	text.ShowBuses("Columbia Rd + 18th St", []domain.BusPrediction{
		{RouteID: "42", DirectionText: "North to Mount Pleasant", Minutes: 7},
		{RouteID: "H1", DirectionText: "West to Tenleytown", Minutes: 15},
	})

	require.Equal(t, ""+
		"== Columbia Rd + 18th St ==\n"+
		" 7 min  42   North to Mount Pleasant\n"+
		"15 min  H1   West to Tenleytown\n",
		out.String(),
	)
}

func TestShowBikes(t *testing.T) {
	t.Parallel()

	text, out := newText()
	text.ShowBikes("Capital Bikeshare", []display.BikeRow{
		{
			StationID: "51",
			Name:      "15th & P St NW",
			Status:    &domain.BikeStationStatus{BikesAvailable: 3, DocksAvailable: 12},
		},
		{StationID: "107"},
	})

	require.Equal(t, ""+
		"== Capital Bikeshare ==\n"+
		" 3 bikes/12 docks  15th & P St NW\n"+
		strings.Repeat(" ", 17)+"  Station 107\n",
		out.String(),
	)
}

func TestShowIncidents(t *testing.T) {
	t.Parallel()

	t.Run("incidents", func(t *testing.T) {
		t.Parallel()

		text, out := newText()
		text.ShowIncidents([]domain.Incident{
			{Description: "Red Line: Trains single tracking.", Lines: []string{"RD"}},
			{Description: "Orange/Silver Lines: Delays.", Lines: []string{"OR", "SV"}},
		})
		require.Equal(t, "[RD] Trains single tracking.\n[OR SV] Delays.\n", out.String())
	})

	t.Run("no incidents", func(t *testing.T) {
		t.Parallel()

		text, out := newText()
		text.ShowIncidents(nil)
		require.Equal(t, "*** No alerts ***\n", out.String())
	})
}

func TestRedraw(t *testing.T) {
	t.Parallel()

	text, out := newText()
	text.ShowBuses("B", nil)
	text.ShowTrains("A", nil)
	text.ShowIncidents(nil)
	text.ShowBuses("B", []domain.BusPrediction{{RouteID: "42", DirectionText: "North", Minutes: 1}})

	out.Reset()
	text.Redraw()

	require.Equal(t, ""+
		"== B ==\n"+
		" 1 min  42   North\n"+
		"== A ==\n"+
		"*** No alerts ***\n",
		out.String(),
	)
}
