// Package display renders feed data for the board.
package display

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/transitboard/transitboard/internal/domain"
)

const (
	noAlerts       = "*** No alerts ***"
	bikeStatusSize = 17
)

type Sink interface {
	ShowTrains(title string, predictions []domain.TrainPrediction)
	ShowBuses(title string, predictions []domain.BusPrediction)
	ShowBikes(title string, stations []BikeRow)
	ShowIncidents(incidents []domain.Incident)
}

// BikeRow is one station of a bike panel. Status is nil until the first
// status has been received.
type BikeRow struct {
	StationID string
	Name      string
	Status    *domain.BikeStationStatus
}

// Text writes every panel to w as plain text. Each update rewrites the panel
// that changed; Redraw rewrites all of them.
//
// Not safe for concurrent use; call it from the event loop.
type Text struct {
	w      io.Writer
	logger *slog.Logger

	panels    map[string]string
	order     []string
	incidents string
}

func NewText(w io.Writer, logger *slog.Logger) *Text {
	return &Text{
		w:      w,
		logger: logger.With("component", "display"),
		panels: make(map[string]string),
	}
}

var shortMinutes = regexp.MustCompile(`^\d\d?$`)

func formatMinutes(minutes string) string {
	if shortMinutes.MatchString(minutes) {
		minutes += " min"
	}
	return fmt.Sprintf("%6s", minutes)
}

func firstChar(s string) string {
	if s == "" {
		return " "
	}
	return s[:1]
}

func (t *Text) ShowTrains(title string, predictions []domain.TrainPrediction) {
	var b strings.Builder
	writeTitle(&b, title)
	for _, prediction := range predictions {
		fmt.Fprintf(&b, "%s  %-2s  %s  %s\n",
			formatMinutes(prediction.Minutes),
			prediction.Line,
			firstChar(prediction.Car),
			prediction.DestinationName,
		)
	}
	t.update(title, b.String())
}

func (t *Text) ShowBuses(title string, predictions []domain.BusPrediction) {
	var b strings.Builder
	writeTitle(&b, title)
	for _, prediction := range predictions {
		fmt.Fprintf(&b, "%s  %-3s  %s\n",
			formatMinutes(fmt.Sprint(prediction.Minutes)),
			prediction.RouteID,
			prediction.DirectionText,
		)
	}
	t.update(title, b.String())
}

func (t *Text) ShowBikes(title string, stations []BikeRow) {
	var b strings.Builder
	writeTitle(&b, title)
	for _, station := range stations {
		status := strings.Repeat(" ", bikeStatusSize)
		if station.Status != nil {
			s, err := station.Status.StatusString(bikeStatusSize)
			if err != nil {
				t.logger.Error("Failed to format bike status", "station", station.StationID, "error", err)
			} else {
				status = s
			}
		}

		name := station.Name
		if name == "" {
			name = "Station " + station.StationID
		}
		fmt.Fprintf(&b, "%s  %s\n", status, name)
	}
	t.update(title, b.String())
}

func (t *Text) ShowIncidents(incidents []domain.Incident) {
	var b strings.Builder
	if len(incidents) == 0 {
		b.WriteString(noAlerts + "\n")
	}
	for _, incident := range incidents {
		fmt.Fprintf(&b, "[%s] %s\n", strings.Join(incident.Lines, " "), incident.Text())
	}
	t.incidents = b.String()
	t.write(t.incidents)
}

// Redraw writes every panel in the order they first appeared, followed by
// the incidents
func (t *Text) Redraw() {
	var b strings.Builder
	for _, title := range t.order {
		b.WriteString(t.panels[title])
	}
	b.WriteString(t.incidents)
	t.write(b.String())
}

func writeTitle(b *strings.Builder, title string) {
	fmt.Fprintf(b, "== %s ==\n", title)
}

func (t *Text) update(title, panel string) {
	if _, ok := t.panels[title]; !ok {
		t.order = append(t.order, title)
	}
	t.panels[title] = panel
	t.write(panel)
}

func (t *Text) write(s string) {
	if _, err := io.WriteString(t.w, s); err != nil {
		t.logger.Error("Failed to write to display", "error", err)
	}
}
