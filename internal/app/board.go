package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/transitboard/transitboard/internal/config"
	"github.com/transitboard/transitboard/internal/display"
	"github.com/transitboard/transitboard/internal/domain"
	"github.com/transitboard/transitboard/internal/predictor"
	"github.com/transitboard/transitboard/internal/scheduler"
)

const (
	PredictorsGroup = "predictors"
	IncidentsGroup  = "incidents"

	// The front incident moves to the back this often
	RotateInterval = 6 * time.Second
)

// Board is the live display: its predictors, their schedule and the
// controls bound to the keyboard
type Board struct {
	scheduler *scheduler.Scheduler
	executor  scheduler.Executor
	display   *display.Text
	logger    *slog.Logger
}

// BuildPredictors creates one rail panel per configured station, one bus
// panel for all configured stops and one bike panel for all configured
// bikeshare stations
func BuildPredictors(conf config.Config, feeds Feeds, sink display.Sink) []scheduler.Predictor {
	predictors := []scheduler.Predictor{}

	if len(conf.RailStations()) > 0 {
		sets := make([]predictor.RailSet, 0, len(conf.RailStations()))
		for _, station := range conf.RailStations() {
			sets = append(sets, predictor.RailSet{Filter: domain.RailFilter{Location: station}})
		}
		predictors = append(predictors, predictor.NewRail(feeds.WMATA, sink, sets...))
	}

	if len(conf.BusStops()) > 0 {
		predictors = append(predictors, predictor.NewBus(feeds.WMATA, sink, "", conf.BusStops(), domain.BusFilter{}))
	}

	if len(conf.BikeStations()) > 0 {
		predictors = append(predictors, predictor.NewBikes(feeds.Bikes, sink, "", conf.BikeStations()))
	}

	return predictors
}

func BuildBoard(conf config.Config, feeds Feeds, executor scheduler.Executor, text *display.Text, logger *slog.Logger) (*Board, error) {
	predictors := BuildPredictors(conf, feeds, text)
	if len(predictors) == 0 {
		logger.Warn("No predictors configured")
	}

	s := scheduler.New(logger, executor, conf.Stagger())

	err := s.AddGroup(scheduler.Group{
		Name:       PredictorsGroup,
		Interval:   conf.PredictorInterval(),
		Predictors: predictors,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add predictors: %w", err)
	}

	incidents := predictor.NewIncidents(feeds.WMATA, text)
	err = s.AddGroup(scheduler.Group{
		Name:       IncidentsGroup,
		Interval:   conf.IncidentInterval(),
		Predictors: []scheduler.Predictor{incidents},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add incidents: %w", err)
	}

	if err := s.Every("rotate incidents", RotateInterval, incidents.Rotate); err != nil {
		return nil, fmt.Errorf("failed to add incident rotation: %w", err)
	}

	return &Board{
		scheduler: s,
		executor:  executor,
		display:   text,
		logger:    logger.With("component", "board"),
	}, nil
}

// Start refreshes everything once and then on schedule
func (b *Board) Start() {
	b.scheduler.Start()
}

func (b *Board) Stop() {
	b.scheduler.Stop()
}

func (b *Board) RefreshIncidents() error {
	return b.scheduler.RefreshNow(IncidentsGroup)
}

func (b *Board) RefreshPredictors() error {
	return b.scheduler.RefreshNow(PredictorsGroup)
}

func (b *Board) Redraw() {
	if !b.executor.Post(b.display.Redraw) {
		b.logger.Warn("Dropped redraw")
	}
}
