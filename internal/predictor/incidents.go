package predictor

import (
	"github.com/transitboard/transitboard/internal/display"
	"github.com/transitboard/transitboard/internal/domain"
	"github.com/transitboard/transitboard/internal/scheduler"
)

// Incidents keeps the rail incidents in the order they were first seen
type Incidents struct {
	source  IncidentSource
	sink    display.Sink
	current []domain.Incident
}

func NewIncidents(source IncidentSource, sink display.Sink) *Incidents {
	return &Incidents{
		source: source,
		sink:   sink,
	}
}

func (i *Incidents) Name() string {
	return "incidents"
}

func (i *Incidents) SubFetches() []scheduler.SubFetch {
	return []scheduler.SubFetch{
		lookup(i.source.RailIncidents),
	}
}

func (i *Incidents) Render(results []any) {
	i.current = domain.MergeIncidents(i.current, results[0].([]domain.Incident))
	i.sink.ShowIncidents(i.current)
}

// Rotate moves the incident at the front to the back
func (i *Incidents) Rotate() {
	if len(i.current) < 2 {
		return
	}
	i.current = append(i.current[1:], i.current[0])
	i.sink.ShowIncidents(i.current)
}
