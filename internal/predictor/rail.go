package predictor

import (
	"fmt"
	"slices"
	"strings"

	"github.com/transitboard/transitboard/internal/display"
	"github.com/transitboard/transitboard/internal/domain"
	"github.com/transitboard/transitboard/internal/scheduler"
)

// RailSet is one platform panel. An empty Name is replaced by the name of
// the station at Filter.Location, qualified by the filter when another panel
// has the same title.
type RailSet struct {
	Name   string
	Filter domain.RailFilter
}

// Rail refreshes all rail panels with a single next trains request
type Rail struct {
	source RailSource
	sink   display.Sink
	sets   []RailSet
}

func NewRail(source RailSource, sink display.Sink, sets ...RailSet) *Rail {
	return &Rail{
		source: source,
		sink:   sink,
		sets:   sets,
	}
}

func (r *Rail) Name() string {
	return "rail"
}

func (r *Rail) locations() []string {
	locations := []string{}
	for _, set := range r.sets {
		if !slices.Contains(locations, set.Filter.Location) {
			locations = append(locations, set.Filter.Location)
		}
	}
	return locations
}

// SubFetches requests the predictions, then the name of every set that has
// none yet
func (r *Rail) SubFetches() []scheduler.SubFetch {
	fetches := []scheduler.SubFetch{
		lookup(func(onResult func([]domain.TrainPrediction)) {
			r.source.NextTrains(r.locations(), onResult)
		}),
	}
	for _, set := range r.sets {
		if set.Name == "" {
			fetches = append(fetches, lookup(func(onResult func(string)) {
				r.source.StationName(set.Filter.Location, onResult)
			}))
		}
	}
	return fetches
}

func (r *Rail) Render(results []any) {
	names := results[1:]
	defaulted := []int{}
	for i := range r.sets {
		if r.sets[i].Name == "" {
			r.sets[i].Name = names[0].(string)
			names = names[1:]
			defaulted = append(defaulted, i)
		}
	}
	r.disambiguate(defaulted, qualifiedTitle)
	r.disambiguate(defaulted, func(i int, set RailSet) string {
		return fmt.Sprintf("%s #%d", set.Name, i+1)
	})

	predictions := results[0].([]domain.TrainPrediction)
	for _, set := range r.sets {
		r.sink.ShowTrains(set.Name, domain.FilterTrainPredictions(predictions, set.Filter))
	}
}

// disambiguate renames the sets in candidates whose title is shared with
// another set. Titles are panel keys on the display.
func (r *Rail) disambiguate(candidates []int, rename func(i int, set RailSet) string) {
	shared := []int{}
	for _, i := range candidates {
		for j := range r.sets {
			if j != i && r.sets[j].Name == r.sets[i].Name {
				shared = append(shared, i)
				break
			}
		}
	}
	for _, i := range shared {
		r.sets[i].Name = rename(i, r.sets[i])
	}
}

func qualifiedTitle(_ int, set RailSet) string {
	qualifiers := []string{}
	if set.Filter.Line != "" {
		qualifiers = append(qualifiers, set.Filter.Line)
	}
	if set.Filter.Group != "" {
		qualifiers = append(qualifiers, "group "+set.Filter.Group)
	}
	if len(qualifiers) == 0 {
		return set.Name
	}
	return fmt.Sprintf("%s (%s)", set.Name, strings.Join(qualifiers, ", "))
}
