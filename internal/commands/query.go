package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/transitboard/transitboard/internal/domain"
	"github.com/transitboard/transitboard/internal/eventloop"
)

const bikeStatusWidth = 17

// ErrNoResult means a lookup did not deliver in time. The cause, if any, has
// been sent to the error sink.
var ErrNoResult = errors.New("no result")

type WMATA interface {
	Lines(onResult func([]domain.Line))
	AllStations(onResult func([]domain.Station))
	StationInfo(code string, onResult func(domain.Station))
	NextTrains(stations []string, onResult func([]domain.TrainPrediction))
	RailIncidents(onResult func([]domain.Incident))
	NextBuses(stopID string, onResult func(domain.BusStopPredictions))
	BusRoutes(onResult func([]domain.BusRoute))
	BusRouteDetails(routeID string, onResult func(domain.BusRouteDetails))
}

type Bikeshare interface {
	StationStatus(id string, onResult func(domain.BikeStationStatus))
	StationName(id string, onResult func(string))
}

type Resolver interface {
	Resolve(host string, onResult func([]string))
}

type query struct {
	loop     eventloop.Poster
	wmata    WMATA
	bikes    Bikeshare
	resolver Resolver
	out      io.Writer
	timeout  time.Duration
}

func await[T any](ctx context.Context, q *query, issue func(onResult func(T))) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	value, err := eventloop.Await(ctx, q.loop, issue)
	if errors.Is(err, context.DeadlineExceeded) {
		return value, fmt.Errorf("%w within %s", ErrNoResult, q.timeout)
	}
	return value, err
}

func (q *query) print(s string) error {
	_, err := io.WriteString(q.out, s)
	return err
}

// NewQuerySet returns the commands of the query shell. Every lookup goes
// through the loop and gives up after timeout.
func NewQuerySet(loop eventloop.Poster, wmata WMATA, bikes Bikeshare, resolver Resolver, out io.Writer, timeout time.Duration) *Set {
	q := &query{
		loop:     loop,
		wmata:    wmata,
		bikes:    bikes,
		resolver: resolver,
		out:      out,
		timeout:  timeout,
	}

	quit := func(context.Context, []string) error { return ErrQuit }

	s, err := NewSet(
		Command{Name: "quit", Help: "leave the shell", Run: quit},
		Command{Name: "exit", Help: "leave the shell", Run: quit},
		Command{Name: "lines", Help: "list rail lines", Run: q.lines},
		Command{Name: "find", Usage: "<pattern>", Help: "find stations by name", MinArgs: 1, MaxArgs: -1, Run: q.find},
		Command{Name: "station", Usage: "<code>", Help: "show a station", MinArgs: 1, MaxArgs: 1, Run: q.station},
		Command{Name: "next", Usage: "<code> [code...]", Help: "next trains at stations", MinArgs: 1, MaxArgs: -1, Run: q.next},
		Command{Name: "incidents", Help: "current rail incidents", Run: q.incidents},
		Command{Name: "buses", Usage: "<stop>", Help: "next buses at a stop", MinArgs: 1, MaxArgs: 1, Run: q.buses},
		Command{Name: "bus_routes", Help: "list bus routes", Run: q.busRoutes},
		Command{Name: "bus_name", Usage: "<route>", Help: "show the name of a bus route", MinArgs: 1, MaxArgs: 1, Run: q.busName},
		Command{Name: "bus_info", Usage: "<route> <direction>", Help: "stops of a bus route in one direction", MinArgs: 2, MaxArgs: 2, Run: q.busInfo},
		Command{Name: "bikes", Usage: "<station> [station...]", Help: "bikeshare availability", MinArgs: 1, MaxArgs: -1, Run: q.bikeStatus},
		Command{Name: "dns", Usage: "<host>", Help: "resolve a hostname", MinArgs: 1, MaxArgs: 1, Run: q.dns},
	)
	if err != nil {
		panic(fmt.Sprintf("invalid query commands: %s", err))
	}

	err = s.Add(Command{
		Name: "help",
		Help: "list commands",
		Run: func(context.Context, []string) error {
			return s.WriteHelp(out)
		},
	})
	if err != nil {
		panic(fmt.Sprintf("invalid query commands: %s", err))
	}
	return s
}

func (q *query) lines(ctx context.Context, _ []string) error {
	lines, err := await(ctx, q, q.wmata.Lines)
	if err != nil {
		return err
	}

	lines = slices.Clone(lines)
	slices.SortFunc(lines, func(a, b domain.Line) int { return strings.Compare(a.Code, b.Code) })

	var b strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&b, "%s: %s\n", line.Code, line.DisplayName)
	}
	return q.print(b.String())
}

func (q *query) find(ctx context.Context, args []string) error {
	pattern, err := regexp.Compile("(?i)" + strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	stations, err := await(ctx, q, q.wmata.AllStations)
	if err != nil {
		return err
	}

	matches := []domain.Station{}
	for _, station := range stations {
		if pattern.MatchString(station.Name) {
			matches = append(matches, station)
		}
	}
	slices.SortFunc(matches, func(a, b domain.Station) int { return strings.Compare(a.Code, b.Code) })

	var b strings.Builder
	for _, station := range matches {
		fmt.Fprintf(&b, "%s: %s\n", station.Code, station.Name)
	}
	return q.print(b.String())
}

func (q *query) station(ctx context.Context, args []string) error {
	station, err := await(ctx, q, func(onResult func(domain.Station)) {
		q.wmata.StationInfo(args[0], onResult)
	})
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", station.Code, station.Name)
	fmt.Fprintf(&b, "  Lines: %s\n", strings.Join(station.Lines, ", "))
	if station.Together != "" {
		fmt.Fprintf(&b, "  Together with: %s\n", station.Together)
	}
	if station.Address != "" {
		fmt.Fprintf(&b, "  Address: %s\n", station.Address)
	}
	return q.print(b.String())
}

func (q *query) next(ctx context.Context, args []string) error {
	stations := make([]string, 0, len(args))
	for _, arg := range args {
		stations = append(stations, strings.ToUpper(arg))
	}

	predictions, err := await(ctx, q, func(onResult func([]domain.TrainPrediction)) {
		q.wmata.NextTrains(stations, onResult)
	})
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, prediction := range predictions {
		destination := prediction.DestinationName
		if destination == "" {
			destination = "(unknown destination)"
		}
		fmt.Fprintf(&b, "%3s %2s Trk %1s   %s => %s\n",
			prediction.Minutes,
			prediction.Line,
			prediction.Group,
			prediction.LocationName,
			destination,
		)
	}
	return q.print(b.String())
}

func (q *query) incidents(ctx context.Context, _ []string) error {
	lines, err := await(ctx, q, q.wmata.Lines)
	if err != nil {
		return err
	}
	incidents, err := await(ctx, q, q.wmata.RailIncidents)
	if err != nil {
		return err
	}

	names := make(map[string]string, len(lines))
	for _, line := range lines {
		names[line.Code] = line.DisplayName
	}

	var b strings.Builder
	if len(incidents) == 0 {
		b.WriteString("No incidents\n")
	}
	for _, incident := range incidents {
		lineNames := make([]string, 0, len(incident.Lines))
		for _, code := range incident.Lines {
			name, ok := names[code]
			if !ok {
				name = code
			}
			lineNames = append(lineNames, name)
		}

		suffix := ""
		if len(incident.Lines) > 1 {
			suffix = "s"
		}
		fmt.Fprintf(&b, "%s Line%s:\n%s\n\n", strings.Join(lineNames, ", "), suffix, incident.Text())
	}
	return q.print(b.String())
}

func (q *query) buses(ctx context.Context, args []string) error {
	stop, err := await(ctx, q, func(onResult func(domain.BusStopPredictions)) {
		q.wmata.NextBuses(args[0], onResult)
	})
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", stop.StopName)
	for _, prediction := range stop.Predictions {
		fmt.Fprintf(&b, "%3d min  %-4s %s\n", prediction.Minutes, prediction.RouteID, prediction.DirectionText)
	}
	return q.print(b.String())
}

func (q *query) busRoutes(ctx context.Context, _ []string) error {
	routes, err := await(ctx, q, q.wmata.BusRoutes)
	if err != nil {
		return err
	}

	routes = slices.Clone(routes)
	slices.SortFunc(routes, func(a, b domain.BusRoute) int { return strings.Compare(a.RouteID, b.RouteID) })

	var b strings.Builder
	for _, route := range routes {
		fmt.Fprintf(&b, "%s => %s\n", route.RouteID, route.Name)
	}
	return q.print(b.String())
}

func (q *query) busName(ctx context.Context, args []string) error {
	routes, err := await(ctx, q, q.wmata.BusRoutes)
	if err != nil {
		return err
	}

	index := slices.IndexFunc(routes, func(route domain.BusRoute) bool { return route.RouteID == args[0] })
	if index == -1 {
		return fmt.Errorf("%w: %s", domain.ErrUnknownBusRoute, args[0])
	}
	return q.print(routes[index].Name + "\n")
}

func (q *query) busInfo(ctx context.Context, args []string) error {
	details, err := await(ctx, q, func(onResult func(domain.BusRouteDetails)) {
		q.wmata.BusRouteDetails(args[0], onResult)
	})
	if err != nil {
		return err
	}

	direction, ok := details.Direction(args[1])
	if !ok {
		return fmt.Errorf("%w: route %s has no direction %s", domain.ErrUnknownBusRoute, args[0], args[1])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s to %s\n", direction.DirectionText, direction.TripHeadsign)
	for _, stop := range direction.Stops {
		fmt.Fprintf(&b, "  %s: %s\n", stop.StopID, stop.Name)
	}
	return q.print(b.String())
}

func (q *query) bikeStatus(ctx context.Context, args []string) error {
	var b strings.Builder
	for _, id := range args {
		status, err := await(ctx, q, func(onResult func(domain.BikeStationStatus)) {
			q.bikes.StationStatus(id, onResult)
		})
		if err != nil {
			return fmt.Errorf("station %s: %w", id, err)
		}
		name, err := await(ctx, q, func(onResult func(string)) {
			q.bikes.StationName(id, onResult)
		})
		if err != nil {
			return fmt.Errorf("station %s: %w", id, err)
		}

		statusString, err := status.StatusString(bikeStatusWidth)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "%s  %s\n", statusString, name)
	}
	return q.print(b.String())
}

func (q *query) dns(ctx context.Context, args []string) error {
	addresses, err := await(ctx, q, func(onResult func([]string)) {
		q.resolver.Resolve(args[0], onResult)
	})
	if err != nil {
		return err
	}
	return q.print(strings.Join(addresses, "\n") + "\n")
}
