package cache

type FeedType string

const (
	FeedLines         FeedType = "lines"
	FeedStations      FeedType = "stations"
	FeedNextTrains    FeedType = "next_trains"
	FeedNextBus       FeedType = "next_bus"
	FeedRailIncidents FeedType = "rail_incidents"
	FeedBusRoutes     FeedType = "bus_routes"
	FeedBusPath       FeedType = "bus_path"
	FeedStationStatus FeedType = "station_status"
	FeedStationInfo   FeedType = "station_info"
	FeedDNS           FeedType = "DNS"
)

// FeedKey identifies one cacheable remote resource.
// SubKey is empty for feeds that have a single instance.
type FeedKey struct {
	Type   FeedType
	SubKey string
}

func (k FeedKey) String() string {
	if k.SubKey == "" {
		return string(k.Type)
	}
	return string(k.Type) + "/" + k.SubKey
}

type SlotState int

const (
	SlotEmpty SlotState = iota
	SlotPending
	SlotFresh
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotPending:
		return "pending"
	case SlotFresh:
		return "fresh"
	default:
		return "unknown"
	}
}
