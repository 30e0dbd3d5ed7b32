package domain

import "fmt"

type BikeStationStatus struct {
	StationID      string
	BikesAvailable int
	DocksAvailable int
	BikesDisabled  int
	DocksDisabled  int
	IsInstalled    bool
	IsRenting      bool
	IsReturning    bool
}

type BikeStationInfo struct {
	StationID string
	Name      string
	Capacity  int
	Lat       float64
	Lon       float64
}

func (s BikeStationStatus) Disabled() int {
	return s.BikesDisabled + s.DocksDisabled
}

func (s BikeStationStatus) Working() bool {
	return s.IsInstalled && s.IsRenting && s.IsReturning
}

// StatusString formats the availability to fit in width columns.
// Supported widths are 5, 9 and 17.
func (s BikeStationStatus) StatusString(width int) (string, error) {
	var format string
	switch width {
	case 5:
		format = "%2d/%2d"
	case 9:
		format = "%2d b/%2d d"
	case 17:
		format = "%2d bikes/%2d docks"
	default:
		return "", fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	return fmt.Sprintf(format, s.BikesAvailable, s.DocksAvailable), nil
}
