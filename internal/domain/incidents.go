package domain

import (
	"regexp"
	"slices"
	"strings"
	"time"
)

type Incident struct {
	ID          string
	Type        string
	Description string
	Lines       []string
	UpdatedAt   time.Time
}

var incidentPrefix = regexp.MustCompile(`(Orange|Red|Green|Yellow|Blue|Silver|/)* Lines?: `)
var lineSeparator = regexp.MustCompile(`;\s*`)

// Text is the description without its leading "<Colour> Line: " tag
func (i Incident) Text() string {
	loc := incidentPrefix.FindStringIndex(i.Description)
	if loc == nil {
		return i.Description
	}
	return i.Description[:loc[0]] + i.Description[loc[1]:]
}

// Same reports whether both describe the same incident
func (i Incident) Same(other Incident) bool {
	return slices.Equal(i.Lines, other.Lines) && i.Text() == other.Text()
}

// ParseLinesAffected splits a list like "RD; BL; OR;"
func ParseLinesAffected(linesAffected string) []string {
	lines := []string{}
	for _, line := range lineSeparator.Split(linesAffected, -1) {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func containsIncident(incidents []Incident, incident Incident) bool {
	return slices.ContainsFunc(incidents, incident.Same)
}

// MergeIncidents keeps the incidents of current that are still reported in
// their current order, followed by the newly reported ones
func MergeIncidents(current, reported []Incident) []Incident {
	merged := []Incident{}
	for _, incident := range current {
		if containsIncident(reported, incident) && !containsIncident(merged, incident) {
			merged = append(merged, incident)
		}
	}
	for _, incident := range reported {
		if !containsIncident(merged, incident) {
			merged = append(merged, incident)
		}
	}
	return merged
}
