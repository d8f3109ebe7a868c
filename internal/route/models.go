package route

import (
	"strings"

	"backend-bikerental/internal/shared/geo"
)

type Mode string

const (
	ModeBicycling Mode = "bicycling"
	ModeWalking   Mode = "walking"
	ModeDriving   Mode = "driving"
)

// ParseMode accepts the provider spellings as well; unknown modes fall back
// to bicycling.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "walking", "walk":
		return ModeWalking
	case "driving", "drive":
		return ModeDriving
	default:
		return ModeBicycling
	}
}

type Request struct {
	Origin       geo.Point `json:"origin"`
	Destination  geo.Point `json:"destination"`
	Mode         Mode      `json:"mode"`
	Alternatives bool      `json:"alternatives"`
}

type Step struct {
	Instruction     string      `json:"instruction"`
	Distance        string      `json:"distance"`
	DistanceMeters  int         `json:"distance_m"`
	Duration        string      `json:"duration"`
	DurationSeconds int         `json:"duration_sec"`
	Start           geo.Point   `json:"start"`
	End             geo.Point   `json:"end"`
	Maneuver        string      `json:"maneuver"`
	Polyline        []geo.Point `json:"polyline,omitempty"`
}

// Info is one computed or synthesized route.
type Info struct {
	Distance        string          `json:"distance"`
	DistanceMeters  int             `json:"distance_m"`
	Duration        string          `json:"duration"`
	DurationSeconds int             `json:"duration_sec"`
	Polyline        []geo.Point     `json:"polyline"`
	Steps           []Step          `json:"steps"`
	Traffic         map[int]float64 `json:"traffic,omitempty"`
}

type Source string

const (
	SourceLive      Source = "live"
	SourceSimulated Source = "simulated"
)

type Result struct {
	Source   Source `json:"source"`
	Provider string `json:"provider"`
	Reason   string `json:"reason,omitempty"`
	Cached   bool   `json:"cached,omitempty"`
	Routes   []Info `json:"routes"`
}

func (r Result) Simulated() bool { return r.Source == SourceSimulated }
