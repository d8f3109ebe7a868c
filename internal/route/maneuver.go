package route

import (
	"regexp"
	"strings"
)

// Maneuver vocabulary understood by the client icon lookup. It matches the
// legacy Directions API spelling.
const (
	ManeuverTurnLeft    = "turn-left"
	ManeuverTurnRight   = "turn-right"
	ManeuverSlightLeft  = "slight-left"
	ManeuverSlightRight = "slight-right"
	ManeuverSharpLeft   = "sharp-left"
	ManeuverSharpRight  = "sharp-right"
	ManeuverUTurn       = "uturn"
	ManeuverKeepLeft    = "keep-left"
	ManeuverKeepRight   = "keep-right"
	ManeuverStraight    = "straight"
	ManeuverRoundabout  = "roundabout"
	ManeuverArrive      = "arrive"
)

var routesManeuvers = map[string]string{
	"TURN_LEFT":         ManeuverTurnLeft,
	"TURN_RIGHT":        ManeuverTurnRight,
	"TURN_SLIGHT_LEFT":  ManeuverSlightLeft,
	"TURN_SLIGHT_RIGHT": ManeuverSlightRight,
	"TURN_SHARP_LEFT":   ManeuverSharpLeft,
	"TURN_SHARP_RIGHT":  ManeuverSharpRight,
	"UTURN_LEFT":        ManeuverUTurn,
	"UTURN_RIGHT":       ManeuverUTurn,
	"KEEP_LEFT":         ManeuverKeepLeft,
	"KEEP_RIGHT":        ManeuverKeepRight,
	"STRAIGHT":          ManeuverStraight,
	"ROUNDABOUT_LEFT":   ManeuverRoundabout,
	"ROUNDABOUT_RIGHT":  ManeuverRoundabout,
	"DESTINATION":       ManeuverArrive,
}

// MapRoutesManeuver translates a Routes API v2 maneuver enum. Unknown values
// map to "".
func MapRoutesManeuver(m string) string {
	return routesManeuvers[strings.ToUpper(strings.TrimSpace(m))]
}

// instructionManeuvers is checked in order, so the more specific phrases
// come before the plain turns.
var instructionManeuvers = []struct {
	phrase   string
	maneuver string
}{
	{"u-turn", ManeuverUTurn},
	{"roundabout", ManeuverRoundabout},
	{"sharp left", ManeuverSharpLeft},
	{"sharp right", ManeuverSharpRight},
	{"slight left", ManeuverSlightLeft},
	{"slight right", ManeuverSlightRight},
	{"keep left", ManeuverKeepLeft},
	{"keep right", ManeuverKeepRight},
	{"turn left", ManeuverTurnLeft},
	{"turn right", ManeuverTurnRight},
	{"destination", ManeuverArrive},
}

// ManeuverFromInstruction derives a maneuver from a Directions step's
// instruction text, which is all the legacy API exposes through the Maps
// client. Anything unrecognised is straight.
func ManeuverFromInstruction(instruction string) string {
	text := strings.ToLower(stripHTML(instruction))
	for _, m := range instructionManeuvers {
		if strings.Contains(text, m.phrase) {
			return m.maneuver
		}
	}
	return ManeuverStraight
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	return strings.TrimSpace(htmlTag.ReplaceAllString(s, ""))
}
