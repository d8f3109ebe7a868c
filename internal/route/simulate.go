package route

import (
	"math"
	"math/rand"

	"backend-bikerental/internal/format"
	"backend-bikerental/internal/shared/geo"
)

// Simulator synthesizes road-like routes when no live provider answer is
// available. The geometry depends only on the request, so repeated calls
// produce identical routes.
type Simulator struct{}

type waypoint struct {
	fraction    float64
	dLat, dLng  float64
	instruction string
	maneuver    string
}

var mainPlan = []waypoint{
	{0.25, 0.0025, -0.0015, "Head southwest toward Main St", ManeuverStraight},
	{0.50, -0.0018, 0.0032, "Turn left onto Central Ave", ManeuverTurnLeft},
	{0.75, 0.0028, 0.0022, "Turn right onto Bike Path", ManeuverTurnRight},
	{1, 0, 0, "Arrive at your destination", ManeuverArrive},
}

var alternatePlan = []waypoint{
	{0.30, -0.004, 0.003, "Head north on Park Ave", ManeuverStraight},
	{0.60, 0.0035, -0.0025, "Slight right onto River Rd", ManeuverSlightRight},
	{1, 0, 0, "Arrive at destination", ManeuverArrive},
}

// Routes returns the main simulated route and, when requested, one
// alternative.
func (Simulator) Routes(req Request) []Info {
	routes := []Info{buildSimulated(req, mainPlan)}
	if req.Alternatives {
		routes = append(routes, buildSimulated(req, alternatePlan))
	}
	return routes
}

func buildSimulated(req Request, plan []waypoint) Info {
	speed := cruiseSpeed(req.Mode)

	var steps []Step
	var path []geo.Point
	totalMeters, totalSeconds := 0, 0
	prev := req.Origin

	for _, wp := range plan {
		next := req.Destination
		if wp.fraction < 1 {
			base := geo.Lerp(req.Origin, req.Destination, wp.fraction)
			next = geo.Point{Lat: base.Lat + wp.dLat, Lng: base.Lng + wp.dLng}
		}

		segment := curve(prev, next, 10)
		meters := int(math.Round(pathLength(segment)))
		seconds := int(math.Round(float64(meters) / speed))

		steps = append(steps, Step{
			Instruction:     wp.instruction,
			Distance:        format.RouteDistance(meters),
			DistanceMeters:  meters,
			Duration:        format.RouteDuration(seconds),
			DurationSeconds: seconds,
			Start:           prev,
			End:             next,
			Maneuver:        wp.maneuver,
			Polyline:        segment,
		})

		if len(path) == 0 {
			path = append(path, segment...)
		} else {
			path = append(path, segment[1:]...)
		}
		totalMeters += meters
		totalSeconds += seconds
		prev = next
	}

	return Info{
		Distance:        format.RouteDistance(totalMeters),
		DistanceMeters:  totalMeters,
		Duration:        format.RouteDuration(totalSeconds),
		DurationSeconds: totalSeconds,
		Polyline:        path,
		Steps:           steps,
	}
}

// curve returns start, pointCount cubic-bezier points bending away from the
// straight line, and end. Longer segments get twice the points.
func curve(start, end geo.Point, pointCount int) []geo.Point {
	length := geo.Distance(start, end)
	bearing := geo.Bearing(start, end)
	if length > 500 {
		pointCount *= 2
	}

	rng := rand.New(rand.NewSource(seedFor(start, end)))
	c1 := geo.Offset(start, bearing+30, length*0.3)
	c2 := geo.Offset(end, bearing+210, length*0.3)

	points := make([]geo.Point, 0, pointCount+2)
	points = append(points, start)
	for i := 1; i <= pointCount; i++ {
		t := float64(i) / float64(pointCount+1)
		mt := 1 - t
		a := mt * mt * mt
		b := 3 * mt * mt * t
		c := 3 * mt * t * t
		d := t * t * t

		lat := start.Lat*a + c1.Lat*b + c2.Lat*c + end.Lat*d
		lng := start.Lng*a + c1.Lng*b + c2.Lng*c + end.Lng*d
		jitter := 0.00005 * (rng.Float64() - 0.5) * length / 100

		points = append(points, geo.Point{Lat: lat + jitter, Lng: lng + jitter})
	}
	return append(points, end)
}

func seedFor(a, b geo.Point) int64 {
	return int64(a.Lat*1e5)*31 + int64(a.Lng*1e5)*17 + int64(b.Lat*1e5)*13 + int64(b.Lng*1e5)
}

func pathLength(points []geo.Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += geo.Distance(points[i-1], points[i])
	}
	return total
}

// cruiseSpeed is the assumed travel speed in m/s.
func cruiseSpeed(m Mode) float64 {
	switch m {
	case ModeWalking:
		return 1.4
	case ModeDriving:
		return 11
	default:
		return 4.2
	}
}
