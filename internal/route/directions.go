package route

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"backend-bikerental/internal/format"
	"backend-bikerental/internal/polyline"
	"backend-bikerental/internal/shared/geo"

	"googlemaps.github.io/maps"
)

// DirectionsProvider talks to the legacy Directions API through the
// official Maps client.
type DirectionsProvider struct {
	client *maps.Client
}

// NewDirectionsProvider builds a provider; baseURL overrides the Google host
// and may be empty.
func NewDirectionsProvider(apiKey, baseURL string, httpClient *http.Client) (*DirectionsProvider, error) {
	if apiKey == "" {
		return nil, errors.New("directions: api key required")
	}
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, maps.WithHTTPClient(httpClient))
	}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("directions: %w", err)
	}
	return &DirectionsProvider{client: client}, nil
}

func (p *DirectionsProvider) Name() string { return "directions" }

func (p *DirectionsProvider) Routes(ctx context.Context, req Request) ([]Info, error) {
	resp, _, err := p.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:       fmt.Sprintf("%f,%f", req.Origin.Lat, req.Origin.Lng),
		Destination:  fmt.Sprintf("%f,%f", req.Destination.Lat, req.Destination.Lng),
		Mode:         directionsMode(req.Mode),
		Alternatives: req.Alternatives,
	})
	if err != nil {
		return nil, fmt.Errorf("directions: %w", err)
	}

	routes := make([]Info, 0, len(resp))
	for i, r := range resp {
		if len(r.Legs) == 0 || r.Legs[0] == nil {
			log.Printf("directions: route %d has no legs, skipping", i)
			continue
		}
		routes = append(routes, directionsRoute(r))
	}
	return routes, nil
}

func directionsRoute(r maps.Route) Info {
	leg := r.Legs[0]
	seconds := int(leg.Duration / time.Second)

	info := Info{
		Distance:        leg.Distance.HumanReadable,
		DistanceMeters:  leg.Distance.Meters,
		Duration:        format.RouteDuration(seconds),
		DurationSeconds: seconds,
		Polyline:        polyline.Decode(r.OverviewPolyline.Points),
	}
	if info.Distance == "" {
		info.Distance = format.RouteDistance(info.DistanceMeters)
	}

	for _, s := range leg.Steps {
		if s == nil {
			continue
		}
		stepSeconds := int(s.Duration / time.Second)
		step := Step{
			Instruction:     stripHTML(s.HTMLInstructions),
			Distance:        s.Distance.HumanReadable,
			DistanceMeters:  s.Distance.Meters,
			Duration:        format.RouteDuration(stepSeconds),
			DurationSeconds: stepSeconds,
			Start:           point(s.StartLocation),
			End:             point(s.EndLocation),
			Maneuver:        ManeuverFromInstruction(s.HTMLInstructions),
			Polyline:        polyline.Decode(s.Polyline.Points),
		}
		if step.Distance == "" {
			step.Distance = format.RouteDistance(step.DistanceMeters)
		}
		info.Steps = append(info.Steps, step)
	}
	return info
}

func directionsMode(m Mode) maps.Mode {
	switch m {
	case ModeWalking:
		return maps.TravelModeWalking
	case ModeDriving:
		return maps.TravelModeDriving
	default:
		return maps.TravelModeBicycling
	}
}

func point(l maps.LatLng) geo.Point {
	return geo.Point{Lat: l.Lat, Lng: l.Lng}
}
