package route

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"backend-bikerental/internal/format"
	"backend-bikerental/internal/polyline"
	"backend-bikerental/internal/shared/geo"
)

const (
	DefaultRoutesURL = "https://routes.googleapis.com/directions/v2:computeRoutes"

	routesFieldMask = "routes.duration,routes.distanceMeters,routes.polyline.encodedPolyline," +
		"routes.legs,routes.legs.steps.navigationInstruction,routes.legs.steps.distanceMeters," +
		"routes.legs.steps.staticDuration,routes.legs.steps.polyline.encodedPolyline," +
		"routes.legs.steps.startLocation,routes.legs.steps.endLocation," +
		"routes.legs.steps.travelAdvisory,routes.legs.distanceMeters," +
		"routes.legs.duration,routes.legs.staticDuration," +
		"routes.travelAdvisory,routes.routeLabels,routes.viewport," +
		"routes.optimizedIntermediateWaypointIndex"

	defaultRouteSeconds = 600
	defaultStepSeconds  = 60
	defaultRouteMeters  = 1000
	defaultInstruction  = "Continue on route"
)

// RoutesProvider calls the Routes API v2 computeRoutes endpoint.
type RoutesProvider struct {
	apiKey string
	url    string
	client *http.Client
}

func NewRoutesProvider(apiKey, url string, client *http.Client) *RoutesProvider {
	if url == "" {
		url = DefaultRoutesURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &RoutesProvider{apiKey: apiKey, url: url, client: client}
}

func (p *RoutesProvider) Name() string { return "routes_v2" }

type wireLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type wireWaypoint struct {
	Location struct {
		LatLng wireLatLng `json:"latLng"`
	} `json:"location"`
}

type routeModifiers struct {
	AvoidTolls    bool `json:"avoidTolls"`
	AvoidHighways bool `json:"avoidHighways"`
	AvoidFerries  bool `json:"avoidFerries"`
}

type routesRequest struct {
	Origin                   wireWaypoint   `json:"origin"`
	Destination              wireWaypoint   `json:"destination"`
	TravelMode               string         `json:"travelMode"`
	ComputeAlternativeRoutes bool           `json:"computeAlternativeRoutes"`
	RoutingPreference        string         `json:"routingPreference,omitempty"`
	LanguageCode             string         `json:"languageCode"`
	Units                    string         `json:"units"`
	RouteModifiers           routeModifiers `json:"routeModifiers"`
	PolylineQuality          string         `json:"polylineQuality"`
	PolylineEncoding         string         `json:"polylineEncoding"`
	ExtraComputations        []string       `json:"extraComputations"`
	RequestedReferenceRoutes []string       `json:"requestedReferenceRoutes,omitempty"`
}

func waypointFor(p geo.Point) wireWaypoint {
	var w wireWaypoint
	w.Location.LatLng = wireLatLng{Latitude: p.Lat, Longitude: p.Lng}
	return w
}

func travelMode(m Mode) string {
	switch m {
	case ModeWalking:
		return "WALKING"
	case ModeDriving:
		return "DRIVE"
	default:
		return "BICYCLE"
	}
}

func buildRoutesRequest(req Request) routesRequest {
	body := routesRequest{
		Origin:                   waypointFor(req.Origin),
		Destination:              waypointFor(req.Destination),
		TravelMode:               travelMode(req.Mode),
		ComputeAlternativeRoutes: req.Alternatives,
		LanguageCode:             "en-US",
		Units:                    "METRIC",
		PolylineQuality:          "HIGH_QUALITY",
		PolylineEncoding:         "ENCODED_POLYLINE",
		ExtraComputations:        []string{"TRAFFIC_ON_POLYLINE"},
	}
	if body.TravelMode == "DRIVE" {
		body.RoutingPreference = "TRAFFIC_AWARE"
		body.RequestedReferenceRoutes = []string{"FUEL_EFFICIENT"}
	}
	return body
}

func (p *RoutesProvider) Routes(ctx context.Context, req Request) ([]Info, error) {
	payload, err := json.Marshal(buildRoutesRequest(req))
	if err != nil {
		return nil, fmt.Errorf("routes api: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("routes api: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("X-Goog-Api-Key", p.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", routesFieldMask)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("routes api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("routes api: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := apiErrorMessage(body)
		log.Printf("routes api: status %d key=%s: %s", resp.StatusCode, MaskAPIKey(p.apiKey), msg)
		return nil, fmt.Errorf("routes api: status %d: %s", resp.StatusCode, msg)
	}
	return decodeRoutes(body)
}

func apiErrorMessage(body []byte) string {
	var e struct {
		Error *struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Error == nil {
		if len(body) == 0 {
			return "no error body"
		}
		return string(body)
	}
	return fmt.Sprintf("%s (%d)", e.Error.Message, e.Error.Code)
}

var errNoLegs = errors.New("route has no legs")

// decodeRoutes parses a computeRoutes response. A route or step that fails
// to decode is dropped; the rest of the response is still used. A body that
// is not JSON at all yields no routes.
func decodeRoutes(body []byte) ([]Info, error) {
	var envelope struct {
		Routes []json.RawMessage `json:"routes"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Printf("routes api: malformed response: %v", err)
		return []Info{}, nil
	}
	if envelope.Routes == nil {
		log.Printf("routes api: response has no routes")
		return []Info{}, nil
	}

	routes := make([]Info, 0, len(envelope.Routes))
	for i, raw := range envelope.Routes {
		info, err := decodeRoute(raw)
		if err != nil {
			log.Printf("routes api: skipping route %d: %v", i, err)
			continue
		}
		routes = append(routes, info)
	}
	return routes, nil
}

type wirePolyline struct {
	EncodedPolyline *string `json:"encodedPolyline"`
}

type wireRoute struct {
	Duration       json.RawMessage   `json:"duration"`
	DistanceMeters *int              `json:"distanceMeters"`
	Polyline       *wirePolyline     `json:"polyline"`
	TravelAdvisory json.RawMessage   `json:"travelAdvisory"`
	Legs           []json.RawMessage `json:"legs"`
}

type wireLeg struct {
	Steps []json.RawMessage `json:"steps"`
}

func decodeRoute(raw json.RawMessage) (Info, error) {
	var r wireRoute
	if err := json.Unmarshal(raw, &r); err != nil {
		return Info{}, err
	}
	if r.Legs == nil {
		return Info{}, errNoLegs
	}

	seconds, ok := parseDuration(r.Duration)
	if !ok {
		seconds = defaultRouteSeconds
	}
	meters := defaultRouteMeters
	if r.DistanceMeters != nil {
		meters = *r.DistanceMeters
	}

	info := Info{
		Distance:        format.RouteDistance(meters),
		DistanceMeters:  meters,
		Duration:        format.RouteDuration(seconds),
		DurationSeconds: seconds,
		Traffic:         decodeTraffic(r.TravelAdvisory),
	}

	for j, rawLeg := range r.Legs {
		var leg wireLeg
		if err := json.Unmarshal(rawLeg, &leg); err != nil {
			return Info{}, fmt.Errorf("leg %d: %w", j, err)
		}
		for k, rawStep := range leg.Steps {
			step, err := decodeStep(rawStep)
			if err != nil {
				log.Printf("routes api: skipping step %d in leg %d: %v", k, j, err)
				continue
			}
			info.Steps = append(info.Steps, step)
		}
	}

	if r.Polyline != nil && r.Polyline.EncodedPolyline != nil {
		info.Polyline = polyline.Decode(*r.Polyline.EncodedPolyline)
	}
	if len(info.Polyline) == 0 {
		info.Polyline = joinStepPolylines(info.Steps)
	}
	return info, nil
}

type wireStep struct {
	DistanceMeters        *int            `json:"distanceMeters"`
	StaticDuration        json.RawMessage `json:"staticDuration"`
	StartLocation         json.RawMessage `json:"startLocation"`
	EndLocation           json.RawMessage `json:"endLocation"`
	Polyline              *wirePolyline   `json:"polyline"`
	NavigationInstruction *struct {
		Instructions string `json:"instructions"`
		Maneuver     string `json:"maneuver"`
	} `json:"navigationInstruction"`
}

func decodeStep(raw json.RawMessage) (Step, error) {
	var s wireStep
	if err := json.Unmarshal(raw, &s); err != nil {
		return Step{}, err
	}
	if s.DistanceMeters == nil {
		return Step{}, errors.New("missing distanceMeters")
	}
	start, err := parseLocation(s.StartLocation)
	if err != nil {
		return Step{}, fmt.Errorf("startLocation: %w", err)
	}
	end, err := parseLocation(s.EndLocation)
	if err != nil {
		return Step{}, fmt.Errorf("endLocation: %w", err)
	}

	seconds, ok := parseDuration(s.StaticDuration)
	if !ok {
		seconds = defaultStepSeconds
	}

	step := Step{
		Instruction:     defaultInstruction,
		Distance:        format.RouteDistance(*s.DistanceMeters),
		DistanceMeters:  *s.DistanceMeters,
		Duration:        format.RouteDuration(seconds),
		DurationSeconds: seconds,
		Start:           start,
		End:             end,
	}
	if n := s.NavigationInstruction; n != nil {
		if text := stripHTML(n.Instructions); text != "" {
			step.Instruction = text
		}
		step.Maneuver = MapRoutesManeuver(n.Maneuver)
	}

	if s.Polyline != nil && s.Polyline.EncodedPolyline != nil {
		step.Polyline = polyline.Decode(*s.Polyline.EncodedPolyline)
	}
	if len(step.Polyline) == 0 {
		step.Polyline = []geo.Point{start, end}
	}
	return step, nil
}

func joinStepPolylines(steps []Step) []geo.Point {
	var path []geo.Point
	for _, s := range steps {
		if len(path) == 0 {
			path = append(path, s.Polyline...)
			continue
		}
		if len(s.Polyline) > 1 {
			path = append(path, s.Polyline[1:]...)
		}
	}
	return path
}
