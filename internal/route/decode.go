package route

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"backend-bikerental/internal/shared/geo"
)

var null = []byte("null")

func absent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, null)
}

// parseDuration accepts a JSON number of seconds or a protobuf duration
// string such as "637s" or "12.5s".
func parseDuration(raw json.RawMessage) (int, bool) {
	if absent(raw) {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(math.Round(n)), n >= 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "s")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return int(math.Round(f)), true
}

type flatLocation struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	LatLng    *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"latLng"`
}

var (
	errMissingLocation = errors.New("missing location")
	errLocationShape   = errors.New("no latitude/longitude in location")
)

// parseLocation reads either {"latitude":..,"longitude":..} or
// {"latLng":{"latitude":..,"longitude":..}}.
func parseLocation(raw json.RawMessage) (geo.Point, error) {
	if absent(raw) {
		return geo.Point{}, errMissingLocation
	}
	var loc flatLocation
	if err := json.Unmarshal(raw, &loc); err != nil {
		return geo.Point{}, err
	}
	switch {
	case loc.Latitude != nil && loc.Longitude != nil:
		return geo.Point{Lat: *loc.Latitude, Lng: *loc.Longitude}, nil
	case loc.LatLng != nil && loc.LatLng.Latitude != nil && loc.LatLng.Longitude != nil:
		return geo.Point{Lat: *loc.LatLng.Latitude, Lng: *loc.LatLng.Longitude}, nil
	default:
		return geo.Point{}, errLocationShape
	}
}

// Congestion levels for the speed enum the API returns in place of a number.
var speedCategories = map[string]float64{
	"NORMAL":      0,
	"SLOW":        1,
	"TRAFFIC_JAM": 2,
}

// decodeTraffic maps interval index to the reported speed reading. Readings
// that are missing, negative or unrecognized are left out.
func decodeTraffic(raw json.RawMessage) map[int]float64 {
	if absent(raw) {
		return nil
	}
	var advisory struct {
		Intervals []struct {
			Speed json.RawMessage `json:"speed"`
		} `json:"speedReadingIntervals"`
	}
	if err := json.Unmarshal(raw, &advisory); err != nil || len(advisory.Intervals) == 0 {
		return nil
	}

	traffic := make(map[int]float64, len(advisory.Intervals))
	for i, iv := range advisory.Intervals {
		if absent(iv.Speed) {
			continue
		}
		var n float64
		if err := json.Unmarshal(iv.Speed, &n); err == nil {
			if n >= 0 {
				traffic[i] = n
			}
			continue
		}
		var s string
		if err := json.Unmarshal(iv.Speed, &s); err == nil {
			if v, ok := speedCategories[strings.ToUpper(s)]; ok {
				traffic[i] = v
			}
		}
	}
	if len(traffic) == 0 {
		return nil
	}
	return traffic
}
