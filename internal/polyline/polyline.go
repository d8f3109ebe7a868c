// Package polyline implements Google's encoded polyline algorithm at the
// standard 1e-5 precision.
package polyline

import (
	"math"
	"strings"

	"backend-bikerental/internal/shared/geo"
)

const precision = 1e5

// Decode converts an encoded polyline into coordinates. Input that ends in
// the middle of a coordinate pair yields the pairs decoded so far.
func Decode(encoded string) []geo.Point {
	var points []geo.Point
	index, lat, lng := 0, 0, 0

	for index < len(encoded) {
		dLat, next, ok := decodeValue(encoded, index)
		if !ok {
			return points
		}
		dLng, next, ok := decodeValue(encoded, next)
		if !ok {
			return points
		}
		index = next
		lat += dLat
		lng += dLng

		points = append(points, geo.Point{
			Lat: float64(lat) / precision,
			Lng: float64(lng) / precision,
		})
	}
	return points
}

func decodeValue(encoded string, index int) (int, int, bool) {
	shift, result := 0, 0
	for {
		if index >= len(encoded) {
			return 0, index, false
		}
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		return ^(result >> 1), index, true
	}
	return result >> 1, index, true
}

// Encode is the inverse of Decode.
func Encode(points []geo.Point) string {
	var sb strings.Builder
	prevLat, prevLng := 0, 0
	for _, p := range points {
		lat := int(math.Round(p.Lat * precision))
		lng := int(math.Round(p.Lng * precision))
		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lng-prevLng)
		prevLat, prevLng = lat, lng
	}
	return sb.String()
}

func encodeValue(sb *strings.Builder, value int) {
	v := value << 1
	if value < 0 {
		v = ^v
	}
	for v >= 0x20 {
		sb.WriteByte(byte((v&0x1f)|0x20) + 63)
		v >>= 5
	}
	sb.WriteByte(byte(v) + 63)
}
