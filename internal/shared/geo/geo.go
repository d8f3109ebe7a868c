package geo

import "math"

// EarthRadiusM is the mean Earth radius used by every spherical helper here.
const EarthRadiusM = 6371000.0

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	return HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng) * 1000
}

func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	if h > 1 {
		h = 1
	}
	return 2 * (EarthRadiusM / 1000) * math.Asin(math.Sqrt(h))
}

// Bearing returns the initial bearing from a to b in degrees, [0,360).
func Bearing(a, b Point) float64 {
	lat1, lat2 := toRad(a.Lat), toRad(b.Lat)
	dLng := toRad(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	deg := toDeg(math.Atan2(y, x))
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

// Offset returns the point reached by travelling meters from origin on the
// given bearing over a spherical Earth.
func Offset(origin Point, bearingDeg, meters float64) Point {
	angular := meters / EarthRadiusM
	brg := toRad(bearingDeg)
	lat1 := toRad(origin.Lat)
	lng1 := toRad(origin.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angular) + math.Cos(lat1)*math.Sin(angular)*math.Cos(brg))
	lng2 := lng1 + math.Atan2(
		math.Sin(brg)*math.Sin(angular)*math.Cos(lat1),
		math.Cos(angular)-math.Sin(lat1)*math.Sin(lat2),
	)
	return Point{Lat: toDeg(lat2), Lng: toDeg(lng2)}
}

func ValidCoordinate(p Point) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return math.Abs(p.Lat) <= 90 && math.Abs(p.Lng) <= 180
}

// Lerp returns the point at fraction t on the straight segment a→b in
// coordinate space.
func Lerp(a, b Point, t float64) Point {
	return Point{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }
