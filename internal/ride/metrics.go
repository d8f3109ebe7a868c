package ride

import (
	"math"

	"backend-bikerental/internal/shared/geo"
)

const (
	MaxRealisticSpeedKmh = 100.0
	MaxAccuracyMeters    = 50.0
	MaxJumpMeters        = 100_000.0
)

// ValidFix rejects out-of-range coordinates, the (0,0) placeholder some
// devices emit before a lock, and fixes with poor accuracy.
func ValidFix(l BikeLocation) bool {
	if !geo.ValidCoordinate(l.Point()) {
		return false
	}
	if l.Lat == 0 && l.Lng == 0 {
		return false
	}
	if math.IsNaN(l.Accuracy) || l.Accuracy > MaxAccuracyMeters {
		return false
	}
	return true
}

// Segment judges fix against the previously accepted fix. It returns the
// distance between them and whether the movement is plausible: shorter than
// MaxJumpMeters and, when time advanced, slower than MaxRealisticSpeedKmh.
func Segment(prev, fix BikeLocation) (float64, bool) {
	meters := geo.Distance(prev.Point(), fix.Point())
	if meters >= MaxJumpMeters {
		return meters, false
	}
	dt := fix.Timestamp.Sub(prev.Timestamp).Seconds()
	if dt > 0 && meters/dt*3.6 >= MaxRealisticSpeedKmh {
		return meters, false
	}
	return meters, true
}

// Judge decides whether fix is accepted after last, the most recent
// accepted fix, and pending, the fix just before it when that one was valid
// but implausible. A fix that agrees with pending but not with last
// re-anchors the path on pending, so a teleported anchor is dropped once two
// consecutive fixes agree with each other. The distance returned is the
// segment credited to the ride.
func Judge(last, pending *BikeLocation, fix BikeLocation) (float64, bool) {
	if !ValidFix(fix) {
		return 0, false
	}
	if last == nil {
		return 0, true
	}
	if meters, ok := Segment(*last, fix); ok {
		return meters, true
	}
	if pending != nil {
		if meters, ok := Segment(*pending, fix); ok {
			return meters, true
		}
	}
	return 0, false
}

// speedSample reports whether a fix's own speed reading counts toward the
// average and maximum.
func speedSample(l BikeLocation) (float64, bool) {
	kmh := l.SpeedKmh()
	if math.IsNaN(kmh) || kmh < 0 || kmh >= MaxRealisticSpeedKmh {
		return 0, false
	}
	return kmh, true
}

// Tracker folds fixes one at a time. The zero value is ready to use.
//
// Fixes are judged with Judge. Distance, average and maximum speed are
// computed from accepted fixes only.
type Tracker struct {
	first, last *BikeLocation
	pending     *BikeLocation

	distance float64
	speedSum float64
	speedN   int
	maxSpeed float64
	accepted int
	rejected int
}

// Add returns whether fix was accepted.
func (t *Tracker) Add(fix BikeLocation) bool {
	meters, ok := Judge(t.last, t.pending, fix)
	if !ok {
		t.rejected++
		t.pending = nil
		if ValidFix(fix) {
			pending := fix
			t.pending = &pending
		}
		return false
	}
	t.pending = nil
	if t.first == nil {
		first := fix
		t.first = &first
	}
	t.distance += meters

	last := fix
	t.last = &last
	t.accepted++
	if kmh, ok := speedSample(fix); ok {
		t.speedSum += kmh
		t.speedN++
		t.maxSpeed = math.Max(t.maxSpeed, kmh)
	}
	return true
}

// Last returns the most recently accepted fix.
func (t *Tracker) Last() (BikeLocation, bool) {
	if t.last == nil {
		return BikeLocation{}, false
	}
	return *t.last, true
}

func (t *Tracker) Metrics() Metrics {
	m := Metrics{
		DistanceMeters: t.distance,
		AcceptedFixes:  t.accepted,
		RejectedFixes:  t.rejected,
	}
	// A single point has no motion to report.
	if t.accepted < 2 {
		return m
	}

	m.MaxSpeedKmh = t.maxSpeed
	switch {
	case t.speedN > 0:
		m.AverageSpeedKmh = t.speedSum / float64(t.speedN)
	default:
		elapsed := t.last.Timestamp.Sub(t.first.Timestamp).Seconds()
		if elapsed > 0 {
			m.AverageSpeedKmh = t.distance / elapsed * 3.6
		}
	}
	return m
}

// Aggregate computes ride metrics over an ordered path.
func Aggregate(path []BikeLocation) Metrics {
	var t Tracker
	for _, fix := range path {
		t.Add(fix)
	}
	return t.Metrics()
}
