package ride

import (
	"time"

	"backend-bikerental/internal/shared/geo"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// BikeLocation is one GPS fix reported by the rider's device. Speed is in
// m/s; a negative speed means the device did not report one.
type BikeLocation struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  float64   `json:"accuracy_m"`
	Speed     float64   `json:"speed_mps"`
	Bearing   float64   `json:"bearing"`
	Altitude  float64   `json:"altitude_m"`
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider,omitempty"`
}

func (l BikeLocation) Point() geo.Point { return geo.Point{Lat: l.Lat, Lng: l.Lng} }

func (l BikeLocation) SpeedKmh() float64 { return l.Speed * 3.6 }

type Metrics struct {
	DistanceMeters  float64 `json:"distance_m"`
	AverageSpeedKmh float64 `json:"avg_speed_kmh"`
	MaxSpeedKmh     float64 `json:"max_speed_kmh"`
	AcceptedFixes   int     `json:"accepted_fixes"`
	RejectedFixes   int     `json:"rejected_fixes"`
}

type Ride struct {
	ID          string     `json:"id"`
	BikeID      string     `json:"bike_id"`
	RiderID     string     `json:"rider_id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	HourlyRate  float64    `json:"hourly_rate"`
	DistanceM   float64    `json:"distance_m"`
	AvgSpeedKmh float64    `json:"avg_speed_kmh"`
	MaxSpeedKmh float64    `json:"max_speed_kmh"`
	Fare        float64    `json:"fare"`
}

type Fix struct {
	ID        int64     `json:"id"`
	RideID    string    `json:"ride_id"`
	Accepted  bool      `json:"accepted"`
	CreatedAt time.Time `json:"created_at"`
	BikeLocation
}

type Summary struct {
	RideID      string  `json:"ride_id"`
	Status      string  `json:"status"`
	DurationSec int64   `json:"duration_sec"`
	Fare        float64 `json:"fare"`
	Metrics

	Display Display `json:"display"`
}

// Display holds the rider-facing strings for a summary.
type Display struct {
	Distance     string `json:"distance"`
	AverageSpeed string `json:"avg_speed"`
	MaxSpeed     string `json:"max_speed"`
	Duration     string `json:"duration"`
	Fare         string `json:"fare"`
}
