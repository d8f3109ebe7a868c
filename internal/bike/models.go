package bike

import "time"

type Bike struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	HourlyRate  float64   `json:"hourly_rate"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Battery     int       `json:"battery_level"`
	StationID   string    `json:"station_id,omitempty"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`

	// Set by Nearby only.
	DistanceM float64 `json:"distance_m,omitempty"`
}

type Review struct {
	ID        string    `json:"id"`
	BikeID    string    `json:"bike_id"`
	RiderID   string    `json:"rider_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
