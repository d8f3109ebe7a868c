package ride

import (
	"math"
	"time"
)

const (
	DefaultHourlyRate = 50.0
	MinimumBilled     = 15 * time.Minute
)

// Fare bills the ride duration at hourlyRate, never less than MinimumBilled.
// A non-positive rate falls back to DefaultHourlyRate.
func Fare(d time.Duration, hourlyRate float64) float64 {
	if hourlyRate <= 0 || math.IsNaN(hourlyRate) {
		hourlyRate = DefaultHourlyRate
	}
	if d < MinimumBilled {
		d = MinimumBilled
	}
	fare := d.Hours() * hourlyRate
	return math.Round(fare*100) / 100
}
