// Package format renders ride and route numbers as display strings.
// Inputs are clamped, never rejected.
package format

import (
	"fmt"
	"math"
	"time"
)

const (
	DefaultCurrency = "₱"

	maxDisplaySpeedKmh = 100
)

func Distance(meters float64) string {
	switch {
	case math.IsNaN(meters) || math.IsInf(meters, 0) || meters < 0:
		return "0 m"
	case meters < 1000:
		return fmt.Sprintf("%d m", int(math.Round(meters)))
	case meters < 10000:
		return fmt.Sprintf("%.2f km", meters/1000)
	case meters < 100000:
		return fmt.Sprintf("%.1f km", meters/1000)
	default:
		return fmt.Sprintf("%d km", int(math.Round(meters/1000)))
	}
}

func Speed(kmh float64) string {
	switch {
	case math.IsNaN(kmh) || kmh < 0.1:
		return "0 km/h"
	case kmh >= maxDisplaySpeedKmh:
		return "99+ km/h"
	case kmh < 10:
		return fmt.Sprintf("%.1f km/h", kmh)
	default:
		return fmt.Sprintf("%d km/h", int(math.Round(kmh)))
	}
}

// Duration renders MM:SS below an hour and HH:MM:SS above, saturating at
// 23:59:59.
func Duration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}
	if d >= 24*time.Hour {
		return "23:59:59"
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// DurationSince formats the time elapsed from start to now. A zero or
// future start renders as 00:00.
func DurationSince(start, now time.Time) string {
	if start.IsZero() || start.After(now) {
		return "00:00"
	}
	return Duration(now.Sub(start))
}

func Cost(amount float64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		amount = 0
	}
	return fmt.Sprintf("%s %.2f", currency, amount)
}

func Coordinates(lat, lng float64, precision int) string {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return "Invalid coordinates"
	}
	if precision < 0 {
		precision = 6
	}
	return fmt.Sprintf("%.*f, %.*f", precision, lat, precision, lng)
}

func ETA(d time.Duration) string {
	seconds := int64(d / time.Second)
	switch {
	case seconds < 60:
		return "< 1 min"
	case seconds < 3600:
		return fmt.Sprintf("%d min", seconds/60)
	default:
		return fmt.Sprintf("%d hr %d min", seconds/3600, (seconds%3600)/60)
	}
}

// RouteDistance is the provider-side label for a step or route length.
func RouteDistance(meters int) string {
	if meters < 1000 {
		if meters < 0 {
			meters = 0
		}
		return fmt.Sprintf("%d m", meters)
	}
	return fmt.Sprintf("%.1f km", float64(meters)/1000)
}

// RouteDuration is the provider-side label for a step or route duration;
// anything under a minute shows as "1 min".
func RouteDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%d hr %d min", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%d min", minutes)
	default:
		return "1 min"
	}
}
