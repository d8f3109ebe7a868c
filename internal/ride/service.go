package ride

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"backend-bikerental/internal/db"
	"backend-bikerental/internal/events"
	"backend-bikerental/internal/format"
	"backend-bikerental/internal/shared/geo"
	"backend-bikerental/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var (
	ErrRideNotFound  = errors.New("ride not found")
	ErrRideNotActive = errors.New("ride is not active")
	ErrInvalidFix    = errors.New("fix coordinates out of range")
)

type Service struct {
	db         db.Querier
	hub        *stream.Hub
	events     events.Publisher
	hourlyRate float64
	now        func() time.Time
}

func NewService(q db.Querier, hub *stream.Hub, publisher events.Publisher, hourlyRate float64) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if hourlyRate <= 0 {
		hourlyRate = DefaultHourlyRate
	}
	return &Service{db: q, hub: hub, events: publisher, hourlyRate: hourlyRate, now: time.Now}
}

func (s *Service) StartRide(ctx context.Context, input Ride) (Ride, error) {
	input.ID = uuid.NewString()
	if input.StartedAt.IsZero() {
		input.StartedAt = s.now()
	}
	if input.HourlyRate <= 0 {
		input.HourlyRate = s.hourlyRate
	}
	input.Status = StatusActive

	row := s.db.QueryRow(ctx, `
		INSERT INTO rides (id, bike_id, rider_id, started_at, status, hourly_rate)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING started_at, status
	`, input.ID, input.BikeID, input.RiderID, input.StartedAt, input.Status, input.HourlyRate)
	if err := row.Scan(&input.StartedAt, &input.Status); err != nil {
		return Ride{}, fmt.Errorf("start ride: %w", err)
	}

	if _, err := s.db.Exec(ctx, `UPDATE bikes SET is_available=false WHERE id=$1`, input.BikeID); err != nil {
		log.Printf("ride %s: mark bike %s in use: %v", input.ID, input.BikeID, err)
	}
	s.publish(ctx, events.RideStarted, events.RideEvent{
		RideID:  input.ID,
		BikeID:  input.BikeID,
		RiderID: input.RiderID,
		Status:  input.Status,
		At:      input.StartedAt,
	})
	return input, nil
}

func rideStatus(ctx context.Context, q pgx.Tx, rideID string) (string, error) {
	var status string
	err := q.QueryRow(ctx, `SELECT status FROM rides WHERE id=$1 FOR UPDATE`, rideID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrRideNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load ride %s: %w", rideID, err)
	}
	return status, nil
}

const fixColumns = `ST_Y(location::geometry), ST_X(location::geometry), COALESCE(accuracy_m,0), COALESCE(speed_mps,0), recorded_at, accepted`

func scanLastFix(row pgx.Row) (*BikeLocation, bool, error) {
	var l BikeLocation
	var accepted bool
	err := row.Scan(&l.Lat, &l.Lng, &l.Accuracy, &l.Speed, &l.Timestamp, &accepted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &l, accepted, nil
}

// anchors loads what Judge needs: the last accepted fix and, when the most
// recent fix was valid but rejected, that fix as the pending one.
func anchors(ctx context.Context, q pgx.Tx, rideID string) (last, pending *BikeLocation, err error) {
	latest, accepted, err := scanLastFix(q.QueryRow(ctx, `
		SELECT `+fixColumns+`
		FROM ride_points WHERE ride_id=$1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`, rideID))
	if err != nil || latest == nil {
		return nil, nil, err
	}
	if accepted {
		return latest, nil, nil
	}
	if ValidFix(*latest) {
		pending = latest
	}

	last, _, err = scanLastFix(q.QueryRow(ctx, `
		SELECT `+fixColumns+`
		FROM ride_points WHERE ride_id=$1 AND accepted
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`, rideID))
	if err != nil {
		return nil, nil, err
	}
	return last, pending, nil
}

// AddFix stores a fix and folds it into the ride's running totals. Fixes
// that fail the plausibility filter are kept in the path but marked
// rejected. The ride row is locked for the duration, so concurrent fixes
// for one ride are judged one after another.
func (s *Service) AddFix(ctx context.Context, rideID string, fix BikeLocation) (Fix, error) {
	if !geo.ValidCoordinate(fix.Point()) {
		return Fix{}, ErrInvalidFix
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = s.now()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Fix{}, fmt.Errorf("begin fix: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status, err := rideStatus(ctx, tx, rideID)
	if err != nil {
		return Fix{}, err
	}
	if status != StatusActive {
		return Fix{}, ErrRideNotActive
	}

	last, pending, err := anchors(ctx, tx, rideID)
	if err != nil {
		return Fix{}, fmt.Errorf("load last fix: %w", err)
	}
	meters, accepted := Judge(last, pending, fix)

	out := Fix{RideID: rideID, Accepted: accepted, BikeLocation: fix}
	row := tx.QueryRow(ctx, `
		INSERT INTO ride_points (ride_id, location, accuracy_m, speed_mps, bearing, altitude_m, recorded_at, provider, accepted)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2,$3), 4326)::geography, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, rideID, fix.Lng, fix.Lat, fix.Accuracy, fix.Speed, fix.Bearing, fix.Altitude, fix.Timestamp, fix.Provider, accepted)
	if err := row.Scan(&out.ID, &out.CreatedAt); err != nil {
		return Fix{}, fmt.Errorf("insert fix: %w", err)
	}

	var speed float64
	samples, acceptedN, rejectedN := 0, 0, 1
	if accepted {
		acceptedN, rejectedN = 1, 0
		if kmh, ok := speedSample(fix); ok {
			speed, samples = kmh, 1
		}
	}
	_, err = tx.Exec(ctx, `
		UPDATE rides
		SET distance_m = COALESCE(distance_m,0) + $2,
		    max_speed_kmh = GREATEST(COALESCE(max_speed_kmh,0), $3),
		    speed_sum_kmh = COALESCE(speed_sum_kmh,0) + $3,
		    speed_samples = COALESCE(speed_samples,0) + $4,
		    accepted_fixes = COALESCE(accepted_fixes,0) + $5,
		    rejected_fixes = COALESCE(rejected_fixes,0) + $6
		WHERE id=$1
	`, rideID, meters, speed, samples, acceptedN, rejectedN)
	if err != nil {
		return Fix{}, fmt.Errorf("update ride totals: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Fix{}, fmt.Errorf("commit fix: %w", err)
	}

	if s.hub != nil {
		payload, _ := json.Marshal(out)
		s.hub.Broadcast(rideID, payload)
	}
	return out, nil
}

// EndRide recomputes the metrics from the stored path, bills the ride and
// marks it completed.
func (s *Service) EndRide(ctx context.Context, rideID string, endedAt time.Time) (Summary, error) {
	if endedAt.IsZero() {
		endedAt = s.now()
	}

	var r Ride
	err := s.db.QueryRow(ctx, `
		SELECT id, bike_id, rider_id, status, started_at, hourly_rate
		FROM rides WHERE id=$1
	`, rideID).Scan(&r.ID, &r.BikeID, &r.RiderID, &r.Status, &r.StartedAt, &r.HourlyRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return Summary{}, ErrRideNotFound
	}
	if err != nil {
		return Summary{}, fmt.Errorf("load ride %s: %w", rideID, err)
	}
	if r.Status != StatusActive {
		return Summary{}, ErrRideNotActive
	}

	fixes, err := s.Path(ctx, rideID)
	if err != nil {
		return Summary{}, err
	}
	path := make([]BikeLocation, len(fixes))
	for i, f := range fixes {
		path[i] = f.BikeLocation
	}
	metrics := Aggregate(path)

	if endedAt.Before(r.StartedAt) {
		endedAt = r.StartedAt
	}
	duration := endedAt.Sub(r.StartedAt)
	fare := Fare(duration, r.HourlyRate)

	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET status=$2, ended_at=$3, distance_m=$4, avg_speed_kmh=$5, max_speed_kmh=$6,
		    accepted_fixes=$7, rejected_fixes=$8, fare=$9
		WHERE id=$1 AND status='active'
	`, rideID, StatusCompleted, endedAt, metrics.DistanceMeters, metrics.AverageSpeedKmh, metrics.MaxSpeedKmh,
		metrics.AcceptedFixes, metrics.RejectedFixes, fare)
	if err != nil {
		return Summary{}, fmt.Errorf("complete ride: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Summary{}, ErrRideNotActive
	}

	if _, err := s.db.Exec(ctx, `UPDATE bikes SET is_available=true WHERE id=$1`, r.BikeID); err != nil {
		log.Printf("ride %s: release bike %s: %v", rideID, r.BikeID, err)
	}
	s.publish(ctx, events.RideCompleted, events.RideEvent{
		RideID:      rideID,
		BikeID:      r.BikeID,
		RiderID:     r.RiderID,
		Status:      StatusCompleted,
		At:          endedAt,
		DistanceM:   metrics.DistanceMeters,
		AvgSpeedKmh: metrics.AverageSpeedKmh,
		MaxSpeedKmh: metrics.MaxSpeedKmh,
		Fare:        fare,
	})

	return newSummary(rideID, StatusCompleted, metrics, duration, fare), nil
}

func (s *Service) Summary(ctx context.Context, rideID string) (Summary, error) {
	var (
		status               string
		startedAt            time.Time
		endedAt              pgtype.Timestamptz
		rate, fare, speedSum float64
		samples              int
		m                    Metrics
	)
	err := s.db.QueryRow(ctx, `
		SELECT status, started_at, ended_at, hourly_rate, COALESCE(fare,0),
		       COALESCE(distance_m,0), COALESCE(avg_speed_kmh,0), COALESCE(max_speed_kmh,0),
		       COALESCE(speed_sum_kmh,0), COALESCE(speed_samples,0),
		       COALESCE(accepted_fixes,0), COALESCE(rejected_fixes,0)
		FROM rides WHERE id=$1
	`, rideID).Scan(&status, &startedAt, &endedAt, &rate, &fare,
		&m.DistanceMeters, &m.AverageSpeedKmh, &m.MaxSpeedKmh,
		&speedSum, &samples, &m.AcceptedFixes, &m.RejectedFixes)
	if errors.Is(err, pgx.ErrNoRows) {
		return Summary{}, ErrRideNotFound
	}
	if err != nil {
		return Summary{}, fmt.Errorf("load ride %s: %w", rideID, err)
	}

	end := s.now()
	if endedAt.Valid {
		end = endedAt.Time
	}
	duration := end.Sub(startedAt)
	if duration < 0 {
		duration = 0
	}

	if status == StatusActive {
		fare = Fare(duration, rate)
		m.AverageSpeedKmh = 0
		switch {
		case m.AcceptedFixes < 2:
			m.MaxSpeedKmh = 0
		case samples > 0:
			m.AverageSpeedKmh = speedSum / float64(samples)
		case duration > 0:
			m.AverageSpeedKmh = m.DistanceMeters / duration.Seconds() * 3.6
		}
	}
	return newSummary(rideID, status, m, duration, fare), nil
}

func newSummary(rideID, status string, m Metrics, duration time.Duration, fare float64) Summary {
	return Summary{
		RideID:      rideID,
		Status:      status,
		DurationSec: int64(duration.Seconds()),
		Fare:        fare,
		Metrics:     m,
		Display: Display{
			Distance:     format.Distance(m.DistanceMeters),
			AverageSpeed: format.Speed(m.AverageSpeedKmh),
			MaxSpeed:     format.Speed(m.MaxSpeedKmh),
			Duration:     format.Duration(duration),
			Fare:         format.Cost(fare, format.DefaultCurrency),
		},
	}
}

func (s *Service) Path(ctx context.Context, rideID string) ([]Fix, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, ride_id, ST_Y(location::geometry), ST_X(location::geometry), COALESCE(accuracy_m,0), COALESCE(speed_mps,0),
		       COALESCE(bearing,0), COALESCE(altitude_m,0), recorded_at, COALESCE(provider,''), accepted, created_at
		FROM ride_points WHERE ride_id=$1
		ORDER BY recorded_at, id
	`, rideID)
	if err != nil {
		return nil, fmt.Errorf("load path: %w", err)
	}
	defer rows.Close()

	var fixes []Fix
	for rows.Next() {
		var f Fix
		if err := rows.Scan(&f.ID, &f.RideID, &f.Lat, &f.Lng, &f.Accuracy, &f.Speed,
			&f.Bearing, &f.Altitude, &f.Timestamp, &f.Provider, &f.Accepted, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fix: %w", err)
		}
		fixes = append(fixes, f)
	}
	return fixes, rows.Err()
}

// History lists a rider's rides, newest first.
func (s *Service) History(ctx context.Context, riderID string) ([]Ride, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, bike_id, rider_id, status, started_at, ended_at, hourly_rate,
		       COALESCE(distance_m,0), COALESCE(avg_speed_kmh,0), COALESCE(max_speed_kmh,0), COALESCE(fare,0)
		FROM rides WHERE rider_id=$1
		ORDER BY started_at DESC
	`, riderID)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	defer rows.Close()

	var rides []Ride
	for rows.Next() {
		var r Ride
		var endedAt pgtype.Timestamptz
		if err := rows.Scan(&r.ID, &r.BikeID, &r.RiderID, &r.Status, &r.StartedAt, &endedAt, &r.HourlyRate,
			&r.DistanceM, &r.AvgSpeedKmh, &r.MaxSpeedKmh, &r.Fare); err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		if endedAt.Valid {
			t := endedAt.Time
			r.EndedAt = &t
		}
		rides = append(rides, r)
	}
	return rides, rows.Err()
}

func (s *Service) publish(ctx context.Context, key string, ev events.RideEvent) {
	if err := s.events.Publish(ctx, key, ev); err != nil {
		log.Printf("ride %s: publish %s: %v", ev.RideID, key, err)
	}
}
