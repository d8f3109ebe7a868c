package bike

import (
	"context"
	"errors"
	"fmt"

	"backend-bikerental/internal/db"
	"backend-bikerental/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrBikeNotFound   = errors.New("bike not found")
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
	ErrNotRidden      = errors.New("rider has not completed a ride on this bike")
	ErrInvalidPosition = errors.New("coordinates out of range")
)

const bikeColumns = `id, name, type, COALESCE(description,''), hourly_rate,
		       ST_Y(location::geometry), ST_X(location::geometry),
		       COALESCE(battery_level,100), COALESCE(station_id,''), is_available, created_at`

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) CreateBike(ctx context.Context, input Bike) (Bike, error) {
	if !geo.ValidCoordinate(geo.Point{Lat: input.Lat, Lng: input.Lng}) {
		return Bike{}, ErrInvalidPosition
	}
	input.ID = uuid.NewString()
	if input.Battery == 0 {
		input.Battery = 100
	}
	input.IsAvailable = true
	row := s.db.QueryRow(ctx, `
		INSERT INTO bikes (id, name, type, description, hourly_rate, location, battery_level, station_id, is_available)
		VALUES ($1,$2,$3,$4,$5, ST_SetSRID(ST_MakePoint($6,$7), 4326)::geography, $8, NULLIF($9,''), $10)
		RETURNING created_at
	`, input.ID, input.Name, input.Type, input.Description, input.HourlyRate, input.Lng, input.Lat, input.Battery, input.StationID, input.IsAvailable)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Bike{}, fmt.Errorf("create bike: %w", err)
	}
	return input, nil
}

func (s *Service) GetBike(ctx context.Context, id string) (Bike, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bikeColumns+` FROM bikes WHERE id=$1`, id)
	b, err := scanBike(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bike{}, ErrBikeNotFound
	}
	if err != nil {
		return Bike{}, fmt.Errorf("load bike %s: %w", id, err)
	}
	return b, nil
}

// Nearby lists available bikes within radiusKm of the point, closest first.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]Bike, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bikeColumns+`
		FROM bikes
		WHERE is_available AND ST_DWithin(location, ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography, $3)
		ORDER BY location <-> ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography
	`, lng, lat, radiusKm*1000)
	if err != nil {
		return nil, fmt.Errorf("nearby bikes: %w", err)
	}
	defer rows.Close()

	from := geo.Point{Lat: lat, Lng: lng}
	var bikes []Bike
	for rows.Next() {
		b, err := scanBike(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bike: %w", err)
		}
		b.DistanceM = geo.Distance(from, geo.Point{Lat: b.Lat, Lng: b.Lng})
		bikes = append(bikes, b)
	}
	return bikes, rows.Err()
}

func (s *Service) SetAvailability(ctx context.Context, id string, available bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE bikes SET is_available=$2 WHERE id=$1`, id, available)
	if err != nil {
		return fmt.Errorf("update bike %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBikeNotFound
	}
	return nil
}

func (s *Service) HasRidden(ctx context.Context, bikeID, riderID string) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM rides
			WHERE bike_id = $1 AND rider_id = $2 AND status = 'completed'
		)
	`, bikeID, riderID).Scan(&ok)
	return ok, err
}

// AddReview stores or replaces the rider's review of a bike.
func (s *Service) AddReview(ctx context.Context, bikeID, riderID string, rating int, comment string) (Review, error) {
	if rating < 1 || rating > 5 {
		return Review{}, ErrInvalidRating
	}
	ridden, err := s.HasRidden(ctx, bikeID, riderID)
	if err != nil {
		return Review{}, fmt.Errorf("check rides: %w", err)
	}
	if !ridden {
		return Review{}, ErrNotRidden
	}

	review := Review{
		ID:      uuid.NewString(),
		BikeID:  bikeID,
		RiderID: riderID,
		Rating:  rating,
		Comment: comment,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO bike_reviews (id, bike_id, rider_id, rating, comment)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (bike_id, rider_id) DO UPDATE
		SET rating=EXCLUDED.rating, comment=EXCLUDED.comment
		RETURNING created_at
	`, review.ID, review.BikeID, review.RiderID, review.Rating, review.Comment)
	if err := row.Scan(&review.CreatedAt); err != nil {
		return Review{}, fmt.Errorf("insert review: %w", err)
	}
	return review, nil
}

func (s *Service) Reviews(ctx context.Context, bikeID string) ([]Review, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, bike_id, rider_id, rating, comment, created_at
		FROM bike_reviews WHERE bike_id=$1
		ORDER BY created_at DESC
	`, bikeID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.BikeID, &r.RiderID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func scanBike(row pgx.Row) (Bike, error) {
	var b Bike
	err := row.Scan(&b.ID, &b.Name, &b.Type, &b.Description, &b.HourlyRate, &b.Lat, &b.Lng,
		&b.Battery, &b.StationID, &b.IsAvailable, &b.CreatedAt)
	return b, err
}
