package db

import (
	"context"
	"fmt"
)

// Schema is applied in order by Migrate. Every statement is idempotent.
var Schema = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE TABLE IF NOT EXISTS riders (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name     TEXT,
		phone         TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         TEXT PRIMARY KEY,
		rider_id   TEXT NOT NULL REFERENCES riders(id),
		token      TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS bikes (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		type          TEXT NOT NULL DEFAULT '',
		description   TEXT,
		hourly_rate   DOUBLE PRECISION NOT NULL DEFAULT 0,
		location      GEOGRAPHY(Point, 4326) NOT NULL,
		battery_level INT DEFAULT 100,
		station_id    TEXT,
		is_available  BOOLEAN NOT NULL DEFAULT true,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS bikes_location_idx ON bikes USING GIST (location)`,
	`CREATE TABLE IF NOT EXISTS rides (
		id             TEXT PRIMARY KEY,
		bike_id        TEXT NOT NULL REFERENCES bikes(id),
		rider_id       TEXT NOT NULL,
		status         TEXT NOT NULL,
		started_at     TIMESTAMPTZ NOT NULL,
		ended_at       TIMESTAMPTZ,
		hourly_rate    DOUBLE PRECISION NOT NULL,
		distance_m     DOUBLE PRECISION,
		avg_speed_kmh  DOUBLE PRECISION,
		max_speed_kmh  DOUBLE PRECISION,
		speed_sum_kmh  DOUBLE PRECISION,
		speed_samples  INT,
		accepted_fixes INT,
		rejected_fixes INT,
		fare           DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS rides_rider_idx ON rides (rider_id, started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS ride_points (
		id          BIGSERIAL PRIMARY KEY,
		ride_id     TEXT NOT NULL REFERENCES rides(id),
		location    GEOGRAPHY(Point, 4326) NOT NULL,
		accuracy_m  DOUBLE PRECISION,
		speed_mps   DOUBLE PRECISION,
		bearing     DOUBLE PRECISION,
		altitude_m  DOUBLE PRECISION,
		recorded_at TIMESTAMPTZ NOT NULL,
		provider    TEXT,
		accepted    BOOLEAN NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ride_points_ride_idx ON ride_points (ride_id, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS bike_reviews (
		id         TEXT PRIMARY KEY,
		bike_id    TEXT NOT NULL REFERENCES bikes(id),
		rider_id   TEXT NOT NULL,
		rating     INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment    TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (bike_id, rider_id)
	)`,
}

func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range Schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
