package ride

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-bikerental/internal/events"
	"backend-bikerental/internal/shared/geo"
	"backend-bikerental/internal/stream"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v3"
)

var errRide = errors.New("db down")

type recordingPublisher struct {
	keys   []string
	events []events.RideEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, ev any) error {
	p.keys = append(p.keys, key)
	if e, ok := ev.(events.RideEvent); ok {
		p.events = append(p.events, e)
	}
	return p.err
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

var pathColumns = []string{"id", "ride_id", "lat", "lng", "accuracy_m", "speed_mps", "bearing", "altitude_m", "recorded_at", "provider", "accepted", "created_at"}

func TestStartRide(t *testing.T) {
	mock := newMock(t)
	pub := &recordingPublisher{}
	svc := NewService(mock, nil, pub, 60)

	mock.ExpectQuery(`INSERT INTO rides`).
		WithArgs(pgxmock.AnyArg(), "bike-1", "rider-1", pgxmock.AnyArg(), "active", 60.0).
		WillReturnRows(pgxmock.NewRows([]string{"started_at", "status"}).AddRow(t0, "active"))
	mock.ExpectExec(`UPDATE bikes SET is_available=false`).
		WithArgs("bike-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ride, err := svc.StartRide(context.Background(), Ride{BikeID: "bike-1", RiderID: "rider-1"})
	if err != nil {
		t.Fatalf("start ride: %v", err)
	}
	if ride.ID == "" || ride.Status != StatusActive || ride.HourlyRate != 60 {
		t.Fatalf("unexpected ride %+v", ride)
	}
	if len(pub.keys) != 1 || pub.keys[0] != events.RideStarted {
		t.Fatalf("expected ride.started event, got %v", pub.keys)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStartRideError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO rides`).
		WithArgs(pgxmock.AnyArg(), "bike-1", "rider-1", pgxmock.AnyArg(), "active", DefaultHourlyRate).
		WillReturnError(errRide)

	svc := NewService(mock, nil, nil, 0)
	if _, err := svc.StartRide(context.Background(), Ride{BikeID: "bike-1", RiderID: "rider-1"}); !errors.Is(err, errRide) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

var lastFixCols = []string{"lat", "lng", "accuracy_m", "speed_mps", "recorded_at", "accepted"}

const (
	latestFixSQL    = `FROM ride_points WHERE ride_id=\$1 ORDER BY recorded_at DESC`
	lastAcceptedSQL = `FROM ride_points WHERE ride_id=\$1 AND accepted ORDER BY recorded_at DESC`
)

func expectActiveRide(mock pgxmock.PgxPoolIface, rideID string) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM rides WHERE id=\$1 FOR UPDATE`).WithArgs(rideID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("active"))
}

func lastFixRow(l BikeLocation, accepted bool) *pgxmock.Rows {
	return pgxmock.NewRows(lastFixCols).AddRow(l.Lat, l.Lng, l.Accuracy, l.Speed, l.Timestamp, accepted)
}

func TestAddFixFirstAndNext(t *testing.T) {
	mock := newMock(t)
	hub := stream.NewHub(nil)
	watcher := hub.Register("ride-1")
	defer hub.Unregister(watcher)
	svc := NewService(mock, hub, nil, 0)

	first := fixAt(origin, 0, 3)
	expectActiveRide(mock, "ride-1")
	mock.ExpectQuery(latestFixSQL).WithArgs("ride-1").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO ride_points`).
		WithArgs("ride-1", first.Lng, first.Lat, 5.0, 3.0, 0.0, 0.0, first.Timestamp, "", true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), t0))
	mock.ExpectExec(`UPDATE rides`).
		WithArgs("ride-1", 0.0, pgxmock.AnyArg(), 1, 1, 0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	fix, err := svc.AddFix(context.Background(), "ride-1", first)
	if err != nil {
		t.Fatalf("add first fix: %v", err)
	}
	if fix.ID != 1 || !fix.Accepted {
		t.Fatalf("unexpected fix %+v", fix)
	}
	select {
	case <-watcher.Send:
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("expected fix broadcast")
	}

	second := fixAt(geo.Offset(origin, 90, 30), 10, 3)
	expectActiveRide(mock, "ride-1")
	mock.ExpectQuery(latestFixSQL).WithArgs("ride-1").WillReturnRows(lastFixRow(first, true))
	mock.ExpectQuery(`INSERT INTO ride_points`).
		WithArgs("ride-1", second.Lng, second.Lat, 5.0, 3.0, 0.0, 0.0, second.Timestamp, "", true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(2), t0))
	mock.ExpectExec(`UPDATE rides`).
		WithArgs("ride-1", pgxmock.AnyArg(), pgxmock.AnyArg(), 1, 1, 0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	if _, err := svc.AddFix(context.Background(), "ride-1", second); err != nil {
		t.Fatalf("add second fix: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddFixRejectsTeleport(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil, 0)

	prev := fixAt(origin, 0, 3)
	jump := fixAt(geo.Offset(origin, 0, 150_000), 10, 3)

	expectActiveRide(mock, "ride-1")
	mock.ExpectQuery(latestFixSQL).WithArgs("ride-1").WillReturnRows(lastFixRow(prev, true))
	mock.ExpectQuery(`INSERT INTO ride_points`).
		WithArgs("ride-1", jump.Lng, jump.Lat, 5.0, 3.0, 0.0, 0.0, jump.Timestamp, "", false).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), t0))
	mock.ExpectExec(`UPDATE rides`).
		WithArgs("ride-1", 0.0, 0.0, 0, 0, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	fix, err := svc.AddFix(context.Background(), "ride-1", jump)
	if err != nil {
		t.Fatalf("add fix: %v", err)
	}
	if fix.Accepted {
		t.Fatalf("teleport must be rejected")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddFixReanchorsOnPendingFix(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil, 0)

	// The accepted anchor is 5 km away from where the ride really is.
	anchor := fixAt(origin, 0, 4)
	start := geo.Offset(origin, 0, 5000)
	rejected := fixAt(start, 10, 4)
	next := fixAt(geo.Offset(start, 90, 40), 20, 4)

	expectActiveRide(mock, "ride-1")
	mock.ExpectQuery(latestFixSQL).WithArgs("ride-1").WillReturnRows(lastFixRow(rejected, false))
	mock.ExpectQuery(lastAcceptedSQL).WithArgs("ride-1").WillReturnRows(lastFixRow(anchor, true))
	mock.ExpectQuery(`INSERT INTO ride_points`).
		WithArgs("ride-1", next.Lng, next.Lat, 5.0, 4.0, 0.0, 0.0, next.Timestamp, "", true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(4), t0))
	mock.ExpectExec(`UPDATE rides`).
		WithArgs("ride-1", pgxmock.AnyArg(), pgxmock.AnyArg(), 1, 1, 0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	fix, err := svc.AddFix(context.Background(), "ride-1", next)
	if err != nil {
		t.Fatalf("add fix: %v", err)
	}
	if !fix.Accepted {
		t.Fatalf("fix agreeing with the pending fix must be accepted")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddFixErrors(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil, 0)

	if _, err := svc.AddFix(context.Background(), "ride-1", BikeLocation{Lat: 120}); !errors.Is(err, ErrInvalidFix) {
		t.Fatalf("expected invalid fix, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM rides`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()
	if _, err := svc.AddFix(context.Background(), "missing", fixAt(origin, 0, 1)); !errors.Is(err, ErrRideNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM rides`).WithArgs("done").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("completed"))
	mock.ExpectRollback()
	if _, err := svc.AddFix(context.Background(), "done", fixAt(origin, 0, 1)); !errors.Is(err, ErrRideNotActive) {
		t.Fatalf("expected not active, got %v", err)
	}

	expectActiveRide(mock, "ride-1")
	mock.ExpectQuery(latestFixSQL).WithArgs("ride-1").WillReturnError(errRide)
	mock.ExpectRollback()
	if _, err := svc.AddFix(context.Background(), "ride-1", fixAt(origin, 0, 1)); !errors.Is(err, errRide) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}

	mock.ExpectBegin().WillReturnError(errRide)
	if _, err := svc.AddFix(context.Background(), "ride-1", fixAt(origin, 0, 1)); !errors.Is(err, errRide) {
		t.Fatalf("expected begin error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEndRide(t *testing.T) {
	mock := newMock(t)
	pub := &recordingPublisher{}
	svc := NewService(mock, nil, pub, 0)

	a := fixAt(origin, 0, 4)
	b := fixAt(geo.Offset(origin, 90, 100), 30, 4)
	started := t0
	ended := t0.Add(30 * time.Minute)

	mock.ExpectQuery(`SELECT id, bike_id, rider_id, status, started_at, hourly_rate`).WithArgs("ride-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "bike_id", "rider_id", "status", "started_at", "hourly_rate"}).
			AddRow("ride-1", "bike-1", "rider-1", "active", started, 50.0))
	mock.ExpectQuery(`SELECT id, ride_id, ST_Y\(location::geometry\)`).WithArgs("ride-1").
		WillReturnRows(pgxmock.NewRows(pathColumns).
			AddRow(int64(1), "ride-1", a.Lat, a.Lng, 5.0, 4.0, 0.0, 0.0, a.Timestamp, "gps", true, t0).
			AddRow(int64(2), "ride-1", b.Lat, b.Lng, 5.0, 4.0, 0.0, 0.0, b.Timestamp, "gps", true, t0))
	mock.ExpectExec(`UPDATE rides\s+SET status=\$2`).
		WithArgs("ride-1", "completed", ended, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 2, 0, 25.0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE bikes SET is_available=true`).WithArgs("bike-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	summary, err := svc.EndRide(context.Background(), "ride-1", ended)
	if err != nil {
		t.Fatalf("end ride: %v", err)
	}
	if summary.Status != StatusCompleted || summary.Fare != 25 || summary.DurationSec != 1800 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !near(summary.DistanceMeters, 100, 0.5) {
		t.Fatalf("unexpected distance %v", summary.DistanceMeters)
	}
	if summary.Display.Fare != "₱ 25.00" || summary.Display.Duration != "30:00" {
		t.Fatalf("unexpected display %+v", summary.Display)
	}
	if len(pub.events) != 1 || pub.keys[0] != events.RideCompleted || pub.events[0].Fare != 25 {
		t.Fatalf("expected ride.completed event, got %+v", pub.events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEndRideNotActive(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil, 0)

	mock.ExpectQuery(`SELECT id, bike_id, rider_id, status, started_at, hourly_rate`).WithArgs("ride-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "bike_id", "rider_id", "status", "started_at", "hourly_rate"}).
			AddRow("ride-1", "bike-1", "rider-1", "completed", t0, 50.0))
	if _, err := svc.EndRide(context.Background(), "ride-1", t0); !errors.Is(err, ErrRideNotActive) {
		t.Fatalf("expected not active, got %v", err)
	}
}

func TestSummaryActiveRide(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil, 0)
	svc.now = func() time.Time { return t0.Add(time.Hour) }

	mock.ExpectQuery(`SELECT status, started_at, ended_at, hourly_rate`).WithArgs("ride-1").
		WillReturnRows(pgxmock.NewRows([]string{"status", "started_at", "ended_at", "hourly_rate", "fare", "distance_m", "avg", "max", "sum", "samples", "accepted", "rejected"}).
			AddRow("active", t0, pgtype.Timestamptz{}, 50.0, 0.0, 5000.0, 0.0, 20.0, 45.0, 3, 3, 1))

	summary, err := svc.Summary(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.AverageSpeedKmh != 15 || summary.MaxSpeedKmh != 20 || summary.Fare != 50 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Display.Distance != "5.00 km" || summary.Display.AverageSpeed != "15 km/h" {
		t.Fatalf("unexpected display %+v", summary.Display)
	}
}

func TestSummaryCompletedRide(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil, 0)

	ended := pgtype.Timestamptz{Time: t0.Add(20 * time.Minute), Valid: true}
	mock.ExpectQuery(`SELECT status, started_at, ended_at, hourly_rate`).WithArgs("ride-1").
		WillReturnRows(pgxmock.NewRows([]string{"status", "started_at", "ended_at", "hourly_rate", "fare", "distance_m", "avg", "max", "sum", "samples", "accepted", "rejected"}).
			AddRow("completed", t0, ended, 50.0, 16.67, 3000.0, 9.0, 18.0, 0.0, 0, 10, 0))

	summary, err := svc.Summary(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.DurationSec != 1200 || summary.AverageSpeedKmh != 9 || summary.Fare != 16.67 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestSummaryNotFound(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil, 0)

	mock.ExpectQuery(`SELECT status, started_at, ended_at, hourly_rate`).WithArgs("none").WillReturnError(pgx.ErrNoRows)
	if _, err := svc.Summary(context.Background(), "none"); !errors.Is(err, ErrRideNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPathAndHistoryErrors(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil, 0)

	mock.ExpectQuery(`SELECT id, ride_id, ST_Y\(location::geometry\)`).WithArgs("ride-1").WillReturnError(errRide)
	if _, err := svc.Path(context.Background(), "ride-1"); !errors.Is(err, errRide) {
		t.Fatalf("expected path error, got %v", err)
	}

	mock.ExpectQuery(`SELECT id, bike_id, rider_id, status, started_at, ended_at`).WithArgs("rider-1").WillReturnError(errRide)
	if _, err := svc.History(context.Background(), "rider-1"); !errors.Is(err, errRide) {
		t.Fatalf("expected history error, got %v", err)
	}
}

func TestHistory(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, nil, 0)

	ended := pgtype.Timestamptz{Time: t0.Add(time.Hour), Valid: true}
	mock.ExpectQuery(`SELECT id, bike_id, rider_id, status, started_at, ended_at`).WithArgs("rider-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "bike_id", "rider_id", "status", "started_at", "ended_at", "rate", "distance", "avg", "max", "fare"}).
			AddRow("ride-2", "bike-1", "rider-1", "active", t0.Add(2*time.Hour), pgtype.Timestamptz{}, 50.0, 0.0, 0.0, 0.0, 0.0).
			AddRow("ride-1", "bike-1", "rider-1", "completed", t0, ended, 50.0, 1200.0, 12.0, 20.0, 50.0))

	rides, err := svc.History(context.Background(), "rider-1")
	if err != nil || len(rides) != 2 {
		t.Fatalf("history: %v", err)
	}
	if rides[0].EndedAt != nil || rides[1].EndedAt == nil || !rides[1].EndedAt.Equal(ended.Time) {
		t.Fatalf("unexpected ended_at values %+v", rides)
	}
}
