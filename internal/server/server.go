package server

import (
	"backend-bikerental/internal/auth"
	"backend-bikerental/internal/bike"
	"backend-bikerental/internal/config"
	"backend-bikerental/internal/db"
	"backend-bikerental/internal/events"
	"backend-bikerental/internal/navigation"
	"backend-bikerental/internal/ride"
	"backend-bikerental/internal/route"
	"backend-bikerental/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	DB      db.Querier
	Redis   *redis.Client
	Stream  *stream.Hub
	Events  events.Publisher
	Planner *route.Planner
}

// NewServer builds the HTTP surface. publisher may be nil when no broker is
// configured.
func NewServer(cfg config.Config, q db.Querier, redisClient *redis.Client, publisher events.Publisher) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	if publisher == nil {
		publisher = events.Noop{}
	}

	s := &Server{
		App:     app,
		Cfg:     cfg,
		DB:      q,
		Redis:   redisClient,
		Stream:  stream.NewHub(redisClient),
		Events:  publisher,
		Planner: route.FromConfig(cfg, redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "live_routing": s.Cfg.Production()})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB), jwtMiddleware)
	route.RegisterRoutes(s.App.Group("/routes"), s.Planner)
	navigation.RegisterRoutes(s.App.Group("/navigation"))
	ride.RegisterRoutes(s.App.Group("/rides"), ride.NewService(s.DB, s.Stream, s.Events, s.Cfg.DefaultHourlyRate), jwtMiddleware)
	bike.RegisterRoutes(s.App.Group("/bikes"), bike.NewService(s.DB), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
