package route

import (
	"backend-bikerental/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, planner *Planner) {
	r.Post("/", func(c *fiber.Ctx) error {
		var req Request
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if !geo.ValidCoordinate(req.Origin) || !geo.ValidCoordinate(req.Destination) {
			return fiber.NewError(fiber.StatusBadRequest, "origin and destination must be valid coordinates")
		}
		ctx, cancel := planner.RequestContext(c.UserContext())
		defer cancel()
		result, err := planner.Plan(ctx, req)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return c.JSON(result)
	})

	r.Get("/maneuvers/:name", func(c *fiber.Ctx) error {
		m := MapRoutesManeuver(c.Params("name"))
		if m == "" {
			return fiber.NewError(fiber.StatusNotFound, "unknown maneuver")
		}
		return c.JSON(fiber.Map{"maneuver": m})
	})
}
