package ride

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Ride
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if riderID, ok := c.Locals("rider_id").(string); ok && riderID != "" {
			req.RiderID = riderID
		}
		if req.BikeID == "" || req.RiderID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "bike_id and rider_id required")
		}
		ride, err := svc.StartRide(c.Context(), req)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(ride)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		riderID, _ := c.Locals("rider_id").(string)
		if riderID == "" {
			riderID = c.Query("rider_id")
		}
		if riderID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "rider_id required")
		}
		rides, err := svc.History(c.Context(), riderID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(rides)
	})

	r.Post("/:id/fixes", authMiddleware, func(c *fiber.Ctx) error {
		var req BikeLocation
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		fix, err := svc.AddFix(c.Context(), c.Params("id"), req)
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(fix)
	})

	r.Post("/:id/end", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			EndedAt time.Time `json:"ended_at"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		summary, err := svc.EndRide(c.Context(), c.Params("id"), body.EndedAt)
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.JSON(summary)
	})

	r.Get("/:id/summary", func(c *fiber.Ctx) error {
		summary, err := svc.Summary(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.JSON(summary)
	})

	r.Get("/:id/path", func(c *fiber.Ctx) error {
		fixes, err := svc.Path(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fixes)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrRideNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrRideNotActive):
		return fiber.StatusConflict
	case errors.Is(err, ErrInvalidFix):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
