package bike

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/nearby", func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lng required")
		}
		radius, _ := strconv.ParseFloat(c.Query("radius_km"), 64)
		if radius <= 0 {
			radius = 2
		}
		bikes, err := svc.Nearby(c.Context(), lat, lng, radius)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(bikes)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Bike
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name required")
		}
		b, err := svc.CreateBike(c.Context(), req)
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(b)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		b, err := svc.GetBike(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.JSON(b)
	})

	r.Put("/:id/availability", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Available *bool `json:"available"`
		}
		if err := c.BodyParser(&body); err != nil || body.Available == nil {
			return fiber.NewError(fiber.StatusBadRequest, "available required")
		}
		if err := svc.SetAvailability(c.Context(), c.Params("id"), *body.Available); err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/reviews", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			RiderID string `json:"rider_id"`
			Rating  int    `json:"rating"`
			Comment string `json:"comment"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if riderID, ok := c.Locals("rider_id").(string); ok && riderID != "" {
			body.RiderID = riderID
		}
		if body.RiderID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "rider_id required")
		}
		review, err := svc.AddReview(c.Context(), c.Params("id"), body.RiderID, body.Rating, body.Comment)
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(review)
	})

	r.Get("/:id/reviews", func(c *fiber.Ctx) error {
		reviews, err := svc.Reviews(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(reviews)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBikeNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrInvalidRating), errors.Is(err, ErrInvalidPosition):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotRidden):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}
