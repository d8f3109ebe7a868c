package navigation

import (
	"backend-bikerental/internal/format"
	"backend-bikerental/internal/route"
	"backend-bikerental/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

type nextRequest struct {
	Location  *geo.Point `json:"location"`
	Route     route.Info `json:"route"`
	StepIndex int        `json:"step_index"`
}

type nextResponse struct {
	Instruction
	Distance   string `json:"distance"`
	Remaining  string `json:"remaining"`
	ETASeconds int64  `json:"eta_sec"`
	ETA        string `json:"eta"`
}

func RegisterRoutes(r fiber.Router) {
	r.Post("/next", func(c *fiber.Ctx) error {
		var req nextRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Location != nil && !geo.ValidCoordinate(*req.Location) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid location")
		}

		ins := Next(req.Location, req.Route, req.StepIndex)
		eta := ETA(req.Location, req.Route, req.StepIndex)
		return c.JSON(nextResponse{
			Instruction: ins,
			Distance:    format.Distance(float64(ins.Meters)),
			Remaining:   format.Distance(RemainingMeters(req.Location, req.Route, req.StepIndex)),
			ETASeconds:  int64(eta.Seconds()),
			ETA:         format.ETA(eta),
		})
	})
}
