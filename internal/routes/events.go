package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kunal-ak23/university-tracker-sub000/internal/events"
)

// RegisterEventRoutes exposes the HTTP event intake, a synchronous
// alternative to the Kafka stream with the same envelope format.
func RegisterEventRoutes(r fiber.Router, handler *events.Handler) {
	r.Post("/", func(c *fiber.Ctx) error {
		var env events.Envelope
		if err := c.BodyParser(&env); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid event envelope")
		}
		if env.Type == "" {
			return fiber.NewError(http.StatusBadRequest, "event type is required")
		}

		if err := handler.Handle(c.UserContext(), env); err != nil {
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		}

		return c.Status(http.StatusAccepted).JSON(fiber.Map{
			"event_id": env.ID,
			"type":     env.Type,
		})
	})
}
