package middleware

import (
	"strings"

	"foodorder/internal/logger"

	"github.com/gofiber/fiber/v2"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestID tags every request with an id taken from X-Request-ID or freshly generated.
// The id is echoed back and placed on the user context for logging and forwarding.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(HeaderRequestID))
		if id == "" || len(id) > 128 {
			id = logger.GenerateRequestID()
		}
		c.Set(HeaderRequestID, id)
		c.Locals("request_id", id)
		c.SetUserContext(logger.WithRequestID(c.UserContext(), id))
		return c.Next()
	}
}
