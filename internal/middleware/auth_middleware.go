package middleware

import (
	"foodorder/internal/apperr"
	"foodorder/internal/models"
	"foodorder/internal/services"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// AuthRequired is a Fiber middleware that resolves the Authorization header through the
// identity verifier. The principal is stored in the Fiber context for subsequent handlers.
func AuthRequired(forwarder *services.AuthorizationForwarder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := forwarder.Resolve(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}

		c.Locals(principalKey, p)
		c.SetUserContext(services.WithCredential(c.UserContext(), p.Credential))
		return c.Next()
	}
}

// PrincipalFrom returns the principal stored by AuthRequired.
func PrincipalFrom(c *fiber.Ctx) (models.Principal, bool) {
	p, ok := c.Locals(principalKey).(models.Principal)
	return p, ok
}

// RequireRole rejects principals holding none of roles. It must run after AuthRequired.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return apperr.Unauthenticated("authorization header is required")
		}
		if !p.HasAnyRole(roles...) {
			return apperr.Forbidden("one of the roles %v is required", roles)
		}
		return c.Next()
	}
}
