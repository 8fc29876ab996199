package middleware

import (
	"library-backend/internal/auth"
	"library-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const userLocal = "user"

// RequireAuth ensures a staff user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		staff, err := auth.VerifyUser(c.Locals(userLocal))
		if err != nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", staff)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// CurrentStaff returns the staff user attached by RequireAuth, or nil.
func CurrentStaff(c *fiber.Ctx) *auth.Staff {
	s, _ := c.Locals("auth").(*auth.Staff)
	return s
}
