package middleware

import (
	"library-backend/internal/auth"
	"library-backend/internal/pkg/constants"
	"library-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthorizePermission returns a handler that checks the session user's role against PermissionRoles.
// Unconfigured permission -> 500 "Permission configuration error"; role not allowed -> 403.
func AuthorizePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		staff := CurrentStaff(c)
		if staff == nil {
			s, err := auth.VerifyUser(GetUser(c))
			if err != nil {
				return response.Unauthorized(c, "Unauthorized")
			}
			staff = s
		}
		roles, ok := constants.PermissionRoles[permission]
		if !ok || len(roles) == 0 {
			return response.Error(c, "Permission configuration error", fiber.StatusInternalServerError, nil)
		}
		if !constants.AllowedRole(permission, staff.Role) {
			return response.Error(c, "User is Forbidden from performing this action", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}
