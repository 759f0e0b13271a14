package auth

import (
	"strings"

	"github.com/Kyz7/console/internal/response"
	"github.com/Kyz7/console/internal/role"

	"github.com/gofiber/fiber/v2"
)

const (
	localSubject = "subject"
	localRole    = "role"
	localToken   = "token"
)

func JWTProtected(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "UNAUTHORIZED", "Missing authorization token")
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return response.Unauthorized(c, "INVALID_TOKEN_FORMAT", "Invalid token format")
		}

		claims, err := v.Parse(tokenParts[1])
		if err != nil {
			return response.Unauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
		}

		// Unknown roles are refused outright instead of being treated as STAFF.
		r, err := role.Parse(claims.Role)
		if err != nil {
			return response.Forbidden(c, "Your account has an unrecognized role")
		}

		c.Locals(localSubject, claims.Subject)
		c.Locals(localRole, r)
		c.Locals(localToken, tokenParts[1])
		return c.Next()
	}
}

// RequireRole lets through callers at least as privileged as minimum.
func RequireRole(minimum role.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !role.AtLeast(CurrentRole(c), minimum) {
			return response.Forbidden(c, "You don't have permission to access this resource")
		}
		return c.Next()
	}
}

func Subject(c *fiber.Ctx) string {
	s, _ := c.Locals(localSubject).(string)
	return s
}

func CurrentRole(c *fiber.Ctx) role.Role {
	r, _ := c.Locals(localRole).(role.Role)
	return r
}

func Token(c *fiber.Ctx) string {
	t, _ := c.Locals(localToken).(string)
	return t
}
