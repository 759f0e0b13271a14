package access

import (
	"github.com/Kyz7/console/internal/auth"
	"github.com/Kyz7/console/internal/response"
	"github.com/Kyz7/console/internal/role"

	"github.com/gofiber/fiber/v2"
)

type Permissions struct {
	Current            role.Role `json:"current"`
	Target             role.Role `json:"target"`
	CanManage          bool      `json:"can_manage"`
	CanManageSameLevel bool      `json:"can_manage_same_level"`
	CanInvite          bool      `json:"can_invite"`
}

// PermissionsHandler answers whether the caller may manage or invite a user
// holding the role named in ?target=. Unknown targets are rejected.
func PermissionsHandler(c *fiber.Ctx) error {
	raw := c.Query("target")
	if raw == "" {
		return response.ValidationError(c, map[string]string{
			"target": "target role is required",
		})
	}

	target, err := role.Parse(raw)
	if err != nil {
		return response.ValidationError(c, map[string]string{
			"target": err.Error(),
		})
	}

	current := auth.CurrentRole(c)

	return response.Success(c, Permissions{
		Current:            current,
		Target:             target,
		CanManage:          role.CanManage(current, target, role.ManageOptions{}),
		CanManageSameLevel: role.CanManage(current, target, role.ManageOptions{AllowSameLevel: true}),
		CanInvite:          role.CanInvite(current, target),
	}, "")
}

func InvitableRolesHandler(c *fiber.Ctx) error {
	current := auth.CurrentRole(c)
	roles := role.InvitableRoles(current)
	if roles == nil {
		roles = []role.Role{}
	}

	return response.Success(c, fiber.Map{
		"current": current,
		"roles":   roles,
	}, "")
}
