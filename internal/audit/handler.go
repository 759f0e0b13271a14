package audit

import (
	"github.com/Kyz7/console/internal/response"
	"github.com/gofiber/fiber/v2"
)

func ListHandler(r Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries, err := r.List(c.UserContext(), c.Query("resource"), c.QueryInt("limit", 50))
		if err != nil {
			return response.InternalError(c, "Failed to fetch audit entries")
		}
		if entries == nil {
			entries = []Entry{}
		}
		return response.Success(c, entries, "")
	}
}
