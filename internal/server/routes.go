package server

import (
	"time"

	"github.com/Kyz7/console/internal/access"
	"github.com/Kyz7/console/internal/audit"
	"github.com/Kyz7/console/internal/auth"
	"github.com/Kyz7/console/internal/response"
	"github.com/Kyz7/console/internal/role"
	"github.com/Kyz7/console/internal/table"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func SetupRoutes(app *fiber.App, deps Deps) {
	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS, PATCH",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Console API is running",
		})
	})

	protected := auth.JWTProtected(deps.Verifier)
	tables := table.NewHandler(deps.Sessions, deps.Deleter, deps.Audit, deps.SettleTimeout, deps.Log)

	// ==========================================
	// LIST SCREENS
	// ==========================================
	tableGroup := app.Group("/tables")
	tableGroup.Use(protected)
	tableGroup.Get("/:resource", table.GetTableHandler(tables))
	tableGroup.Patch("/:resource/state", table.PatchStateHandler(tables))
	tableGroup.Put("/:resource/delete-target", table.SetDeleteTargetHandler(tables))
	tableGroup.Delete("/:resource/delete-target", table.ClearDeleteTargetHandler(tables))
	tableGroup.Post("/:resource/delete-target/confirm", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return auth.Subject(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "Too many delete requests, slow down", nil)
		},
	}), table.ConfirmDeleteHandler(tables))
	tableGroup.Delete("/:resource", table.UnmountHandler(tables))

	app.Delete("/session", protected, table.DisposeSessionHandler(tables))

	// ==========================================
	// ROLE HIERARCHY
	// ==========================================
	roleGroup := app.Group("/roles")
	roleGroup.Use(protected)
	roleGroup.Get("/permissions", access.PermissionsHandler)
	roleGroup.Get("/invitable", access.InvitableRolesHandler)

	// ==========================================
	// AUDIT (Admin and above)
	// ==========================================
	if deps.Audit != nil {
		auditGroup := app.Group("/audit")
		auditGroup.Use(protected)
		auditGroup.Use(auth.RequireRole(role.Admin))
		auditGroup.Get("/", audit.ListHandler(deps.Audit))
	}
}
