package server

import (
	"time"

	"github.com/Kyz7/console/internal/audit"
	"github.com/Kyz7/console/internal/auth"
	"github.com/Kyz7/console/internal/response"
	"github.com/Kyz7/console/internal/session"
	"github.com/Kyz7/console/internal/table"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Deps struct {
	Verifier *auth.Verifier
	Sessions *session.Manager
	Deleter  table.Deleter
	Audit    audit.Recorder
	Log      *zap.Logger

	// SettleTimeout bounds how long a table request waits for in-flight fetches.
	SettleTimeout time.Duration
}

func New(deps Deps) *fiber.App {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.SettleTimeout <= 0 {
		deps.SettleTimeout = 15 * time.Second
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return response.Error(c, e.Code, "HTTP_ERROR", e.Message, nil)
			}
			deps.Log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			return response.InternalError(c, "Something went wrong")
		},
	})

	SetupRoutes(app, deps)

	return app
}
