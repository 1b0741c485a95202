package http

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/fx"

	"github.com/acolhe/clinicd_backend/config"
	"github.com/acolhe/clinicd_backend/internal/api/http/router"
	"github.com/acolhe/clinicd_backend/internal/app"
)

func Start(cfg *config.Config, timeout time.Duration) {
	fx.New(
		fx.Supply(cfg),
		app.InfraModule,
		app.ServiceModule,
		app.WorkerModule,
		router.Module,
		Module, // This is the http.Module from server.go

		// Invoking *fiber.App forces its construction, which registers the
		// OnStart hook that binds the listener.
		fx.Invoke(func(*fiber.App) {}),

		fx.StopTimeout(timeout),
	).Run()
}
