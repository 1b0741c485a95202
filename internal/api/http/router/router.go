package router

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/acolhe/clinicd_backend/config"
	"github.com/acolhe/clinicd_backend/internal/api/http/handler"
	"github.com/acolhe/clinicd_backend/internal/api/http/middleware"
	"github.com/acolhe/clinicd_backend/internal/service/appointment"
	"github.com/acolhe/clinicd_backend/internal/service/finance"
	"github.com/acolhe/clinicd_backend/internal/service/payment"
	"github.com/acolhe/clinicd_backend/pkg/authorize"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg            *config.Config
	Redis          *redis.Client
	Auth           authorize.IAuthorization
	AppointmentSvc appointment.Service
	PaymentSvc     payment.Service
	FinanceSvc     finance.Service
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Initialize Middlewares
	actorRequired := middleware.ActorRequired()

	// Permission helper
	requirePerm := func(res authorize.Resource, act authorize.Action) fiber.Handler {
		return middleware.RequirePermission(r.p.Auth, res, act)
	}

	// 3. Initialize Handlers
	appointmentH := handler.NewAppointmentHandler(r.p.AppointmentSvc)
	paymentH := handler.NewPaymentHandler(r.p.PaymentSvc)
	financeH := handler.NewFinanceHandler(r.p.FinanceSvc)

	api := app.Group("/api/v1")

	// 4. Delegate to sub-files
	r.registerAppointmentRoutes(api, appointmentH, paymentH, actorRequired, requirePerm)
	r.registerPaymentRoutes(api, paymentH, actorRequired, requirePerm)
	r.registerFinanceRoutes(api, financeH, actorRequired, requirePerm)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New())
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
