package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/acolhe/clinicd_backend/internal/api/http/handler"
	"github.com/acolhe/clinicd_backend/pkg/authorize"
)

func (r *Router) registerFinanceRoutes(
	api fiber.Router,
	fh *handler.FinanceHandler,
	actorRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	fin := api.Group("/finance", actorRequired)

	fin.Get("/summary", requirePerm(authorize.ResourceFinanceSummary, authorize.ActionRead), fh.Summary)
}
