package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/acolhe/clinicd_backend/internal/api/http/handler"
	"github.com/acolhe/clinicd_backend/pkg/authorize"
)

func (r *Router) registerPaymentRoutes(
	api fiber.Router,
	ph *handler.PaymentHandler,
	actorRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	payments := api.Group("/payments", actorRequired)

	payments.Post("/confirm-batch", requirePerm(authorize.ResourcePayment, authorize.ActionConfirm), ph.ConfirmBatch)

	p := payments.Group("/:id")
	p.Get("/", requirePerm(authorize.ResourcePayment, authorize.ActionRead), ph.GetByID)
	p.Patch("/method", requirePerm(authorize.ResourcePayment, authorize.ActionUpdate), ph.RegisterMethod)
	p.Patch("/confirm", requirePerm(authorize.ResourcePayment, authorize.ActionConfirm), ph.Confirm)
	p.Patch("/cancel", requirePerm(authorize.ResourcePayment, authorize.ActionCancel), ph.Cancel)
	p.Patch("/refund", requirePerm(authorize.ResourcePayment, authorize.ActionRefund), ph.Refund)
}
