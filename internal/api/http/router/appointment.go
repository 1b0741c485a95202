package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/acolhe/clinicd_backend/internal/api/http/handler"
	"github.com/acolhe/clinicd_backend/pkg/authorize"
)

func (r *Router) registerAppointmentRoutes(
	api fiber.Router,
	ah *handler.AppointmentHandler,
	ph *handler.PaymentHandler,
	actorRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	appts := api.Group("/appointments", actorRequired)

	appts.Get("/", requirePerm(authorize.ResourceAppointment, authorize.ActionList), ah.List)
	appts.Post("/", requirePerm(authorize.ResourceAppointment, authorize.ActionCreate), ah.Create)

	a := appts.Group("/:id")
	a.Get("/", requirePerm(authorize.ResourceAppointment, authorize.ActionRead), ah.GetByID)
	a.Get("/payment", requirePerm(authorize.ResourcePayment, authorize.ActionRead), ph.GetByAppointment)
	a.Patch("/", requirePerm(authorize.ResourceAppointment, authorize.ActionUpdate), ah.UpdateFields)
	a.Patch("/reschedule", requirePerm(authorize.ResourceAppointment, authorize.ActionUpdate), ah.Reschedule)
	a.Patch("/status", requirePerm(authorize.ResourceAppointment, authorize.ActionTransition), ah.Transition)
	a.Patch("/respond", requirePerm(authorize.ResourceAppointment, authorize.ActionTransition), ah.Respond)
	a.Patch("/cancel", requirePerm(authorize.ResourceAppointment, authorize.ActionTransition), ah.Cancel)
}
