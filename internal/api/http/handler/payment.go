package handler

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/acolhe/clinicd_backend/internal/api/http/middleware"
	"github.com/acolhe/clinicd_backend/internal/domain"
	"github.com/acolhe/clinicd_backend/internal/service/payment"
)

type PaymentHandler struct {
	svc payment.Service
}

func NewPaymentHandler(svc payment.Service) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// GET /payments/:id
func (h *PaymentHandler) GetByID(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payment id")
	}

	p, err := h.svc.Get(c.Context(), actor, id)
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, p)
}

// GET /appointments/:id/payment
func (h *PaymentHandler) GetByAppointment(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	apptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	p, err := h.svc.GetByAppointment(c.Context(), actor, apptID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, p)
}

// PATCH /payments/:id/method
func (h *PaymentHandler) RegisterMethod(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payment id")
	}

	var body struct {
		Method string `json:"method" validate:"required,oneof=pix cash credit_card debit_card bank_transfer other"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	p, err := h.svc.RegisterMethod(c.Context(), actor, id, domain.PaymentMethod(body.Method))
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, p)
}

// PATCH /payments/:id/confirm
func (h *PaymentHandler) Confirm(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payment id")
	}

	p, err := h.svc.Confirm(c.Context(), actor, id)
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, p)
}

// PATCH /payments/:id/cancel
func (h *PaymentHandler) Cancel(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payment id")
	}

	var body struct {
		Reason *string `json:"reason"`
	}
	_ = c.Bind().Body(&body)

	p, err := h.svc.Cancel(c.Context(), actor, id, body.Reason)
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, p)
}

// PATCH /payments/:id/refund
func (h *PaymentHandler) Refund(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payment id")
	}

	p, err := h.svc.Refund(c.Context(), actor, id)
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, p)
}

// POST /payments/confirm-batch
func (h *PaymentHandler) ConfirmBatch(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	var body struct {
		PaymentIDs []string `json:"paymentIds" validate:"required,min=1,dive,uuid4"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	ids := make([]uuid.UUID, 0, len(body.PaymentIDs))
	for _, raw := range body.PaymentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "invalid payment id: "+raw)
		}
		ids = append(ids, id)
	}

	res, err := h.svc.ConfirmBatch(c.Context(), actor, ids)
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, res)
}
