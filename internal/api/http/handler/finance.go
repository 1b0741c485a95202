package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/acolhe/clinicd_backend/internal/api/http/middleware"
	"github.com/acolhe/clinicd_backend/internal/service/finance"
)

type FinanceHandler struct {
	svc finance.Service
}

func NewFinanceHandler(svc finance.Service) *FinanceHandler {
	return &FinanceHandler{svc: svc}
}

// GET /finance/summary?clinic_id=...&psychologist_id=...&from=...&to=...
func (h *FinanceHandler) Summary(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	var q struct {
		ClinicID       string `query:"clinic_id"`
		PsychologistID string `query:"psychologist_id"`
		From           string `query:"from"`
		To             string `query:"to"`
	}
	_ = c.Bind().Query(&q)

	var scope finance.Scope
	if q.ClinicID != "" {
		id, err := uuid.Parse(q.ClinicID)
		if err != nil {
			return badRequest(c, "invalid clinic_id")
		}
		scope.ClinicID = &id
	}
	if q.PsychologistID != "" {
		id, err := uuid.Parse(q.PsychologistID)
		if err != nil {
			return badRequest(c, "invalid psychologist_id")
		}
		scope.PsychologistID = &id
	}
	if scope.ClinicID == nil && scope.PsychologistID == nil {
		return badRequest(c, "clinic_id or psychologist_id is required")
	}

	from, err := time.Parse(time.RFC3339, q.From)
	if err != nil {
		return badRequest(c, "from must be RFC3339")
	}
	to, err := time.Parse(time.RFC3339, q.To)
	if err != nil {
		return badRequest(c, "to must be RFC3339")
	}

	sum, err := h.svc.Summary(c.Context(), actor, scope, from, to)
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, sum)
}
