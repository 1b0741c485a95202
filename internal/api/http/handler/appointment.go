package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/acolhe/clinicd_backend/internal/api/http/middleware"
	"github.com/acolhe/clinicd_backend/internal/domain"
	"github.com/acolhe/clinicd_backend/internal/service/appointment"
)

type AppointmentHandler struct {
	svc appointment.Service
}

func NewAppointmentHandler(svc appointment.Service) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

type createAppointmentBody struct {
	PsychologistID     string  `json:"psychologistId" validate:"required,uuid4"`
	PatientID          string  `json:"patientId" validate:"required,uuid4"`
	ClinicID           *string `json:"clinicId" validate:"omitempty,uuid4"`
	ScheduledAt        string  `json:"scheduledAt" validate:"required"`
	DurationMinutes    int     `json:"durationMinutes" validate:"omitempty,gt=0"`
	Modality           string  `json:"modality" validate:"required,oneof=online in_person"`
	Notes              *string `json:"notes"`
	ClinicManaged      bool    `json:"clinicManaged"`
	FinalValue         string  `json:"finalValue" validate:"required"`
	ClinicSharePercent string  `json:"clinicSharePercent"`
}

// POST /appointments
func (h *AppointmentHandler) Create(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	var body createAppointmentBody
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	req := appointment.CreateRequest{
		DurationMinutes: body.DurationMinutes,
		Modality:        domain.Modality(body.Modality),
		Notes:           body.Notes,
		ClinicManaged:   body.ClinicManaged,
	}

	var err error
	if req.PsychologistID, err = uuid.Parse(body.PsychologistID); err != nil {
		return badRequest(c, "invalid psychologistId")
	}
	if req.PatientID, err = uuid.Parse(body.PatientID); err != nil {
		return badRequest(c, "invalid patientId")
	}
	if body.ClinicID != nil {
		id, err := uuid.Parse(*body.ClinicID)
		if err != nil {
			return badRequest(c, "invalid clinicId")
		}
		req.ClinicID = &id
	}
	if req.ScheduledAt, err = time.Parse(time.RFC3339, body.ScheduledAt); err != nil {
		return badRequest(c, "scheduledAt must be RFC3339")
	}
	if req.FinalValue, err = decimal.NewFromString(body.FinalValue); err != nil || req.FinalValue.IsNegative() {
		return badRequest(c, "invalid finalValue")
	}
	if body.ClinicSharePercent != "" {
		if req.ClinicSharePercent, err = decimal.NewFromString(body.ClinicSharePercent); err != nil {
			return badRequest(c, "invalid clinicSharePercent")
		}
	}

	appt, err := h.svc.Create(c.Context(), actor, req)
	if err != nil {
		return mapDomainError(c, err)
	}
	return created(c, appt)
}

// GET /appointments
func (h *AppointmentHandler) List(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	var q struct {
		PsychologistID string `query:"psychologist_id"`
		PatientID      string `query:"patient_id"`
		Status         string `query:"status"`
		From           string `query:"from"`
		To             string `query:"to"`
		Page           int    `query:"page"`
		PerPage        int    `query:"per_page"`
	}
	_ = c.Bind().Query(&q)

	req := appointment.ListRequest{
		Page:    q.Page,
		PerPage: q.PerPage,
	}
	if q.PsychologistID != "" {
		id, err := uuid.Parse(q.PsychologistID)
		if err != nil {
			return badRequest(c, "invalid psychologist_id")
		}
		req.PsychologistID = &id
	}
	if q.PatientID != "" {
		id, err := uuid.Parse(q.PatientID)
		if err != nil {
			return badRequest(c, "invalid patient_id")
		}
		req.PatientID = &id
	}
	if q.Status != "" {
		st := domain.AppointmentStatus(q.Status)
		if !st.Valid() {
			return badRequest(c, "invalid status")
		}
		req.Status = &st
	}
	if q.From != "" {
		if t, err := time.Parse(time.RFC3339, q.From); err == nil {
			req.From = &t
		}
	}
	if q.To != "" {
		if t, err := time.Parse(time.RFC3339, q.To); err == nil {
			req.To = &t
		}
	}

	appts, err := h.svc.List(c.Context(), actor, req)
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, appts)
}

// GET /appointments/:id
func (h *AppointmentHandler) GetByID(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	appt, err := h.svc.Get(c.Context(), actor, id)
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, appt)
}

// PATCH /appointments/:id/reschedule
func (h *AppointmentHandler) Reschedule(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	var body struct {
		NewTime         string `json:"newTime" validate:"required"`
		DurationMinutes *int   `json:"durationMinutes" validate:"omitempty,gt=0"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	newTime, err := time.Parse(time.RFC3339, body.NewTime)
	if err != nil {
		return badRequest(c, "newTime must be RFC3339")
	}

	appt, err := h.svc.Reschedule(c.Context(), actor, id, newTime, body.DurationMinutes)
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, appt)
}

// PATCH /appointments/:id
func (h *AppointmentHandler) UpdateFields(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	var body struct {
		Modality       *string `json:"modality" validate:"omitempty,oneof=online in_person"`
		Notes          *string `json:"notes"`
		PsychologistID *string `json:"psychologistId" validate:"omitempty,uuid4"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	req := appointment.UpdateFieldsRequest{Notes: body.Notes}
	if body.Modality != nil {
		m := domain.Modality(*body.Modality)
		req.Modality = &m
	}
	if body.PsychologistID != nil {
		pid, err := uuid.Parse(*body.PsychologistID)
		if err != nil {
			return badRequest(c, "invalid psychologistId")
		}
		req.PsychologistID = &pid
	}

	appt, err := h.svc.UpdateFields(c.Context(), actor, id, req)
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, appt)
}

// PATCH /appointments/:id/status
func (h *AppointmentHandler) Transition(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	var body struct {
		Status string `json:"status" validate:"required"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	target := domain.AppointmentStatus(body.Status)
	if !target.Valid() {
		return badRequest(c, "unknown status")
	}

	appt, err := h.svc.TransitionStatus(c.Context(), actor, id, target)
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, appt)
}

// PATCH /appointments/:id/cancel
func (h *AppointmentHandler) Cancel(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	var body struct {
		Reason *string `json:"reason"`
	}
	_ = c.Bind().Body(&body)

	appt, err := h.svc.Cancel(c.Context(), actor, id, body.Reason)
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, appt)
}

// PATCH /appointments/:id/respond
func (h *AppointmentHandler) Respond(c fiber.Ctx) error {
	actor, found := middleware.ActorFromFiber(c)
	if !found {
		return fiber.ErrUnauthorized
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}

	var body struct {
		Accept *bool `json:"accept" validate:"required"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	appt, err := h.svc.PatientRespond(c.Context(), actor, id, *body.Accept)
	if err != nil {
		return mapDomainError(c, err)
	}
	return ok(c, appt)
}
