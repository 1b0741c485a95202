package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/acolhe/clinicd_backend/internal/domain"
	"github.com/acolhe/clinicd_backend/pkg/reqctx"
)

const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
	HeaderClinicID  = "X-Clinic-Id"

	LocalActor = "actor"
)

// ActorRequired resolves the acting principal from the identity provider's
// claim headers. The core trusts these claims and performs no authentication
// itself; the gateway in front of this service owns token verification.
// On success, stores domain.Actor in locals and on the request context.
func ActorRequired() fiber.Handler {
	return func(c fiber.Ctx) error {
		id, err := uuid.Parse(c.Get(HeaderActorID))
		if err != nil {
			return fiber.ErrUnauthorized
		}

		role := domain.Role(c.Get(HeaderActorRole))
		if _, ok := domain.KnownRoles[role]; !ok {
			return fiber.ErrUnauthorized
		}

		actor := domain.Actor{ID: id, Role: role}
		if raw := c.Get(HeaderClinicID); raw != "" {
			clinicID, err := uuid.Parse(raw)
			if err != nil {
				return fiber.ErrUnauthorized
			}
			actor.ClinicID = &clinicID
		}

		// Clinic staff act on behalf of a clinic, always.
		if actor.Role == domain.RoleClinic && actor.ClinicID == nil {
			return fiber.ErrUnauthorized
		}

		c.Locals(LocalActor, actor)
		c.SetContext(reqctx.WithActor(c.Context(), actor))
		return c.Next()
	}
}

// ActorFromFiber retrieves the acting principal from Fiber locals.
func ActorFromFiber(c fiber.Ctx) (domain.Actor, bool) {
	v := c.Locals(LocalActor)
	actor, ok := v.(domain.Actor)
	return actor, ok
}
