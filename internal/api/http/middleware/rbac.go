package middleware

import (
	"github.com/gofiber/fiber/v3"

	"github.com/acolhe/clinicd_backend/pkg/authorize"
)

// RequirePermission checks that the acting principal holds the given
// permission in its clinic domain, or its private user domain when no
// clinic scope exists. Entity-level ownership and delegation checks remain
// with the services.
func RequirePermission(auth authorize.IAuthorization, resource authorize.Resource, action authorize.Action) fiber.Handler {
	return func(c fiber.Ctx) error {
		actor, ok := ActorFromFiber(c)
		if !ok {
			return fiber.ErrUnauthorized
		}

		role, ok := authorize.ActorRoleToRBACRole[string(actor.Role)]
		if !ok {
			return fiber.ErrForbidden
		}

		var dom authorize.Domain
		if actor.ClinicID != nil {
			dom = authorize.ClinicDomain(actor.ClinicID.String())
		} else {
			dom = authorize.UserDomain(actor.ID.String())
		}

		subject := authorize.GroupSubject(actor.ID.String())

		// The identity provider's role claim is authoritative. Mirror it
		// into the enforcer so grouping exists for this principal; the add
		// is a no-op when the policy is already present.
		if _, err := auth.AddRoleForUserInDomain(c.Context(), subject, role, dom); err != nil {
			return err
		}

		if err := auth.MustEnforce(c.Context(), subject, dom, resource, action); err != nil {
			if err == authorize.ErrForbidden {
				return fiber.ErrForbidden
			}
			return err
		}

		return c.Next()
	}
}
