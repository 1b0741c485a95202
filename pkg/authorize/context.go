package authorize

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/acolhe/clinicd_backend/pkg/reqctx"
)

var (
	ErrNoSubjectInContext = errors.New("no subject found in context")
)

// SubjectFromContext extracts the GroupSubject (principal id) from context.
func SubjectFromContext(ctx context.Context) (GroupSubject, error) {
	id, ok := reqctx.ActorIDFromContext(ctx)
	if !ok || id == uuid.Nil {
		return "", ErrNoSubjectInContext
	}
	return GroupSubject(id.String()), nil
}

// MustSubjectFromContext extracts the GroupSubject from context or panics.
// Use only behind the identity middleware.
func MustSubjectFromContext(ctx context.Context) GroupSubject {
	subject, err := SubjectFromContext(ctx)
	if err != nil {
		panic(err)
	}
	return subject
}

// DomainFromActor determines the enforcement domain for the acting
// principal: the clinic domain when a clinic scope exists, otherwise the
// principal's private domain.
func DomainFromActor(ctx context.Context) (Domain, error) {
	actor, ok := reqctx.ActorFromContext(ctx)
	if !ok {
		return "", ErrNoSubjectInContext
	}
	if actor.ClinicID != nil {
		return ClinicDomain(actor.ClinicID.String()), nil
	}
	return UserDomain(actor.ID.String()), nil
}
