package authorize

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/acolhe/clinicd_backend/internal/domain"
	"github.com/acolhe/clinicd_backend/pkg/reqctx"
)

func TestSubjectFromContext(t *testing.T) {
	t.Run("returns subject for actor context", func(t *testing.T) {
		actor := domain.Actor{ID: uuid.New(), Role: domain.RolePsychologist}
		ctx := reqctx.WithActor(context.Background(), actor)

		subject, err := SubjectFromContext(ctx)
		if err != nil {
			t.Fatalf("SubjectFromContext() error = %v", err)
		}
		if subject != GroupSubject(actor.ID.String()) {
			t.Errorf("subject = %s, want %s", subject, actor.ID)
		}
	})

	t.Run("errors without actor", func(t *testing.T) {
		_, err := SubjectFromContext(context.Background())
		if !errors.Is(err, ErrNoSubjectInContext) {
			t.Errorf("error = %v, want ErrNoSubjectInContext", err)
		}
	})
}

func TestDomainFromActor(t *testing.T) {
	t.Run("clinic scope wins", func(t *testing.T) {
		clinicID := uuid.New()
		actor := domain.Actor{ID: uuid.New(), Role: domain.RoleClinic, ClinicID: &clinicID}
		ctx := reqctx.WithActor(context.Background(), actor)

		dom, err := DomainFromActor(ctx)
		if err != nil {
			t.Fatalf("DomainFromActor() error = %v", err)
		}
		if dom != ClinicDomain(clinicID.String()) {
			t.Errorf("domain = %s, want clinic domain", dom)
		}
	})

	t.Run("falls back to user domain", func(t *testing.T) {
		actor := domain.Actor{ID: uuid.New(), Role: domain.RolePsychologist}
		ctx := reqctx.WithActor(context.Background(), actor)

		dom, err := DomainFromActor(ctx)
		if err != nil {
			t.Fatalf("DomainFromActor() error = %v", err)
		}
		if dom != UserDomain(actor.ID.String()) {
			t.Errorf("domain = %s, want user domain", dom)
		}
	})

	t.Run("errors without actor", func(t *testing.T) {
		if _, err := DomainFromActor(context.Background()); !errors.Is(err, ErrNoSubjectInContext) {
			t.Errorf("error = %v, want ErrNoSubjectInContext", err)
		}
	})
}
