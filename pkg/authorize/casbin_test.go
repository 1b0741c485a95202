package authorize

import (
	"context"
	"errors"
	"testing"
)

const testClinicID = "6f1b0c84-32c4-4d2e-9d61-0a6b12345678"
const testUserID = "0b7e3c11-9a52-4f0d-8f7e-3d2a98765432"

func newTestAuth(t *testing.T) IAuthorization {
	t.Helper()

	e, err := NewEnforcer("")
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	auth, err := NewAuthorization(e)
	if err != nil {
		t.Fatalf("NewAuthorization() error = %v", err)
	}
	if err := SeedDefaultPolicies(context.Background(), auth); err != nil {
		t.Fatalf("SeedDefaultPolicies() error = %v", err)
	}
	return auth
}

func TestNewAuthorization(t *testing.T) {
	t.Run("returns error for nil enforcer", func(t *testing.T) {
		if _, err := NewAuthorization(nil); err == nil {
			t.Error("expected error for nil enforcer")
		}
	})

	t.Run("succeeds with valid enforcer", func(t *testing.T) {
		e, err := NewEnforcer("")
		if err != nil {
			t.Fatalf("NewEnforcer() error = %v", err)
		}
		auth, err := NewAuthorization(e)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if auth == nil {
			t.Error("expected non-nil authorization")
		}
	})
}

func TestEnforceSeededPolicies(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(t)
	dom := ClinicDomain(testClinicID)
	subject := GroupSubject(testUserID)

	tests := []struct {
		name     string
		role     Role
		resource Resource
		action   Action
		want     bool
	}{
		{"staff manages appointments", RoleClinicStaff, ResourceAppointment, ActionManage, true},
		{"manage covers create", RoleClinicStaff, ResourceAppointment, ActionCreate, true},
		{"manage covers transition", RoleClinicStaff, ResourceAppointment, ActionTransition, true},
		{"manage covers refund on payments", RoleClinicStaff, ResourcePayment, ActionRefund, true},
		{"staff reads finance summary", RoleClinicStaff, ResourceFinanceSummary, ActionRead, true},
		{"staff cannot touch audit", RoleClinicStaff, ResourceAudit, ActionRead, false},
		{"psychologist manages payments", RolePsychologist, ResourcePayment, ActionManage, true},
		{"psychologist cannot grant roles", RolePsychologist, ResourceRBAC, ActionGrant, false},
		{"patient reads appointments", RolePatient, ResourceAppointment, ActionRead, true},
		{"patient transitions appointments", RolePatient, ResourceAppointment, ActionTransition, true},
		{"patient cannot read finance summary", RolePatient, ResourceFinanceSummary, ActionRead, false},
		{"patient cannot manage payments", RolePatient, ResourcePayment, ActionManage, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := auth.AddRoleForUserInDomain(ctx, subject, tt.role, dom); err != nil {
				t.Fatalf("assign role: %v", err)
			}
			defer auth.RemoveRoleForUserInDomain(ctx, subject, tt.role, dom)

			got, err := auth.Enforce(ctx, subject, dom, tt.resource, tt.action)
			if err != nil {
				t.Fatalf("Enforce() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Enforce(%s, %s, %s) = %v, want %v", tt.role, tt.resource, tt.action, got, tt.want)
			}
		})
	}
}

func TestEnforceSuperadminBypass(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(t)
	subject := GroupSubject(testUserID)

	if _, err := auth.AddRoleForUserInDomain(ctx, subject, RoleSysSuperAdmin, DomainSys); err != nil {
		t.Fatalf("assign superadmin: %v", err)
	}

	// Superadmin passes in any domain without explicit grants there.
	ok, err := auth.Enforce(ctx, subject, ClinicDomain(testClinicID), ResourceAudit, ActionManage)
	if err != nil {
		t.Fatalf("Enforce() error = %v", err)
	}
	if !ok {
		t.Error("superadmin should bypass domain policies")
	}
}

func TestEnforceGuardrails(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(t)
	dom := ClinicDomain(testClinicID)
	subject := GroupSubject(testUserID)

	tests := []struct {
		name     string
		subject  GroupSubject
		domain   Domain
		resource Resource
		action   Action
	}{
		{"empty subject", "", dom, ResourceAppointment, ActionRead},
		{"invalid domain", subject, Domain("bogus"), ResourceAppointment, ActionRead},
		{"unknown resource", subject, dom, Resource("spaceship"), ActionRead},
		{"unknown action", subject, dom, ResourceAppointment, Action("teleport")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Enforce(ctx, tt.subject, tt.domain, tt.resource, tt.action)
			if !errors.Is(err, ErrInvalidArgs) {
				t.Errorf("Enforce() error = %v, want ErrInvalidArgs", err)
			}
		})
	}
}

func TestMustEnforce(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(t)
	dom := ClinicDomain(testClinicID)
	subject := GroupSubject(testUserID)

	if err := auth.MustEnforce(ctx, subject, dom, ResourceAppointment, ActionManage); !errors.Is(err, ErrForbidden) {
		t.Errorf("ungranted subject error = %v, want ErrForbidden", err)
	}

	if _, err := auth.AddRoleForUserInDomain(ctx, subject, RoleClinicStaff, dom); err != nil {
		t.Fatalf("assign role: %v", err)
	}
	if err := auth.MustEnforce(ctx, subject, dom, ResourceAppointment, ActionManage); err != nil {
		t.Errorf("granted subject error = %v, want nil", err)
	}
}

func TestRoleManagement(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(t)
	dom := ClinicDomain(testClinicID)

	if err := AssignClinicRole(ctx, auth, testUserID, testClinicID, RolePsychologist); err != nil {
		t.Fatalf("AssignClinicRole() error = %v", err)
	}

	roles, err := GetClinicRoles(ctx, auth, testUserID, testClinicID)
	if err != nil {
		t.Fatalf("GetClinicRoles() error = %v", err)
	}
	if len(roles) != 1 || roles[0] != RolePsychologist {
		t.Errorf("roles = %v, want [psychologist]", roles)
	}

	t.Run("rejects non-clinic role", func(t *testing.T) {
		if err := AssignClinicRole(ctx, auth, testUserID, testClinicID, RoleSysSuperAdmin); !errors.Is(err, ErrInvalidArgs) {
			t.Errorf("error = %v, want ErrInvalidArgs", err)
		}
	})

	t.Run("remove revokes enforcement", func(t *testing.T) {
		if err := RemoveClinicRole(ctx, auth, testUserID, testClinicID, RolePsychologist); err != nil {
			t.Fatalf("RemoveClinicRole() error = %v", err)
		}
		ok, err := auth.Enforce(ctx, GroupSubject(testUserID), dom, ResourceAppointment, ActionManage)
		if err != nil {
			t.Fatalf("Enforce() error = %v", err)
		}
		if ok {
			t.Error("revoked role still enforces")
		}
	})
}
