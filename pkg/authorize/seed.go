package authorize

import (
	"context"
	"log/slog"
)

// SeedDefaultPolicies sets up the baseline RBAC policies for the system.
// These gate the coarse HTTP surface; entity-level rules (ownership,
// delegation, awaited party) live in the permission guard.
func SeedDefaultPolicies(ctx context.Context, auth IAuthorization) error {
	logger := slog.Default()

	// System-level policies (domain: sys)
	sysPolicies := []PermissionPolicy{
		// SuperAdmin: god mode
		{RoleSysSuperAdmin, DomainSys, WildcardResource, WildcardAction, EffectAllow},
	}

	// Clinic-scoped policies (domain: clinic:*)
	clinicPolicies := []PermissionPolicy{
		// Clinic staff: manage scheduling and payments within the clinic
		{RoleClinicStaff, WildcardDomain, ResourceAppointment, ActionManage, EffectAllow},
		{RoleClinicStaff, WildcardDomain, ResourcePayment, ActionManage, EffectAllow},
		{RoleClinicStaff, WildcardDomain, ResourceFinanceSummary, ActionRead, EffectAllow},
		{RoleClinicStaff, WildcardDomain, ResourceRBAC, ActionGrant, EffectAllow},

		// Psychologists: full control of their own schedule and payments
		{RolePsychologist, WildcardDomain, ResourceAppointment, ActionManage, EffectAllow},
		{RolePsychologist, WildcardDomain, ResourcePayment, ActionManage, EffectAllow},
		{RolePsychologist, WildcardDomain, ResourceFinanceSummary, ActionRead, EffectAllow},

		// Patients: read and respond to what concerns them
		{RolePatient, WildcardDomain, ResourceAppointment, ActionRead, EffectAllow},
		{RolePatient, WildcardDomain, ResourceAppointment, ActionList, EffectAllow},
		{RolePatient, WildcardDomain, ResourceAppointment, ActionTransition, EffectAllow},
		{RolePatient, WildcardDomain, ResourcePayment, ActionRead, EffectAllow},
	}

	// User-level policies (domain: user:*)
	userPolicies := []PermissionPolicy{
		// Independent psychologists act in their own private domain
		{RoleUserSelf, WildcardDomain, ResourceAppointment, ActionManage, EffectAllow},
		{RoleUserSelf, WildcardDomain, ResourcePayment, ActionManage, EffectAllow},
		{RoleUserSelf, WildcardDomain, ResourceFinanceSummary, ActionRead, EffectAllow},
	}

	allPolicies := append(append(sysPolicies, clinicPolicies...), userPolicies...)

	for _, p := range allPolicies {
		added, err := auth.AddPermission(ctx, p.Subject, p.Domain, p.Object, p.Action, p.Effect)
		if err != nil {
			logger.Error("failed to add policy", "policy", p, "error", err)
			return err
		}
		if added {
			logger.Debug("added policy", "role", p.Subject, "domain", p.Domain, "resource", p.Object, "action", p.Action)
		}
	}

	logger.Info("seeded default RBAC policies", "count", len(allPolicies))
	return nil
}

// AssignUserSelfRole assigns the user:self role in the principal's private
// domain. Call this when an independent psychologist is first seen.
func AssignUserSelfRole(ctx context.Context, auth IAuthorization, userID string) error {
	domain := UserDomain(userID)
	subject := GroupSubject(userID)

	_, err := auth.AddRoleForUserInDomain(ctx, subject, RoleUserSelf, domain)
	return err
}

// AssignClinicRole assigns a clinic role to a principal for a specific clinic.
// Valid roles: RoleClinicStaff, RolePsychologist, RolePatient.
func AssignClinicRole(ctx context.Context, auth IAuthorization, userID, clinicID string, role Role) error {
	switch role {
	case RoleClinicStaff, RolePsychologist, RolePatient:
		// valid clinic roles
	default:
		return ErrInvalidArgs
	}

	domain := ClinicDomain(clinicID)
	subject := GroupSubject(userID)

	_, err := auth.AddRoleForUserInDomain(ctx, subject, role, domain)
	return err
}

// RemoveClinicRole removes a clinic role from a principal for a specific clinic.
func RemoveClinicRole(ctx context.Context, auth IAuthorization, userID, clinicID string, role Role) error {
	domain := ClinicDomain(clinicID)
	subject := GroupSubject(userID)

	_, err := auth.RemoveRoleForUserInDomain(ctx, subject, role, domain)
	return err
}

// GetClinicRoles returns all roles a principal has in a specific clinic.
func GetClinicRoles(ctx context.Context, auth IAuthorization, userID, clinicID string) ([]Role, error) {
	domain := ClinicDomain(clinicID)
	subject := GroupSubject(userID)

	return auth.GetRolesForUserInDomain(ctx, subject, domain)
}
