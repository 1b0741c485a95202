package domain

import "github.com/google/uuid"

// Role is the claim supplied by the identity provider. The core trusts it
// and performs no authentication of its own.
type Role string

const (
	RoleClinic       Role = "clinic"
	RolePsychologist Role = "psychologist"
	RolePatient      Role = "patient"
)

var KnownRoles = map[Role]struct{}{
	RoleClinic: {}, RolePsychologist: {}, RolePatient: {},
}

// Actor is the role-bearing principal issuing a request. For clinic staff,
// ClinicID identifies the clinic they act for.
type Actor struct {
	ID       uuid.UUID
	Role     Role
	ClinicID *uuid.UUID
}

func (a Actor) ActsForClinic(clinicID uuid.UUID) bool {
	return a.Role == RoleClinic && a.ClinicID != nil && *a.ClinicID == clinicID
}
