package authorize

import "testing"

func TestIsValidDomain(t *testing.T) {
	tests := []struct {
		name   string
		domain Domain
		want   bool
	}{
		{"sys domain", DomainSys, true},
		{"wildcard", WildcardDomain, true},
		{"clinic with uuid", ClinicDomain("6f1b0c84-32c4-4d2e-9d61-0a6b12345678"), true},
		{"user with uuid", UserDomain("6f1b0c84-32c4-4d2e-9d61-0a6b12345678"), true},
		{"clinic without uuid", Domain("clinic:not-a-uuid"), false},
		{"user without uuid", Domain("user:42"), false},
		{"bare prefix", Domain("clinic:"), false},
		{"empty", Domain(""), false},
		{"unknown scheme", Domain("tenant:6f1b0c84-32c4-4d2e-9d61-0a6b12345678"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidDomain(tt.domain); got != tt.want {
				t.Errorf("IsValidDomain(%q) = %v, want %v", tt.domain, got, tt.want)
			}
		})
	}
}

func TestActorRoleToRBACRole(t *testing.T) {
	tests := []struct {
		claim string
		want  Role
	}{
		{"clinic", RoleClinicStaff},
		{"psychologist", RolePsychologist},
		{"patient", RolePatient},
	}

	for _, tt := range tests {
		got, ok := ActorRoleToRBACRole[tt.claim]
		if !ok || got != tt.want {
			t.Errorf("ActorRoleToRBACRole[%q] = (%s, %v), want %s", tt.claim, got, ok, tt.want)
		}
	}

	if _, ok := ActorRoleToRBACRole["admin"]; ok {
		t.Error("unknown claim should not map to a role")
	}
}
