package models

// RoleType defines the user role type
type RoleType string

const (
	RoleStudent           RoleType = "STUDENT"
	RoleFacultySupervisor RoleType = "FACULTY_SUPERVISOR"
	RolePrincipal         RoleType = "PRINCIPAL"
	RoleStateDirectorate  RoleType = "STATE_DIRECTORATE"
	RoleSystemAdmin       RoleType = "SYSTEM_ADMIN"
)

// AllRoles lists every role in ascending order of reach
var AllRoles = []RoleType{RoleStudent, RoleFacultySupervisor, RolePrincipal, RoleStateDirectorate, RoleSystemAdmin}

// IsValid reports whether r is a known role
func (r RoleType) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsInstitutionScoped reports whether users of this role only see one institution
func (r RoleType) IsInstitutionScoped() bool {
	return r == RoleStudent || r == RoleFacultySupervisor || r == RolePrincipal
}

// transitions maps a status to the statuses it may move to
type transitions[S comparable] map[S][]S

func (t transitions[S]) allowed(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}
