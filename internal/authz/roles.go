package authz

import "fmt"

// Role is the closed set of account roles.
type Role string

const (
	RoleClient     Role = "cliente"
	RoleAdmin      Role = "administrador"
	RoleManagement Role = "gerencia"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleClient, RoleAdmin, RoleManagement:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// IsStaff covers both back-office roles.
func IsStaff(r Role) bool {
	return r == RoleAdmin || r == RoleManagement
}

// Only management approves.
func CanApproveKYC(r Role) bool { return r == RoleManagement }

// Both staff roles may reject.
func CanRejectKYC(r Role) bool { return IsStaff(r) }

func CanCreateUsers(r Role) bool { return r == RoleManagement }

func CanApplyProfileUpdates(r Role) bool { return r == RoleManagement }
