package models

import "github.com/golang-jwt/jwt/v5"

// Role enumerates the fixed roles of the claims system. Roles are resolved
// once at the system boundary; the core only ever sees the typed value.
type Role string

const (
	RoleStudent             Role = "Student"
	RoleDepartmentApprover  Role = "DepartmentApprover"
	RoleAccountsOfficer     Role = "AccountsOfficer"
	RoleEscalationAuthority Role = "EscalationAuthority"
	RoleSuperAdmin          Role = "SuperAdmin"
)

// AllRoles lists every known role, used for case-insensitive resolution.
var AllRoles = []Role{
	RoleStudent,
	RoleDepartmentApprover,
	RoleAccountsOfficer,
	RoleEscalationAuthority,
	RoleSuperAdmin,
}

// Identity describes the resolved caller: who they are, what role they hold
// and which department scopes their actions.
type Identity struct {
	UserID       string `json:"userId"`
	Role         Role   `json:"role"`
	DepartmentID string `json:"departmentId"`
}

// IdentityClaims is the JWT payload carrying a caller identity.
type IdentityClaims struct {
	UserID       string `json:"user_id"`
	Role         Role   `json:"role"`
	DepartmentID string `json:"department_id"`
	jwt.RegisteredClaims
}
