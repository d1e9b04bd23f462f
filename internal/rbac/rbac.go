// Package rbac holds the static role/action permission matrix consulted
// before any claim transition. No role may mutate SLA policies or the audit
// log directly; those records are system-derived only.
package rbac

import (
	"strings"

	"github.com/campusops/claimflow/internal/models"
)

// Action enumerates the canonical actions gated by the permission matrix.
type Action string

const (
	ActionSubmitClaim          Action = "SubmitClaim"
	ActionViewOwnClaims        Action = "ViewOwnClaims"
	ActionViewDepartmentClaims Action = "ViewDepartmentClaims"
	ActionApproveClaim         Action = "ApproveClaim"
	ActionRejectClaim          Action = "RejectClaim"
	ActionEscalateClaim        Action = "EscalateClaim"
	ActionViewEscalations      Action = "ViewEscalations"
	ActionViewAuditLog         Action = "ViewAuditLog"
	ActionManageUsers          Action = "ManageUsers"
	ActionManageDepartments    Action = "ManageDepartments"
	ActionManageRoles          Action = "ManageRoles"
)

// MarkPaid is gated by ApproveClaim plus the AccountsOfficer role check in
// the state machine; it has no separate matrix entry.

// rolePermissions maps each role to its allowed actions. SuperAdmin is
// deliberately read-only: administrative visibility without operational
// authority over claims.
var rolePermissions = map[models.Role][]Action{
	models.RoleStudent: {
		ActionSubmitClaim,
		ActionViewOwnClaims,
	},
	models.RoleDepartmentApprover: {
		ActionViewDepartmentClaims,
		ActionApproveClaim,
		ActionRejectClaim,
		ActionViewAuditLog,
	},
	models.RoleAccountsOfficer: {
		ActionViewDepartmentClaims,
		ActionApproveClaim,
		ActionRejectClaim,
		ActionViewAuditLog,
	},
	models.RoleEscalationAuthority: {
		ActionViewEscalations,
		ActionViewDepartmentClaims,
		ActionApproveClaim,
		ActionRejectClaim,
		ActionEscalateClaim,
		ActionViewAuditLog,
	},
	models.RoleSuperAdmin: {
		ActionViewDepartmentClaims,
		ActionViewEscalations,
		ActionViewAuditLog,
		ActionManageUsers,
		ActionManageDepartments,
		ActionManageRoles,
	},
}

var allowed = func() map[models.Role]map[Action]struct{} {
	m := make(map[models.Role]map[Action]struct{}, len(rolePermissions))
	for role, actions := range rolePermissions {
		set := make(map[Action]struct{}, len(actions))
		for _, a := range actions {
			set[a] = struct{}{}
		}
		m[role] = set
	}
	return m
}()

// Allowed reports whether the role may perform the action.
func Allowed(role models.Role, action Action) bool {
	set, ok := allowed[role]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}

// Permissions returns the actions granted to a role.
func Permissions(role models.Role) []Action {
	actions := rolePermissions[role]
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// ResolveRole maps a raw role string onto a typed role, case-insensitively.
// It returns false when the value matches no known role.
func ResolveRole(raw string) (models.Role, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, r := range models.AllRoles {
		if strings.EqualFold(string(r), trimmed) {
			return r, true
		}
	}
	return "", false
}
