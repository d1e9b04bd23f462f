// Package workflow governs legal claim status transitions and the permission
// gate consulted before each one.
package workflow

import (
	"fmt"

	"github.com/campusops/claimflow/internal/models"
	"github.com/campusops/claimflow/internal/rbac"
	appErrors "github.com/campusops/claimflow/pkg/errors"
)

// Trigger names a transition attempt on a claim.
type Trigger string

const (
	TriggerSubmit      Trigger = "Submit"
	TriggerStartReview Trigger = "StartReview"
	TriggerApprove     Trigger = "Approve"
	TriggerReject      Trigger = "Reject"
	TriggerMarkPaid    Trigger = "MarkPaid"
)

// rule describes one row of the transition table.
type rule struct {
	from       []models.ClaimStatus
	to         models.ClaimStatus
	action     rbac.Action
	roles      map[models.Role]struct{}
	deptScoped bool
}

var approverRoles = map[models.Role]struct{}{
	models.RoleDepartmentApprover:  {},
	models.RoleAccountsOfficer:     {},
	models.RoleEscalationAuthority: {},
}

// transitions is the authoritative state table. UNDER_REVIEW is reachable in
// principle via StartReview even though no current route exposes it.
var transitions = map[Trigger]rule{
	TriggerSubmit: {
		from:   nil, // claim does not exist yet
		to:     models.ClaimStatusSubmitted,
		action: rbac.ActionSubmitClaim,
		roles:  map[models.Role]struct{}{models.RoleStudent: {}},
	},
	TriggerStartReview: {
		from:       []models.ClaimStatus{models.ClaimStatusSubmitted},
		to:         models.ClaimStatusUnderReview,
		action:     rbac.ActionViewDepartmentClaims,
		roles:      approverRoles,
		deptScoped: true,
	},
	TriggerApprove: {
		from:       []models.ClaimStatus{models.ClaimStatusSubmitted, models.ClaimStatusUnderReview},
		to:         models.ClaimStatusApproved,
		action:     rbac.ActionApproveClaim,
		roles:      approverRoles,
		deptScoped: true,
	},
	TriggerReject: {
		from:       []models.ClaimStatus{models.ClaimStatusSubmitted, models.ClaimStatusUnderReview},
		to:         models.ClaimStatusRejected,
		action:     rbac.ActionRejectClaim,
		roles:      approverRoles,
		deptScoped: true,
	},
	TriggerMarkPaid: {
		from:   []models.ClaimStatus{models.ClaimStatusApproved},
		to:     models.ClaimStatusPaid,
		action: rbac.ActionApproveClaim,
		roles:  map[models.Role]struct{}{models.RoleAccountsOfficer: {}},
	},
}

// Target returns the destination status of a trigger.
func Target(trigger Trigger) (models.ClaimStatus, error) {
	r, ok := transitions[trigger]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("unknown transition %q", trigger))
	}
	return r.to, nil
}

// Authorize checks both the permission gate and the state table for a
// transition attempt. claim is nil for Submit. It returns a forbidden error
// on a role or department failure and a conflict error on an illegal source
// state; in either case no mutation may occur.
func Authorize(actor models.Identity, trigger Trigger, claim *models.Claim) error {
	r, ok := transitions[trigger]
	if !ok {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("unknown transition %q", trigger))
	}

	if !rbac.Allowed(actor.Role, r.action) {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not %s", actor.Role, trigger))
	}
	if _, ok := r.roles[actor.Role]; !ok {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not %s", actor.Role, trigger))
	}

	if trigger == TriggerSubmit {
		return nil
	}
	if claim == nil {
		return appErrors.ErrNotFound
	}

	// Department scoping: an approver acts only within their own department.
	if r.deptScoped && actor.DepartmentID != "" && claim.DepartmentID != "" && actor.DepartmentID != claim.DepartmentID {
		return appErrors.Clone(appErrors.ErrForbidden, "claim belongs to another department")
	}

	for _, from := range r.from {
		if claim.Status == from {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot %s a claim in status %s", trigger, claim.Status))
}

// CanFire reports whether the trigger is permitted for the actor and claim.
func CanFire(actor models.Identity, trigger Trigger, claim *models.Claim) bool {
	return Authorize(actor, trigger, claim) == nil
}

// PermittedTriggers returns the triggers the actor may currently fire on the
// claim.
func PermittedTriggers(actor models.Identity, claim *models.Claim) []Trigger {
	var out []Trigger
	for _, t := range []Trigger{TriggerStartReview, TriggerApprove, TriggerReject, TriggerMarkPaid} {
		if CanFire(actor, t, claim) {
			out = append(out, t)
		}
	}
	return out
}
