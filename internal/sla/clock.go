// Package sla implements the SLA clock: pure computation of a claim's timing
// status from its submission timestamp and the department policy. No I/O.
package sla

import (
	"time"

	"github.com/campusops/claimflow/internal/models"
)

const dayDuration = 24 * time.Hour

// ElapsedDays returns the real-valued number of days between submittedAt and
// now. Fractional days are preserved; callers may round for display only.
func ElapsedDays(submittedAt, now time.Time) float64 {
	return now.Sub(submittedAt).Hours() / 24
}

// Evaluate computes the timing status of a claim under a policy at the given
// instant. It is side-effect-free and idempotent for fixed inputs.
//
// Breach uses strict inequality: a claim evaluated at exactly the deadline is
// not breached. The warning threshold is policy-driven
// (EscalationThresholdDays), replacing the hardcoded split the legacy UI
// carried. Resolved claims freeze the clock at their resolution timestamp:
// elapsed time past the decision is no longer actionable, so the status
// reflects how long the claim actually waited, and never changes again.
func Evaluate(claim *models.Claim, policy *models.SLAPolicy, now time.Time) models.SLAEvaluation {
	ref := now
	frozen := false
	if resolvedAt := claim.ResolvedAt(); claim.Status.Resolved() && resolvedAt != nil {
		ref = *resolvedAt
		frozen = true
	}
	if ref.Before(claim.SubmittedAt) {
		ref = claim.SubmittedAt
	}

	elapsed := ElapsedDays(claim.SubmittedAt, ref)
	breached := elapsed > float64(policy.ApprovalDeadlineDays)

	status := models.SLAStateOK
	switch {
	case breached:
		status = models.SLAStateBreached
	case elapsed >= float64(policy.EscalationThresholdDays):
		status = models.SLAStateWarning
	}

	return models.SLAEvaluation{
		ElapsedDays: elapsed,
		Breached:    breached,
		Status:      status,
		Frozen:      frozen,
		DueDate:     DueDate(claim.SubmittedAt, policy),
	}
}

// DueDate returns the approval deadline instant for a claim submitted at the
// given time.
func DueDate(submittedAt time.Time, policy *models.SLAPolicy) time.Time {
	return submittedAt.Add(time.Duration(policy.ApprovalDeadlineDays) * dayDuration)
}

// EscalationDue returns the instant at which a claim enters the warning
// window.
func EscalationDue(submittedAt time.Time, policy *models.SLAPolicy) time.Time {
	return submittedAt.Add(time.Duration(policy.EscalationThresholdDays) * dayDuration)
}
