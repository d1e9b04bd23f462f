package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SLAPolicy is a per-department timing contract bounding how long a claim may
// remain unapproved. EscalationThresholdDays <= ApprovalDeadlineDays.
type SLAPolicy struct {
	ID                      string           `db:"id" json:"id"`
	DepartmentID            string           `db:"department_id" json:"departmentId"`
	ApprovalDeadlineDays    int              `db:"approval_deadline_days" json:"approvalDeadlineDays"`
	EscalationThresholdDays int              `db:"escalation_threshold_days" json:"escalationThresholdDays"`
	MaxReimbursement        decimal.Decimal  `db:"max_reimbursement" json:"maxReimbursement"`
	MaxAnnualPerUser        *decimal.Decimal `db:"max_annual_per_user" json:"maxAnnualPerUser,omitempty"`
	EffectiveFrom           time.Time        `db:"effective_from" json:"effectiveFrom"`
	EffectiveUntil          *time.Time       `db:"effective_until" json:"effectiveUntil,omitempty"`
	CreatedAt               time.Time        `db:"created_at" json:"createdAt"`
}

// EffectiveAt reports whether the policy's effective range contains ts.
func (p *SLAPolicy) EffectiveAt(ts time.Time) bool {
	if ts.Before(p.EffectiveFrom) {
		return false
	}
	if p.EffectiveUntil != nil && ts.After(*p.EffectiveUntil) {
		return false
	}
	return true
}

// SLAState is the coarse timing status reported by the SLA clock.
type SLAState string

const (
	SLAStateOK       SLAState = "OK"
	SLAStateWarning  SLAState = "WARNING"
	SLAStateBreached SLAState = "BREACHED"
)

// SLAEvaluation is the output of the SLA clock for a single claim.
type SLAEvaluation struct {
	ElapsedDays float64  `json:"elapsedDays"`
	Breached    bool     `json:"breached"`
	Status      SLAState `json:"status"`
	Frozen      bool     `json:"frozen"`
	DueDate     time.Time `json:"dueDate"`
}
