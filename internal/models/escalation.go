package models

import "time"

// EscalationReason enumerates why a claim was escalated.
type EscalationReason string

const (
	ReasonDeadlineMissed EscalationReason = "DEADLINE_MISSED"
	ReasonHighAmount     EscalationReason = "HIGH_AMOUNT"
	ReasonIncompleteDocs EscalationReason = "INCOMPLETE_DOCS"
	ReasonUserRequest    EscalationReason = "USER_REQUEST"
)

// Escalation records an SLA breach notification assigning an overdue claim to
// a higher authority. Escalations are never deleted; at most one unresolved
// escalation exists per claim.
type Escalation struct {
	ID          string           `db:"id" json:"id"`
	ClaimID     string           `db:"claim_id" json:"claimId"`
	EscalatedAt time.Time        `db:"escalated_at" json:"escalatedAt"`
	EscalatedBy string           `db:"escalated_by" json:"escalatedBy"`
	EscalatedTo string           `db:"escalated_to" json:"escalatedTo"`
	Level       int              `db:"level" json:"level"`
	Reason      EscalationReason `db:"reason" json:"reason"`
	Details     *string          `db:"details" json:"details,omitempty"`
	Resolution  *string          `db:"resolution" json:"resolution,omitempty"`
	ResolvedAt  *time.Time       `db:"resolved_at" json:"resolvedAt,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
}

// Unresolved reports whether the escalation still awaits intervention.
func (e *Escalation) Unresolved() bool {
	return e.ResolvedAt == nil
}

// EscalationFilter constrains escalation listing queries.
type EscalationFilter struct {
	ClaimID    string
	Unresolved *bool
	Limit      int
	Offset     int
}
