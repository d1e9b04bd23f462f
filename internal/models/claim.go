package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ClaimStatus enumerates the lifecycle states of a reimbursement claim.
type ClaimStatus string

const (
	ClaimStatusDraft       ClaimStatus = "DRAFT"
	ClaimStatusSubmitted   ClaimStatus = "SUBMITTED"
	ClaimStatusUnderReview ClaimStatus = "UNDER_REVIEW"
	ClaimStatusApproved    ClaimStatus = "APPROVED"
	ClaimStatusRejected    ClaimStatus = "REJECTED"
	ClaimStatusPaid        ClaimStatus = "PAID"
)

// Resolved reports whether the claim has left the review pipeline. Resolved
// claims freeze their SLA clock at the resolution timestamp.
func (s ClaimStatus) Resolved() bool {
	switch s {
	case ClaimStatusApproved, ClaimStatusRejected, ClaimStatusPaid:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s ClaimStatus) Terminal() bool {
	return s == ClaimStatusRejected || s == ClaimStatusPaid
}

// ClaimCategory enumerates expense categories.
type ClaimCategory string

const (
	CategoryTravel     ClaimCategory = "TRAVEL"
	CategorySupplies   ClaimCategory = "SUPPLIES"
	CategoryConference ClaimCategory = "CONFERENCE"
	CategoryOther      ClaimCategory = "OTHER"
)

// ValidCategory reports whether the value is a known category.
func ValidCategory(c ClaimCategory) bool {
	switch c {
	case CategoryTravel, CategorySupplies, CategoryConference, CategoryOther:
		return true
	}
	return false
}

// Claim is a reimbursement request moving through the
// submit/review/approve-or-reject/pay lifecycle. Claims are never deleted.
type Claim struct {
	ID              string           `db:"id" json:"id"`
	UserID          string           `db:"user_id" json:"userId"`
	DepartmentID    string           `db:"department_id" json:"departmentId"`
	SLAID           string           `db:"sla_id" json:"slaId"`
	Amount          decimal.Decimal  `db:"amount" json:"amount"`
	Currency        string           `db:"currency" json:"currency"`
	Description     string           `db:"description" json:"description"`
	Category        ClaimCategory    `db:"category" json:"category"`
	Status          ClaimStatus      `db:"status" json:"status"`
	Attachments     json.RawMessage  `db:"attachments" json:"attachments,omitempty"`
	AmountApproved  *decimal.Decimal `db:"amount_approved" json:"amountApproved,omitempty"`
	RejectionReason *string          `db:"rejection_reason" json:"rejectionReason,omitempty"`
	SubmittedAt     time.Time        `db:"submitted_at" json:"submittedAt"`
	ApprovedAt      *time.Time       `db:"approved_at" json:"approvedAt,omitempty"`
	ApprovedBy      *string          `db:"approved_by" json:"approvedBy,omitempty"`
	RejectedAt      *time.Time       `db:"rejected_at" json:"rejectedAt,omitempty"`
	RejectedBy      *string          `db:"rejected_by" json:"rejectedBy,omitempty"`
	PaidAt          *time.Time       `db:"paid_at" json:"paidAt,omitempty"`
	DueDate         time.Time        `db:"due_date" json:"dueDate"`
	EscalationDue   time.Time        `db:"escalation_due_date" json:"escalationDueDate"`
	Version         int              `db:"version" json:"version"`
	CreatedAt       time.Time        `db:"created_at" json:"createdAt"`
}

// ResolvedAt returns the timestamp at which the claim left the review
// pipeline, or nil while it is still open.
func (c *Claim) ResolvedAt() *time.Time {
	switch c.Status {
	case ClaimStatusPaid:
		if c.PaidAt != nil {
			return c.PaidAt
		}
		return c.ApprovedAt
	case ClaimStatusApproved:
		return c.ApprovedAt
	case ClaimStatusRejected:
		return c.RejectedAt
	}
	return nil
}

// MaxPageSize caps PageSize on list queries; larger values fall back to the
// repository default.
const MaxPageSize = 200

// ClaimFilter constrains claim listing queries.
type ClaimFilter struct {
	UserID       string
	DepartmentID string
	Status       []ClaimStatus
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
