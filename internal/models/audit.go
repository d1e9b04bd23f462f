package models

import (
	"encoding/json"
	"time"
)

// AuditAction enumerates state-changing actions recorded in the ledger.
type AuditAction string

const (
	AuditActionCreated       AuditAction = "CREATED"
	AuditActionSubmitted     AuditAction = "SUBMITTED"
	AuditActionApproved      AuditAction = "APPROVED"
	AuditActionRejected      AuditAction = "REJECTED"
	AuditActionEscalated     AuditAction = "ESCALATED"
	AuditActionPaid          AuditAction = "PAID"
	AuditActionDocumentAdded AuditAction = "DOCUMENT_ADDED"
	AuditActionSLAUpdated    AuditAction = "SLA_UPDATED"
)

// Entity types referenced by audit entries.
const (
	EntityClaim      = "ReimbursementClaim"
	EntityEscalation = "Escalation"
	EntitySLAPolicy  = "SLAPolicy"
)

// AuditLogEntry is an immutable fact: actor performed action on entity at
// timestamp, transitioning old values to new values. Entries are append-only;
// the full history of an entity is reconstructable by folding its entries in
// timestamp order.
type AuditLogEntry struct {
	ID         string          `db:"id" json:"id"`
	ClaimID    *string         `db:"claim_id" json:"claimId,omitempty"`
	UserID     string          `db:"user_id" json:"userId"`
	Action     AuditAction     `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entityType"`
	EntityID   string          `db:"entity_id" json:"entityId"`
	OldValues  json.RawMessage `db:"old_values" json:"oldValues,omitempty"`
	NewValues  json.RawMessage `db:"new_values" json:"newValues,omitempty"`
	IPAddress  *string         `db:"ip_address" json:"ipAddress,omitempty"`
	UserAgent  *string         `db:"user_agent" json:"userAgent,omitempty"`
	Timestamp  time.Time       `db:"timestamp" json:"timestamp"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// Provenance carries optional request origin details into audit entries.
type Provenance struct {
	IPAddress string
	UserAgent string
}

// AuditFilter constrains audit log queries. Results are always ordered by
// timestamp ascending.
type AuditFilter struct {
	ClaimID    string
	EntityType string
	EntityID   string
	Action     AuditAction
	UserID     string
	Limit      int
	Offset     int
}
