package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/claimflow/internal/models"
)

const auditColumns = `id, claim_id, user_id, action, entity_type, entity_id, old_values, new_values,
ip_address, user_agent, timestamp, created_at`

// AuditRepository is the durable half of the audit ledger. Entries are
// append-only: this repository exposes no update or delete statement, and the
// backing table should additionally revoke UPDATE/DELETE from the service
// role.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts an immutable entry, assigning the server timestamp.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	const query = `INSERT INTO audit_logs (` + auditColumns + `)
VALUES (:id, :claim_id, :user_id, :action, :entity_type, :entity_id, :old_values, :new_values,
:ip_address, :user_agent, :timestamp, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByEntity returns the full trail for an entity in timestamp order. The
// ascending order matters: replaying these entries reconstructs the entity's
// current projection. Entries for related entities that reference the claim
// (escalations) are included so a claim's timeline is complete.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityID string) ([]models.AuditLogEntry, error) {
	const query = `SELECT ` + auditColumns + ` FROM audit_logs WHERE entity_id = $1 OR claim_id = $1 ORDER BY timestamp ASC, created_at ASC`
	var entries []models.AuditLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, entityID); err != nil {
		return nil, fmt.Errorf("list audit entries by entity: %w", err)
	}
	return entries, nil
}

// List returns entries matching the filter in timestamp order.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLogEntry, error) {
	baseQuery := `FROM audit_logs WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ClaimID != "" {
		conditions = append(conditions, fmt.Sprintf("claim_id = $%d", len(args)+1))
		args = append(args, filter.ClaimID)
	}
	if filter.EntityType != "" {
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", len(args)+1))
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != "" {
		conditions = append(conditions, fmt.Sprintf("entity_id = $%d", len(args)+1))
		args = append(args, filter.EntityID)
	}
	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY timestamp ASC, created_at ASC LIMIT %d OFFSET %d", auditColumns, baseQuery, limit, offset)

	var entries []models.AuditLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
