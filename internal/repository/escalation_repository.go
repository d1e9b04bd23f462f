package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/claimflow/internal/models"
)

const escalationColumns = `id, claim_id, escalated_at, escalated_by, escalated_to, level, reason,
details, resolution, resolved_at, created_at`

// EscalationRepository provides database access for escalation records.
// Escalations are never deleted.
type EscalationRepository struct {
	db *sqlx.DB
}

// NewEscalationRepository creates a new instance of EscalationRepository.
func NewEscalationRepository(db *sqlx.DB) *EscalationRepository {
	return &EscalationRepository{db: db}
}

// Create inserts a new escalation record.
func (r *EscalationRepository) Create(ctx context.Context, esc *models.Escalation) error {
	if esc.ID == "" {
		esc.ID = uuid.NewString()
	}
	if esc.CreatedAt.IsZero() {
		esc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO escalations (` + escalationColumns + `)
VALUES (:id, :claim_id, :escalated_at, :escalated_by, :escalated_to, :level, :reason,
:details, :resolution, :resolved_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, esc); err != nil {
		return fmt.Errorf("create escalation: %w", err)
	}
	return nil
}

// FindUnresolvedByClaim returns the open escalation for a claim, if any.
func (r *EscalationRepository) FindUnresolvedByClaim(ctx context.Context, claimID string) (*models.Escalation, error) {
	const query = `SELECT ` + escalationColumns + ` FROM escalations
WHERE claim_id = $1 AND resolved_at IS NULL ORDER BY escalated_at DESC LIMIT 1`
	var esc models.Escalation
	if err := r.db.GetContext(ctx, &esc, query, claimID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find unresolved escalation: %w", err)
	}
	return &esc, nil
}

// FindByID returns an escalation by identifier.
func (r *EscalationRepository) FindByID(ctx context.Context, id string) (*models.Escalation, error) {
	const query = `SELECT ` + escalationColumns + ` FROM escalations WHERE id = $1 LIMIT 1`
	var esc models.Escalation
	if err := r.db.GetContext(ctx, &esc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find escalation by id: %w", err)
	}
	return &esc, nil
}

// IncrementLevel bumps the severity of an open escalation.
func (r *EscalationRepository) IncrementLevel(ctx context.Context, id string) error {
	const query = `UPDATE escalations SET level = level + 1 WHERE id = $1 AND resolved_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment escalation level: %w", err)
	}
	return nil
}

// Resolve closes an escalation with resolution text.
func (r *EscalationRepository) Resolve(ctx context.Context, id, resolution string, resolvedAt time.Time) error {
	const query = `UPDATE escalations SET resolution = $2, resolved_at = $3 WHERE id = $1 AND resolved_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, resolution, resolvedAt); err != nil {
		return fmt.Errorf("resolve escalation: %w", err)
	}
	return nil
}

// List returns escalations matching the filter, newest first.
func (r *EscalationRepository) List(ctx context.Context, filter models.EscalationFilter) ([]models.Escalation, error) {
	baseQuery := `FROM escalations WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ClaimID != "" {
		conditions = append(conditions, fmt.Sprintf("claim_id = $%d", len(args)+1))
		args = append(args, filter.ClaimID)
	}
	if filter.Unresolved != nil {
		if *filter.Unresolved {
			conditions = append(conditions, "resolved_at IS NULL")
		} else {
			conditions = append(conditions, "resolved_at IS NOT NULL")
		}
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY escalated_at DESC LIMIT %d OFFSET %d", escalationColumns, baseQuery, limit, offset)

	var escalations []models.Escalation
	if err := r.db.SelectContext(ctx, &escalations, query, args...); err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	return escalations, nil
}
