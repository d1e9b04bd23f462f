package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/claimflow/internal/models"
)

const slaColumns = `id, department_id, approval_deadline_days, escalation_threshold_days,
max_reimbursement, max_annual_per_user, effective_from, effective_until, created_at`

// SLARepository provides read access to SLA policies. Policies are mutated
// only through administrative seeding; the claims core never writes them.
type SLARepository struct {
	db *sqlx.DB
}

// NewSLARepository creates a new instance of SLARepository.
func NewSLARepository(db *sqlx.DB) *SLARepository {
	return &SLARepository{db: db}
}

// FindByID returns a policy by identifier.
func (r *SLARepository) FindByID(ctx context.Context, id string) (*models.SLAPolicy, error) {
	const query = `SELECT ` + slaColumns + ` FROM sla_policies WHERE id = $1 LIMIT 1`
	var policy models.SLAPolicy
	if err := r.db.GetContext(ctx, &policy, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find sla policy by id: %w", err)
	}
	return &policy, nil
}

// FindEffective returns the policy effective for a department at the given
// instant, preferring the most recently effective one.
func (r *SLARepository) FindEffective(ctx context.Context, departmentID string, at time.Time) (*models.SLAPolicy, error) {
	const query = `SELECT ` + slaColumns + ` FROM sla_policies
WHERE department_id = $1 AND effective_from <= $2 AND (effective_until IS NULL OR effective_until >= $2)
ORDER BY effective_from DESC LIMIT 1`
	var policy models.SLAPolicy
	if err := r.db.GetContext(ctx, &policy, query, departmentID, at); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find effective sla policy: %w", err)
	}
	return &policy, nil
}

// List returns all policies ordered by department and effective date.
func (r *SLARepository) List(ctx context.Context) ([]models.SLAPolicy, error) {
	const query = `SELECT ` + slaColumns + ` FROM sla_policies ORDER BY department_id ASC, effective_from DESC`
	var policies []models.SLAPolicy
	if err := r.db.SelectContext(ctx, &policies, query); err != nil {
		return nil, fmt.Errorf("list sla policies: %w", err)
	}
	return policies, nil
}

// Create inserts a policy, used by seeding and tests.
func (r *SLARepository) Create(ctx context.Context, policy *models.SLAPolicy) error {
	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sla_policies (` + slaColumns + `)
VALUES (:id, :department_id, :approval_deadline_days, :escalation_threshold_days,
:max_reimbursement, :max_annual_per_user, :effective_from, :effective_until, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, policy); err != nil {
		return fmt.Errorf("create sla policy: %w", err)
	}
	return nil
}
