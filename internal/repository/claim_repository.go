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
	appErrors "github.com/campusops/claimflow/pkg/errors"
)

const claimColumns = `id, user_id, department_id, sla_id, amount, currency, description, category, status,
attachments, amount_approved, rejection_reason, submitted_at, approved_at, approved_by,
rejected_at, rejected_by, paid_at, due_date, escalation_due_date, version, created_at`

// ClaimRepository provides database access for reimbursement claims. Claims
// are never deleted; there is deliberately no delete statement here.
type ClaimRepository struct {
	db *sqlx.DB
}

// NewClaimRepository creates a new instance of ClaimRepository.
func NewClaimRepository(db *sqlx.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// Create inserts a freshly submitted claim.
func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	if claim.ID == "" {
		claim.ID = uuid.NewString()
	}
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO claims (` + claimColumns + `)
VALUES (:id, :user_id, :department_id, :sla_id, :amount, :currency, :description, :category, :status,
:attachments, :amount_approved, :rejection_reason, :submitted_at, :approved_at, :approved_by,
:rejected_at, :rejected_by, :paid_at, :due_date, :escalation_due_date, :version, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, claim); err != nil {
		return fmt.Errorf("create claim: %w", err)
	}
	return nil
}

// FindByID returns a claim by identifier.
func (r *ClaimRepository) FindByID(ctx context.Context, id string) (*models.Claim, error) {
	const query = `SELECT ` + claimColumns + ` FROM claims WHERE id = $1 LIMIT 1`
	var claim models.Claim
	if err := r.db.GetContext(ctx, &claim, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find claim by id: %w", err)
	}
	return &claim, nil
}

// List returns claims matching the filter with total count.
func (r *ClaimRepository) List(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, int, error) {
	baseQuery := `FROM claims WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if len(filter.Status) > 0 {
		marks := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			marks[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, s)
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(marks, ",")))
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"submitted_at": true,
		"due_date":     true,
		"amount":       true,
		"status":       true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "submitted_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > models.MaxPageSize {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", claimColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var claims []models.Claim
	if err := r.db.SelectContext(ctx, &claims, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list claims: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count claims: %w", err)
	}

	return claims, total, nil
}

// ListOpen returns claims still awaiting a decision, for the escalation
// sweeper.
func (r *ClaimRepository) ListOpen(ctx context.Context) ([]models.Claim, error) {
	const query = `SELECT ` + claimColumns + ` FROM claims WHERE status IN ($1, $2) ORDER BY submitted_at ASC`
	var claims []models.Claim
	if err := r.db.SelectContext(ctx, &claims, query, models.ClaimStatusSubmitted, models.ClaimStatusUnderReview); err != nil {
		return nil, fmt.Errorf("list open claims: %w", err)
	}
	return claims, nil
}

// UpdateTransition persists a state transition as a compare-and-set keyed on
// (id, expectedVersion). A concurrent writer that got there first leaves zero
// rows affected, which surfaces as a version conflict instead of last-write-
// wins corruption.
func (r *ClaimRepository) UpdateTransition(ctx context.Context, claim *models.Claim, expectedVersion int) error {
	const query = `UPDATE claims SET
status = :status,
amount_approved = :amount_approved,
rejection_reason = :rejection_reason,
approved_at = :approved_at,
approved_by = :approved_by,
rejected_at = :rejected_at,
rejected_by = :rejected_by,
paid_at = :paid_at,
version = :version
WHERE id = :id AND version = :expected_version`

	arg := struct {
		*models.Claim
		ExpectedVersion int `db:"expected_version"`
	}{Claim: claim, ExpectedVersion: expectedVersion}

	res, err := r.db.NamedExecContext(ctx, query, arg)
	if err != nil {
		return fmt.Errorf("update claim transition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update claim transition: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrConflict, "claim version conflict")
	}
	return nil
}
