package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/claimflow/internal/models"
	appErrors "github.com/campusops/claimflow/pkg/errors"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var claimRowColumns = []string{
	"id", "user_id", "department_id", "sla_id", "amount", "currency", "description", "category", "status",
	"attachments", "amount_approved", "rejection_reason", "submitted_at", "approved_at", "approved_by",
	"rejected_at", "rejected_by", "paid_at", "due_date", "escalation_due_date", "version", "created_at",
}

func addClaimRow(rows *sqlmock.Rows, id string, status models.ClaimStatus, version int, now time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, "stu-1", "dept-1", "sla-1", "250", "USD", "conference travel", string(models.CategoryTravel), string(status),
		nil, nil, nil, now, nil, nil,
		nil, nil, nil, now.Add(7*24*time.Hour), now.Add(5*24*time.Hour), version, now,
	)
}

func TestClaimCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClaimRepository(db)

	mock.ExpectExec("INSERT INTO claims").WillReturnResult(sqlmock.NewResult(1, 1))

	now := time.Now().UTC()
	claim := &models.Claim{
		UserID:       "stu-1",
		DepartmentID: "dept-1",
		SLAID:        "sla-1",
		Status:       models.ClaimStatusSubmitted,
		SubmittedAt:  now,
		Version:      1,
	}
	err := repo.Create(context.Background(), claim)
	require.NoError(t, err)
	assert.NotEmpty(t, claim.ID)
	assert.False(t, claim.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClaimRepository(db)

	now := time.Now().UTC()
	rows := addClaimRow(sqlmock.NewRows(claimRowColumns), "claim-1", models.ClaimStatusSubmitted, 1, now)
	mock.ExpectQuery("SELECT (.+) FROM claims WHERE id = \\$1 LIMIT 1").
		WithArgs("claim-1").
		WillReturnRows(rows)

	claim, err := repo.FindByID(context.Background(), "claim-1")
	require.NoError(t, err)
	assert.Equal(t, "claim-1", claim.ID)
	assert.Equal(t, models.ClaimStatusSubmitted, claim.Status)
	assert.Equal(t, 1, claim.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClaimRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM claims WHERE id = \\$1 LIMIT 1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClaimRepository(db)

	now := time.Now().UTC()
	rows := addClaimRow(sqlmock.NewRows(claimRowColumns), "claim-1", models.ClaimStatusSubmitted, 1, now)
	mock.ExpectQuery("SELECT (.+) FROM claims WHERE 1=1 AND user_id = \\$1 AND status IN \\(\\$2\\) ORDER BY submitted_at DESC LIMIT 50 OFFSET 0").
		WithArgs("stu-1", models.ClaimStatusSubmitted).
		WillReturnRows(rows)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM claims WHERE 1=1 AND user_id = $1 AND status IN ($2)")).
		WithArgs("stu-1", models.ClaimStatusSubmitted).
		WillReturnRows(countRows)

	claims, total, err := repo.List(context.Background(), models.ClaimFilter{
		UserID: "stu-1",
		Status: []models.ClaimStatus{models.ClaimStatusSubmitted},
	})
	require.NoError(t, err)
	assert.Len(t, claims, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimListOpen(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClaimRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(claimRowColumns)
	rows = addClaimRow(rows, "claim-1", models.ClaimStatusSubmitted, 1, now)
	rows = addClaimRow(rows, "claim-2", models.ClaimStatusUnderReview, 2, now)
	mock.ExpectQuery("SELECT (.+) FROM claims WHERE status IN \\(\\$1, \\$2\\) ORDER BY submitted_at ASC").
		WithArgs(models.ClaimStatusSubmitted, models.ClaimStatusUnderReview).
		WillReturnRows(rows)

	claims, err := repo.ListOpen(context.Background())
	require.NoError(t, err)
	assert.Len(t, claims, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimUpdateTransition(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClaimRepository(db)

	mock.ExpectExec("UPDATE claims SET").WillReturnResult(sqlmock.NewResult(0, 1))

	claim := &models.Claim{ID: "claim-1", Status: models.ClaimStatusApproved, Version: 4}
	err := repo.UpdateTransition(context.Background(), claim, 3)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimUpdateTransitionVersionConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClaimRepository(db)

	mock.ExpectExec("UPDATE claims SET").WillReturnResult(sqlmock.NewResult(0, 0))

	claim := &models.Claim{ID: "claim-1", Status: models.ClaimStatusApproved, Version: 4}
	err := repo.UpdateTransition(context.Background(), claim, 3)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
