package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusops/claimflow/internal/models"
	appErrors "github.com/campusops/claimflow/pkg/errors"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type stubClaimStore struct {
	claims      map[string]models.Claim
	listResult  []models.Claim
	updated     *models.Claim
	updateCalls int
	updateErr   error
}

func (s *stubClaimStore) Create(ctx context.Context, claim *models.Claim) error {
	if s.claims == nil {
		s.claims = make(map[string]models.Claim)
	}
	s.claims[claim.ID] = *claim
	return nil
}

func (s *stubClaimStore) FindByID(ctx context.Context, id string) (*models.Claim, error) {
	if c, ok := s.claims[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubClaimStore) List(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, int, error) {
	return s.listResult, len(s.listResult), nil
}

func (s *stubClaimStore) ListOpen(ctx context.Context) ([]models.Claim, error) {
	var open []models.Claim
	for _, c := range s.claims {
		if !c.Status.Resolved() {
			open = append(open, c)
		}
	}
	return open, nil
}

func (s *stubClaimStore) UpdateTransition(ctx context.Context, claim *models.Claim, expectedVersion int) error {
	s.updateCalls++
	if s.updateErr != nil {
		return s.updateErr
	}
	stored, ok := s.claims[claim.ID]
	if !ok || stored.Version != expectedVersion {
		return appErrors.Clone(appErrors.ErrConflict, "claim version conflict")
	}
	s.claims[claim.ID] = *claim
	s.updated = claim
	return nil
}

type stubPolicyReader struct {
	policies map[string]models.SLAPolicy
}

func (s *stubPolicyReader) FindByID(ctx context.Context, id string) (*models.SLAPolicy, error) {
	if p, ok := s.policies[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

type stubLedger struct {
	entries []models.AuditLogEntry
	err     error
}

func (s *stubLedger) Append(ctx context.Context, entry *models.AuditLogEntry) (*models.AuditLogEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	entry.Timestamp = testNow
	s.entries = append(s.entries, *entry)
	return entry, nil
}

func defaultPolicies() *stubPolicyReader {
	return &stubPolicyReader{policies: map[string]models.SLAPolicy{
		"sla-1": {
			ID:                      "sla-1",
			DepartmentID:            "dept-1",
			ApprovalDeadlineDays:    7,
			EscalationThresholdDays: 5,
			MaxReimbursement:        decimal.NewFromInt(1000),
			EffectiveFrom:           testNow.Add(-30 * 24 * time.Hour),
		},
	}}
}

func newTestClaimService(store *stubClaimStore, ledger *stubLedger) *ClaimService {
	svc := NewClaimService(store, defaultPolicies(), ledger, nil, nil, zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func student() models.Identity {
	return models.Identity{UserID: "stu-1", Role: models.RoleStudent, DepartmentID: "dept-1"}
}

func deptApprover() models.Identity {
	return models.Identity{UserID: "appr-1", Role: models.RoleDepartmentApprover, DepartmentID: "dept-1"}
}

func accountsOfficer() models.Identity {
	return models.Identity{UserID: "acct-1", Role: models.RoleAccountsOfficer, DepartmentID: "dept-1"}
}

func submitInput() SubmitClaimInput {
	return SubmitClaimInput{
		Amount:       decimal.NewFromInt(250),
		Currency:     "usd",
		Description:  "conference travel",
		Category:     models.CategoryTravel,
		DepartmentID: "dept-1",
		SLAID:        "sla-1",
	}
}

func TestClaimServiceSubmit(t *testing.T) {
	store := &stubClaimStore{}
	ledger := &stubLedger{}
	svc := newTestClaimService(store, ledger)

	claim, err := svc.Submit(context.Background(), student(), submitInput(), models.Provenance{IPAddress: "10.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, models.ClaimStatusSubmitted, claim.Status)
	assert.Equal(t, "stu-1", claim.UserID)
	assert.Equal(t, "USD", claim.Currency)
	assert.Equal(t, 1, claim.Version)
	assert.Equal(t, testNow, claim.SubmittedAt)
	assert.Equal(t, testNow.Add(7*24*time.Hour), claim.DueDate)
	assert.Equal(t, testNow.Add(5*24*time.Hour), claim.EscalationDue)

	require.Len(t, ledger.entries, 1)
	entry := ledger.entries[0]
	assert.Equal(t, models.AuditActionSubmitted, entry.Action)
	assert.Equal(t, models.EntityClaim, entry.EntityType)
	assert.Equal(t, claim.ID, entry.EntityID)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.1", *entry.IPAddress)
}

func TestClaimServiceSubmitValidation(t *testing.T) {
	svc := newTestClaimService(&stubClaimStore{}, &stubLedger{})

	input := submitInput()
	input.Description = ""
	input.Amount = decimal.Zero
	_, err := svc.Submit(context.Background(), student(), input, models.Provenance{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	input = submitInput()
	input.Category = models.ClaimCategory("GIFTS")
	_, err = svc.Submit(context.Background(), student(), input, models.Provenance{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestClaimServiceSubmitExceedsPolicyMax(t *testing.T) {
	svc := newTestClaimService(&stubClaimStore{}, &stubLedger{})

	input := submitInput()
	input.Amount = decimal.NewFromInt(5000)
	_, err := svc.Submit(context.Background(), student(), input, models.Provenance{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestClaimServiceSubmitRequiresStudent(t *testing.T) {
	svc := newTestClaimService(&stubClaimStore{}, &stubLedger{})
	_, err := svc.Submit(context.Background(), deptApprover(), submitInput(), models.Provenance{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func seededStore(status models.ClaimStatus) *stubClaimStore {
	return &stubClaimStore{claims: map[string]models.Claim{
		"claim-1": {
			ID:           "claim-1",
			UserID:       "stu-1",
			DepartmentID: "dept-1",
			SLAID:        "sla-1",
			Amount:       decimal.NewFromInt(250),
			Currency:     "USD",
			Status:       status,
			SubmittedAt:  testNow.Add(-2 * 24 * time.Hour),
			Version:      3,
		},
	}}
}

func TestClaimServiceApprove(t *testing.T) {
	store := seededStore(models.ClaimStatusSubmitted)
	ledger := &stubLedger{}
	svc := newTestClaimService(store, ledger)

	claim, err := svc.Approve(context.Background(), deptApprover(), "claim-1", TransitionInput{ExpectedVersion: 3})
	require.NoError(t, err)

	assert.Equal(t, models.ClaimStatusApproved, claim.Status)
	assert.Equal(t, 4, claim.Version)
	require.NotNil(t, claim.AmountApproved)
	assert.True(t, claim.AmountApproved.Equal(decimal.NewFromInt(250)))
	require.NotNil(t, claim.ApprovedBy)
	assert.Equal(t, "appr-1", *claim.ApprovedBy)

	require.Len(t, ledger.entries, 1)
	assert.Equal(t, models.AuditActionApproved, ledger.entries[0].Action)
	assert.NotEmpty(t, ledger.entries[0].OldValues)
	assert.NotEmpty(t, ledger.entries[0].NewValues)
}

func TestClaimServiceApprovePartialAmount(t *testing.T) {
	store := seededStore(models.ClaimStatusSubmitted)
	svc := newTestClaimService(store, &stubLedger{})

	amount := decimal.NewFromInt(180)
	claim, err := svc.Approve(context.Background(), deptApprover(), "claim-1", TransitionInput{AmountApproved: &amount})
	require.NoError(t, err)
	assert.True(t, claim.AmountApproved.Equal(amount))
}

func TestClaimServiceApproveVersionConflict(t *testing.T) {
	store := seededStore(models.ClaimStatusSubmitted)
	svc := newTestClaimService(store, &stubLedger{})

	_, err := svc.Approve(context.Background(), deptApprover(), "claim-1", TransitionInput{ExpectedVersion: 2})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Zero(t, store.updateCalls)
}

func TestClaimServiceApproveWrongDepartment(t *testing.T) {
	store := seededStore(models.ClaimStatusSubmitted)
	svc := newTestClaimService(store, &stubLedger{})

	foreign := models.Identity{UserID: "appr-2", Role: models.RoleDepartmentApprover, DepartmentID: "dept-2"}
	_, err := svc.Approve(context.Background(), foreign, "claim-1", TransitionInput{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestClaimServiceRejectRequiresReason(t *testing.T) {
	store := seededStore(models.ClaimStatusSubmitted)
	svc := newTestClaimService(store, &stubLedger{})

	_, err := svc.Reject(context.Background(), deptApprover(), "claim-1", TransitionInput{Reason: "   "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestClaimServiceReject(t *testing.T) {
	store := seededStore(models.ClaimStatusUnderReview)
	ledger := &stubLedger{}
	svc := newTestClaimService(store, ledger)

	claim, err := svc.Reject(context.Background(), deptApprover(), "claim-1", TransitionInput{Reason: "missing receipts"})
	require.NoError(t, err)

	assert.Equal(t, models.ClaimStatusRejected, claim.Status)
	require.NotNil(t, claim.RejectionReason)
	assert.Equal(t, "missing receipts", *claim.RejectionReason)
	assert.Nil(t, claim.AmountApproved)
	require.Len(t, ledger.entries, 1)
	assert.Equal(t, models.AuditActionRejected, ledger.entries[0].Action)
}

func TestClaimServiceMarkPaid(t *testing.T) {
	store := seededStore(models.ClaimStatusApproved)
	approvedAt := testNow.Add(-24 * time.Hour)
	c := store.claims["claim-1"]
	c.ApprovedAt = &approvedAt
	store.claims["claim-1"] = c

	svc := newTestClaimService(store, &stubLedger{})

	claim, err := svc.MarkPaid(context.Background(), accountsOfficer(), "claim-1", TransitionInput{})
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusPaid, claim.Status)
	require.NotNil(t, claim.PaidAt)
	assert.Equal(t, testNow, *claim.PaidAt)
}

func TestClaimServiceMarkPaidRequiresAccountsOfficer(t *testing.T) {
	store := seededStore(models.ClaimStatusApproved)
	svc := newTestClaimService(store, &stubLedger{})

	_, err := svc.MarkPaid(context.Background(), deptApprover(), "claim-1", TransitionInput{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestClaimServiceGetVisibility(t *testing.T) {
	store := seededStore(models.ClaimStatusSubmitted)
	svc := newTestClaimService(store, &stubLedger{})

	_, err := svc.Get(context.Background(), student(), "claim-1")
	require.NoError(t, err)

	otherStudent := models.Identity{UserID: "stu-2", Role: models.RoleStudent}
	_, err = svc.Get(context.Background(), otherStudent, "claim-1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	admin := models.Identity{UserID: "admin-1", Role: models.RoleSuperAdmin}
	_, err = svc.Get(context.Background(), admin, "claim-1")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), student(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestClaimServiceListScopesFilter(t *testing.T) {
	store := &stubClaimStore{listResult: []models.Claim{{
		ID:          "claim-1",
		UserID:      "stu-1",
		SLAID:       "sla-1",
		Status:      models.ClaimStatusSubmitted,
		SubmittedAt: testNow.Add(-6 * 24 * time.Hour),
	}}}
	svc := newTestClaimService(store, &stubLedger{})

	views, pagination, err := svc.List(context.Background(), student(), models.ClaimFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].SLA)
	assert.Equal(t, models.SLAStateWarning, views[0].SLA.Status)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestClaimServiceEvaluateSLA(t *testing.T) {
	store := seededStore(models.ClaimStatusSubmitted)
	svc := newTestClaimService(store, &stubLedger{})

	eval, err := svc.EvaluateSLA(context.Background(), student(), "claim-1", time.Time{})
	require.NoError(t, err)
	assert.InDelta(t, 2, eval.ElapsedDays, 1e-9)
	assert.Equal(t, models.SLAStateOK, eval.Status)
	assert.False(t, eval.Breached)
}
