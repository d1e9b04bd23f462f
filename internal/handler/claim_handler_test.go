package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/claimflow/internal/middleware"
	"github.com/campusops/claimflow/internal/models"
	"github.com/campusops/claimflow/internal/service"
	appErrors "github.com/campusops/claimflow/pkg/errors"
)

type fakeClaimSrv struct {
	claim      *models.Claim
	views      []service.ClaimView
	pagination *models.Pagination
	eval       *models.SLAEvaluation
	err        error

	lastSubmit     service.SubmitClaimInput
	lastTransition service.TransitionInput
	lastFilter     models.ClaimFilter
}

func (f *fakeClaimSrv) Submit(_ context.Context, _ models.Identity, input service.SubmitClaimInput, _ models.Provenance) (*models.Claim, error) {
	f.lastSubmit = input
	return f.claim, f.err
}

func (f *fakeClaimSrv) List(_ context.Context, _ models.Identity, filter models.ClaimFilter) ([]service.ClaimView, *models.Pagination, error) {
	f.lastFilter = filter
	return f.views, f.pagination, f.err
}

func (f *fakeClaimSrv) Get(context.Context, models.Identity, string) (*models.Claim, error) {
	return f.claim, f.err
}

func (f *fakeClaimSrv) EvaluateSLA(context.Context, models.Identity, string, time.Time) (*models.SLAEvaluation, error) {
	return f.eval, f.err
}

func (f *fakeClaimSrv) Approve(_ context.Context, _ models.Identity, _ string, input service.TransitionInput) (*models.Claim, error) {
	f.lastTransition = input
	return f.claim, f.err
}

func (f *fakeClaimSrv) Reject(_ context.Context, _ models.Identity, _ string, input service.TransitionInput) (*models.Claim, error) {
	f.lastTransition = input
	return f.claim, f.err
}

func (f *fakeClaimSrv) MarkPaid(_ context.Context, _ models.Identity, _ string, input service.TransitionInput) (*models.Claim, error) {
	f.lastTransition = input
	return f.claim, f.err
}

type fakeTimelineSrv struct {
	entries    []models.AuditLogEntry
	projection *models.Claim
	err        error
}

func (f *fakeTimelineSrv) Trail(context.Context, string) ([]models.AuditLogEntry, error) {
	return f.entries, f.err
}

func (f *fakeTimelineSrv) ReplayClaim(context.Context, string) (*models.Claim, error) {
	return f.projection, f.err
}

func testContext(t *testing.T, method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	if body != "" {
		c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
	} else {
		c.Request = httptest.NewRequest(method, target, nil)
	}
	return c, rec
}

func asStudent(c *gin.Context) {
	c.Set(middleware.ContextIdentityKey, models.Identity{UserID: "stu-1", Role: models.RoleStudent, DepartmentID: "dept-1"})
}

func TestClaimHandlerSubmit(t *testing.T) {
	srv := &fakeClaimSrv{claim: &models.Claim{ID: "claim-1", Status: models.ClaimStatusSubmitted}}
	handler := NewClaimHandler(srv, &fakeTimelineSrv{})

	payload := `{"amount":"250.00","currency":"USD","description":"conference travel","category":"TRAVEL","departmentId":"dept-1","slaId":"sla-1"}`
	c, rec := testContext(t, http.MethodPost, "/claims", payload)
	asStudent(c)

	handler.Submit(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "USD", srv.lastSubmit.Currency)
	assert.True(t, srv.lastSubmit.Amount.Equal(decimal.RequireFromString("250.00")))
}

func TestClaimHandlerSubmitInvalidPayload(t *testing.T) {
	handler := NewClaimHandler(&fakeClaimSrv{}, &fakeTimelineSrv{})

	c, rec := testContext(t, http.MethodPost, "/claims", `{"amount":"250.00"}`)
	asStudent(c)

	handler.Submit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClaimHandlerSubmitUnauthenticated(t *testing.T) {
	handler := NewClaimHandler(&fakeClaimSrv{}, &fakeTimelineSrv{})

	c, rec := testContext(t, http.MethodPost, "/claims", `{}`)

	handler.Submit(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClaimHandlerListParsesStatusFilter(t *testing.T) {
	srv := &fakeClaimSrv{pagination: &models.Pagination{Page: 1, PageSize: 50}}
	handler := NewClaimHandler(srv, &fakeTimelineSrv{})

	c, rec := testContext(t, http.MethodGet, "/claims?status=submitted,under_review&page=2&limit=10", "")
	asStudent(c)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.ClaimStatus{models.ClaimStatusSubmitted, models.ClaimStatusUnderReview}, srv.lastFilter.Status)
	assert.Equal(t, 2, srv.lastFilter.Page)
	assert.Equal(t, 10, srv.lastFilter.PageSize)
}

func TestClaimHandlerSLAInvalidInstant(t *testing.T) {
	handler := NewClaimHandler(&fakeClaimSrv{}, &fakeTimelineSrv{})

	c, rec := testContext(t, http.MethodGet, "/claims/claim-1/sla?at=yesterday", "")
	asStudent(c)

	handler.SLA(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClaimHandlerApprovePassesInput(t *testing.T) {
	srv := &fakeClaimSrv{claim: &models.Claim{ID: "claim-1", Status: models.ClaimStatusApproved}}
	handler := NewClaimHandler(srv, &fakeTimelineSrv{})

	c, rec := testContext(t, http.MethodPost, "/claims/claim-1/approve", `{"expectedVersion":3,"amountApproved":"180.00"}`)
	c.Params = gin.Params{{Key: "id", Value: "claim-1"}}
	asStudent(c)

	handler.Approve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, srv.lastTransition.ExpectedVersion)
	require.NotNil(t, srv.lastTransition.AmountApproved)
	assert.True(t, srv.lastTransition.AmountApproved.Equal(decimal.RequireFromString("180.00")))
}

func TestClaimHandlerApproveEmptyBody(t *testing.T) {
	srv := &fakeClaimSrv{claim: &models.Claim{ID: "claim-1"}}
	handler := NewClaimHandler(srv, &fakeTimelineSrv{})

	c, rec := testContext(t, http.MethodPost, "/claims/claim-1/approve", "")
	c.Params = gin.Params{{Key: "id", Value: "claim-1"}}
	asStudent(c)

	handler.Approve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, srv.lastTransition.ExpectedVersion)
	assert.Nil(t, srv.lastTransition.AmountApproved)
}

func TestClaimHandlerTransitionConflict(t *testing.T) {
	srv := &fakeClaimSrv{err: appErrors.Clone(appErrors.ErrConflict, "claim version conflict")}
	handler := NewClaimHandler(srv, &fakeTimelineSrv{})

	c, rec := testContext(t, http.MethodPost, "/claims/claim-1/approve", `{"expectedVersion":1}`)
	c.Params = gin.Params{{Key: "id", Value: "claim-1"}}
	asStudent(c)

	handler.Approve(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestClaimHandlerTimeline(t *testing.T) {
	claimID := "claim-1"
	srv := &fakeClaimSrv{claim: &models.Claim{ID: claimID, UserID: "stu-1"}}
	timeline := &fakeTimelineSrv{
		entries:    []models.AuditLogEntry{{ID: "audit-1", EntityID: claimID, Action: models.AuditActionSubmitted}},
		projection: &models.Claim{ID: claimID, Status: models.ClaimStatusSubmitted},
	}
	handler := NewClaimHandler(srv, timeline)

	c, rec := testContext(t, http.MethodGet, "/claims/claim-1/timeline", "")
	c.Params = gin.Params{{Key: "id", Value: claimID}}
	asStudent(c)

	handler.Timeline(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data struct {
			Entries    []models.AuditLogEntry `json:"entries"`
			Projection *models.Claim          `json:"projection"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data.Entries, 1)
	require.NotNil(t, envelope.Data.Projection)
	assert.Equal(t, claimID, envelope.Data.Projection.ID)
}

func TestClaimHandlerTimelineHiddenClaim(t *testing.T) {
	srv := &fakeClaimSrv{err: appErrors.ErrForbidden}
	handler := NewClaimHandler(srv, &fakeTimelineSrv{})

	c, rec := testContext(t, http.MethodGet, "/claims/claim-1/timeline", "")
	c.Params = gin.Params{{Key: "id", Value: "claim-1"}}
	asStudent(c)

	handler.Timeline(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
