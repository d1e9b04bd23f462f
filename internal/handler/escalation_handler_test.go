package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/campusops/claimflow/internal/middleware"
	"github.com/campusops/claimflow/internal/models"
	"github.com/campusops/claimflow/internal/service"
	appErrors "github.com/campusops/claimflow/pkg/errors"
)

type fakeEscalationSrv struct {
	result     *service.EscalationResult
	escalation *models.Escalation
	list       []models.Escalation
	err        error

	lastFilter     models.EscalationFilter
	lastResolution string
}

func (f *fakeEscalationSrv) MaybeEscalate(context.Context, string, string, string) (*service.EscalationResult, error) {
	return f.result, f.err
}

func (f *fakeEscalationSrv) Reescalate(context.Context, models.Identity, string) (*models.Escalation, error) {
	return f.escalation, f.err
}

func (f *fakeEscalationSrv) Resolve(_ context.Context, _ models.Identity, _ string, resolution string) (*models.Escalation, error) {
	f.lastResolution = resolution
	return f.escalation, f.err
}

func (f *fakeEscalationSrv) List(_ context.Context, _ models.Identity, filter models.EscalationFilter) ([]models.Escalation, error) {
	f.lastFilter = filter
	return f.list, f.err
}

func asAuthority(c *gin.Context) {
	c.Set(middleware.ContextIdentityKey, models.Identity{UserID: "auth-1", Role: models.RoleEscalationAuthority})
}

func TestEscalationHandlerTrigger(t *testing.T) {
	srv := &fakeEscalationSrv{result: &service.EscalationResult{Escalated: true}}
	handler := NewEscalationHandler(srv)

	c, rec := testContext(t, http.MethodPost, "/claims/claim-1/escalate", "")
	c.Params = gin.Params{{Key: "id", Value: "claim-1"}}
	asAuthority(c)

	handler.Trigger(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEscalationHandlerTriggerUnauthenticated(t *testing.T) {
	handler := NewEscalationHandler(&fakeEscalationSrv{})

	c, rec := testContext(t, http.MethodPost, "/claims/claim-1/escalate", "")

	handler.Trigger(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEscalationHandlerListParsesFilter(t *testing.T) {
	srv := &fakeEscalationSrv{}
	handler := NewEscalationHandler(srv)

	c, rec := testContext(t, http.MethodGet, "/escalations?claimId=claim-1&unresolved=true&limit=20", "")
	asAuthority(c)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "claim-1", srv.lastFilter.ClaimID)
	assert.NotNil(t, srv.lastFilter.Unresolved)
	assert.True(t, *srv.lastFilter.Unresolved)
	assert.Equal(t, 20, srv.lastFilter.Limit)
}

func TestEscalationHandlerListInvalidBool(t *testing.T) {
	handler := NewEscalationHandler(&fakeEscalationSrv{})

	c, rec := testContext(t, http.MethodGet, "/escalations?unresolved=maybe", "")
	asAuthority(c)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEscalationHandlerResolve(t *testing.T) {
	srv := &fakeEscalationSrv{escalation: &models.Escalation{ID: "esc-1"}}
	handler := NewEscalationHandler(srv)

	c, rec := testContext(t, http.MethodPost, "/escalations/esc-1/resolve", `{"resolution":"handled by authority"}`)
	c.Params = gin.Params{{Key: "id", Value: "esc-1"}}
	asAuthority(c)

	handler.Resolve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "handled by authority", srv.lastResolution)
}

func TestEscalationHandlerResolveMissingText(t *testing.T) {
	handler := NewEscalationHandler(&fakeEscalationSrv{})

	c, rec := testContext(t, http.MethodPost, "/escalations/esc-1/resolve", `{}`)
	c.Params = gin.Params{{Key: "id", Value: "esc-1"}}
	asAuthority(c)

	handler.Resolve(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEscalationHandlerResolveConflict(t *testing.T) {
	srv := &fakeEscalationSrv{err: appErrors.Clone(appErrors.ErrConflict, "escalation already resolved")}
	handler := NewEscalationHandler(srv)

	c, rec := testContext(t, http.MethodPost, "/escalations/esc-1/resolve", `{"resolution":"again"}`)
	c.Params = gin.Params{{Key: "id", Value: "esc-1"}}
	asAuthority(c)

	handler.Resolve(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
