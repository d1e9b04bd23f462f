package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusops/claimflow/internal/dto"
	appErrors "github.com/campusops/claimflow/pkg/errors"
	"github.com/campusops/claimflow/pkg/response"
)

type dashboardService interface {
	Student(ctx context.Context, userID string) (*dto.StudentDashboardResponse, bool, error)
	Approver(ctx context.Context, departmentID string) (*dto.ApproverDashboardResponse, bool, error)
	Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error)
}

// DashboardHandler exposes role-specific dashboard endpoints.
type DashboardHandler struct {
	dashboards dashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboards dashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

// Student godoc
// @Summary Student claim dashboard
// @Tags Dashboards
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboards/student/claims [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payload, cached, err := h.dashboards.Student(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil, map[string]interface{}{"cached": cached})
}

// Approver godoc
// @Summary Department review queue sorted by urgency
// @Tags Dashboards
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboards/approver/claims [get]
func (h *DashboardHandler) Approver(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payload, cached, err := h.dashboards.Approver(c.Request.Context(), actor.DepartmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil, map[string]interface{}{"cached": cached})
}

// Admin godoc
// @Summary System-wide compliance metrics
// @Tags Dashboards
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboards/admin/metrics [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	if _, ok := identityFromContext(c); !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payload, cached, err := h.dashboards.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil, map[string]interface{}{"cached": cached})
}
