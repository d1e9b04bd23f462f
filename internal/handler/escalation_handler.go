package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusops/claimflow/internal/dto"
	"github.com/campusops/claimflow/internal/models"
	"github.com/campusops/claimflow/internal/service"
	appErrors "github.com/campusops/claimflow/pkg/errors"
	"github.com/campusops/claimflow/pkg/response"
)

type escalationService interface {
	MaybeEscalate(ctx context.Context, claimID, escalatedBy, escalatedTo string) (*service.EscalationResult, error)
	Reescalate(ctx context.Context, actor models.Identity, claimID string) (*models.Escalation, error)
	Resolve(ctx context.Context, actor models.Identity, escalationID, resolution string) (*models.Escalation, error)
	List(ctx context.Context, actor models.Identity, filter models.EscalationFilter) ([]models.Escalation, error)
}

// EscalationHandler exposes escalation endpoints.
type EscalationHandler struct {
	escalations escalationService
}

// NewEscalationHandler constructs EscalationHandler.
func NewEscalationHandler(escalations escalationService) *EscalationHandler {
	return &EscalationHandler{escalations: escalations}
}

// Trigger godoc
// @Summary Evaluate a claim and escalate it if breached
// @Tags Escalations
// @Produce json
// @Param id path string true "Claim ID"
// @Success 200 {object} response.Envelope
// @Router /claims/{id}/escalate [post]
func (h *EscalationHandler) Trigger(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.escalations.MaybeEscalate(c.Request.Context(), c.Param("id"), actor.UserID, "")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reescalate godoc
// @Summary Raise the severity of an unresolved escalation
// @Tags Escalations
// @Produce json
// @Param id path string true "Claim ID"
// @Success 200 {object} response.Envelope
// @Router /claims/{id}/reescalate [post]
func (h *EscalationHandler) Reescalate(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	escalation, err := h.escalations.Reescalate(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, escalation, nil)
}

// List godoc
// @Summary List escalations
// @Tags Escalations
// @Produce json
// @Param claimId query string false "Filter by claim"
// @Param unresolved query bool false "Filter by resolution state"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /escalations [get]
func (h *EscalationHandler) List(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var filter models.EscalationFilter
	filter.ClaimID = c.Query("claimId")
	if raw := c.Query("unresolved"); raw != "" {
		unresolved, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unresolved must be a boolean"))
			return
		}
		filter.Unresolved = &unresolved
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "100")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filter.Offset = offset
	}

	escalations, err := h.escalations.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, escalations, nil)
}

// Resolve godoc
// @Summary Resolve an escalation
// @Tags Escalations
// @Accept json
// @Produce json
// @Param id path string true "Escalation ID"
// @Param payload body dto.ResolveEscalationRequest true "Resolution payload"
// @Success 200 {object} response.Envelope
// @Router /escalations/{id}/resolve [post]
func (h *EscalationHandler) Resolve(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ResolveEscalationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	escalation, err := h.escalations.Resolve(c.Request.Context(), actor, c.Param("id"), req.Resolution)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, escalation, nil)
}
