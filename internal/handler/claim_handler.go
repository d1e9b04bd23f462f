package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/campusops/claimflow/internal/dto"
	"github.com/campusops/claimflow/internal/models"
	"github.com/campusops/claimflow/internal/service"
	appErrors "github.com/campusops/claimflow/pkg/errors"
	"github.com/campusops/claimflow/pkg/response"
)

type claimService interface {
	Submit(ctx context.Context, actor models.Identity, input service.SubmitClaimInput, prov models.Provenance) (*models.Claim, error)
	List(ctx context.Context, actor models.Identity, filter models.ClaimFilter) ([]service.ClaimView, *models.Pagination, error)
	Get(ctx context.Context, actor models.Identity, claimID string) (*models.Claim, error)
	EvaluateSLA(ctx context.Context, actor models.Identity, claimID string, at time.Time) (*models.SLAEvaluation, error)
	Approve(ctx context.Context, actor models.Identity, claimID string, input service.TransitionInput) (*models.Claim, error)
	Reject(ctx context.Context, actor models.Identity, claimID string, input service.TransitionInput) (*models.Claim, error)
	MarkPaid(ctx context.Context, actor models.Identity, claimID string, input service.TransitionInput) (*models.Claim, error)
}

type claimTimelineService interface {
	Trail(ctx context.Context, entityID string) ([]models.AuditLogEntry, error)
	ReplayClaim(ctx context.Context, claimID string) (*models.Claim, error)
}

// ClaimHandler exposes the claim lifecycle endpoints.
type ClaimHandler struct {
	claims claimService
	audit  claimTimelineService
}

// NewClaimHandler constructs ClaimHandler.
func NewClaimHandler(claims claimService, audit claimTimelineService) *ClaimHandler {
	return &ClaimHandler{claims: claims, audit: audit}
}

// Submit godoc
// @Summary Submit a reimbursement claim
// @Tags Claims
// @Accept json
// @Produce json
// @Param payload body dto.SubmitClaimRequest true "Claim payload"
// @Success 201 {object} response.Envelope
// @Router /claims [post]
func (h *ClaimHandler) Submit(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claim, err := h.claims.Submit(c.Request.Context(), actor, service.SubmitClaimInput{
		Amount:       req.Amount,
		Currency:     req.Currency,
		Description:  req.Description,
		Category:     req.Category,
		DepartmentID: req.DepartmentID,
		SLAID:        req.SLAID,
		Attachments:  req.Attachments,
	}, provenanceFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, claim)
}

// List godoc
// @Summary List claims visible to the caller
// @Tags Claims
// @Produce json
// @Param status query string false "Comma-separated status filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort column"
// @Param order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Router /claims [get]
func (h *ClaimHandler) List(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var filter models.ClaimFilter
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := models.ClaimStatus(strings.ToUpper(strings.TrimSpace(part)))
			if status != "" {
				filter.Status = append(filter.Status, status)
			}
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	views, pagination, err := h.claims.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination)
}

// Get godoc
// @Summary Get a single claim
// @Tags Claims
// @Produce json
// @Param id path string true "Claim ID"
// @Success 200 {object} response.Envelope
// @Router /claims/{id} [get]
func (h *ClaimHandler) Get(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	claim, err := h.claims.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, claim, nil)
}

// SLA godoc
// @Summary Evaluate the SLA clock for a claim
// @Tags Claims
// @Produce json
// @Param id path string true "Claim ID"
// @Param at query string false "Evaluation instant (RFC3339), defaults to now"
// @Success 200 {object} response.Envelope
// @Router /claims/{id}/sla [get]
func (h *ClaimHandler) SLA(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var at time.Time
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "at must be RFC3339"))
			return
		}
		at = parsed
	}
	eval, err := h.claims.EvaluateSLA(c.Request.Context(), actor, c.Param("id"), at)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eval, nil)
}

// Timeline godoc
// @Summary Audit timeline and replayed projection for a claim
// @Tags Claims
// @Produce json
// @Param id path string true "Claim ID"
// @Success 200 {object} response.Envelope
// @Router /claims/{id}/timeline [get]
func (h *ClaimHandler) Timeline(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	claimID := c.Param("id")
	// Visibility follows the claim itself.
	if _, err := h.claims.Get(c.Request.Context(), actor, claimID); err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.audit.Trail(c.Request.Context(), claimID)
	if err != nil {
		response.Error(c, err)
		return
	}
	projection, err := h.audit.ReplayClaim(c.Request.Context(), claimID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"entries": entries, "projection": projection}, nil)
}

// Approve godoc
// @Summary Approve a claim
// @Tags Claims
// @Accept json
// @Produce json
// @Param id path string true "Claim ID"
// @Param payload body dto.TransitionRequest false "Transition payload"
// @Success 200 {object} response.Envelope
// @Router /claims/{id}/approve [post]
func (h *ClaimHandler) Approve(c *gin.Context) {
	h.transition(c, h.claims.Approve)
}

// Reject godoc
// @Summary Reject a claim
// @Tags Claims
// @Accept json
// @Produce json
// @Param id path string true "Claim ID"
// @Param payload body dto.TransitionRequest true "Transition payload with reason"
// @Success 200 {object} response.Envelope
// @Router /claims/{id}/reject [post]
func (h *ClaimHandler) Reject(c *gin.Context) {
	h.transition(c, h.claims.Reject)
}

// Pay godoc
// @Summary Mark an approved claim as paid
// @Tags Claims
// @Accept json
// @Produce json
// @Param id path string true "Claim ID"
// @Param payload body dto.TransitionRequest false "Transition payload"
// @Success 200 {object} response.Envelope
// @Router /claims/{id}/pay [post]
func (h *ClaimHandler) Pay(c *gin.Context) {
	h.transition(c, h.claims.MarkPaid)
}

func (h *ClaimHandler) transition(c *gin.Context, op func(context.Context, models.Identity, string, service.TransitionInput) (*models.Claim, error)) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.TransitionRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	var amountApproved *decimal.Decimal
	if req.AmountApproved != nil {
		amount := *req.AmountApproved
		amountApproved = &amount
	}
	claim, err := op(c.Request.Context(), actor, c.Param("id"), service.TransitionInput{
		ExpectedVersion: req.ExpectedVersion,
		AmountApproved:  amountApproved,
		Reason:          req.Reason,
		Provenance:      provenanceFromContext(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, claim, nil)
}
