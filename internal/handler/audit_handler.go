package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusops/claimflow/internal/models"
	"github.com/campusops/claimflow/pkg/response"
)

type auditQueryService interface {
	Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditLogEntry, error)
}

// AuditHandler exposes read access to the audit ledger.
type AuditHandler struct {
	audit auditQueryService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit auditQueryService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary Query the audit ledger
// @Tags Audit
// @Produce json
// @Param claimId query string false "Filter by claim"
// @Param entityType query string false "Filter by entity type"
// @Param entityId query string false "Filter by entity"
// @Param action query string false "Filter by action"
// @Param userId query string false "Filter by actor"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	var filter models.AuditFilter
	filter.ClaimID = c.Query("claimId")
	filter.EntityType = c.Query("entityType")
	filter.EntityID = c.Query("entityId")
	filter.UserID = c.Query("userId")
	if raw := c.Query("action"); raw != "" {
		filter.Action = models.AuditAction(strings.ToUpper(strings.TrimSpace(raw)))
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "100")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filter.Offset = offset
	}

	entries, err := h.audit.Query(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
