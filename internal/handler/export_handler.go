package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusops/claimflow/internal/models"
	"github.com/campusops/claimflow/internal/service"
	appErrors "github.com/campusops/claimflow/pkg/errors"
	"github.com/campusops/claimflow/pkg/response"
)

type exportService interface {
	ClaimRegister(ctx context.Context, actor models.Identity, filter models.ClaimFilter, format service.ExportFormat) (*service.ExportResult, error)
}

// ExportHandler serves rendered claim register downloads.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Claims godoc
// @Summary Download the claim register
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf (default csv)"
// @Param status query string false "Comma-separated status filter"
// @Success 200 {file} binary
// @Router /exports/claims [get]
func (h *ExportHandler) Claims(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
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

	result, err := h.exports.ClaimRegister(c.Request.Context(), actor, filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
