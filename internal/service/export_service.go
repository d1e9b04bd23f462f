package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusops/claimflow/internal/dto"
	"github.com/campusops/claimflow/internal/models"
	"github.com/campusops/claimflow/internal/rbac"
	appErrors "github.com/campusops/claimflow/pkg/errors"
	"github.com/campusops/claimflow/pkg/export"
)

// ExportFormat enumerates supported claim register formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult carries a rendered claim register.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the claim register for download. Exports are built
// synchronously from a filtered claim listing; rows carry the SLA evaluation
// current at render time.
type ExportService struct {
	claims  dashboardClaimSource
	dash    *DashboardService
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	now     func() time.Time
	enabled bool
}

// NewExportService constructs an ExportService.
func NewExportService(claims dashboardClaimSource, dash *DashboardService, logger *zap.Logger, enabled bool, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		claims:  claims,
		dash:    dash,
		csv:     csv,
		pdf:     pdf,
		logger:  logger,
		now:     time.Now,
		enabled: enabled,
	}
}

// Enabled reports whether exports are switched on.
func (s *ExportService) Enabled() bool {
	return s != nil && s.enabled
}

// ClaimRegister renders the claim register visible to the actor. Approver
// roles are constrained to their department; SuperAdmin sees everything.
func (s *ExportService) ClaimRegister(ctx context.Context, actor models.Identity, filter models.ClaimFilter, format ExportFormat) (*ExportResult, error) {
	if !s.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "exports are disabled")
	}
	if !rbac.Allowed(actor.Role, rbac.ActionViewDepartmentClaims) {
		return nil, appErrors.ErrForbidden
	}
	if actor.Role != models.RoleSuperAdmin {
		filter.DepartmentID = actor.DepartmentID
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 500
	}

	claims, _, err := s.claims.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "claim list failed")
	}
	summaries, err := s.dash.evaluate(ctx, claims, s.now().UTC())
	if err != nil {
		return nil, err
	}

	dataset := buildClaimRegisterDataset(summaries)
	timestamp := s.now().UTC().Format("20060102_150405")

	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv export")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("claim_register_%s.csv", timestamp),
			ContentType: "text/csv",
			Payload:     payload,
		}, nil
	case ExportFormatPDF:
		payload, err := s.pdf.Render(dataset, "Claim Register")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf export")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("claim_register_%s.pdf", timestamp),
			ContentType: "application/pdf",
			Payload:     payload,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// ParseExportFormat normalises a raw query value.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return ExportFormatCSV, nil
	case "pdf":
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
}

func buildClaimRegisterDataset(summaries []dto.ClaimSummary) export.Dataset {
	headers := []string{"Claim ID", "User ID", "Department", "Category", "Amount", "Currency", "Status", "Submitted At", "Due Date", "Elapsed Days", "SLA Status"}
	rows := make([]map[string]string, 0, len(summaries))
	for _, summary := range summaries {
		claim := summary.Claim
		rows = append(rows, map[string]string{
			"Claim ID":     claim.ID,
			"User ID":      claim.UserID,
			"Department":   claim.DepartmentID,
			"Category":     string(claim.Category),
			"Amount":       claim.Amount.StringFixed(2),
			"Currency":     claim.Currency,
			"Status":       string(claim.Status),
			"Submitted At": claim.SubmittedAt.UTC().Format(time.RFC3339),
			"Due Date":     claim.DueDate.UTC().Format(time.RFC3339),
			"Elapsed Days": fmt.Sprintf("%.2f", summary.SLA.ElapsedDays),
			"SLA Status":   string(summary.SLA.Status),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
