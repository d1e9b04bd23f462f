package dto

import (
	"encoding/json"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/campusops/claimflow/internal/models"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("claimcategory", func(fl validator.FieldLevel) bool {
			return models.ValidCategory(models.ClaimCategory(fl.Field().String()))
		})
	}
}

// SubmitClaimRequest is the payload for creating a claim.
type SubmitClaimRequest struct {
	Amount       decimal.Decimal      `json:"amount" binding:"required"`
	Currency     string               `json:"currency" binding:"required,len=3"`
	Description  string               `json:"description" binding:"required"`
	Category     models.ClaimCategory `json:"category" binding:"required,claimcategory"`
	DepartmentID string               `json:"departmentId" binding:"required"`
	SLAID        string               `json:"slaId" binding:"required"`
	Attachments  json.RawMessage      `json:"attachments,omitempty"`
}

// TransitionRequest is the shared payload for approve/reject/pay calls.
// ExpectedVersion carries the version the caller last read; zero skips the
// caller-side staleness check.
type TransitionRequest struct {
	ExpectedVersion int              `json:"expectedVersion"`
	AmountApproved  *decimal.Decimal `json:"amountApproved,omitempty"`
	Reason          string           `json:"reason,omitempty"`
}

// ResolveEscalationRequest closes an escalation.
type ResolveEscalationRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}
