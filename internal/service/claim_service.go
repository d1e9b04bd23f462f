package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/campusops/claimflow/internal/models"
	"github.com/campusops/claimflow/internal/rbac"
	"github.com/campusops/claimflow/internal/sla"
	"github.com/campusops/claimflow/internal/workflow"
	appErrors "github.com/campusops/claimflow/pkg/errors"
)

type claimStore interface {
	Create(ctx context.Context, claim *models.Claim) error
	FindByID(ctx context.Context, id string) (*models.Claim, error)
	List(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, int, error)
	UpdateTransition(ctx context.Context, claim *models.Claim, expectedVersion int) error
}

type policyReader interface {
	FindByID(ctx context.Context, id string) (*models.SLAPolicy, error)
}

type ledgerAppender interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) (*models.AuditLogEntry, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// SubmitClaimInput carries the caller-supplied fields of a new claim.
type SubmitClaimInput struct {
	Amount       decimal.Decimal
	Currency     string
	Description  string
	Category     models.ClaimCategory
	DepartmentID string
	SLAID        string
	Attachments  json.RawMessage
}

// TransitionInput carries the common fields of a transition request.
// ExpectedVersion is the version the caller last observed; zero means the
// caller opted out of the optimistic-concurrency check (the compare-and-set
// against the freshly loaded version still applies).
type TransitionInput struct {
	ExpectedVersion int
	AmountApproved  *decimal.Decimal
	Reason          string
	Provenance      models.Provenance
}

// ClaimView pairs a claim with its SLA evaluation for read paths.
type ClaimView struct {
	Claim      models.Claim          `json:"claim"`
	SLA        *models.SLAEvaluation `json:"slaStatus,omitempty"`
	Escalation *models.Escalation    `json:"escalation,omitempty"`
}

// ClaimService drives the claim lifecycle: submission, review transitions and
// SLA-enriched reads. All writes pass the permission gate and the state table
// before touching the store, and every successful transition lands exactly
// one ledger entry.
type ClaimService struct {
	claims   claimStore
	policies policyReader
	ledger   ledgerAppender
	cache    cacheInvalidator
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewClaimService constructs a ClaimService.
func NewClaimService(claims claimStore, policies policyReader, ledger ledgerAppender, cache cacheInvalidator, metrics *MetricsService, logger *zap.Logger) *ClaimService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaimService{
		claims:   claims,
		policies: policies,
		ledger:   ledger,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit validates the input, assigns server-side fields and creates the
// claim in SUBMITTED status. Due dates derive from the SLA policy snapshot
// taken now and are immutable thereafter.
func (s *ClaimService) Submit(ctx context.Context, actor models.Identity, input SubmitClaimInput, prov models.Provenance) (*models.Claim, error) {
	if err := workflow.Authorize(actor, workflow.TriggerSubmit, nil); err != nil {
		return nil, err
	}
	if err := validateSubmit(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()

	policy, err := s.policies.FindByID(ctx, input.SLAID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "slaId references no known SLA policy")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "sla policy lookup failed")
	}
	if !policy.EffectiveAt(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sla policy is not effective at submission time")
	}
	if input.Amount.GreaterThan(policy.MaxReimbursement) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount exceeds the policy maximum reimbursement")
	}

	claim := &models.Claim{
		ID:            uuid.NewString(),
		UserID:        actor.UserID,
		DepartmentID:  input.DepartmentID,
		SLAID:         input.SLAID,
		Amount:        input.Amount,
		Currency:      strings.ToUpper(strings.TrimSpace(input.Currency)),
		Description:   input.Description,
		Category:      input.Category,
		Status:        models.ClaimStatusSubmitted,
		Attachments:   input.Attachments,
		SubmittedAt:   now,
		DueDate:       sla.DueDate(now, policy),
		EscalationDue: sla.EscalationDue(now, policy),
		Version:       1,
		CreatedAt:     now,
	}

	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "claim write failed")
	}

	s.appendLedger(ctx, claim.ID, actor.UserID, models.AuditActionSubmitted, nil, claim, prov)
	s.invalidateDashboards(ctx)
	if s.metrics != nil {
		s.metrics.RecordClaimTransition(string(workflow.TriggerSubmit))
	}
	return claim, nil
}

// Approve transitions a claim to APPROVED, clearing any rejection metadata.
// AmountApproved defaults to the requested amount.
func (s *ClaimService) Approve(ctx context.Context, actor models.Identity, claimID string, input TransitionInput) (*models.Claim, error) {
	return s.transition(ctx, actor, claimID, workflow.TriggerApprove, input, func(claim *models.Claim, now time.Time) map[string]interface{} {
		approved := claim.Amount
		if input.AmountApproved != nil {
			approved = *input.AmountApproved
		}
		claim.Status = models.ClaimStatusApproved
		claim.ApprovedAt = &now
		claim.ApprovedBy = &actor.UserID
		claim.AmountApproved = &approved
		claim.RejectedAt = nil
		claim.RejectedBy = nil
		claim.RejectionReason = nil

		return map[string]interface{}{
			"status":          claim.Status,
			"approvedAt":      claim.ApprovedAt,
			"approvedBy":      claim.ApprovedBy,
			"amountApproved":  claim.AmountApproved,
			"rejectedAt":      nil,
			"rejectedBy":      nil,
			"rejectionReason": nil,
		}
	}, models.AuditActionApproved)
}

// Reject transitions a claim to REJECTED. A non-empty reason is required and
// all approval metadata is cleared.
func (s *ClaimService) Reject(ctx context.Context, actor models.Identity, claimID string, input TransitionInput) (*models.Claim, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	return s.transition(ctx, actor, claimID, workflow.TriggerReject, input, func(claim *models.Claim, now time.Time) map[string]interface{} {
		claim.Status = models.ClaimStatusRejected
		claim.RejectedAt = &now
		claim.RejectedBy = &actor.UserID
		claim.RejectionReason = &reason
		claim.ApprovedAt = nil
		claim.ApprovedBy = nil
		claim.AmountApproved = nil

		return map[string]interface{}{
			"status":          claim.Status,
			"rejectedAt":      claim.RejectedAt,
			"rejectedBy":      claim.RejectedBy,
			"rejectionReason": claim.RejectionReason,
			"approvedAt":      nil,
			"approvedBy":      nil,
			"amountApproved":  nil,
		}
	}, models.AuditActionRejected)
}

// MarkPaid finalises an approved claim as PAID.
func (s *ClaimService) MarkPaid(ctx context.Context, actor models.Identity, claimID string, input TransitionInput) (*models.Claim, error) {
	return s.transition(ctx, actor, claimID, workflow.TriggerMarkPaid, input, func(claim *models.Claim, now time.Time) map[string]interface{} {
		claim.Status = models.ClaimStatusPaid
		claim.PaidAt = &now

		return map[string]interface{}{
			"status": claim.Status,
			"paidAt": claim.PaidAt,
		}
	}, models.AuditActionPaid)
}

// transition is the common write path: permission gate, state table,
// compare-and-set write, ledger entry.
func (s *ClaimService) transition(ctx context.Context, actor models.Identity, claimID string, trigger workflow.Trigger, input TransitionInput, apply func(*models.Claim, time.Time) map[string]interface{}, action models.AuditAction) (*models.Claim, error) {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}

	if err := workflow.Authorize(actor, trigger, claim); err != nil {
		return nil, err
	}
	if input.ExpectedVersion > 0 && input.ExpectedVersion != claim.Version {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("claim version is %d, caller expected %d", claim.Version, input.ExpectedVersion))
	}

	now := s.now().UTC()
	observedVersion := claim.Version
	oldSnapshot := map[string]interface{}{
		"status":  claim.Status,
		"version": claim.Version,
	}

	snapshot := apply(claim, now)
	claim.Version = observedVersion + 1
	snapshot["version"] = claim.Version

	if err := s.claims.UpdateTransition(ctx, claim, observedVersion); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "claim write failed")
	}

	s.appendLedger(ctx, claim.ID, actor.UserID, action, oldSnapshot, snapshot, input.Provenance)
	s.invalidateDashboards(ctx)
	if s.metrics != nil {
		s.metrics.RecordClaimTransition(string(trigger))
	}
	return claim, nil
}

// Get returns a single claim, enforcing visibility: students see their own
// claims, approvers their department's, SuperAdmin everything.
func (s *ClaimService) Get(ctx context.Context, actor models.Identity, claimID string) (*models.Claim, error) {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(actor, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// List returns claims visible to the actor, each enriched with its SLA
// evaluation. The read is not transactional relative to concurrent writes; a
// caller may observe a claim set mid-update.
func (s *ClaimService) List(ctx context.Context, actor models.Identity, filter models.ClaimFilter) ([]ClaimView, *models.Pagination, error) {
	switch actor.Role {
	case models.RoleStudent:
		if !rbac.Allowed(actor.Role, rbac.ActionViewOwnClaims) {
			return nil, nil, appErrors.ErrForbidden
		}
		filter.UserID = actor.UserID
	case models.RoleSuperAdmin:
		// Unscoped visibility.
	default:
		if !rbac.Allowed(actor.Role, rbac.ActionViewDepartmentClaims) {
			return nil, nil, appErrors.ErrForbidden
		}
		filter.DepartmentID = actor.DepartmentID
	}

	claims, total, err := s.claims.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "claim list failed")
	}

	now := s.now().UTC()
	views := make([]ClaimView, 0, len(claims))
	policyCache := make(map[string]*models.SLAPolicy)
	for i := range claims {
		view := ClaimView{Claim: claims[i]}
		if policy := s.policyFor(ctx, claims[i].SLAID, policyCache); policy != nil {
			eval := sla.Evaluate(&claims[i], policy, now)
			view.SLA = &eval
		}
		views = append(views, view)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	return views, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// EvaluateSLA runs the SLA clock for one claim at the given instant.
func (s *ClaimService) EvaluateSLA(ctx context.Context, actor models.Identity, claimID string, now time.Time) (*models.SLAEvaluation, error) {
	claim, err := s.Get(ctx, actor, claimID)
	if err != nil {
		return nil, err
	}
	policy, err := s.policies.FindByID(ctx, claim.SLAID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sla policy not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "sla policy lookup failed")
	}
	if now.IsZero() {
		now = s.now()
	}
	eval := sla.Evaluate(claim, policy, now.UTC())
	if s.metrics != nil && eval.Breached {
		s.metrics.RecordSLABreachObserved()
	}
	return &eval, nil
}

func (s *ClaimService) load(ctx context.Context, claimID string) (*models.Claim, error) {
	claim, err := s.claims.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "claim not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "claim lookup failed")
	}
	return claim, nil
}

func (s *ClaimService) authorizeView(actor models.Identity, claim *models.Claim) error {
	switch actor.Role {
	case models.RoleStudent:
		if claim.UserID != actor.UserID {
			return appErrors.ErrForbidden
		}
		return nil
	case models.RoleSuperAdmin:
		return nil
	default:
		if !rbac.Allowed(actor.Role, rbac.ActionViewDepartmentClaims) {
			return appErrors.ErrForbidden
		}
		if actor.DepartmentID != "" && claim.DepartmentID != actor.DepartmentID {
			return appErrors.ErrForbidden
		}
		return nil
	}
}

func (s *ClaimService) policyFor(ctx context.Context, slaID string, cache map[string]*models.SLAPolicy) *models.SLAPolicy {
	if policy, ok := cache[slaID]; ok {
		return policy
	}
	policy, err := s.policies.FindByID(ctx, slaID)
	if err != nil {
		s.logger.Warn("sla policy lookup failed during enrichment", zap.String("sla_id", slaID), zap.Error(err))
		cache[slaID] = nil
		return nil
	}
	cache[slaID] = policy
	return policy
}

func (s *ClaimService) appendLedger(ctx context.Context, claimID, userID string, action models.AuditAction, oldValues, newValues interface{}, prov models.Provenance) {
	entry := &models.AuditLogEntry{
		ClaimID:    &claimID,
		UserID:     userID,
		Action:     action,
		EntityType: models.EntityClaim,
		EntityID:   claimID,
	}
	if oldValues != nil {
		if raw, err := json.Marshal(oldValues); err == nil {
			entry.OldValues = raw
		}
	}
	if newValues != nil {
		if raw, err := json.Marshal(newValues); err == nil {
			entry.NewValues = raw
		}
	}
	if prov.IPAddress != "" {
		entry.IPAddress = &prov.IPAddress
	}
	if prov.UserAgent != "" {
		entry.UserAgent = &prov.UserAgent
	}

	if _, err := s.ledger.Append(ctx, entry); err != nil {
		// The transition already committed; losing the ledger entry here
		// would silently break replay, so surface loudly in logs.
		s.logger.Error("ledger append failed after claim transition",
			zap.String("claim_id", claimID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func (s *ClaimService) invalidateDashboards(ctx context.Context) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "dash:*"); err != nil {
			s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
		}
	}
}

func validateSubmit(input SubmitClaimInput) error {
	var missing []string
	if input.SLAID == "" {
		missing = append(missing, "slaId")
	}
	if input.DepartmentID == "" {
		missing = append(missing, "departmentId")
	}
	if input.Amount.IsZero() || input.Amount.IsNegative() {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(input.Currency) == "" {
		missing = append(missing, "currency")
	}
	if strings.TrimSpace(input.Description) == "" {
		missing = append(missing, "description")
	}
	if input.Category == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing or invalid fields: %s", strings.Join(missing, ", ")))
	}
	if !models.ValidCategory(input.Category) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", input.Category))
	}
	return nil
}
