package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/campusops/claimflow/internal/models"
	"github.com/campusops/claimflow/internal/rbac"
	"github.com/campusops/claimflow/internal/sla"
	appErrors "github.com/campusops/claimflow/pkg/errors"
)

type escalationStore interface {
	Create(ctx context.Context, esc *models.Escalation) error
	FindUnresolvedByClaim(ctx context.Context, claimID string) (*models.Escalation, error)
	FindByID(ctx context.Context, id string) (*models.Escalation, error)
	IncrementLevel(ctx context.Context, id string) error
	Resolve(ctx context.Context, id, resolution string, resolvedAt time.Time) error
	List(ctx context.Context, filter models.EscalationFilter) ([]models.Escalation, error)
}

type escalationClaimReader interface {
	FindByID(ctx context.Context, id string) (*models.Claim, error)
	ListOpen(ctx context.Context) ([]models.Claim, error)
}

// EscalationResult reports the outcome of a trigger invocation.
type EscalationResult struct {
	Escalated  bool                  `json:"escalated"`
	Status     models.SLAEvaluation  `json:"status"`
	Escalation *models.Escalation    `json:"escalation,omitempty"`
	AuditEntry *models.AuditLogEntry `json:"audit,omitempty"`
}

// EscalationServiceConfig tunes trigger defaults.
type EscalationServiceConfig struct {
	// TargetPoolID identifies the EscalationAuthority pool assigned when no
	// explicit target is given.
	TargetPoolID string
}

// EscalationService decides when a breached claim produces an escalation
// record. The trigger is idempotent per breach episode: a second invocation
// while an unresolved escalation exists is a no-op, and severity only rises
// through the explicit Reescalate operation.
type EscalationService struct {
	escalations escalationStore
	claims      escalationClaimReader
	policies    policyReader
	ledger      ledgerAppender
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
	cfg         EscalationServiceConfig
}

// NewEscalationService constructs an EscalationService.
func NewEscalationService(escalations escalationStore, claims escalationClaimReader, policies policyReader, ledger ledgerAppender, metrics *MetricsService, logger *zap.Logger, cfg EscalationServiceConfig) *EscalationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TargetPoolID == "" {
		cfg.TargetPoolID = "escalation-authority-pool"
	}
	return &EscalationService{
		escalations: escalations,
		claims:      claims,
		policies:    policies,
		ledger:      ledger,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// MaybeEscalate evaluates the SLA clock for the claim and, when breached,
// creates a level-1 escalation plus its ledger entry. Safe to call on every
// dashboard read: an unbreached claim or an existing unresolved escalation
// both produce no mutation.
func (s *EscalationService) MaybeEscalate(ctx context.Context, claimID, escalatedBy, escalatedTo string) (*EscalationResult, error) {
	claim, err := s.loadClaim(ctx, claimID)
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

	now := s.now().UTC()
	eval := sla.Evaluate(claim, policy, now)
	result := &EscalationResult{Status: eval}

	// Resolved claims never escalate: the breach episode, if any, is over.
	if !eval.Breached || claim.Status.Resolved() {
		return result, nil
	}

	existing, err := s.escalations.FindUnresolvedByClaim(ctx, claimID)
	if err == nil && existing != nil {
		result.Escalation = existing
		return result, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "escalation lookup failed")
	}

	if escalatedTo == "" {
		escalatedTo = s.cfg.TargetPoolID
	}
	esc := &models.Escalation{
		ClaimID:     claimID,
		EscalatedAt: now,
		EscalatedBy: escalatedBy,
		EscalatedTo: escalatedTo,
		Level:       1,
		Reason:      models.ReasonDeadlineMissed,
	}
	if err := s.escalations.Create(ctx, esc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "escalation write failed")
	}

	entry := s.appendEscalationEntry(ctx, claim.ID, escalatedBy, esc)
	if s.metrics != nil {
		s.metrics.RecordEscalation()
	}

	result.Escalated = true
	result.Escalation = esc
	result.AuditEntry = entry
	return result, nil
}

// Reescalate bumps the severity of an existing unresolved escalation. Level
// increases are deliberately manual; the trigger never raises them.
func (s *EscalationService) Reescalate(ctx context.Context, actor models.Identity, claimID string) (*models.Escalation, error) {
	if !rbac.Allowed(actor.Role, rbac.ActionEscalateClaim) {
		return nil, appErrors.ErrForbidden
	}
	existing, err := s.escalations.FindUnresolvedByClaim(ctx, claimID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no unresolved escalation for claim")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "escalation lookup failed")
	}
	if err := s.escalations.IncrementLevel(ctx, existing.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "escalation write failed")
	}
	existing.Level++
	s.appendEscalationEntry(ctx, claimID, actor.UserID, existing)
	return existing, nil
}

// Resolve closes an escalation with resolution text.
func (s *EscalationService) Resolve(ctx context.Context, actor models.Identity, escalationID, resolution string) (*models.Escalation, error) {
	if !rbac.Allowed(actor.Role, rbac.ActionViewEscalations) {
		return nil, appErrors.ErrForbidden
	}
	if resolution == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "resolution text is required")
	}
	esc, err := s.escalations.FindByID(ctx, escalationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "escalation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "escalation lookup failed")
	}
	if !esc.Unresolved() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "escalation already resolved")
	}
	now := s.now().UTC()
	if err := s.escalations.Resolve(ctx, escalationID, resolution, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "escalation write failed")
	}
	esc.Resolution = &resolution
	esc.ResolvedAt = &now
	return esc, nil
}

// List returns escalations visible to the actor.
func (s *EscalationService) List(ctx context.Context, actor models.Identity, filter models.EscalationFilter) ([]models.Escalation, error) {
	if !rbac.Allowed(actor.Role, rbac.ActionViewEscalations) {
		return nil, appErrors.ErrForbidden
	}
	escalations, err := s.escalations.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "escalation list failed")
	}
	return escalations, nil
}

// Sweep re-evaluates every open claim and fires the trigger for each. Run
// periodically in the background; idempotency of the trigger makes repeated
// sweeps safe.
func (s *EscalationService) Sweep(ctx context.Context, sweeperUserID string) (int, error) {
	open, err := s.claims.ListOpen(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "open claim list failed")
	}
	created := 0
	for i := range open {
		result, err := s.MaybeEscalate(ctx, open[i].ID, sweeperUserID, "")
		if err != nil {
			s.logger.Warn("sweep escalation failed", zap.String("claim_id", open[i].ID), zap.Error(err))
			continue
		}
		if result.Escalated {
			created++
		}
	}
	return created, nil
}

func (s *EscalationService) loadClaim(ctx context.Context, claimID string) (*models.Claim, error) {
	claim, err := s.claims.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "claim not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "claim lookup failed")
	}
	return claim, nil
}

func (s *EscalationService) appendEscalationEntry(ctx context.Context, claimID, userID string, esc *models.Escalation) *models.AuditLogEntry {
	raw, err := json.Marshal(esc)
	if err != nil {
		s.logger.Error("marshal escalation for ledger failed", zap.String("claim_id", claimID), zap.Error(err))
		return nil
	}
	entry := &models.AuditLogEntry{
		ClaimID:    &claimID,
		UserID:     userID,
		Action:     models.AuditActionEscalated,
		EntityType: models.EntityEscalation,
		EntityID:   esc.ID,
		NewValues:  raw,
	}
	stored, err := s.ledger.Append(ctx, entry)
	if err != nil {
		s.logger.Error("ledger append failed after escalation", zap.String("claim_id", claimID), zap.Error(err))
		return nil
	}
	return stored
}
