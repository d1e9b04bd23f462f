package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/campusops/claimflow/internal/dto"
	"github.com/campusops/claimflow/internal/models"
	"github.com/campusops/claimflow/internal/sla"
	appErrors "github.com/campusops/claimflow/pkg/errors"
)

type dashboardClaimSource interface {
	List(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, int, error)
}

type dashboardEscalationSource interface {
	List(ctx context.Context, filter models.EscalationFilter) ([]models.Escalation, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL      time.Duration
	QueuePageSize int
}

// DashboardService composes role-specific dashboard payloads. Every claim row
// it returns carries a fresh SLA evaluation so urgency reflects the clock at
// read time, not at write time.
type DashboardService struct {
	claims      dashboardClaimSource
	escalations dashboardEscalationSource
	policies    policyReader
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(claims dashboardClaimSource, escalations dashboardEscalationSource, policies policyReader, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	if cfg.QueuePageSize <= 0 {
		cfg.QueuePageSize = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		claims:      claims,
		escalations: escalations,
		policies:    policies,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Student summarises the actor's own claims. The boolean reports cache use.
func (s *DashboardService) Student(ctx context.Context, userID string) (*dto.StudentDashboardResponse, bool, error) {
	if userID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "userId is required")
	}
	cacheKey := fmt.Sprintf("dash:student:%s", userID)
	if s.cache != nil {
		var cached dto.StudentDashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	claims, _, err := s.claims.List(ctx, models.ClaimFilter{UserID: userID, PageSize: s.cfg.QueuePageSize})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "claim list failed")
	}

	now := s.now().UTC()
	summaries, err := s.evaluate(ctx, claims, now)
	if err != nil {
		return nil, false, err
	}

	counts := make(map[models.ClaimStatus]int)
	totalRequested := decimal.Zero
	totalPaid := decimal.Zero
	for i := range claims {
		counts[claims[i].Status]++
		totalRequested = totalRequested.Add(claims[i].Amount)
		if claims[i].Status == models.ClaimStatusPaid && claims[i].AmountApproved != nil {
			totalPaid = totalPaid.Add(*claims[i].AmountApproved)
		}
	}

	payload := &dto.StudentDashboardResponse{
		UserID:         userID,
		Claims:         summaries,
		CountsByStatus: counts,
		TotalRequested: totalRequested,
		TotalPaid:      totalPaid,
		GeneratedAt:    now,
	}
	s.persistCache(ctx, cacheKey, payload)
	return payload, false, nil
}

// Approver returns the department's open review queue sorted by urgency:
// breached claims first, then ascending remaining time to deadline.
func (s *DashboardService) Approver(ctx context.Context, departmentID string) (*dto.ApproverDashboardResponse, bool, error) {
	if departmentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "departmentId is required")
	}
	cacheKey := fmt.Sprintf("dash:approver:%s", departmentID)
	if s.cache != nil {
		var cached dto.ApproverDashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	filter := models.ClaimFilter{
		DepartmentID: departmentID,
		Status:       []models.ClaimStatus{models.ClaimStatusSubmitted, models.ClaimStatusUnderReview},
		PageSize:     s.cfg.QueuePageSize,
	}
	claims, _, err := s.claims.List(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "claim list failed")
	}

	now := s.now().UTC()
	queue, err := s.evaluate(ctx, claims, now)
	if err != nil {
		return nil, false, err
	}

	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].SLA.Breached != queue[j].SLA.Breached {
			return queue[i].SLA.Breached
		}
		return queue[i].SLA.DueDate.Before(queue[j].SLA.DueDate)
	})

	payload := &dto.ApproverDashboardResponse{
		DepartmentID: departmentID,
		Queue:        queue,
		OpenCount:    len(queue),
		GeneratedAt:  now,
	}
	for i := range queue {
		switch queue[i].SLA.Status {
		case models.SLAStateBreached:
			payload.BreachedCount++
		case models.SLAStateWarning:
			payload.WarningCount++
		}
	}
	s.persistCache(ctx, cacheKey, payload)
	return payload, false, nil
}

// Admin returns system-wide compliance metrics. Average delay counts only
// breached claims and measures days past the deadline.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error) {
	const cacheKey = "dash:admin:overview"
	if s.cache != nil {
		var cached dto.AdminDashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	claims, total, err := s.listAllClaims(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "claim list failed")
	}
	escalations, err := s.escalations.List(ctx, models.EscalationFilter{Limit: 500})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "escalation list failed")
	}

	now := s.now().UTC()
	summaries, err := s.evaluate(ctx, claims, now)
	if err != nil {
		return nil, false, err
	}

	counts := make(map[models.ClaimStatus]int)
	breachCount := 0
	delayTotal := 0.0
	for i := range summaries {
		claim := summaries[i].Claim
		counts[claim.Status]++
		if summaries[i].SLA.Breached {
			breachCount++
			ref := now
			if resolved := claim.ResolvedAt(); resolved != nil {
				ref = resolved.UTC()
			}
			delayTotal += ref.Sub(summaries[i].SLA.DueDate).Hours() / 24
		}
	}
	avgDelay := 0.0
	if breachCount > 0 {
		avgDelay = delayTotal / float64(breachCount)
	}

	payload := &dto.AdminDashboardResponse{
		TotalClaims:      total,
		TotalEscalations: len(escalations),
		BreachCount:      breachCount,
		AvgDelayDays:     avgDelay,
		CountsByStatus:   counts,
		GeneratedAt:      now,
	}
	s.persistCache(ctx, cacheKey, payload)
	return payload, false, nil
}

// listAllClaims walks every page of the claim store so system-wide aggregates
// cover the full population, not just the first page.
func (s *DashboardService) listAllClaims(ctx context.Context) ([]models.Claim, int, error) {
	pageSize := s.cfg.QueuePageSize
	if pageSize > models.MaxPageSize {
		pageSize = models.MaxPageSize
	}
	var claims []models.Claim
	total := 0
	for page := 1; ; page++ {
		batch, n, err := s.claims.List(ctx, models.ClaimFilter{Page: page, PageSize: pageSize})
		if err != nil {
			return nil, 0, err
		}
		total = n
		claims = append(claims, batch...)
		if len(batch) == 0 || len(claims) >= total {
			break
		}
	}
	return claims, total, nil
}

func (s *DashboardService) evaluate(ctx context.Context, claims []models.Claim, now time.Time) ([]dto.ClaimSummary, error) {
	policies := make(map[string]*models.SLAPolicy)
	summaries := make([]dto.ClaimSummary, 0, len(claims))
	for i := range claims {
		policy, ok := policies[claims[i].SLAID]
		if !ok {
			loaded, err := s.policies.FindByID(ctx, claims[i].SLAID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					s.logger.Warn("claim references unknown sla policy", zap.String("claim_id", claims[i].ID), zap.String("sla_id", claims[i].SLAID))
					continue
				}
				return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "sla policy lookup failed")
			}
			policy = loaded
			policies[claims[i].SLAID] = policy
		}
		summaries = append(summaries, dto.ClaimSummary{
			Claim: claims[i],
			SLA:   sla.Evaluate(&claims[i], policy, now),
		})
	}
	return summaries, nil
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil && s.logger != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
