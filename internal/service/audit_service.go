package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusops/claimflow/internal/models"
	appErrors "github.com/campusops/claimflow/pkg/errors"
	"github.com/campusops/claimflow/pkg/jobs"
)

type auditStore interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	ListByEntity(ctx context.Context, entityID string) ([]models.AuditLogEntry, error)
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLogEntry, error)
}

// AuditSink receives best-effort copies of ledger entries for an external
// consumer (search index, archival stream). Failures here never propagate to
// the caller of Append.
type AuditSink interface {
	Publish(ctx context.Context, entry *models.AuditLogEntry) error
}

// AuditSinkFunc adapts a function to the AuditSink interface.
type AuditSinkFunc func(ctx context.Context, entry *models.AuditLogEntry) error

// Publish implements AuditSink.
func (f AuditSinkFunc) Publish(ctx context.Context, entry *models.AuditLogEntry) error {
	return f(ctx, entry)
}

// AuditService is the audit ledger: the append-only, authoritative record of
// every state-changing action. Appends are two-phase: a synchronous write to
// the durable store (read-your-writes for the caller), then asynchronous
// propagation to the external sink through the job queue.
type AuditService struct {
	store   auditStore
	sink    AuditSink
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService constructs the ledger service. The returned service owns a
// propagation queue; callers must Start/Stop it with the process lifecycle.
func NewAuditService(store auditStore, sink AuditSink, metrics *MetricsService, logger *zap.Logger, queueCfg jobs.QueueConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{
		store:   store,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
	}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("audit-propagation", s.propagate, queueCfg)
	return s
}

// Start launches the propagation workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the propagation workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Append stores the entry synchronously and schedules sink propagation. A
// store failure is fatal to the caller; a scheduling failure is not.
func (s *AuditService) Append(ctx context.Context, entry *models.AuditLogEntry) (*models.AuditLogEntry, error) {
	if err := s.store.Append(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "audit ledger write failed")
	}

	if s.sink != nil {
		copied := *entry
		if err := s.queue.Enqueue(jobs.Job{ID: entry.ID, Type: "audit_entry", Payload: &copied}); err != nil {
			// Best effort only. The authoritative copy is already durable.
			s.logger.Warn("audit sink enqueue failed", zap.String("entry_id", entry.ID), zap.Error(err))
			if s.metrics != nil {
				s.metrics.RecordAuditSinkFailure()
			}
		}
	}
	return entry, nil
}

func (s *AuditService) propagate(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditLogEntry)
	if !ok {
		return fmt.Errorf("unexpected payload type for job %s", job.ID)
	}
	if err := s.sink.Publish(ctx, entry); err != nil {
		if s.metrics != nil {
			s.metrics.RecordAuditSinkFailure()
		}
		return err
	}
	return nil
}

// Query returns ledger entries matching the filter in timestamp order.
func (s *AuditService) Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditLogEntry, error) {
	entries, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "audit ledger read failed")
	}
	return entries, nil
}

// Trail returns the full ascending history for one entity.
func (s *AuditService) Trail(ctx context.Context, entityID string) ([]models.AuditLogEntry, error) {
	entries, err := s.store.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "audit ledger read failed")
	}
	return entries, nil
}

// ReplayClaim rebuilds a claim projection by folding the claim's ledger
// entries in timestamp order. Each entry's newValues snapshot is merged over
// the running state field-by-field (last writer wins per field); the initial
// SUBMITTED entry seeds the base record. The result must match the stored
// claim projection exactly.
func (s *AuditService) ReplayClaim(ctx context.Context, claimID string) (*models.Claim, error) {
	entries, err := s.Trail(ctx, claimID)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]json.RawMessage)
	seeded := false
	for _, entry := range entries {
		if entry.EntityType != models.EntityClaim || len(entry.NewValues) == 0 {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry.NewValues, &fields); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt audit snapshot")
		}
		for k, v := range fields {
			merged[k] = v
		}
		seeded = true
	}
	if !seeded {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no audit history for claim")
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "merge audit snapshots")
	}
	var claim models.Claim
	if err := json.Unmarshal(raw, &claim); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "decode replayed claim")
	}
	return &claim, nil
}
