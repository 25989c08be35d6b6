package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/siwes-portal-api/internal/models"
	"github.com/noah-isme/siwes-portal-api/pkg/jobs"
)

type auditLogStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, error)
}

type notificationWriter interface {
	BulkCreate(ctx context.Context, notifications []models.AdminNotification) error
}

type adminLister interface {
	ListActiveAdminIDs(ctx context.Context) ([]string, error)
}

// AuditEntry describes one administrative mutation to record.
type AuditEntry struct {
	ActorID    string
	Action     string
	Resource   string
	ResourceID string
	Old        interface{}
	New        interface{}
	IPAddress  string
	UserAgent  string
}

// AuditService is the asynchronous audit/notification emitter. Record
// never blocks or fails the triggering mutation: entries go through an
// in-memory queue whose workers write the audit row and fan out one
// notification per other active admin. Failed jobs are retried by the
// queue and logged, not surfaced to the caller.
type AuditService struct {
	logs          auditLogStore
	notifications notificationWriter
	admins        adminLister
	queue         *jobs.Queue
	logger        *zap.Logger
}

// NewAuditService constructs the emitter and its backing queue.
func NewAuditService(logs auditLogStore, notifications notificationWriter, admins adminLister, cfg jobs.QueueConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{logs: logs, notifications: notifications, admins: admins, logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("audit", s.handle, cfg)
	return s
}

// Start begins queue consumption.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record enqueues an audit entry. Fire-and-forget: enqueue failures are
// logged and swallowed so the primary mutation always stands.
func (s *AuditService) Record(entry AuditEntry) {
	if err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    entry.Action,
		Payload: entry,
	}); err != nil {
		s.logger.Warn("audit entry dropped", zap.String("action", entry.Action), zap.Error(err))
	}
}

// ListLogs exposes the audit trail to admin endpoints.
func (s *AuditService) ListLogs(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, error) {
	return s.logs.List(ctx, filter)
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(AuditEntry)
	if !ok {
		s.logger.Error("audit job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}

	oldValues, _ := json.Marshal(entry.Old)
	newValues, _ := json.Marshal(entry.New)
	actorID := entry.ActorID
	resourceID := entry.ResourceID
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     entry.Action,
		Resource:   entry.Resource,
		ResourceID: &resourceID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
	}
	if err := s.logs.Create(ctx, log); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}

	adminIDs, err := s.admins.ListActiveAdminIDs(ctx)
	if err != nil {
		return fmt.Errorf("resolve notification recipients: %w", err)
	}
	notifications := make([]models.AdminNotification, 0, len(adminIDs))
	for _, adminID := range adminIDs {
		if adminID == entry.ActorID {
			continue
		}
		notifications = append(notifications, models.AdminNotification{
			AdminID:  adminID,
			Title:    entry.Action,
			Body:     fmt.Sprintf("%s on %s %s", entry.Action, entry.Resource, entry.ResourceID),
			Resource: entry.Resource,
		})
	}
	if err := s.notifications.BulkCreate(ctx, notifications); err != nil {
		return fmt.Errorf("fan out admin notifications: %w", err)
	}
	return nil
}
