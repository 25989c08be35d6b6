package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/siwes-portal-api/internal/models"
	"github.com/noah-isme/siwes-portal-api/pkg/jobs"
)

type mockAuditStore struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (m *mockAuditStore) Create(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockAuditStore) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AuditLog, len(m.logs))
	copy(out, m.logs)
	return out, nil
}

func (m *mockAuditStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

type mockNotificationWriter struct {
	mu            sync.Mutex
	notifications []models.AdminNotification
}

func (m *mockNotificationWriter) BulkCreate(ctx context.Context, notifications []models.AdminNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, notifications...)
	return nil
}

func (m *mockNotificationWriter) all() []models.AdminNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AdminNotification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

type mockAdminLister struct {
	ids []string
}

func (m *mockAdminLister) ListActiveAdminIDs(ctx context.Context) ([]string, error) {
	return m.ids, nil
}

func TestAuditServiceRecordWritesLogAndFansOut(t *testing.T) {
	store := &mockAuditStore{}
	notifications := &mockNotificationWriter{}
	admins := &mockAdminLister{ids: []string{"admin-1", "admin-2", "admin-3"}}

	svc := NewAuditService(store, notifications, admins, jobs.QueueConfig{Workers: 1, BufferSize: 8}, zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Record(AuditEntry{
		ActorID:    "admin-1",
		Action:     models.AuditActionGradeCommit,
		Resource:   "supervisor_grades",
		ResourceID: "stu-1",
		New:        map[string]interface{}{"grade": "B"},
	})

	require.Eventually(t, func() bool {
		return store.count() == 1 && len(notifications.all()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	logs, err := svc.ListLogs(context.Background(), models.AuditLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionGradeCommit, logs[0].Action)
	require.NotNil(t, logs[0].UserID)
	assert.Equal(t, "admin-1", *logs[0].UserID)

	// The acting admin is never notified about their own mutation.
	for _, n := range notifications.all() {
		assert.NotEqual(t, "admin-1", n.AdminID)
	}
}

func TestAuditServiceRecordBeforeStartIsDropped(t *testing.T) {
	store := &mockAuditStore{}
	svc := NewAuditService(store, &mockNotificationWriter{}, &mockAdminLister{}, jobs.QueueConfig{}, zap.NewNop())

	svc.Record(AuditEntry{ActorID: "admin-1", Action: models.AuditActionLogin, Resource: "users"})

	assert.Equal(t, 0, store.count())
}
