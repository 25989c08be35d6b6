package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/siwes-portal-api/internal/models"
	"github.com/noah-isme/siwes-portal-api/pkg/config"
	appErrors "github.com/noah-isme/siwes-portal-api/pkg/errors"
)

type mockNotificationRepo struct {
	notifications map[string]models.AdminNotification
	countCalls    int
}

func (m *mockNotificationRepo) ListByAdmin(ctx context.Context, adminID string, unreadOnly bool, limit int) ([]models.AdminNotification, error) {
	var out []models.AdminNotification
	for _, n := range m.notifications {
		if n.AdminID != adminID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, adminID string) error {
	if n, ok := m.notifications[id]; ok && n.AdminID == adminID {
		n.Read = true
		m.notifications[id] = n
	}
	return nil
}

func (m *mockNotificationRepo) UnreadCount(ctx context.Context, adminID string) (int, error) {
	m.countCalls++
	count := 0
	for _, n := range m.notifications {
		if n.AdminID == adminID && !n.Read {
			count++
		}
	}
	return count, nil
}

func notificationFixture() *mockNotificationRepo {
	return &mockNotificationRepo{notifications: map[string]models.AdminNotification{
		"n1": {ID: "n1", AdminID: "admin-1", Title: models.AuditActionGradeCommit},
		"n2": {ID: "n2", AdminID: "admin-1", Title: models.AuditActionStudentLock, Read: true},
		"n3": {ID: "n3", AdminID: "admin-2", Title: models.AuditActionReportApprove},
	}}
}

func TestNotificationServiceListUnreadOnly(t *testing.T) {
	repo := notificationFixture()
	svc := NewNotificationService(repo, nil, config.NotificationsConfig{}, zap.NewNop())

	notifications, err := svc.List(context.Background(), adminClaims(), true, 0)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "n1", notifications[0].ID)
}

func TestNotificationServiceListRequiresAdmin(t *testing.T) {
	svc := NewNotificationService(notificationFixture(), nil, config.NotificationsConfig{}, zap.NewNop())

	_, err := svc.List(context.Background(), studentClaims(), false, 0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestNotificationServiceUnreadCountCached(t *testing.T) {
	repo := notificationFixture()
	cache := &mockCache{}
	svc := NewNotificationService(repo, cache, config.NotificationsConfig{UnreadCountCacheTTL: time.Minute}, zap.NewNop())

	count, err := svc.UnreadCount(context.Background(), adminClaims())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, repo.countCalls)

	// Second call is served from cache.
	count, err = svc.UnreadCount(context.Background(), adminClaims())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, repo.countCalls)
}

func TestNotificationServiceMarkReadInvalidatesCount(t *testing.T) {
	repo := notificationFixture()
	cache := &mockCache{entries: map[string]interface{}{
		"notifications:unread:admin-1": 1,
	}}
	svc := NewNotificationService(repo, cache, config.NotificationsConfig{UnreadCountCacheTTL: time.Minute}, zap.NewNop())

	require.NoError(t, svc.MarkRead(context.Background(), adminClaims(), "n1"))
	assert.True(t, repo.notifications["n1"].Read)
	_, cached := cache.entries["notifications:unread:admin-1"]
	assert.False(t, cached)
}
