package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/siwes-portal-api/internal/models"
	"github.com/noah-isme/siwes-portal-api/pkg/config"
	appErrors "github.com/noah-isme/siwes-portal-api/pkg/errors"
)

type notificationRepo interface {
	ListByAdmin(ctx context.Context, adminID string, unreadOnly bool, limit int) ([]models.AdminNotification, error)
	MarkRead(ctx context.Context, id, adminID string) error
	UnreadCount(ctx context.Context, adminID string) (int, error)
}

// NotificationService serves the admin notification inbox fed by the audit
// emitter.
type NotificationService struct {
	notifications notificationRepo
	cache         previewCache
	cfg           config.NotificationsConfig
	logger        *zap.Logger
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(notifications notificationRepo, cache previewCache, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{notifications: notifications, cache: cache, cfg: cfg, logger: logger}
}

// List returns the admin's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor *models.JWTClaims, unreadOnly bool, limit int) ([]models.AdminNotification, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	notifications, err := s.notifications.ListByAdmin(ctx, actor.UserID, unreadOnly, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead marks one of the admin's notifications read and drops the cached
// unread count.
func (s *NotificationService) MarkRead(ctx context.Context, actor *models.JWTClaims, notificationID string) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if err := s.notifications.MarkRead(ctx, notificationID, actor.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, s.unreadKey(actor.UserID)); err != nil {
			s.logger.Warn("failed to invalidate unread count", zap.Error(err))
		}
	}
	return nil
}

// UnreadCount returns the admin's unread notification count, cached
// briefly since dashboards poll it.
func (s *NotificationService) UnreadCount(ctx context.Context, actor *models.JWTClaims) (int, error) {
	if err := s.requireAdmin(actor); err != nil {
		return 0, err
	}

	cacheKey := s.unreadKey(actor.UserID)
	if s.cache != nil {
		var cached int
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	count, err := s.notifications.UnreadCount(ctx, actor.UserID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, count, s.cfg.UnreadCountCacheTTL); err != nil {
			s.logger.Warn("failed to cache unread count", zap.Error(err))
		}
	}
	return count, nil
}

func (s *NotificationService) unreadKey(adminID string) string {
	return fmt.Sprintf("notifications:unread:%s", adminID)
}

func (s *NotificationService) requireAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "admin access required")
	}
	return nil
}
