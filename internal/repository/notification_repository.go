package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siwes-portal-api/internal/models"
)

// NotificationRepository handles admin notification persistence.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// BulkCreate inserts one notification row per recipient in a transaction.
func (r *NotificationRepository) BulkCreate(ctx context.Context, notifications []models.AdminNotification) error {
	if len(notifications) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const query = `INSERT INTO admin_notifications (id, admin_id, title, body, resource, read, created_at)
        VALUES (:id, :admin_id, :title, :body, :resource, :read, :created_at)`
	now := time.Now().UTC()
	for i := range notifications {
		if notifications[i].ID == "" {
			notifications[i].ID = uuid.NewString()
		}
		if notifications[i].CreatedAt.IsZero() {
			notifications[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, query, notifications[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("create notification: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notifications: %w", err)
	}
	return nil
}

// ListByAdmin returns the admin's notifications, newest first.
func (r *NotificationRepository) ListByAdmin(ctx context.Context, adminID string, unreadOnly bool, limit int) ([]models.AdminNotification, error) {
	query := `SELECT id, admin_id, title, body, resource, read, read_at, created_at
        FROM admin_notifications WHERE admin_id = $1`
	if unreadOnly {
		query += " AND read = false"
	}
	if limit < 1 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)
	var notifications []models.AdminNotification
	if err := r.db.SelectContext(ctx, &notifications, query, adminID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead marks a single notification read for its owner.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, adminID string) error {
	const query = `UPDATE admin_notifications SET read = true, read_at = $3
        WHERE id = $1 AND admin_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, adminID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// UnreadCount returns the admin's unread notification count.
func (r *NotificationRepository) UnreadCount(ctx context.Context, adminID string) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM admin_notifications WHERE admin_id = $1 AND read = false`
	if err := r.db.GetContext(ctx, &count, query, adminID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
