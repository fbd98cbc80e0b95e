package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/wallet/internal/models"
)

const notificationColumns = `id, user_id, type, title, message, is_read, created_at`

func scanNotification(row rowScanner) (models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt)
	return n, err
}

// InsertNotification stores a notification for the user. A client-generated
// ID is kept when present.
func (s *Store) InsertNotification(ctx context.Context, userID string, n models.Notification) (*models.Notification, error) {
	if n.Type == "" {
		n.Type = models.NotificationInfo
	}
	out, err := scanNotification(s.db.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, is_read)
		VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, $5, $6)
		RETURNING `+notificationColumns,
		n.ID, userID, n.Type, n.Title, n.Message, n.IsRead))
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}
	return &out, nil
}

// ListNotifications returns the user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	return scanAll(rows, "notifications", scanNotification)
}

// MarkNotificationRead flags a notification as read.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error) {
	out, err := scanNotification(s.db.QueryRow(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1
		RETURNING `+notificationColumns, id))
	if err != nil {
		return nil, rowErr(err, "notification")
	}
	return &out, nil
}
