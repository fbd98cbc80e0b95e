package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/wallet/internal/models"
)

const supportColumns = `id, user_id, subject, message, category, priority, status, admin_response, created_at`

func scanSupportMessage(row rowScanner) (models.SupportMessage, error) {
	var m models.SupportMessage
	err := row.Scan(&m.ID, &m.UserID, &m.Subject, &m.Message, &m.Category, &m.Priority,
		&m.Status, &m.AdminResponse, &m.CreatedAt)
	return m, err
}

// CreateSupportMessage opens a ticket. Missing category and priority fall
// back to general and normal.
func (s *Store) CreateSupportMessage(ctx context.Context, msg models.SupportMessage) (*models.SupportMessage, error) {
	if msg.Category == "" {
		msg.Category = models.SupportGeneral
	}
	if msg.Priority == "" {
		msg.Priority = models.PriorityNormal
	}
	out, err := scanSupportMessage(s.db.QueryRow(ctx, `
		INSERT INTO support_messages (user_id, subject, message, category, priority)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+supportColumns,
		msg.UserID, msg.Subject, msg.Message, msg.Category, msg.Priority))
	if err != nil {
		return nil, fmt.Errorf("failed to create support message: %w", err)
	}
	return &out, nil
}

// ListSupportMessages returns up to limit of the user's tickets, newest first.
func (s *Store) ListSupportMessages(ctx context.Context, userID string, limit int) ([]models.SupportMessage, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+supportColumns+`
		FROM support_messages
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query support messages: %w", err)
	}
	return scanAll(rows, "support messages", scanSupportMessage)
}
