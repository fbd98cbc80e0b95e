package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/wallet/internal/database"
	"gitlab.com/yelinaung/wallet/internal/models"
)

const transactionColumns = `id, user_id, type, amount, currency, description, status, reference, recipient, created_at`

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Currency, &t.Description,
		&t.Status, &t.Reference, &t.Recipient, &t.CreatedAt)
	return t, err
}

func insertTransaction(ctx context.Context, db database.PGXDB, tx models.NewTransaction) (*models.Transaction, error) {
	if tx.Status == "" {
		tx.Status = models.TransactionCompleted
	}
	if tx.Currency == "" {
		tx.Currency = models.CurrencyDZD
	}
	t, err := scanTransaction(db.QueryRow(ctx, `
		INSERT INTO transactions (user_id, type, amount, currency, description, status, reference, recipient)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+transactionColumns,
		tx.UserID, tx.Type, tx.Amount, tx.Currency, tx.Description, tx.Status, tx.Reference, tx.Recipient))
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return &t, nil
}

// InsertTransaction records a transaction.
func (s *Store) InsertTransaction(ctx context.Context, tx models.NewTransaction) (*models.Transaction, error) {
	return insertTransaction(ctx, s.db, tx)
}

// ListTransactions returns up to limit transactions, newest first.
func (s *Store) ListTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	return scanAll(rows, "transactions", scanTransaction)
}
