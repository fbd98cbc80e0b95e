package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/database"
	"gitlab.com/yelinaung/wallet/internal/models"
)

// Messages carried by a refused transfer.
const (
	MsgRecipientNotFound    = "recipient not found"
	MsgSelfTransfer         = "cannot transfer to your own account"
	MsgTransferInsufficient = "insufficient balance for transfer"
	MsgTransferCompleted    = "transfer completed"
	MsgTransferReceived     = "Instant transfer received"
)

// newReferenceNumber returns a human-quotable transfer reference.
func newReferenceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "TRF" + now.UTC().Format("20060102") + suffix
}

type transferParty struct {
	id       string
	fullName string
}

// findRecipient resolves an account number, email, or username to a user.
func findRecipient(ctx context.Context, db database.PGXDB, identifier string) (*transferParty, error) {
	var p transferParty
	err := db.QueryRow(ctx, `
		SELECT id, full_name FROM users
		WHERE account_number = $1 OR lower(email) = lower($1) OR (username <> '' AND username = $1)
		ORDER BY (account_number = $1) DESC
		LIMIT 1
	`, strings.TrimSpace(identifier)).Scan(&p.id, &p.fullName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, backend.Rejected(MsgRecipientNotFound)
		}
		return nil, fmt.Errorf("failed to find recipient: %w", err)
	}
	return &p, nil
}

// ProcessInstantTransfer moves money between two wallets in one transaction
// and records the movement on both sides.
func (s *Store) ProcessInstantTransfer(ctx context.Context, req models.TransferRequest) (*models.TransferResult, error) {
	started := time.Now()
	currency := req.Currency
	if currency == "" {
		currency = models.CurrencyDZD
	}

	var result *models.TransferResult
	err := database.InTx(ctx, s.db, func(db database.PGXDB) error {
		recipient, err := findRecipient(ctx, db, req.RecipientIdentifier)
		if err != nil {
			return err
		}
		if recipient.id == req.SenderID {
			return backend.Rejected(MsgSelfTransfer)
		}

		// Lock in a stable order so concurrent opposite transfers cannot deadlock.
		first, second := req.SenderID, recipient.id
		if second < first {
			first, second = second, first
		}
		locked := make(map[string]*models.Balance, 2)
		for _, id := range []string{first, second} {
			b, err := lockBalance(ctx, db, id)
			if err != nil {
				return err
			}
			locked[id] = b
		}
		sender, receiver := locked[req.SenderID], locked[recipient.id]

		available := sender.Amount(currency)
		if available.LessThan(req.Amount) {
			return backend.Rejected(MsgTransferInsufficient)
		}

		updatedSender, err := writeBalance(ctx, db, sender.WithAmount(currency, available.Sub(req.Amount)))
		if err != nil {
			return err
		}
		updatedReceiver, err := writeBalance(ctx, db, receiver.WithAmount(currency, receiver.Amount(currency).Add(req.Amount)))
		if err != nil {
			return err
		}

		reference := newReferenceNumber(started)
		var transferID string
		if err := db.QueryRow(ctx, `
			INSERT INTO instant_transfers (sender_id, recipient_id, amount, currency, description, reference_number)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, req.SenderID, recipient.id, req.Amount, currency, req.Description, reference).Scan(&transferID); err != nil {
			return fmt.Errorf("failed to record transfer: %w", err)
		}

		description := req.Description
		if description == "" {
			description = models.DefaultTransactionDescription
		}
		if _, err := insertTransaction(ctx, db, models.NewTransaction{
			UserID:      req.SenderID,
			Type:        models.TransactionTransfer,
			Amount:      req.Amount,
			Currency:    currency,
			Description: description,
			Status:      models.TransactionCompleted,
			Reference:   reference,
			Recipient:   req.RecipientIdentifier,
		}); err != nil {
			return err
		}
		if _, err := insertTransaction(ctx, db, models.NewTransaction{
			UserID:      recipient.id,
			Type:        models.TransactionTransfer,
			Amount:      req.Amount,
			Currency:    currency,
			Description: MsgTransferReceived,
			Status:      models.TransactionCompleted,
			Reference:   reference,
		}); err != nil {
			return err
		}

		result = &models.TransferResult{
			Success:             true,
			Message:             MsgTransferCompleted,
			ReferenceNumber:     reference,
			TransferID:          transferID,
			SenderNewBalance:    updatedSender.Amount(currency),
			RecipientNewBalance: updatedReceiver.Amount(currency),
			ProcessingTimeMS:    int(time.Since(started).Milliseconds()),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
