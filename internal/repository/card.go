package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/wallet/internal/models"
)

const cardColumns = `id, user_id, card_type, card_number, is_frozen, spending_limit, balance, currency, created_at`

func scanCard(row rowScanner) (models.Card, error) {
	var c models.Card
	err := row.Scan(&c.ID, &c.UserID, &c.CardType, &c.CardNumber, &c.IsFrozen,
		&c.SpendingLimit, &c.Balance, &c.Currency, &c.CreatedAt)
	return c, err
}

// InsertCard issues a card. Used for seeding and tests; card issuance itself
// happens in the provisioning service.
func (s *Store) InsertCard(ctx context.Context, card models.Card) (*models.Card, error) {
	if card.Currency == "" {
		card.Currency = models.CurrencyDZD
	}
	out, err := scanCard(s.db.QueryRow(ctx, `
		INSERT INTO cards (user_id, card_type, card_number, is_frozen, spending_limit, balance, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+cardColumns,
		card.UserID, card.CardType, card.CardNumber, card.IsFrozen, card.SpendingLimit, card.Balance, card.Currency))
	if err != nil {
		return nil, fmt.Errorf("failed to insert card: %w", err)
	}
	return &out, nil
}

// ListCards returns the user's cards, oldest first.
func (s *Store) ListCards(ctx context.Context, userID string) ([]models.Card, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE user_id = $1
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	return scanAll(rows, "cards", scanCard)
}

// UpdateCard edits a card's freeze flag, limit, or balance.
func (s *Store) UpdateCard(ctx context.Context, id string, update models.CardUpdate) (*models.Card, error) {
	out, err := scanCard(s.db.QueryRow(ctx, `
		UPDATE cards SET
			is_frozen = COALESCE($2, is_frozen),
			spending_limit = COALESCE($3::numeric, spending_limit),
			balance = COALESCE($4::numeric, balance),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+cardColumns,
		id, update.IsFrozen, update.SpendingLimit, update.Balance))
	if err != nil {
		return nil, rowErr(err, "card")
	}
	return &out, nil
}
