package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/database"
	"gitlab.com/yelinaung/wallet/internal/models"
)

const balanceColumns = `user_id, dzd, eur, usd, gbp, investment_balance, updated_at`

func scanBalance(row rowScanner) (models.Balance, error) {
	var b models.Balance
	err := row.Scan(&b.UserID, &b.DZD, &b.EUR, &b.USD, &b.GBP, &b.InvestmentBalance, &b.UpdatedAt)
	return b, err
}

// GetBalance retrieves the user's balance.
func (s *Store) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	b, err := scanBalance(s.db.QueryRow(ctx, `SELECT `+balanceColumns+` FROM balances WHERE user_id = $1`, userID))
	if err != nil {
		return nil, rowErr(err, "balance")
	}
	return &b, nil
}

// UpdateBalance upserts the balance. Every written field is clamped to zero;
// nil fields keep their stored value.
func (s *Store) UpdateBalance(ctx context.Context, userID string, update backend.BalanceUpdate) (*models.Balance, error) {
	b, err := scanBalance(s.db.QueryRow(ctx, `
		INSERT INTO balances (user_id, dzd, eur, usd, gbp, investment_balance, updated_at)
		VALUES (
			$1,
			GREATEST(0, COALESCE($2::numeric, 0)),
			GREATEST(0, COALESCE($3::numeric, 0)),
			GREATEST(0, COALESCE($4::numeric, 0)),
			GREATEST(0, COALESCE($5::numeric, 0)),
			GREATEST(0, COALESCE($6::numeric, 0)),
			NOW()
		)
		ON CONFLICT (user_id) DO UPDATE SET
			dzd = GREATEST(0, COALESCE($2::numeric, balances.dzd)),
			eur = GREATEST(0, COALESCE($3::numeric, balances.eur)),
			usd = GREATEST(0, COALESCE($4::numeric, balances.usd)),
			gbp = GREATEST(0, COALESCE($5::numeric, balances.gbp)),
			investment_balance = GREATEST(0, COALESCE($6::numeric, balances.investment_balance)),
			updated_at = NOW()
		RETURNING `+balanceColumns,
		userID, update.DZD, update.EUR, update.USD, update.GBP, update.InvestmentBalance))
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	return &b, nil
}

// lockBalance reads the balance row for update inside a transaction.
func lockBalance(ctx context.Context, db database.PGXDB, userID string) (*models.Balance, error) {
	b, err := scanBalance(db.QueryRow(ctx, `SELECT `+balanceColumns+` FROM balances WHERE user_id = $1 FOR UPDATE`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, backend.NotFound("balance")
		}
		return nil, fmt.Errorf("failed to lock balance: %w", err)
	}
	return &b, nil
}

// writeBalance stores every field of b.
func writeBalance(ctx context.Context, db database.PGXDB, b models.Balance) (*models.Balance, error) {
	out, err := scanBalance(db.QueryRow(ctx, `
		UPDATE balances SET dzd = $2, eur = $3, usd = $4, gbp = $5, investment_balance = $6, updated_at = NOW()
		WHERE user_id = $1
		RETURNING `+balanceColumns,
		b.UserID, b.DZD, b.EUR, b.USD, b.GBP, b.InvestmentBalance))
	if err != nil {
		return nil, fmt.Errorf("failed to write balance: %w", err)
	}
	return &out, nil
}
