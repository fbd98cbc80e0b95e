package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/database"
	"gitlab.com/yelinaung/wallet/internal/models"
)

// Messages carried by a refused investment operation.
const (
	MsgInvestInsufficient = "insufficient DZD balance for investment"
	MsgReturnInsufficient = "insufficient investment balance"
	MsgUnknownOperation   = "unknown investment operation"
)

const investmentColumns = `id, user_id, type, amount, profit_rate, start_date, end_date, profit, status, created_at`

func scanInvestment(row rowScanner) (models.Investment, error) {
	var inv models.Investment
	err := row.Scan(&inv.ID, &inv.UserID, &inv.Type, &inv.Amount, &inv.ProfitRate,
		&inv.StartDate, &inv.EndDate, &inv.Profit, &inv.Status, &inv.CreatedAt)
	return inv, err
}

// InsertInvestment records an investment.
func (s *Store) InsertInvestment(ctx context.Context, inv models.Investment) (*models.Investment, error) {
	if inv.Status == "" {
		inv.Status = models.InvestmentActive
	}
	out, err := scanInvestment(s.db.QueryRow(ctx, `
		INSERT INTO investments (user_id, type, amount, profit_rate, start_date, end_date, profit, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+investmentColumns,
		inv.UserID, inv.Type, inv.Amount, inv.ProfitRate, inv.StartDate, inv.EndDate, inv.Profit, inv.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to insert investment: %w", err)
	}
	return &out, nil
}

// ListInvestments returns the user's investments, newest first.
func (s *Store) ListInvestments(ctx context.Context, userID string) ([]models.Investment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+investmentColumns+`
		FROM investments
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	return scanAll(rows, "investments", scanInvestment)
}

// UpdateInvestment edits an investment's profit or status.
func (s *Store) UpdateInvestment(ctx context.Context, id string, update models.InvestmentUpdate) (*models.Investment, error) {
	out, err := scanInvestment(s.db.QueryRow(ctx, `
		UPDATE investments SET
			profit = COALESCE($2::numeric, profit),
			status = COALESCE($3, status),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+investmentColumns,
		id, update.Profit, update.Status))
	if err != nil {
		return nil, rowErr(err, "investment")
	}
	return &out, nil
}

// ProcessInvestment moves amount between the dinar and investment balances
// in one transaction. A refusal is returned as a backend.Rejected error and
// leaves both balances untouched.
func (s *Store) ProcessInvestment(
	ctx context.Context,
	userID string,
	amount decimal.Decimal,
	op models.InvestmentOperation,
) (*models.InvestmentResult, error) {
	var result *models.InvestmentResult
	err := database.InTx(ctx, s.db, func(db database.PGXDB) error {
		b, err := lockBalance(ctx, db, userID)
		if err != nil {
			return err
		}

		switch op {
		case models.OperationInvest:
			if b.DZD.LessThan(amount) {
				return backend.Rejected(MsgInvestInsufficient)
			}
			b.DZD = b.DZD.Sub(amount)
			b.InvestmentBalance = b.InvestmentBalance.Add(amount)
		case models.OperationReturn:
			if b.InvestmentBalance.LessThan(amount) {
				return backend.Rejected(MsgReturnInsufficient)
			}
			b.InvestmentBalance = b.InvestmentBalance.Sub(amount)
			b.DZD = b.DZD.Add(amount)
		default:
			return backend.Rejected(MsgUnknownOperation)
		}

		updated, err := writeBalance(ctx, db, *b)
		if err != nil {
			return err
		}
		result = &models.InvestmentResult{
			Success:              true,
			Message:              "ok",
			NewDZDBalance:        updated.DZD,
			NewInvestmentBalance: updated.InvestmentBalance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
