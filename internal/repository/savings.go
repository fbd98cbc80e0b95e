package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/wallet/internal/models"
)

const savingsGoalColumns = `id, user_id, name, target_amount, current_amount, deadline, category, icon, color, status, created_at`

func scanSavingsGoal(row rowScanner) (models.SavingsGoal, error) {
	var g models.SavingsGoal
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.Deadline,
		&g.Category, &g.Icon, &g.Color, &g.Status, &g.CreatedAt)
	return g, err
}

// InsertSavingsGoal creates a savings goal.
func (s *Store) InsertSavingsGoal(ctx context.Context, goal models.SavingsGoal) (*models.SavingsGoal, error) {
	if goal.Status == "" {
		goal.Status = models.SavingsGoalActive
	}
	out, err := scanSavingsGoal(s.db.QueryRow(ctx, `
		INSERT INTO savings_goals (user_id, name, target_amount, current_amount, deadline, category, icon, color, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+savingsGoalColumns,
		goal.UserID, goal.Name, goal.TargetAmount, goal.CurrentAmount, goal.Deadline,
		goal.Category, goal.Icon, goal.Color, goal.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to insert savings goal: %w", err)
	}
	return &out, nil
}

// ListSavingsGoals returns the user's active goals, newest first.
func (s *Store) ListSavingsGoals(ctx context.Context, userID string) ([]models.SavingsGoal, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+savingsGoalColumns+`
		FROM savings_goals
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC, id DESC
	`, userID, models.SavingsGoalActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query savings goals: %w", err)
	}
	return scanAll(rows, "savings goals", scanSavingsGoal)
}

// UpdateSavingsGoal edits a goal. The stored amount never exceeds the target.
func (s *Store) UpdateSavingsGoal(ctx context.Context, id string, update models.SavingsGoalUpdate) (*models.SavingsGoal, error) {
	out, err := scanSavingsGoal(s.db.QueryRow(ctx, `
		UPDATE savings_goals SET
			current_amount = LEAST(target_amount, COALESCE($2::numeric, current_amount)),
			status = COALESCE($3, status),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+savingsGoalColumns,
		id, update.CurrentAmount, update.Status))
	if err != nil {
		return nil, rowErr(err, "savings goal")
	}
	return &out, nil
}
