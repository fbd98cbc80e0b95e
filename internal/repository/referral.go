package repository

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/yelinaung/wallet/internal/models"
)

// InsertReferral records a referral.
func (s *Store) InsertReferral(ctx context.Context, r models.Referral) (*models.Referral, error) {
	if r.Status == "" {
		r.Status = models.ReferralPending
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO referrals (referrer_id, referred_id, referral_code, reward_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, r.ReferrerID, r.ReferredID, r.ReferralCode, r.RewardAmount, r.Status).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert referral: %w", err)
	}
	return &r, nil
}

// ListReferrals returns the user's referrals with the referred user embedded,
// newest first.
func (s *Store) ListReferrals(ctx context.Context, userID string) ([]models.Referral, error) {
	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.referrer_id, r.referred_id, r.referral_code, r.reward_amount, r.status, r.created_at,
		       u.full_name, u.email
		FROM referrals r
		JOIN users u ON u.id = r.referred_id
		WHERE r.referrer_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query referrals: %w", err)
	}
	return scanAll(rows, "referrals", func(row rowScanner) (models.Referral, error) {
		var r models.Referral
		var referred models.ReferredUser
		err := row.Scan(&r.ID, &r.ReferrerID, &r.ReferredID, &r.ReferralCode, &r.RewardAmount, &r.Status, &r.CreatedAt,
			&referred.FullName, &referred.Email)
		r.ReferredUser = &referred
		return r, err
	})
}

// ReferralStats summarises the user's referrals. The month starts at midnight
// on the first day of now's month, in now's location.
func (s *Store) ReferralStats(ctx context.Context, userID string, now time.Time) (*models.ReferralStats, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var stats models.ReferralStats
	err := s.db.QueryRow(ctx, `
		SELECT
			COUNT(r.id),
			COUNT(r.id) FILTER (WHERE r.status = $2),
			COUNT(r.id) FILTER (WHERE r.created_at >= $3),
			COALESCE((SELECT referral_earnings FROM users WHERE id = $1), 0)
		FROM referrals r
		WHERE r.referrer_id = $1
	`, userID, models.ReferralCompleted, monthStart).Scan(
		&stats.TotalReferrals, &stats.CompletedReferrals, &stats.ThisMonthReferrals, &stats.TotalEarnings)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral stats: %w", err)
	}
	stats.PendingRewards = stats.TotalReferrals - stats.CompletedReferrals
	return &stats, nil
}

// FindReferrer looks up the owner of a referral code.
func (s *Store) FindReferrer(ctx context.Context, code string) (*models.Referrer, error) {
	var ref models.Referrer
	err := s.db.QueryRow(ctx, `SELECT id, full_name FROM users WHERE referral_code = $1`, code).
		Scan(&ref.ID, &ref.FullName)
	if err != nil {
		return nil, rowErr(err, "referrer")
	}
	return &ref, nil
}

