package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/wallet/internal/models"
)

const profileColumns = `id, email, full_name, phone, username, address, account_number,
	referral_code, referral_earnings, is_verified, verification_status, created_at`

func scanProfile(row rowScanner) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.Username, &p.Address, &p.AccountNumber,
		&p.ReferralCode, &p.ReferralEarnings, &p.IsVerified, &p.VerificationStatus, &p.CreatedAt)
	return p, err
}

// GetProfile retrieves a user's profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		return nil, rowErr(err, "profile")
	}
	return &p, nil
}

// UpdateProfile edits the user-editable profile fields. Nil fields keep their
// stored value.
func (s *Store) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, `
		UPDATE users SET
			full_name = COALESCE($2, full_name),
			phone = COALESCE($3, phone),
			username = COALESCE($4, username),
			address = COALESCE($5, address),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+profileColumns,
		userID, update.FullName, update.Phone, update.Username, update.Address))
	if err != nil {
		return nil, rowErr(err, "profile")
	}
	return &p, nil
}

// CreateProfile inserts the user row created at registration, along with an
// empty balance. Used when the database is the identity source.
func (s *Store) CreateProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	created, err := scanProfile(s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, full_name, phone, username, address, account_number, referral_code)
		VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+profileColumns,
		p.ID, p.Email, p.FullName, p.Phone, p.Username, p.Address, p.AccountNumber, p.ReferralCode))
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if _, err := s.db.Exec(ctx, `INSERT INTO balances (user_id) VALUES ($1) ON CONFLICT DO NOTHING`, created.ID); err != nil {
		return nil, fmt.Errorf("failed to create balance: %w", err)
	}
	return &created, nil
}
