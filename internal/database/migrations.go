package database

import (
	"context"
	"fmt"
)

// RunMigrations creates the tables the wallet reads and writes. Every
// statement is idempotent.
func RunMigrations(ctx context.Context, db PGXDB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			email TEXT NOT NULL DEFAULT '',
			full_name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			account_number TEXT NOT NULL DEFAULT '',
			referral_code TEXT NOT NULL DEFAULT '',
			used_referral_code TEXT NOT NULL DEFAULT '',
			referral_earnings DECIMAL(18, 2) NOT NULL DEFAULT 0,
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			verification_status TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_account_number ON users(account_number) WHERE account_number <> ''`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_referral_code ON users(referral_code) WHERE referral_code <> ''`,

		`CREATE TABLE IF NOT EXISTS balances (
			user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			dzd DECIMAL(18, 2) NOT NULL DEFAULT 0 CHECK (dzd >= 0),
			eur DECIMAL(18, 2) NOT NULL DEFAULT 0 CHECK (eur >= 0),
			usd DECIMAL(18, 2) NOT NULL DEFAULT 0 CHECK (usd >= 0),
			gbp DECIMAL(18, 2) NOT NULL DEFAULT 0 CHECK (gbp >= 0),
			investment_balance DECIMAL(18, 2) NOT NULL DEFAULT 0 CHECK (investment_balance >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			amount DECIMAL(18, 2) NOT NULL CHECK (amount > 0),
			currency TEXT NOT NULL DEFAULT 'dzd',
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'completed',
			reference TEXT NOT NULL DEFAULT '',
			recipient TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions(user_id, created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS investments (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			amount DECIMAL(18, 2) NOT NULL CHECK (amount > 0),
			profit_rate DECIMAL(6, 2) NOT NULL DEFAULT 0,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NOT NULL,
			profit DECIMAL(18, 2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_investments_user_id ON investments(user_id)`,

		`CREATE TABLE IF NOT EXISTS savings_goals (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			target_amount DECIMAL(18, 2) NOT NULL CHECK (target_amount > 0),
			current_amount DECIMAL(18, 2) NOT NULL DEFAULT 0 CHECK (current_amount >= 0),
			deadline TIMESTAMPTZ NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_savings_goals_user_id ON savings_goals(user_id)`,

		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			card_type TEXT NOT NULL,
			card_number TEXT NOT NULL,
			is_frozen BOOLEAN NOT NULL DEFAULT FALSE,
			spending_limit DECIMAL(18, 2) NOT NULL DEFAULT 0,
			balance DECIMAL(18, 2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			currency TEXT NOT NULL DEFAULT 'dzd',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_user_id ON cards(user_id)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type TEXT NOT NULL DEFAULT 'info',
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS referrals (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			referrer_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			referred_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			referral_code TEXT NOT NULL,
			reward_amount DECIMAL(18, 2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_referrals_referrer_id ON referrals(referrer_id)`,

		`CREATE TABLE IF NOT EXISTS account_verifications (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			country TEXT NOT NULL DEFAULT '',
			date_of_birth TEXT NOT NULL DEFAULT '',
			full_address TEXT NOT NULL DEFAULT '',
			postal_code TEXT NOT NULL DEFAULT '',
			document_type TEXT NOT NULL DEFAULT '',
			document_number TEXT NOT NULL DEFAULT '',
			documents TEXT[] NOT NULL DEFAULT '{}',
			additional_notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS support_messages (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			subject TEXT NOT NULL,
			message TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'general',
			priority TEXT NOT NULL DEFAULT 'normal',
			status TEXT NOT NULL DEFAULT 'open',
			admin_response TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS instant_transfers (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			sender_id TEXT NOT NULL REFERENCES users(id),
			recipient_id TEXT NOT NULL REFERENCES users(id),
			amount DECIMAL(18, 2) NOT NULL CHECK (amount > 0),
			currency TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			reference_number TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
