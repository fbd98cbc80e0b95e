package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gitlab.com/yelinaung/wallet/internal/database"
	"gitlab.com/yelinaung/wallet/internal/models"
)

const verificationColumns = `id, user_id, country, date_of_birth, full_address, postal_code, document_type,
	document_number, documents, additional_notes, status, submitted_at, created_at`

func scanVerification(row rowScanner) (models.Verification, error) {
	var v models.Verification
	err := row.Scan(&v.ID, &v.UserID, &v.Country, &v.DateOfBirth, &v.FullAddress, &v.PostalCode, &v.DocumentType,
		&v.DocumentNumber, &v.Documents, &v.AdditionalNotes, &v.Status, &v.SubmittedAt, &v.CreatedAt)
	return v, err
}

// SubmitVerification files a verification request and marks the user as
// pending, both in one transaction.
func (s *Store) SubmitVerification(ctx context.Context, v models.Verification) (*models.Verification, error) {
	if v.Documents == nil {
		v.Documents = []string{}
	}

	var out models.Verification
	err := database.InTx(ctx, s.db, func(db database.PGXDB) error {
		var err error
		out, err = scanVerification(db.QueryRow(ctx, `
			INSERT INTO account_verifications (user_id, country, date_of_birth, full_address, postal_code,
				document_type, document_number, documents, additional_notes, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING `+verificationColumns,
			v.UserID, v.Country, v.DateOfBirth, v.FullAddress, v.PostalCode,
			v.DocumentType, v.DocumentNumber, v.Documents, v.AdditionalNotes, models.VerificationPending))
		if err != nil {
			return fmt.Errorf("failed to insert verification: %w", err)
		}

		if _, err := db.Exec(ctx, `
			UPDATE users SET verification_status = $2, updated_at = NOW() WHERE id = $1
		`, v.UserID, models.VerificationPending); err != nil {
			return fmt.Errorf("failed to mark verification pending: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVerification returns the latest verification request, or nil when the
// user never submitted one.
func (s *Store) GetVerification(ctx context.Context, userID string) (*models.Verification, error) {
	v, err := scanVerification(s.db.QueryRow(ctx, `
		SELECT `+verificationColumns+`
		FROM account_verifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}
	return &v, nil
}
