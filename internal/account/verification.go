package account

import (
	"context"
	"strings"

	"gitlab.com/yelinaung/wallet/internal/apperr"
	"gitlab.com/yelinaung/wallet/internal/logger"
	"gitlab.com/yelinaung/wallet/internal/models"
	"gitlab.com/yelinaung/wallet/internal/validation"
)

// VerificationRequest is an identity verification submission.
type VerificationRequest struct {
	validation.VerificationInput
	Documents       []string
	AdditionalNotes string
}

// SubmitVerification files an identity verification request. It starts in
// the pending state.
func (s *Service) SubmitVerification(ctx context.Context, userID string, req VerificationRequest) (*models.Verification, error) {
	if err := validation.ValidateVerification(req.VerificationInput, s.now()).Err(); err != nil {
		return nil, fail(apperr.OpGeneric, err)
	}
	dob, _ := validation.ParseDate(req.DateOfBirth)

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Submit)
	defer cancel()

	v, err := s.store.SubmitVerification(ctx, models.Verification{
		UserID:          userID,
		Country:         strings.TrimSpace(req.Country),
		DateOfBirth:     dob.Format("2006-01-02"),
		FullAddress:     strings.TrimSpace(req.FullAddress),
		PostalCode:      strings.TrimSpace(req.PostalCode),
		DocumentType:    strings.TrimSpace(req.DocumentType),
		DocumentNumber:  strings.TrimSpace(req.DocumentNumber),
		Documents:       req.Documents,
		AdditionalNotes: strings.TrimSpace(req.AdditionalNotes),
		Status:          models.VerificationPending,
		SubmittedAt:     s.now().UTC(),
	})
	if err != nil {
		return nil, fail(apperr.OpGeneric, err)
	}

	logger.Log.Info().Str("user_hash", logger.HashUserID(userID)).Msg("Verification submitted")
	return v, nil
}

// VerificationStatus returns the status of the latest request, or
// VerificationNone when nothing was submitted.
func (s *Service) VerificationStatus(ctx context.Context, userID string) (models.VerificationStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Session)
	defer cancel()

	v, err := s.store.GetVerification(ctx, userID)
	if err != nil {
		return models.VerificationNone, fail(apperr.OpGeneric, err)
	}
	if v == nil {
		return models.VerificationNone, nil
	}
	return v.Status, nil
}
