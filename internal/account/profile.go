package account

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"gitlab.com/yelinaung/wallet/internal/apperr"
	"gitlab.com/yelinaung/wallet/internal/models"
	"gitlab.com/yelinaung/wallet/internal/validation"
)

// Profile reads the user's profile.
func (s *Service) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Session)
	defer cancel()

	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fail(apperr.OpGeneric, err)
	}
	return p, nil
}

// UpdateProfile edits the profile. Set fields are trimmed; a blank name or
// username is refused, and a phone number must be well formed.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	var msgs []string
	trim := func(v *string, required string) {
		if v == nil {
			return
		}
		*v = strings.TrimSpace(*v)
		if *v == "" && required != "" {
			msgs = append(msgs, required)
		}
	}
	trim(update.FullName, validation.MsgFullNameRequired)
	trim(update.Username, validation.MsgUsernameRequired)
	trim(update.Address, "")
	if update.Phone != nil {
		phone := validation.ValidatePhone(*update.Phone)
		if !phone.Valid {
			msgs = append(msgs, phone.Error)
		}
		update.Phone = &phone.Value
	}
	if len(msgs) > 0 {
		return nil, fail(apperr.OpGeneric, &validation.Error{Messages: msgs})
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Submit)
	defer cancel()

	p, err := s.store.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, fail(apperr.OpGeneric, err)
	}
	return p, nil
}

// ReferralOverview is the referral screen: the user's code, stats and list.
type ReferralOverview struct {
	Code      string
	Stats     models.ReferralStats
	Referrals []models.Referral
}

// Referrals loads the referral code, stats and referred users concurrently.
func (s *Service) Referrals(ctx context.Context, userID string) (*ReferralOverview, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Session)
	defer cancel()

	var out ReferralOverview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.store.GetProfile(gctx, userID)
		if err != nil {
			return err
		}
		out.Code = p.ReferralCode
		return nil
	})
	g.Go(func() error {
		st, err := s.store.ReferralStats(gctx, userID, s.now())
		if err != nil {
			return err
		}
		out.Stats = *st
		return nil
	})
	g.Go(func() error {
		list, err := s.store.ListReferrals(gctx, userID)
		if err != nil {
			return err
		}
		out.Referrals = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fail(apperr.OpGeneric, err)
	}
	return &out, nil
}

// CheckReferralCode looks up who owns a referral code.
func (s *Service) CheckReferralCode(ctx context.Context, code string) (*models.Referrer, error) {
	c := validation.ValidateReferralCode(code)
	if err := c.Err(); err != nil {
		return nil, fail(apperr.OpGeneric, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Submit)
	defer cancel()

	r, err := s.store.FindReferrer(ctx, c.Value)
	if err != nil {
		return nil, fail(apperr.OpGeneric, err)
	}
	return r, nil
}
