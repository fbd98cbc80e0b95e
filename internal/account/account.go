// Package account runs the authentication and profile flows: sign in,
// registration, email verification, password reset, referrals and identity
// verification.
//
// Every failure is returned as a *Failure carrying the message to show the
// user. The raw cause stays reachable through errors.Unwrap.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.com/yelinaung/wallet/internal/apperr"
	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/config"
	"gitlab.com/yelinaung/wallet/internal/logger"
	"gitlab.com/yelinaung/wallet/internal/models"
	"gitlab.com/yelinaung/wallet/internal/validation"
)

// MsgReferralUnknown is shown when a referral code matches nobody.
const MsgReferralUnknown = "referral code is not valid"

// Failure is a failed account operation ready for display.
type Failure struct {
	Op      apperr.Op
	Kind    apperr.Kind
	Message string
	Hint    string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func fail(op apperr.Op, err error) *Failure {
	return &Failure{
		Op:      op,
		Kind:    apperr.Classify(err),
		Message: apperr.Message(op, err),
		Hint:    apperr.Hint(op, err),
		Err:     err,
	}
}

// invalid merges validation failures into one error so every message is
// shown together.
func invalid(errs ...error) error {
	var msgs []string
	for _, err := range errs {
		var ve *validation.Error
		if errors.As(err, &ve) {
			msgs = append(msgs, ve.Messages...)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return &validation.Error{Messages: msgs}
}

// Store is the part of the backend the account flows read and write.
type Store interface {
	backend.ProfileStore
	backend.ReferralStore
	backend.VerificationStore
}

// Service runs account flows against an identity service and a store.
type Service struct {
	auth     backend.Auth
	store    Store
	timeouts config.Timeouts
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTimeouts overrides the per-operation timeouts. Zero fields keep their
// defaults.
func WithTimeouts(t config.Timeouts) Option {
	return func(s *Service) {
		if t.Session > 0 {
			s.timeouts.Session = t.Session
		}
		if t.Login > 0 {
			s.timeouts.Login = t.Login
		}
		if t.SignUp > 0 {
			s.timeouts.SignUp = t.SignUp
		}
		if t.Submit > 0 {
			s.timeouts.Submit = t.Submit
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service.
func New(auth backend.Auth, store Store, opts ...Option) *Service {
	s := &Service{
		auth:  auth,
		store: store,
		timeouts: config.Timeouts{
			Session: config.DefaultSessionTimeout,
			Login:   config.DefaultLoginTimeout,
			SignUp:  config.DefaultSignUpTimeout,
			Submit:  config.DefaultSubmitTimeout,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login is a signed-in user. Degraded is set when the session was opened but
// the profile could not be read; Profile then only carries the ID and email.
type Login struct {
	Session  *backend.Session
	Profile  models.Profile
	Degraded bool
}

// SignIn opens a session and reads the user's profile.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Login, error) {
	e := validation.ValidateEmail(email)
	pw := validation.ValidatePassword(password)
	if err := invalid(e.Err(), pw.Err()); err != nil {
		return nil, fail(apperr.OpSignIn, err)
	}

	lctx, cancel := context.WithTimeout(ctx, s.timeouts.Login)
	defer cancel()

	session, err := s.auth.SignIn(lctx, e.Value, password)
	if err != nil {
		logger.Log.Warn().Err(err).Str("email", logger.MaskEmail(e.Value)).Msg("Sign in failed")
		return nil, fail(apperr.OpSignIn, err)
	}

	login := &Login{
		Session: session,
		Profile: models.Profile{ID: session.User.ID, Email: session.User.Email},
	}

	pctx, cancel := context.WithTimeout(ctx, s.timeouts.Session)
	defer cancel()

	profile, err := s.store.GetProfile(pctx, session.User.ID)
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("user_hash", logger.HashUserID(session.User.ID)).
			Msg("Signed in but failed to load profile")
		login.Degraded = true
		return login, nil
	}
	login.Profile = *profile

	logger.Log.Info().Str("user_hash", logger.HashUserID(session.User.ID)).Msg("Signed in")
	return login, nil
}

// Registration is the outcome of a sign-up. Session is nil until the email
// address is confirmed.
type Registration struct {
	User              *models.User
	Session           *backend.Session
	NeedsConfirmation bool
	Referrer          *models.Referrer
}

// SignUp creates an account. A referral code, when given, must belong to an
// existing user.
func (s *Service) SignUp(ctx context.Context, in validation.RegistrationInput) (*Registration, error) {
	if err := validation.ValidateRegistration(in).Err(); err != nil {
		return nil, fail(apperr.OpSignUp, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.SignUp)
	defer cancel()

	var referrer *models.Referrer
	code := strings.ToUpper(strings.TrimSpace(in.ReferralCode))
	if code != "" {
		r, err := s.store.FindReferrer(ctx, code)
		if backend.IsNotFound(err) {
			return nil, fail(apperr.OpSignUp, &validation.Error{Messages: []string{MsgReferralUnknown}})
		}
		if err != nil {
			return nil, fail(apperr.OpSignUp, fmt.Errorf("failed to check referral code: %w", err))
		}
		referrer = r
	}

	email := validation.ValidateEmail(in.Email).Value
	user, session, err := s.auth.SignUp(ctx, email, in.Password, models.SignUpData{
		FullName:         strings.TrimSpace(in.FullName),
		Phone:            strings.TrimSpace(in.Phone),
		Username:         strings.TrimSpace(in.Username),
		Address:          strings.TrimSpace(in.Address),
		UsedReferralCode: code,
	})
	if err != nil {
		logger.Log.Warn().Err(err).Str("email", logger.MaskEmail(email)).Msg("Sign up failed")
		return nil, fail(apperr.OpSignUp, err)
	}

	logger.Log.Info().
		Str("user_hash", logger.HashUserID(user.ID)).
		Bool("referred", referrer != nil).
		Msg("Account registered")

	return &Registration{
		User:              user,
		Session:           session,
		NeedsConfirmation: !user.IsConfirmed(),
		Referrer:          referrer,
	}, nil
}

// SignOut ends the session.
func (s *Service) SignOut(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Session)
	defer cancel()
	if err := s.auth.SignOut(ctx); err != nil {
		return fail(apperr.OpGeneric, err)
	}
	return nil
}

// CurrentUser returns the user of the stored session, or nil when nobody is
// signed in. Lookup failures are logged, not returned.
func (s *Service) CurrentUser(ctx context.Context) *models.User {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Session)
	defer cancel()

	user, err := s.auth.CurrentUser(ctx)
	if err != nil {
		logger.Log.Debug().Err(err).Msg("No current session")
		return nil
	}
	return user
}

// VerifyEmail confirms an email address from the link sent at sign-up.
func (s *Service) VerifyEmail(ctx context.Context, tokenHash, kind string) error {
	if strings.TrimSpace(tokenHash) == "" {
		return fail(apperr.OpGeneric, &validation.Error{Messages: []string{"verification link is invalid"}})
	}
	if kind == "" {
		kind = "signup"
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Submit)
	defer cancel()
	if err := s.auth.VerifyEmail(ctx, tokenHash, kind); err != nil {
		return fail(apperr.OpGeneric, err)
	}
	return nil
}

// ResendVerification sends the confirmation email again.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	e := validation.ValidateEmail(email)
	if err := e.Err(); err != nil {
		return fail(apperr.OpGeneric, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Submit)
	defer cancel()
	if err := s.auth.ResendVerification(ctx, e.Value); err != nil {
		return fail(apperr.OpGeneric, err)
	}
	return nil
}

// RequestPasswordReset emails a reset link that returns to redirectTo.
func (s *Service) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	e := validation.ValidateEmail(email)
	if err := e.Err(); err != nil {
		return fail(apperr.OpGeneric, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Submit)
	defer cancel()
	if err := s.auth.RequestPasswordReset(ctx, e.Value, redirectTo); err != nil {
		return fail(apperr.OpGeneric, err)
	}
	return nil
}

// ResetPassword sets a new password for the signed-in (or recovering) user.
func (s *Service) ResetPassword(ctx context.Context, password, confirm string) error {
	pw := validation.ValidatePassword(password)
	errs := []error{pw.Err()}
	if password != confirm {
		errs = append(errs, &validation.Error{Messages: []string{validation.MsgPasswordMismatch}})
	}
	if err := invalid(errs...); err != nil {
		return fail(apperr.OpGeneric, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Submit)
	defer cancel()
	if err := s.auth.UpdatePassword(ctx, password); err != nil {
		return fail(apperr.OpGeneric, err)
	}
	return nil
}
